package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"tracker-project/tracker-service/handlers"
	"tracker-project/tracker-service/logging"
	"tracker-project/tracker-service/middleware"
	"tracker-project/tracker-service/repositories"
	"tracker-project/tracker-service/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// newTaskRepository picks the persistence collaborator: a MongoDB
// collection when STORAGE_BACKEND=mongo, otherwise a JSON blob file.
func newTaskRepository(ctx context.Context) (repositories.TaskRepository, func(), error) {
	if os.Getenv("STORAGE_BACKEND") == "mongo" {
		mongoURI := os.Getenv("MONGO_URI")
		mongoDBName := os.Getenv("MONGO_DB_NAME")
		mongoCollectionName := os.Getenv("MONGO_COLLECTION")

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("database connection for MongoDB failed: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, fmt.Errorf("MongoDB connection ping error: %w", err)
		}
		logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

		collection := client.Database(mongoDBName).Collection(mongoCollectionName)
		cleanup := func() { client.Disconnect(context.Background()) }
		return repositories.NewMongoTaskRepository(collection), cleanup, nil
	}

	path := os.Getenv("TASKS_FILE")
	if path == "" {
		path = "data/tasks.json"
	}
	logging.Logger.Infof("Event ID: FILE_STORE_SELECTED, Description: Using JSON blob storage at %s", path)
	return repositories.NewFileTaskRepository(path), func() {}, nil
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Tracker Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, cleanup, err := newTaskRepository(ctx)
	if err != nil {
		logging.Logger.Fatalf("Event ID: STORAGE_INIT_FAILED, Description: %v", err)
	}
	defer cleanup()

	storageBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "TaskStorageCB",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	users := services.DefaultUsers()
	taskService, err := services.NewTaskService(ctx, repo, users, storageBreaker)
	if err != nil {
		logging.Logger.Fatalf("Event ID: STORE_LOAD_FAILED, Description: %v", err)
	}
	statsService := services.NewStatsService(taskService)

	taskHandler := handlers.NewTaskHandler(taskService, statsService)
	loginHandler := handlers.NewLoginHandler(users)

	r := mux.NewRouter()
	r.HandleFunc("/api/login", loginHandler.Login).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.JWTAuthMiddleware)
	api.HandleFunc("/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks", taskHandler.GetAllTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}", taskHandler.GetTaskByID).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}", taskHandler.UpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskID}", taskHandler.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskID}/status", taskHandler.ChangeTaskStatus).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/time-entries", taskHandler.AddTimeEntry).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/time-entries", taskHandler.GetTimeEntries).Methods(http.MethodGet)
	api.HandleFunc("/stats", taskHandler.GetTaskStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/daily", taskHandler.GetDailyActivity).Methods(http.MethodGet)

	corsRouter := enableCORS(r)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
