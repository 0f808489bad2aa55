package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"tracker-project/tracker-service/middleware"
	"tracker-project/tracker-service/models"
	"tracker-project/tracker-service/repositories"
	"tracker-project/tracker-service/services"

	"github.com/gorilla/mux"
	"github.com/sony/gobreaker"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo := repositories.NewFileTaskRepository(filepath.Join(t.TempDir(), "tasks.json"))
	if err := repo.Save(context.Background(), []*models.Task{}); err != nil {
		t.Fatal(err)
	}

	users := services.DefaultUsers()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"})
	taskService, err := services.NewTaskService(context.Background(), repo, users, breaker)
	if err != nil {
		t.Fatalf("NewTaskService: %v", err)
	}
	taskHandler := NewTaskHandler(taskService, services.NewStatsService(taskService))
	loginHandler := NewLoginHandler(users)

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
	api.HandleFunc("/stats", taskHandler.GetTaskStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/daily", taskHandler.GetDailyActivity).Methods(http.MethodGet)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func login(t *testing.T, server *httptest.Server, email string) string {
	t.Helper()

	body, _ := json.Marshal(LoginRequest{Email: email, Password: services.FixturePassword})
	resp, err := http.Post(server.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login for %s returned %d", email, resp.StatusCode)
	}

	var lr LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	return lr.Token
}

func doJSON(t *testing.T, server *httptest.Server, method, path, token string, payload interface{}) *http.Response {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &body)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server := newTestServer(t)

	body, _ := json.Marshal(LoginRequest{Email: "dev@example.com", Password: "wrong"})
	resp, err := http.Post(server.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password returned %d, want 401", resp.StatusCode)
	}
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, server, http.MethodGet, "/api/tasks", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing token returned %d, want 401", resp.StatusCode)
	}
}

func TestErrorTaxonomyMapping(t *testing.T) {
	server := newTestServer(t)
	managerToken := login(t, server, "manager@example.com")
	devToken := login(t, server, "dev@example.com")

	// ValidationError -> 400.
	resp := doJSON(t, server, http.MethodPost, "/api/tasks", managerToken, services.CreateTaskRequest{
		Title: "", Description: "d", AssigneeID: "1",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("validation failure returned %d, want 400", resp.StatusCode)
	}

	// NotFoundError -> 404.
	resp = doJSON(t, server, http.MethodGet, "/api/tasks/does-not-exist", managerToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown task returned %d, want 404", resp.StatusCode)
	}

	// AuthorizationError -> 403.
	created := doJSON(t, server, http.MethodPost, "/api/tasks", managerToken, services.CreateTaskRequest{
		Title: "Crash on startup", Description: "Segfault in init.", AssigneeID: "1",
	})
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("create returned %d", created.StatusCode)
	}
	var task models.Task
	if err := json.NewDecoder(created.Body).Decode(&task); err != nil {
		t.Fatal(err)
	}

	resp = doJSON(t, server, http.MethodDelete, "/api/tasks/"+task.ID, devToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("developer delete returned %d, want 403", resp.StatusCode)
	}
}

func TestWorkflowOverHTTP(t *testing.T) {
	server := newTestServer(t)
	managerToken := login(t, server, "manager@example.com")
	devToken := login(t, server, "dev@example.com")

	created := doJSON(t, server, http.MethodPost, "/api/tasks", managerToken, services.CreateTaskRequest{
		Title: "Memory leak in worker", Description: "RSS grows unbounded.", AssigneeID: "1",
	})
	var task models.Task
	if err := json.NewDecoder(created.Body).Decode(&task); err != nil {
		t.Fatal(err)
	}

	logTime := doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/tasks/%s/time-entries", task.ID), devToken,
		services.TimeEntryRequest{Duration: 150, Description: "Heap profiling"})
	if logTime.StatusCode != http.StatusCreated {
		t.Fatalf("time entry returned %d", logTime.StatusCode)
	}

	for _, step := range []struct {
		status models.TaskStatus
		token  string
	}{
		{models.StatusInProgress, devToken},
		{models.StatusPendingApproval, devToken},
		{models.StatusClosed, managerToken},
	} {
		resp := doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/tasks/%s/status", task.ID), step.token,
			map[string]models.TaskStatus{"status": step.status})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transition to %s returned %d", step.status, resp.StatusCode)
		}
	}

	statsResp := doJSON(t, server, http.MethodGet, "/api/stats", managerToken, nil)
	var stats models.TaskStats
	if err := json.NewDecoder(statsResp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Closed != 1 || stats.TotalMinutes != 150 {
		t.Errorf("stats = %+v, want closed:1 totalMinutes:150", stats)
	}
}

func TestTaskListIsViewerScoped(t *testing.T) {
	server := newTestServer(t)
	managerToken := login(t, server, "manager@example.com")
	dev2Token := login(t, server, "dev2@example.com")

	for _, assignee := range []string{"1", "1", "3"} {
		resp := doJSON(t, server, http.MethodPost, "/api/tasks", managerToken, services.CreateTaskRequest{
			Title: "Scoped task", Description: "d", AssigneeID: assignee,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create returned %d", resp.StatusCode)
		}
	}

	listLen := func(token string) int {
		resp := doJSON(t, server, http.MethodGet, "/api/tasks", token, nil)
		var tasks []models.Task
		if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
			t.Fatal(err)
		}
		return len(tasks)
	}
	if got := listLen(managerToken); got != 3 {
		t.Errorf("manager list length = %d, want 3", got)
	}
	if got := listLen(dev2Token); got != 1 {
		t.Errorf("dev2 list length = %d, want 1", got)
	}
}

func TestDailyActivityEndpoint(t *testing.T) {
	server := newTestServer(t)
	managerToken := login(t, server, "manager@example.com")

	resp := doJSON(t, server, http.MethodGet, "/api/stats/daily", managerToken, nil)
	var series []models.DailyActivity
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		t.Fatal(err)
	}
	if len(series) != services.DefaultActivityDays {
		t.Errorf("default series length = %d, want %d", len(series), services.DefaultActivityDays)
	}

	resp = doJSON(t, server, http.MethodGet, "/api/stats/daily?days=bogus", managerToken, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bogus days returned %d, want 400", resp.StatusCode)
	}
}
