package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"tracker-project/tracker-service/logging"
	"tracker-project/tracker-service/middleware"
	"tracker-project/tracker-service/models"
	"tracker-project/tracker-service/services"

	"github.com/gorilla/mux"
)

type TaskHandler struct {
	service *services.TaskService
	stats   *services.StatsService
}

func NewTaskHandler(service *services.TaskService, stats *services.StatsService) *TaskHandler {
	return &TaskHandler{service: service, stats: stats}
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var validation *models.ValidationError
	var authorization *models.AuthorizationError
	var notFound *models.NotFoundError

	switch {
	case errors.As(err, &validation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &authorization):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSON replies with the payload, annotating the response with the
// best-effort persistence warning when the last save failed.
func (h *TaskHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if warn := h.service.PersistWarning(); warn != nil {
		w.Header().Set("X-Persist-Warning", warn.Error())
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func actingUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return models.User{}, false
	}
	return user, true
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actingUser(w, r)
	if !ok {
		return
	}

	var req services.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	task, err := h.service.CreateTask(req, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actingUser(w, r)
	if !ok {
		return
	}

	filter := services.TaskFilter{
		Search:   r.URL.Query().Get("search"),
		Status:   models.TaskStatus(r.URL.Query().Get("status")),
		Priority: models.TaskPriority(r.URL.Query().Get("priority")),
	}

	h.writeJSON(w, http.StatusOK, h.service.FilterTasks(actor, filter))
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := actingUser(w, r); !ok {
		return
	}

	task, err := h.service.GetTaskByID(mux.Vars(r)["taskID"])
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actingUser(w, r)
	if !ok {
		return
	}

	var upd services.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	task, err := h.service.UpdateTask(mux.Vars(r)["taskID"], upd, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, task)
}

// ChangeTaskStatus is the named workflow action behind the status
// buttons, as opposed to a general field edit.
func (h *TaskHandler) ChangeTaskStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actingUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Status models.TaskStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	task, err := h.service.ChangeTaskStatus(mux.Vars(r)["taskID"], req.Status, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actingUser(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteTask(mux.Vars(r)["taskID"], actor); err != nil {
		writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func (h *TaskHandler) AddTimeEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := actingUser(w, r)
	if !ok {
		return
	}

	var req services.TimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	entry, err := h.service.AddTimeEntry(mux.Vars(r)["taskID"], req, actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, entry)
}

// GetTimeEntries returns a task's entries in stored append order;
// presentation ordering is the caller's concern.
func (h *TaskHandler) GetTimeEntries(w http.ResponseWriter, r *http.Request) {
	if _, ok := actingUser(w, r); !ok {
		return
	}

	task, err := h.service.GetTaskByID(mux.Vars(r)["taskID"])
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, task.TimeEntries)
}

func (h *TaskHandler) GetTaskStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := actingUser(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, h.stats.GetTaskStats(actor))
}

func (h *TaskHandler) GetDailyActivity(w http.ResponseWriter, r *http.Request) {
	actor, ok := actingUser(w, r)
	if !ok {
		return
	}

	days := services.DefaultActivityDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	logging.Logger.Debugf("Event ID: DAILY_ACTIVITY_QUERY, Description: Daily activity requested by user %s for %d days", actor.ID, days)
	h.writeJSON(w, http.StatusOK, h.stats.GetDailyActivity(actor, days))
}
