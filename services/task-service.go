package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tracker-project/tracker-service/logging"
	"tracker-project/tracker-service/models"
	"tracker-project/tracker-service/repositories"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// TaskService owns the live task collection and enforces every lifecycle,
// authorization, and validation rule. The in-memory collection is the
// source of truth for the running session; persistence is a write-through
// side effect after each mutation and its failure never rolls a mutation
// back.
type TaskService struct {
	mu        sync.RWMutex
	tasks     []*models.Task
	users     map[string]models.User
	repo      repositories.TaskRepository
	breaker   *gobreaker.CircuitBreaker
	saveError error
}

// NewTaskService performs the one blocking load from the persistence
// collaborator. Empty storage seeds the default fixture tasks.
func NewTaskService(ctx context.Context, repo repositories.TaskRepository, users []models.User, breaker *gobreaker.CircuitBreaker) (*TaskService, error) {
	s := &TaskService{
		repo:    repo,
		breaker: breaker,
		users:   make(map[string]models.User, len(users)),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}

	tasks, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load task collection: %w", err)
	}
	if tasks == nil {
		tasks = DefaultTasks()
		logging.Logger.Infof("Event ID: STORE_SEEDED, Description: No stored tasks found, seeded %d default tasks", len(tasks))
	}
	s.tasks = tasks

	return s, nil
}

// CreateTaskRequest carries the caller-supplied fields for a new task.
type CreateTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	Status      models.TaskStatus   `json:"status"`
	AssigneeID  string              `json:"assigneeId"`
	DueDate     *time.Time          `json:"dueDate,omitempty"`
	Tags        []string            `json:"tags"`
}

// TaskUpdate is a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Priority    *models.TaskPriority `json:"priority,omitempty"`
	Status      *models.TaskStatus   `json:"status,omitempty"`
	AssigneeID  *string              `json:"assigneeId,omitempty"`
	DueDate     *time.Time           `json:"dueDate,omitempty"`
	Tags        *[]string            `json:"tags,omitempty"`
}

// TimeEntryRequest carries the caller-supplied fields for a logged work
// record. A zero Date means the current day.
type TimeEntryRequest struct {
	Duration    int       `json:"duration"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// CreateTask adds a new task created by the acting user. Any authenticated
// user may create; a manager may choose any initial status, while tasks
// created by a developer always start open.
func (s *TaskService) CreateTask(req CreateTaskRequest, actor models.User) (*models.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, models.NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, models.NewValidationError("description", "must not be empty")
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(req.Priority) {
		return nil, models.NewValidationError("priority", fmt.Sprintf("unknown priority %q", req.Priority))
	}
	if err := s.checkAssignee(req.AssigneeID); err != nil {
		return nil, err
	}

	status := models.StatusOpen
	if req.Status != "" {
		if !models.ValidStatus(req.Status) {
			return nil, models.NewValidationError("status", fmt.Sprintf("unknown status %q", req.Status))
		}
		if actor.Role != models.RoleManager && req.Status != models.StatusOpen {
			return nil, models.NewValidationError("status", "tasks created by a developer must start open")
		}
		status = req.Status
	}

	now := time.Now()
	task := &models.Task{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      status,
		AssigneeID:  req.AssigneeID,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueDate:     req.DueDate,
		Tags:        dedupeTags(req.Tags),
		Comments:    []models.Comment{},
		TimeEntries: []models.TimeEntry{},
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	result := task.Clone()
	s.mu.Unlock()

	s.persist()
	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created by user %s with status %s", task.ID, actor.ID, task.Status)
	return result, nil
}

// UpdateTask applies a partial field update. Managers edit any field on
// any task; a developer edits only tasks assigned to them, and status only
// along the workflow transitions. A developer may reassign a task away
// from themselves; the task then disappears from their own task list.
func (s *TaskService) UpdateTask(id string, upd TaskUpdate, actor models.User) (*models.Task, error) {
	s.mu.Lock()
	task := s.findLocked(id)
	if task == nil {
		s.mu.Unlock()
		return nil, models.NewNotFoundError("task", id)
	}

	if actor.Role != models.RoleManager && task.AssigneeID != actor.ID {
		s.mu.Unlock()
		return nil, models.NewAuthorizationError(actor.ID, "update a task assigned to someone else")
	}

	if err := s.validateUpdateLocked(task, upd, actor); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	applyUpdate(task, upd)
	touch(task)
	result := task.Clone()
	s.mu.Unlock()

	s.persist()
	logging.Logger.Infof("Event ID: TASK_UPDATED, Description: Task %s updated by user %s", id, actor.ID)
	return result, nil
}

// validateUpdateLocked checks field values and the status rules before
// anything is applied, so a rejected update leaves the task untouched.
func (s *TaskService) validateUpdateLocked(task *models.Task, upd TaskUpdate, actor models.User) error {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return models.NewValidationError("title", "must not be empty")
	}
	if upd.Description != nil && strings.TrimSpace(*upd.Description) == "" {
		return models.NewValidationError("description", "must not be empty")
	}
	if upd.Priority != nil && !models.ValidPriority(*upd.Priority) {
		return models.NewValidationError("priority", fmt.Sprintf("unknown priority %q", *upd.Priority))
	}
	if upd.AssigneeID != nil {
		if err := s.checkAssignee(*upd.AssigneeID); err != nil {
			return err
		}
	}
	if upd.Status != nil && *upd.Status != task.Status {
		if !models.ValidStatus(*upd.Status) {
			return models.NewValidationError("status", fmt.Sprintf("unknown status %q", *upd.Status))
		}
		// Managers set status freely; developers only along the workflow.
		if actor.Role != models.RoleManager {
			if err := checkTransition(task, *upd.Status, actor); err != nil {
				return err
			}
		}
	}
	return nil
}

// ChangeTaskStatus performs one named workflow transition:
//
//	open             -> in-progress      (assigned developer)
//	in-progress      -> pending-approval (assigned developer)
//	pending-approval -> in-progress      (manager reopen)
//	pending-approval -> closed           (manager approve)
//
// Anything outside this table is rejected; managers wanting an arbitrary
// status use UpdateTask instead.
func (s *TaskService) ChangeTaskStatus(id string, status models.TaskStatus, actor models.User) (*models.Task, error) {
	if !models.ValidStatus(status) {
		return nil, models.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	s.mu.Lock()
	task := s.findLocked(id)
	if task == nil {
		s.mu.Unlock()
		return nil, models.NewNotFoundError("task", id)
	}
	if err := checkTransition(task, status, actor); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	task.Status = status
	touch(task)
	result := task.Clone()
	s.mu.Unlock()

	s.persist()
	logging.Logger.Infof("Event ID: TASK_STATUS_CHANGED, Description: Task %s moved to %s by user %s", id, status, actor.ID)
	return result, nil
}

// DeleteTask removes a task permanently. Manager only.
func (s *TaskService) DeleteTask(id string, actor models.User) error {
	if actor.Role != models.RoleManager {
		return models.NewAuthorizationError(actor.ID, "delete tasks")
	}

	s.mu.Lock()
	idx := -1
	for i, t := range s.tasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return models.NewNotFoundError("task", id)
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.mu.Unlock()

	s.persist()
	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted by manager %s", id, actor.ID)
	return nil
}

// AddTimeEntry appends a logged-work record to a task. Only the assigned
// developer logs time against their own task.
func (s *TaskService) AddTimeEntry(taskID string, req TimeEntryRequest, actor models.User) (*models.TimeEntry, error) {
	s.mu.Lock()
	task := s.findLocked(taskID)
	if task == nil {
		s.mu.Unlock()
		return nil, models.NewNotFoundError("task", taskID)
	}
	if actor.Role != models.RoleDeveloper || task.AssigneeID != actor.ID {
		s.mu.Unlock()
		return nil, models.NewAuthorizationError(actor.ID, "log time against this task")
	}
	if req.Duration <= 0 {
		s.mu.Unlock()
		return nil, models.NewValidationError("duration", "must be greater than zero")
	}
	if strings.TrimSpace(req.Description) == "" {
		s.mu.Unlock()
		return nil, models.NewValidationError("description", "must not be empty")
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}
	entry := models.TimeEntry{
		ID:          uuid.New().String(),
		TaskID:      task.ID,
		UserID:      actor.ID,
		Duration:    req.Duration,
		Description: req.Description,
		Date:        date,
	}
	task.TimeEntries = append(task.TimeEntries, entry)
	touch(task)
	s.mu.Unlock()

	s.persist()
	logging.Logger.Infof("Event ID: TIME_ENTRY_ADDED, Description: User %s logged %d minutes on task %s", actor.ID, req.Duration, taskID)
	return &entry, nil
}

// GetAllTasks returns the viewer-scoped task list: everything for a
// manager, only self-assigned tasks for a developer. The filter is a
// storage-independent view; the store always holds all tasks.
func (s *TaskService) GetAllTasks(actor models.User) []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if actor.Role == models.RoleManager || t.AssigneeID == actor.ID {
			tasks = append(tasks, t.Clone())
		}
	}
	return tasks
}

// TaskFilter narrows a viewer-scoped list further. Zero values match
// everything.
type TaskFilter struct {
	Search   string
	Status   models.TaskStatus
	Priority models.TaskPriority
}

// FilterTasks applies free-text search over title, description, and tags
// plus exact status/priority filters on top of the role-based view.
func (s *TaskService) FilterTasks(actor models.User, filter TaskFilter) []*models.Task {
	tasks := s.GetAllTasks(actor)
	if filter == (TaskFilter{}) {
		return tasks
	}

	needle := strings.ToLower(strings.TrimSpace(filter.Search))
	filtered := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		if needle != "" && !matchesSearch(t, needle) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

func matchesSearch(t *models.Task, needle string) bool {
	if strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// GetTaskByID looks a task up regardless of viewer.
func (s *TaskService) GetTaskByID(id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task := s.findLocked(id)
	if task == nil {
		return nil, models.NewNotFoundError("task", id)
	}
	return task.Clone(), nil
}

// UserByID resolves reference user data.
func (s *TaskService) UserByID(id string) (models.User, bool) {
	u, ok := s.users[id]
	return u, ok
}

// PersistWarning returns the failure of the most recent write-through
// save, if any. Saves are best-effort: the in-memory collection stays
// authoritative and callers only surface the warning.
func (s *TaskService) PersistWarning() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveError
}

// persist hands a snapshot of the collection to the persistence
// collaborator through the circuit breaker. Failures are logged and
// recorded, never propagated to the caller of the mutating operation.
func (s *TaskService) persist() {
	s.mu.RLock()
	snapshot := make([]*models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		snapshot = append(snapshot, t.Clone())
	}
	s.mu.RUnlock()

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.repo.Save(context.Background(), snapshot)
	})

	s.mu.Lock()
	s.saveError = err
	s.mu.Unlock()

	if err != nil {
		logging.Logger.Warnf("Event ID: STORE_SAVE_FAILED, Description: Write-through save failed, in-memory state remains authoritative: %v", err)
	}
}

// findLocked returns the live record; callers must hold the lock.
func (s *TaskService) findLocked(id string) *models.Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// checkAssignee verifies that the id resolves to a developer user.
func (s *TaskService) checkAssignee(id string) error {
	user, ok := s.users[id]
	if !ok {
		return models.NewValidationError("assigneeId", fmt.Sprintf("user %s does not exist", id))
	}
	if user.Role != models.RoleDeveloper {
		return models.NewValidationError("assigneeId", fmt.Sprintf("user %s is not a developer", id))
	}
	return nil
}

// checkTransition enforces the workflow table. Developer moves require
// the actor to be the assigned developer; approval moves require the
// manager role.
func checkTransition(task *models.Task, to models.TaskStatus, actor models.User) error {
	type transition struct {
		from, to models.TaskStatus
	}
	requiredRole, ok := map[transition]models.Role{
		{models.StatusOpen, models.StatusInProgress}:            models.RoleDeveloper,
		{models.StatusInProgress, models.StatusPendingApproval}: models.RoleDeveloper,
		{models.StatusPendingApproval, models.StatusInProgress}: models.RoleManager,
		{models.StatusPendingApproval, models.StatusClosed}:     models.RoleManager,
	}[transition{task.Status, to}]
	if !ok {
		return models.NewValidationError("status", fmt.Sprintf("no workflow transition from %s to %s", task.Status, to))
	}

	switch requiredRole {
	case models.RoleDeveloper:
		if actor.Role != models.RoleDeveloper || task.AssigneeID != actor.ID {
			return models.NewAuthorizationError(actor.ID, fmt.Sprintf("move task %s to %s", task.ID, to))
		}
	case models.RoleManager:
		if actor.Role != models.RoleManager {
			return models.NewAuthorizationError(actor.ID, fmt.Sprintf("move task %s to %s", task.ID, to))
		}
	}
	return nil
}

func applyUpdate(task *models.Task, upd TaskUpdate) {
	if upd.Title != nil {
		task.Title = *upd.Title
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.Priority != nil {
		task.Priority = *upd.Priority
	}
	if upd.Status != nil {
		task.Status = *upd.Status
	}
	if upd.AssigneeID != nil {
		task.AssigneeID = *upd.AssigneeID
	}
	if upd.DueDate != nil {
		due := *upd.DueDate
		task.DueDate = &due
	}
	if upd.Tags != nil {
		task.Tags = dedupeTags(*upd.Tags)
	}
}

// touch bumps updatedAt, keeping it monotonic even if the wall clock
// moved backwards.
func touch(task *models.Task) {
	now := time.Now()
	if now.Before(task.UpdatedAt) {
		now = task.UpdatedAt
	}
	task.UpdatedAt = now
}

// dedupeTags keeps first occurrences in order.
func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
