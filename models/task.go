package models

import "time"

type TaskStatus string

const (
	StatusOpen            TaskStatus = "open"
	StatusInProgress      TaskStatus = "in-progress"
	StatusPendingApproval TaskStatus = "pending-approval"
	StatusClosed          TaskStatus = "closed"
)

// ValidStatus reports whether s is one of the four lifecycle states.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusPendingApproval, StatusClosed:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Task struct {
	ID          string       `json:"id" bson:"_id"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description" bson:"description"`
	Priority    TaskPriority `json:"priority" bson:"priority"`
	Status      TaskStatus   `json:"status" bson:"status"`
	AssigneeID  string       `json:"assigneeId" bson:"assigneeId"`
	CreatedBy   string       `json:"createdBy" bson:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updatedAt"`
	DueDate     *time.Time   `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	Tags        []string     `json:"tags" bson:"tags"`
	Comments    []Comment    `json:"comments" bson:"comments"`
	TimeEntries []TimeEntry  `json:"timeEntries" bson:"timeEntries"`
}

// Comment is part of the stored task record. No operation currently
// appends to it; the field is kept so stored data round-trips intact.
type Comment struct {
	ID        string    `json:"id" bson:"id"`
	TaskID    string    `json:"taskId" bson:"taskId"`
	UserID    string    `json:"userId" bson:"userId"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

type TimeEntry struct {
	ID          string    `json:"id" bson:"id"`
	TaskID      string    `json:"taskId" bson:"taskId"`
	UserID      string    `json:"userId" bson:"userId"`
	Duration    int       `json:"duration" bson:"duration"` // minutes
	Description string    `json:"description" bson:"description"`
	Date        time.Time `json:"date" bson:"date"`
}

// Clone returns a deep copy of the task. The store hands out clones so
// callers can never mutate its records directly.
func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	c.Tags = append([]string(nil), t.Tags...)
	c.Comments = append([]Comment(nil), t.Comments...)
	c.TimeEntries = append([]TimeEntry(nil), t.TimeEntries...)
	return &c
}
