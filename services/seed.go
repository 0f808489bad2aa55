package services

import (
	"time"

	"tracker-project/tracker-service/models"

	"golang.org/x/crypto/bcrypt"
)

// FixturePassword is the shared password of the mock user fixtures. The
// authentication collaborator is a stand-in; real credential handling is
// out of scope.
const FixturePassword = "password123"

var fixturePasswordHash, _ = bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.DefaultCost)

// DefaultUsers returns the mock user fixtures.
func DefaultUsers() []models.User {
	return []models.User{
		{ID: "1", Email: "dev@example.com", Name: "John Developer", Role: models.RoleDeveloper},
		{ID: "2", Email: "manager@example.com", Name: "Sarah Manager", Role: models.RoleManager},
		{ID: "3", Email: "dev2@example.com", Name: "Alice Smith", Role: models.RoleDeveloper},
	}
}

// CredentialHash returns the stored bcrypt hash for an email, if the
// email belongs to a fixture user.
func CredentialHash(email string) ([]byte, bool) {
	for _, u := range DefaultUsers() {
		if u.Email == email {
			return fixturePasswordHash, true
		}
	}
	return nil, false
}

// DefaultTasks is the fixture collection seeded when storage is empty.
func DefaultTasks() []*models.Task {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	due := func(y int, m time.Month, d int) *time.Time {
		t := day(y, m, d)
		return &t
	}

	return []*models.Task{
		{
			ID:          "1",
			Title:       "Fix login authentication bug",
			Description: "Users are unable to login after password reset. The session token appears to be corrupted.",
			Priority:    models.PriorityHigh,
			Status:      models.StatusInProgress,
			AssigneeID:  "1",
			CreatedBy:   "2",
			CreatedAt:   day(2024, time.January, 15),
			UpdatedAt:   day(2024, time.January, 16),
			DueDate:     due(2024, time.January, 20),
			Tags:        []string{"authentication", "urgent"},
			Comments:    []models.Comment{},
			TimeEntries: []models.TimeEntry{
				{ID: "1", TaskID: "1", UserID: "1", Duration: 120, Description: "Investigating session token issue", Date: day(2024, time.January, 16)},
			},
		},
		{
			ID:          "2",
			Title:       "Implement dark mode toggle",
			Description: "Add a dark mode toggle to the application header with proper theme persistence.",
			Priority:    models.PriorityMedium,
			Status:      models.StatusOpen,
			AssigneeID:  "3",
			CreatedBy:   "2",
			CreatedAt:   day(2024, time.January, 14),
			UpdatedAt:   day(2024, time.January, 14),
			DueDate:     due(2024, time.January, 25),
			Tags:        []string{"ui", "enhancement"},
			Comments:    []models.Comment{},
			TimeEntries: []models.TimeEntry{},
		},
		{
			ID:          "3",
			Title:       "Database performance optimization",
			Description: "Query performance has degraded significantly. Need to optimize database indexes and queries.",
			Priority:    models.PriorityCritical,
			Status:      models.StatusPendingApproval,
			AssigneeID:  "1",
			CreatedBy:   "1",
			CreatedAt:   day(2024, time.January, 10),
			UpdatedAt:   day(2024, time.January, 17),
			DueDate:     due(2024, time.January, 18),
			Tags:        []string{"database", "performance"},
			Comments:    []models.Comment{},
			TimeEntries: []models.TimeEntry{
				{ID: "2", TaskID: "3", UserID: "1", Duration: 240, Description: "Analyzing slow queries", Date: day(2024, time.January, 16)},
				{ID: "3", TaskID: "3", UserID: "1", Duration: 180, Description: "Implementing index optimizations", Date: day(2024, time.January, 17)},
			},
		},
		{
			ID:          "4",
			Title:       "API rate limiting implementation",
			Description: "Implement rate limiting for public API endpoints to prevent abuse.",
			Priority:    models.PriorityMedium,
			Status:      models.StatusClosed,
			AssigneeID:  "3",
			CreatedBy:   "2",
			CreatedAt:   day(2024, time.January, 8),
			UpdatedAt:   day(2024, time.January, 12),
			DueDate:     due(2024, time.January, 15),
			Tags:        []string{"api", "security"},
			Comments:    []models.Comment{},
			TimeEntries: []models.TimeEntry{
				{ID: "4", TaskID: "4", UserID: "3", Duration: 300, Description: "Implementing rate limiting middleware", Date: day(2024, time.January, 10)},
			},
		},
	}
}
