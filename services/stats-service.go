package services

import (
	"math"
	"time"

	"tracker-project/tracker-service/models"
)

// DefaultActivityDays is the trailing window of the daily activity
// series, today inclusive.
const DefaultActivityDays = 7

// StatsService answers read-only aggregate queries over the viewer-scoped
// task set.
type StatsService struct {
	tasks *TaskService
}

func NewStatsService(tasks *TaskService) *StatsService {
	return &StatsService{tasks: tasks}
}

// GetTaskStats tallies tasks by status, sums logged minutes, and derives
// the completion rate for the tasks visible to the acting user.
func (s *StatsService) GetTaskStats(actor models.User) models.TaskStats {
	tasks := s.tasks.GetAllTasks(actor)

	stats := models.TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case models.StatusOpen:
			stats.Open++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusPendingApproval:
			stats.PendingApproval++
		case models.StatusClosed:
			stats.Closed++
		}
		for _, entry := range t.TimeEntries {
			stats.TotalMinutes += entry.Duration
		}
	}

	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Closed) / float64(stats.Total) * 100))
	}
	return stats
}

// GetDailyActivity produces the trailing daily series, oldest day first,
// zero-filled and always exactly `days` long. A day counts a task when at
// least one of its time entries is dated that local calendar day; hours
// are the day's summed durations rounded to one decimal.
func (s *StatsService) GetDailyActivity(actor models.User, days int) []models.DailyActivity {
	if days <= 0 {
		days = DefaultActivityDays
	}
	tasks := s.tasks.GetAllTasks(actor)
	today := time.Now()

	series := make([]models.DailyActivity, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Local().Format("2006-01-02")

		tasksWorked := 0
		minutes := 0
		for _, t := range tasks {
			worked := false
			for _, entry := range t.TimeEntries {
				if entry.Date.Local().Format("2006-01-02") == day {
					worked = true
					minutes += entry.Duration
				}
			}
			if worked {
				tasksWorked++
			}
		}

		series = append(series, models.DailyActivity{
			Date:       day,
			Tasks:      tasksWorked,
			HoursSpent: math.Round(float64(minutes)/60*10) / 10,
		})
	}
	return series
}
