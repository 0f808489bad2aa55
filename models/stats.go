package models

type TaskStats struct {
	Total           int `json:"total"`
	Open            int `json:"open"`
	InProgress      int `json:"inProgress"`
	PendingApproval int `json:"pendingApproval"`
	Closed          int `json:"closed"`

	// TotalMinutes is the sum of all time-entry durations in the
	// viewer-scoped set. CompletionRate is closed/total as a whole
	// percentage, 0 for an empty set.
	TotalMinutes   int `json:"totalMinutes"`
	CompletionRate int `json:"completionRate"`
}

// DailyActivity is one point of the trailing activity series: the number
// of tasks worked on that calendar day and the hours logged on it.
type DailyActivity struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	Tasks      int     `json:"tasks"`
	HoursSpent float64 `json:"timeSpent"` // one-decimal hours
}
