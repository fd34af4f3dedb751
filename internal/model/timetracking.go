package model

import "time"

type TimeEntry struct {
	ID              int64      `json:"id"`
	TaskID          int64      `json:"task_id"`
	UserID          int64      `json:"user_id"`
	Description     string     `json:"description,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	Billable        bool       `json:"billable,omitempty"`
}

// Timer is the server-side running clock for a task. Pause accounting is done by
// the server; the client only derives the displayed elapsed time from it.
type Timer struct {
	ID          int64      `json:"id"`
	TaskID      int64      `json:"task_id"`
	UserID      int64      `json:"user_id"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	IsRunning   bool       `json:"is_running"`
	IsPaused    bool       `json:"is_paused"`
	PausedAt    *time.Time `json:"paused_at,omitempty"`

	// TotalPauseDuration is the accumulated paused time, in seconds.
	TotalPauseDuration int64 `json:"total_pause_duration"`
}

type TaskEstimate struct {
	TaskID         int64   `json:"task_id"`
	EstimatedHours float64 `json:"estimated_hours"`
	StoryPoints    *int    `json:"story_points,omitempty"`
}

type TaskProgress struct {
	TaskID          int64   `json:"task_id"`
	EstimatedHours  float64 `json:"estimated_hours"`
	LoggedHours     float64 `json:"logged_hours"`
	RemainingHours  float64 `json:"remaining_hours"`
	PercentComplete float64 `json:"percent_complete"`
}

type TimeSheet struct {
	UserID       int64            `json:"user_id"`
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
	Entries      []TimeEntry      `json:"entries"`
	TotalSeconds int64            `json:"total_seconds"`
	ByDay        map[string]int64 `json:"by_day,omitempty"`
}

type VelocityPoint struct {
	Period          string  `json:"period"`
	PlannedPoints   float64 `json:"planned_points"`
	CompletedPoints float64 `json:"completed_points"`
}
