package models

import "time"

// LeaveStatus enumerates leave request states.
type LeaveStatus string

const (
	LeaveWaiting  LeaveStatus = "waiting"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// LeaveRequest is an assistant's absence request over an inclusive date
// range. Only approved requests affect proctoring eligibility.
type LeaveRequest struct {
	ID          string      `db:"id" json:"id"`
	AssistantID string      `db:"assistant_id" json:"assistant_id"`
	Status      LeaveStatus `db:"status" json:"status"`
	StartDate   time.Time   `db:"start_date" json:"start_date"`
	EndDate     time.Time   `db:"end_date" json:"end_date"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// Covers reports whether the leave range includes the given calendar date.
func (l *LeaveRequest) Covers(date time.Time) bool {
	d := date.UTC().Truncate(24 * time.Hour)
	return !d.Before(l.StartDate.UTC().Truncate(24*time.Hour)) && !d.After(l.EndDate.UTC().Truncate(24*time.Hour))
}
