package models

import "time"

// Exam represents a scheduled examination requiring proctors.
type Exam struct {
	ID                string    `db:"id" json:"id"`
	CourseID          string    `db:"course_id" json:"course_id"`
	CourseCode        string    `db:"course_code" json:"course_code"`
	Department        string    `db:"department" json:"department"`
	StartsAt          time.Time `db:"starts_at" json:"starts_at"`
	DurationMinutes   int       `db:"duration_minutes" json:"duration_minutes"`
	ExamType          string    `db:"exam_type" json:"exam_type"`
	GradCourse        bool      `db:"grad_course" json:"grad_course"`
	ProctorNum        int       `db:"proctor_num" json:"proctor_num"`
	ManualAssignedTAs int       `db:"manual_assigned_tas" json:"manual_assigned_tas"`
	AutoAssignedTAs   int       `db:"auto_assigned_tas" json:"auto_assigned_tas"`
	SwapCount         int       `db:"swap_count" json:"swap_count"`
	Outdated          bool      `db:"outdated" json:"outdated"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Date returns the exam's calendar date truncated to midnight UTC.
func (e *Exam) Date() time.Time {
	y, m, d := e.StartsAt.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether the exam falls on a Saturday or Sunday.
func (e *Exam) IsWeekend() bool {
	switch e.StartsAt.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}
