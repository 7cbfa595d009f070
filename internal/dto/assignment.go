package dto

import (
	"time"

	"github.com/campus-ops/proctor-api/internal/models"
)

// AssignProctorsRequest drives the assignment orchestrator. Either ExamID
// or the (CourseID, Department, Date) triple must be provided.
type AssignProctorsRequest struct {
	ExamID     string `json:"exam_id"`
	CourseID   string `json:"course_id"`
	CourseCode string `json:"course_code"`
	Department string `json:"department"`
	Date       string `json:"date"` // RFC3339, used only when creating a new exam
	GradCourse bool   `json:"grad_course"`

	ManualAssistantIDs []string `json:"manual_assistant_ids"`
	RequiredCount      int      `json:"required_count" validate:"required,min=1"`

	PrioritizeCourseAssistants bool   `json:"prioritize_course_assistants"`
	AutoAssignRemaining        bool   `json:"auto_assign_remaining"`
	CheckLeaveRequests         bool   `json:"check_leave_requests"`
	StrictLeaveCheck           bool   `json:"strict_leave_check"`
	DepartmentFilter           string `json:"department_filter"`

	AssignedBy string `json:"-"`
}

// AssignProctorsResponse reports the created assignment set plus the
// per-category exclusion warnings gathered during eligibility filtering.
type AssignProctorsResponse struct {
	ExamID        string                        `json:"exam_id"`
	Assignments   []models.ProctoringAssignment `json:"assignments"`
	ManualCount   int                           `json:"manual_count"`
	AutoCount     int                           `json:"auto_count"`
	RequiredCount int                           `json:"required_count"`
	Warnings      models.AssignmentWarnings     `json:"warnings"`
}

// RespondRequest is an assistant's accept/reject decision on an assignment.
type RespondRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
}

// SwapMode selects between the two swap variants.
type SwapMode string

const (
	SwapImmediate SwapMode = "immediate"
	SwapRequested SwapMode = "requested"
)

// SwapRequest replaces an assigned proctor with another assistant.
type SwapRequest struct {
	ExamID      string   `json:"-"`
	OutgoingID  string   `json:"outgoing_assistant_id" validate:"required"`
	IncomingID  string   `json:"incoming_assistant_id" validate:"required"`
	Mode        SwapMode `json:"mode" validate:"required,oneof=immediate requested"`
	RequestedBy string   `json:"-"`
}

// SwapResult summarises both sides of a completed swap.
type SwapResult struct {
	Outgoing models.ProctoringAssignment `json:"outgoing"`
	Incoming models.ProctoringAssignment `json:"incoming"`
}

// CancelResult reports how many assignments an exam cancellation removed.
type CancelResult struct {
	ExamID    string    `json:"exam_id"`
	Cancelled int       `json:"cancelled"`
	At        time.Time `json:"at"`
}

// RosterEntry is the cached representation of one exam roster row.
type RosterEntry struct {
	AssignmentID  string                  `json:"assignment_id"`
	AssistantID   string                  `json:"assistant_id"`
	AssistantName string                  `json:"assistant_name"`
	Status        models.AssignmentStatus `json:"status"`
	IsManual      bool                    `json:"is_manual"`
}
