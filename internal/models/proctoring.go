package models

import "time"

// AssignmentStatus is the closed set of proctoring assignment states.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "PENDING"
	AssignmentAccepted  AssignmentStatus = "ACCEPTED"
	AssignmentRejected  AssignmentStatus = "REJECTED"
	AssignmentActive    AssignmentStatus = "ACTIVE"
	AssignmentSwapped   AssignmentStatus = "SWAPPED"
	AssignmentCancelled AssignmentStatus = "CANCELLED"
)

// assignmentTransitions is the closed transition table. ACTIVE is reached
// only through an immediate swap, which activates the incoming row without
// waiting for the assistant's response.
var assignmentTransitions = map[AssignmentStatus]map[AssignmentStatus]bool{
	AssignmentPending: {
		AssignmentAccepted:  true,
		AssignmentRejected:  true,
		AssignmentSwapped:   true,
		AssignmentActive:    true,
		AssignmentCancelled: true,
	},
	AssignmentAccepted: {
		AssignmentSwapped:   true,
		AssignmentCancelled: true,
	},
	AssignmentActive: {
		AssignmentSwapped:   true,
		AssignmentCancelled: true,
	},
}

// CanTransition reports whether moving from s to target is legal.
func (s AssignmentStatus) CanTransition(target AssignmentStatus) bool {
	return assignmentTransitions[s][target]
}

// Terminal reports whether the status permits no further transitions.
func (s AssignmentStatus) Terminal() bool {
	return len(assignmentTransitions[s]) == 0
}

// NonTerminalStatuses lists statuses that still occupy the assistant's
// calendar: they count against conflicts and the exam's proctor quota.
func NonTerminalStatuses() []AssignmentStatus {
	return []AssignmentStatus{AssignmentPending, AssignmentAccepted, AssignmentActive}
}

// ProctoringAssignment links an assistant to an exam with a lifecycle status.
type ProctoringAssignment struct {
	ID          string           `db:"id" json:"id"`
	ExamID      string           `db:"exam_id" json:"exam_id"`
	AssistantID string           `db:"assistant_id" json:"assistant_id"`
	Status      AssignmentStatus `db:"status" json:"status"`
	IsManual    bool             `db:"is_manual" json:"is_manual"`
	AssignedBy  string           `db:"assigned_by" json:"assigned_by"`
	AssignedAt  time.Time        `db:"assigned_at" json:"assigned_at"`
	RespondedAt *time.Time       `db:"responded_at" json:"responded_at,omitempty"`
}

// ProctoringAssignmentDetail enriches an assignment with exam and assistant
// descriptors for listings and roster exports.
type ProctoringAssignmentDetail struct {
	ProctoringAssignment
	AssistantName  string    `db:"assistant_name" json:"assistant_name"`
	AssistantEmail string    `db:"assistant_email" json:"assistant_email"`
	CourseCode     string    `db:"course_code" json:"course_code"`
	ExamStartsAt   time.Time `db:"exam_starts_at" json:"exam_starts_at"`
	ExamDepartment string    `db:"exam_department" json:"exam_department"`
}

// AssignmentWindowEntry is the compact projection used for conflict window
// queries: one row per non-terminal assignment near a candidate exam date.
type AssignmentWindowEntry struct {
	AssistantID  string    `db:"assistant_id"`
	ExamID       string    `db:"exam_id"`
	ExamStartsAt time.Time `db:"exam_starts_at"`
}
