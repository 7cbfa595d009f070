package models

// CandidateEvaluation annotates one assistant with the conflict checks
// computed for a specific exam. The flag set is closed so the ranker and the
// warnings reporter consume an exhaustively-checked shape.
type CandidateEvaluation struct {
	Assistant Assistant `json:"assistant"`

	// Hard exclusions.
	OfferingConflict           bool `json:"offering_conflict"`
	OfferingCourseExamConflict bool `json:"offering_course_exam_conflict"`
	ProctoringConflict         bool `json:"proctoring_conflict"`

	// OnLeave excludes only under the strict leave policy; otherwise it is
	// carried as a warning flag.
	OnLeave bool `json:"on_leave"`

	// Soft signals, ranking only.
	ConsecutiveDayAssignment bool `json:"consecutive_day_assignment"`
	SameDepartment           bool `json:"same_department"`
	CourseAssistant          bool `json:"course_assistant"`
}

// HardExcluded reports whether any always-applied exclusion holds.
func (c *CandidateEvaluation) HardExcluded() bool {
	return c.OfferingConflict || c.OfferingCourseExamConflict || c.ProctoringConflict
}

// AssignmentWarnings tallies per-category exclusions for operator-facing
// reporting. Under-provisioning is reported here, never as an error.
type AssignmentWarnings struct {
	OfferingConflicts           int      `json:"offering_conflicts"`
	OfferingCourseExamConflicts int      `json:"offering_course_exam_conflicts"`
	ProctoringConflicts         int      `json:"proctoring_conflicts"`
	OnLeave                     int      `json:"on_leave"`
	ConsecutiveDayDemotions     int      `json:"consecutive_day_demotions"`
	ManualDropped               int      `json:"manual_dropped"`
	Shortfall                   int      `json:"shortfall"`
	Messages                    []string `json:"messages,omitempty"`
}

// ExclusionSets holds the assistant id sets behind each hard exclusion plus
// the permanent rejection tombstones for the exam. The orchestrator checks
// manually requested assistants against these even when they fall outside
// the department-filtered pool.
type ExclusionSets struct {
	OfferingConflict           map[string]bool
	OfferingCourseExamConflict map[string]bool
	ProctoringConflict         map[string]bool
	OnLeave                    map[string]bool
	Rejected                   map[string]bool
}

// Excludes reports whether the assistant is barred from assignment to the
// exam. Leave only bars under the strict policy.
func (s ExclusionSets) Excludes(assistantID string, strictLeave bool) bool {
	if s.OfferingConflict[assistantID] || s.OfferingCourseExamConflict[assistantID] || s.ProctoringConflict[assistantID] || s.Rejected[assistantID] {
		return true
	}
	return strictLeave && s.OnLeave[assistantID]
}
