package service

import (
	"sort"

	"github.com/campus-ops/proctor-api/internal/models"
)

// RankPolicy carries the per-exam signals that shape the ordering.
type RankPolicy struct {
	// PrioritizeCourseAssistants lifts registered course assistants above
	// otherwise-equal candidates.
	PrioritizeCourseAssistants bool
	// GradCourse prefers PhD assistants for graduate-level exams.
	GradCourse bool
	// Weekend prefers part-time assistants for weekend exams.
	Weekend bool
}

// RankCandidates orders the eligible pool for auto-assignment. Same-department
// candidates always precede cross-department ones, and inside each partition
// the sort is stable so database order breaks remaining ties:
//
//  1. candidates without a consecutive-day assignment
//  2. part-time assistants, on weekend exams only
//  3. registered course assistants, when prioritized
//  4. PhD assistants, for graduate courses only
//  5. ascending workload hours
func RankCandidates(pool []models.CandidateEvaluation, policy RankPolicy) []models.CandidateEvaluation {
	ranked := make([]models.CandidateEvaluation, len(pool))
	copy(ranked, pool)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]

		if a.SameDepartment != b.SameDepartment {
			return a.SameDepartment
		}
		if a.ConsecutiveDayAssignment != b.ConsecutiveDayAssignment {
			return !a.ConsecutiveDayAssignment
		}
		if policy.Weekend && a.Assistant.IsPartTime != b.Assistant.IsPartTime {
			return a.Assistant.IsPartTime
		}
		if policy.PrioritizeCourseAssistants && a.CourseAssistant != b.CourseAssistant {
			return a.CourseAssistant
		}
		if policy.GradCourse && a.Assistant.IsPHD != b.Assistant.IsPHD {
			return a.Assistant.IsPHD
		}
		return a.Assistant.WorkloadHours < b.Assistant.WorkloadHours
	})

	return ranked
}
