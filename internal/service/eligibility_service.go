package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campus-ops/proctor-api/internal/models"
	appErrors "github.com/campus-ops/proctor-api/pkg/errors"
)

type assistantPoolReader interface {
	ListActive(ctx context.Context) ([]models.Assistant, error)
	ListCourseAssistantIDs(ctx context.Context, courseID string) ([]string, error)
}

type offeringReader interface {
	ListAssistantIDsByCourse(ctx context.Context, courseID string) ([]string, error)
	ListAssistantIDsByCourses(ctx context.Context, courseIDs []string) ([]string, error)
}

type examDateReader interface {
	ListCourseIDsWithExamOn(ctx context.Context, date time.Time, excludeExamID string) ([]string, error)
}

type leaveReader interface {
	ListApprovedAssistantIDsOn(ctx context.Context, date time.Time) ([]string, error)
}

type assignmentWindowReader interface {
	ListWindow(ctx context.Context, from, to time.Time) ([]models.AssignmentWindowEntry, error)
	ListRejectedAssistantIDs(ctx context.Context, examID string) ([]string, error)
}

// EligibilityOptions selects the policy knobs for one evaluation.
type EligibilityOptions struct {
	// Department restricts the primary pool to assistants matching the
	// department (or holding the multi-department opt-in). No
	// cross-department fallback exists: a small pool is reported, not
	// widened.
	Department string
	// CheckLeave enables the leave lookup at all.
	CheckLeave bool
	// StrictLeave turns approved leave into a hard exclusion instead of a
	// warning flag.
	StrictLeave bool
}

// EligibilityResult is the annotated outcome of one evaluation: the
// surviving pool, the raw exclusion sets (for manual-assignment checks),
// and the per-category warning tallies.
type EligibilityResult struct {
	Pool     []models.CandidateEvaluation
	Sets     models.ExclusionSets
	Warnings models.AssignmentWarnings
}

// EligibilityService classifies every active assistant against one exam
// using four independent conflict checks plus the leave check. All lookups
// are read-only snapshots taken once per evaluation.
type EligibilityService struct {
	assistants  assistantPoolReader
	offerings   offeringReader
	exams       examDateReader
	leaves      leaveReader
	assignments assignmentWindowReader
	logger      *zap.Logger
}

// NewEligibilityService wires the conflict lookups.
func NewEligibilityService(
	assistants assistantPoolReader,
	offerings offeringReader,
	exams examDateReader,
	leaves leaveReader,
	assignments assignmentWindowReader,
	logger *zap.Logger,
) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{
		assistants:  assistants,
		offerings:   offerings,
		exams:       exams,
		leaves:      leaves,
		assignments: assignments,
		logger:      logger,
	}
}

// Evaluate computes the eligible pool for the exam. Hard exclusions
// (offering conflict, offering-course-exam conflict, proctoring conflict,
// rejection tombstone, and leave under the strict policy) remove assistants
// from the pool; the consecutive-day signal only flags them for demotion.
func (s *EligibilityService) Evaluate(ctx context.Context, exam *models.Exam, opts EligibilityOptions) (*EligibilityResult, error) {
	candidates, err := s.assistants.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assistant pool")
	}

	sets, consecutive, err := s.buildExclusionSets(ctx, exam, opts)
	if err != nil {
		return nil, err
	}

	courseTAs, err := s.assistants.ListCourseAssistantIDs(ctx, exam.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course assistants")
	}
	courseTASet := toSet(courseTAs)

	result := &EligibilityResult{Sets: sets}
	for _, assistant := range candidates {
		if opts.Department != "" && !assistant.MatchesDepartment(opts.Department) {
			continue
		}

		eval := models.CandidateEvaluation{
			Assistant:                  assistant,
			OfferingConflict:           sets.OfferingConflict[assistant.ID],
			OfferingCourseExamConflict: sets.OfferingCourseExamConflict[assistant.ID],
			ProctoringConflict:         sets.ProctoringConflict[assistant.ID],
			OnLeave:                    sets.OnLeave[assistant.ID],
			ConsecutiveDayAssignment:   consecutive[assistant.ID],
			SameDepartment:             assistant.Department == exam.Department || assistant.MultidepartmentExam,
			CourseAssistant:            courseTASet[assistant.ID],
		}

		switch {
		case eval.OfferingConflict:
			result.Warnings.OfferingConflicts++
		case eval.OfferingCourseExamConflict:
			result.Warnings.OfferingCourseExamConflicts++
		case eval.ProctoringConflict:
			result.Warnings.ProctoringConflicts++
		case sets.Rejected[assistant.ID]:
			// Tombstone from an earlier rejection; silently barred.
		case eval.OnLeave && opts.StrictLeave:
			result.Warnings.OnLeave++
		default:
			if eval.OnLeave {
				result.Warnings.OnLeave++
			}
			if eval.ConsecutiveDayAssignment {
				result.Warnings.ConsecutiveDayDemotions++
			}
			result.Pool = append(result.Pool, eval)
			continue
		}
	}

	s.logger.Debug("eligibility evaluated",
		zap.String("exam_id", exam.ID),
		zap.Int("pool", len(result.Pool)),
		zap.Int("offering_conflicts", result.Warnings.OfferingConflicts),
		zap.Int("proctoring_conflicts", result.Warnings.ProctoringConflicts),
	)
	return result, nil
}

func (s *EligibilityService) buildExclusionSets(ctx context.Context, exam *models.Exam, opts EligibilityOptions) (models.ExclusionSets, map[string]bool, error) {
	sets := models.ExclusionSets{
		OfferingConflict:           map[string]bool{},
		OfferingCourseExamConflict: map[string]bool{},
		ProctoringConflict:         map[string]bool{},
		OnLeave:                    map[string]bool{},
		Rejected:                   map[string]bool{},
	}
	consecutive := map[string]bool{}

	offeringTAs, err := s.offerings.ListAssistantIDsByCourse(ctx, exam.CourseID)
	if err != nil {
		return sets, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course offerings")
	}
	for _, id := range offeringTAs {
		sets.OfferingConflict[id] = true
	}

	sameDateCourses, err := s.exams.ListCourseIDsWithExamOn(ctx, exam.Date(), exam.ID)
	if err != nil {
		return sets, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load same-date exams")
	}
	if len(sameDateCourses) > 0 {
		busy, err := s.offerings.ListAssistantIDsByCourses(ctx, sameDateCourses)
		if err != nil {
			return sets, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load same-date offerings")
		}
		for _, id := range busy {
			sets.OfferingCourseExamConflict[id] = true
		}
	}

	date := exam.Date()
	window, err := s.assignments.ListWindow(ctx, date.Add(-24*time.Hour), date.Add(48*time.Hour))
	if err != nil {
		return sets, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment window")
	}
	for _, entry := range window {
		if entry.ExamID == exam.ID {
			continue
		}
		if sameCalendarDay(entry.ExamStartsAt, date) {
			sets.ProctoringConflict[entry.AssistantID] = true
		} else {
			consecutive[entry.AssistantID] = true
		}
	}

	if opts.CheckLeave {
		onLeave, err := s.leaves.ListApprovedAssistantIDsOn(ctx, date)
		if err != nil {
			return sets, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave requests")
		}
		for _, id := range onLeave {
			sets.OnLeave[id] = true
		}
	}

	if exam.ID != "" {
		rejected, err := s.assignments.ListRejectedAssistantIDs(ctx, exam.ID)
		if err != nil {
			return sets, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rejection history")
		}
		for _, id := range rejected {
			sets.Rejected[id] = true
		}
	}

	return sets, consecutive, nil
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
