package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-ops/proctor-api/internal/dto"
	"github.com/campus-ops/proctor-api/internal/models"
	appErrors "github.com/campus-ops/proctor-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type examStore interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exec sqlx.ExtContext, exam *models.Exam) error
	UpdateAssignmentCounts(ctx context.Context, exec sqlx.ExtContext, id string, manual, auto int) error
}

type assistantFinder interface {
	FindByID(ctx context.Context, id string) (*models.Assistant, error)
}

type assignmentWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.ProctoringAssignment) error
	DeleteByExamExceptRejected(ctx context.Context, exec sqlx.ExtContext, examID string) (int64, error)
}

type eligibilityEvaluator interface {
	Evaluate(ctx context.Context, exam *models.Exam, opts EligibilityOptions) (*EligibilityResult, error)
}

type notifier interface {
	Notify(ctx context.Context, recipientID, subject, body string)
}

type rosterInvalidator interface {
	InvalidateExam(ctx context.Context, examID string)
}

// AssignmentService orchestrates proctor assignment for one exam: manual
// picks first, then ranked auto-assignment for the remaining slots, all
// inside a single transaction. Notifications and cache invalidation run
// after commit.
type AssignmentService struct {
	tx          txProvider
	exams       examStore
	assistants  assistantFinder
	assignments assignmentWriter
	eligibility eligibilityEvaluator
	notifier    notifier
	cache       rosterInvalidator
	metrics     *MetricsService
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService wires the orchestrator.
func NewAssignmentService(
	tx txProvider,
	exams examStore,
	assistants assistantFinder,
	assignments assignmentWriter,
	eligibility eligibilityEvaluator,
	notifier notifier,
	cache rosterInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tx:          tx,
		exams:       exams,
		assistants:  assistants,
		assignments: assignments,
		eligibility: eligibility,
		notifier:    notifier,
		cache:       cache,
		metrics:     metrics,
		validate:    validate,
		logger:      logger,
	}
}

// AssignProctors runs one assignment pass. For an existing exam the previous
// assignment set is wiped first, sparing only rejection tombstones, so the
// operation is a full idempotent re-assignment. Shortfall is reported as a
// warning, never an error.
func (s *AssignmentService) AssignProctors(ctx context.Context, req dto.AssignProctorsRequest) (_ *dto.AssignProctorsResponse, err error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment request")
	}

	exam, isNew, err := s.resolveExam(ctx, req)
	if err != nil {
		return nil, err
	}

	elig, err := s.eligibility.Evaluate(ctx, exam, EligibilityOptions{
		Department:  req.DepartmentFilter,
		CheckLeave:  req.CheckLeaveRequests || req.StrictLeaveCheck,
		StrictLeave: req.StrictLeaveCheck,
	})
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if isNew {
		if err = s.exams.Create(ctx, tx, exam); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
		}
	} else {
		if _, err = s.assignments.DeleteByExamExceptRejected(ctx, tx, exam.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous assignments")
		}
	}

	warnings := elig.Warnings
	assigned := make(map[string]bool)
	created := make([]models.ProctoringAssignment, 0, req.RequiredCount)
	now := time.Now().UTC()

	manualCount := 0
	for _, assistantID := range req.ManualAssistantIDs {
		if len(created) >= req.RequiredCount {
			break
		}
		if assigned[assistantID] {
			continue
		}
		if _, err = s.assistants.FindByID(ctx, assistantID); err != nil {
			if err == sql.ErrNoRows {
				err = appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("assistant %s not found", assistantID))
			} else {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assistant")
			}
			return nil, err
		}
		if elig.Sets.Excludes(assistantID, req.StrictLeaveCheck) {
			warnings.ManualDropped++
			warnings.Messages = append(warnings.Messages,
				fmt.Sprintf("assistant %s dropped: conflicting obligation on the exam date", assistantID))
			continue
		}

		assignment := models.ProctoringAssignment{
			ExamID:      exam.ID,
			AssistantID: assistantID,
			Status:      models.AssignmentPending,
			IsManual:    true,
			AssignedBy:  req.AssignedBy,
			AssignedAt:  now,
		}
		if err = s.assignments.Create(ctx, tx, &assignment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
		}
		assigned[assistantID] = true
		created = append(created, assignment)
		manualCount++
	}

	autoCount := 0
	if req.AutoAssignRemaining && len(created) < req.RequiredCount {
		ranked := RankCandidates(elig.Pool, RankPolicy{
			PrioritizeCourseAssistants: req.PrioritizeCourseAssistants,
			GradCourse:                 exam.GradCourse,
			Weekend:                    exam.IsWeekend(),
		})
		for _, candidate := range ranked {
			if len(created) >= req.RequiredCount {
				break
			}
			assistantID := candidate.Assistant.ID
			if assigned[assistantID] {
				continue
			}

			assignment := models.ProctoringAssignment{
				ExamID:      exam.ID,
				AssistantID: assistantID,
				Status:      models.AssignmentPending,
				IsManual:    false,
				AssignedBy:  req.AssignedBy,
				AssignedAt:  now,
			}
			if err = s.assignments.Create(ctx, tx, &assignment); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
			}
			assigned[assistantID] = true
			created = append(created, assignment)
			autoCount++
		}
	}

	if len(created) < req.RequiredCount {
		warnings.Shortfall = req.RequiredCount - len(created)
		warnings.Messages = append(warnings.Messages,
			fmt.Sprintf("only %d of %d requested proctors could be assigned", len(created), req.RequiredCount))
	}

	if err = s.exams.UpdateAssignmentCounts(ctx, tx, exam.ID, manualCount, autoCount); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam counters")
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit assignment")
	}

	s.afterAssign(ctx, exam, created, manualCount, autoCount, warnings)

	return &dto.AssignProctorsResponse{
		ExamID:        exam.ID,
		Assignments:   created,
		ManualCount:   manualCount,
		AutoCount:     autoCount,
		RequiredCount: req.RequiredCount,
		Warnings:      warnings,
	}, nil
}

func (s *AssignmentService) resolveExam(ctx context.Context, req dto.AssignProctorsRequest) (*models.Exam, bool, error) {
	if req.ExamID != "" {
		exam, err := s.exams.FindByID(ctx, req.ExamID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, false, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
			}
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
		}
		return exam, false, nil
	}

	if req.CourseID == "" || req.Department == "" || req.Date == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "exam id or course, department and date are required")
	}
	startsAt, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "date must be RFC3339")
	}

	return &models.Exam{
		CourseID:   req.CourseID,
		CourseCode: req.CourseCode,
		Department: req.Department,
		StartsAt:   startsAt.UTC(),
		GradCourse: req.GradCourse,
		ProctorNum: req.RequiredCount,
	}, true, nil
}

func (s *AssignmentService) afterAssign(ctx context.Context, exam *models.Exam, created []models.ProctoringAssignment, manualCount, autoCount int, warnings models.AssignmentWarnings) {
	for _, assignment := range created {
		s.notifier.Notify(ctx, assignment.AssistantID,
			"Proctoring assignment",
			fmt.Sprintf("You have been assigned to proctor %s on %s. Please accept or reject the assignment.",
				exam.CourseCode, exam.StartsAt.Format("2006-01-02 15:04")))
	}
	s.cache.InvalidateExam(ctx, exam.ID)

	s.metrics.RecordAssignments("manual", manualCount)
	s.metrics.RecordAssignments("auto", autoCount)
	s.metrics.RecordExclusions("offering_conflict", warnings.OfferingConflicts)
	s.metrics.RecordExclusions("offering_course_exam_conflict", warnings.OfferingCourseExamConflicts)
	s.metrics.RecordExclusions("proctoring_conflict", warnings.ProctoringConflicts)
	s.metrics.RecordExclusions("on_leave", warnings.OnLeave)
	s.metrics.RecordShortfall(warnings.Shortfall)

	s.logger.Info("proctors assigned",
		zap.String("exam_id", exam.ID),
		zap.Int("manual", manualCount),
		zap.Int("auto", autoCount),
		zap.Int("shortfall", warnings.Shortfall))
}
