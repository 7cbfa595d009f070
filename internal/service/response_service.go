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

type responseExamStore interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	IncrementSwapCount(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type responseAssistantStore interface {
	FindByID(ctx context.Context, id string) (*models.Assistant, error)
	AdjustProctoringCounters(ctx context.Context, exec sqlx.ExtContext, assistantID string, inDept bool, delta int) error
}

type responseAssignmentStore interface {
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ProctoringAssignment, error)
	FindNonTerminalByExamAndAssistant(ctx context.Context, exec sqlx.ExtContext, examID, assistantID string) (*models.ProctoringAssignment, error)
	HasRejected(ctx context.Context, exec sqlx.ExtContext, examID, assistantID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.ProctoringAssignment) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.AssignmentStatus, respondedAt *time.Time) error
	ListNonTerminalByExamForUpdate(ctx context.Context, exec sqlx.ExtContext, examID string) ([]models.ProctoringAssignment, error)
	DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (int64, error)
}

// ResponseService owns the assignment lifecycle after creation: the
// assistant's accept/reject decision, proctor swaps, and the cancellation
// cascade when an exam is called off. Every mutation runs under row locks
// inside one transaction.
type ResponseService struct {
	tx          txProvider
	exams       responseExamStore
	assistants  responseAssistantStore
	assignments responseAssignmentStore
	notifier    notifier
	cache       rosterInvalidator
	metrics     *MetricsService
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewResponseService wires the lifecycle service.
func NewResponseService(
	tx txProvider,
	exams responseExamStore,
	assistants responseAssistantStore,
	assignments responseAssignmentStore,
	notifier notifier,
	cache rosterInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ResponseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseService{
		tx:          tx,
		exams:       exams,
		assistants:  assistants,
		assignments: assignments,
		notifier:    notifier,
		cache:       cache,
		metrics:     metrics,
		validate:    validate,
		logger:      logger,
	}
}

// Respond records the assistant's accept or reject decision. Only the
// assigned assistant may respond, and only while the transition table
// permits it. Accepting bumps the assistant's in- or out-of-department
// proctoring counter.
func (s *ResponseService) Respond(ctx context.Context, assignmentID, assistantID string, req dto.RespondRequest) (_ *models.ProctoringAssignment, err error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response request")
	}

	target := models.AssignmentAccepted
	if req.Decision == "reject" {
		target = models.AssignmentRejected
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

	assignment, err := s.assignments.FindByIDForUpdate(ctx, tx, assignmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			err = appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		} else {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
		}
		return nil, err
	}
	if assignment.AssistantID != assistantID {
		err = appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another assistant")
		return nil, err
	}
	if !assignment.Status.CanTransition(target) {
		err = appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("cannot %s an assignment in status %s", req.Decision, assignment.Status))
		return nil, err
	}

	now := time.Now().UTC()
	if err = s.assignments.UpdateStatus(ctx, tx, assignment.ID, target, &now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}

	if target == models.AssignmentAccepted {
		if err = s.adjustWorkload(ctx, tx, assignment.ExamID, assistantID, 1); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit response")
	}

	s.cache.InvalidateExam(ctx, assignment.ExamID)
	s.metrics.RecordResponse(req.Decision)
	s.logger.Info("assignment response recorded",
		zap.String("assignment_id", assignment.ID),
		zap.String("decision", req.Decision))

	assignment.Status = target
	assignment.RespondedAt = &now
	return assignment, nil
}

// Swap replaces an assigned proctor with another assistant. Immediate mode
// activates the replacement on the spot; requested mode leaves the incoming
// assignment pending the assistant's own response. An assistant who rejected
// the exam can never come back through a swap.
func (s *ResponseService) Swap(ctx context.Context, req dto.SwapRequest) (_ *dto.SwapResult, err error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid swap request")
	}
	if req.OutgoingID == req.IncomingID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "incoming and outgoing assistants must differ")
	}

	exam, err := s.exams.FindByID(ctx, req.ExamID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if _, err = s.assistants.FindByID(ctx, req.IncomingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incoming assistant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assistant")
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

	outgoing, err := s.assignments.FindNonTerminalByExamAndAssistant(ctx, tx, req.ExamID, req.OutgoingID)
	if err != nil {
		if err == sql.ErrNoRows {
			err = appErrors.Clone(appErrors.ErrConflict, "outgoing assistant is not currently assigned to this exam")
		} else {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load outgoing assignment")
		}
		return nil, err
	}

	rejected, err := s.assignments.HasRejected(ctx, tx, req.ExamID, req.IncomingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check rejection history")
	}
	if rejected {
		err = appErrors.Clone(appErrors.ErrConflict, "incoming assistant previously rejected this exam")
		return nil, err
	}

	if _, err = s.assignments.FindNonTerminalByExamAndAssistant(ctx, tx, req.ExamID, req.IncomingID); err == nil {
		err = appErrors.Clone(appErrors.ErrConflict, "incoming assistant is already assigned to this exam")
		return nil, err
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check incoming assignment")
	}
	err = nil

	now := time.Now().UTC()
	wasAccepted := outgoing.Status == models.AssignmentAccepted
	if err = s.assignments.UpdateStatus(ctx, tx, outgoing.ID, models.AssignmentSwapped, &now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close outgoing assignment")
	}

	incomingStatus := models.AssignmentPending
	if req.Mode == dto.SwapImmediate {
		incomingStatus = models.AssignmentActive
	}
	incoming := models.ProctoringAssignment{
		ExamID:      req.ExamID,
		AssistantID: req.IncomingID,
		Status:      incomingStatus,
		IsManual:    true,
		AssignedBy:  req.RequestedBy,
		AssignedAt:  now,
	}
	if err = s.assignments.Create(ctx, tx, &incoming); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create incoming assignment")
	}

	// Only an immediate swap of an accepted assignment unwinds the outgoing
	// assistant's workload counter. A requested swap leaves it untouched
	// until the roster settles.
	if req.Mode == dto.SwapImmediate && wasAccepted {
		if err = s.adjustWorkloadFor(ctx, tx, exam, req.OutgoingID, -1); err != nil {
			return nil, err
		}
	}

	if err = s.exams.IncrementSwapCount(ctx, tx, req.ExamID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bump swap counter")
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit swap")
	}

	s.notifier.Notify(ctx, req.OutgoingID, "Proctoring swap",
		fmt.Sprintf("Your proctoring assignment for %s has been reassigned.", exam.CourseCode))
	s.notifier.Notify(ctx, req.IncomingID, "Proctoring swap",
		fmt.Sprintf("You have been assigned to proctor %s on %s via swap.",
			exam.CourseCode, exam.StartsAt.Format("2006-01-02 15:04")))
	s.cache.InvalidateExam(ctx, req.ExamID)
	s.metrics.RecordSwap()
	s.logger.Info("proctor swapped",
		zap.String("exam_id", req.ExamID),
		zap.String("outgoing", req.OutgoingID),
		zap.String("incoming", req.IncomingID),
		zap.String("mode", string(req.Mode)))

	outgoing.Status = models.AssignmentSwapped
	outgoing.RespondedAt = &now
	return &dto.SwapResult{Outgoing: *outgoing, Incoming: incoming}, nil
}

// CancelForExam removes every live assignment for a cancelled exam and
// notifies the affected assistants. Rejection tombstones and already
// swapped rows are left alone.
func (s *ResponseService) CancelForExam(ctx context.Context, examID string) (_ *dto.CancelResult, err error) {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
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

	live, err := s.assignments.ListNonTerminalByExamForUpdate(ctx, tx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam assignments")
	}

	ids := make([]string, 0, len(live))
	for _, assignment := range live {
		ids = append(ids, assignment.ID)
	}
	cancelled, err := s.assignments.DeleteByIDs(ctx, tx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignments")
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit cancellation")
	}

	now := time.Now().UTC()
	for _, assignment := range live {
		s.notifier.Notify(ctx, assignment.AssistantID, "Exam cancelled",
			fmt.Sprintf("The exam %s on %s has been cancelled. Your proctoring assignment no longer applies.",
				exam.CourseCode, exam.StartsAt.Format("2006-01-02 15:04")))
	}
	s.cache.InvalidateExam(ctx, examID)
	s.metrics.RecordCancellations(int(cancelled))
	s.logger.Info("exam assignments cancelled",
		zap.String("exam_id", examID),
		zap.Int64("cancelled", cancelled))

	return &dto.CancelResult{ExamID: examID, Cancelled: int(cancelled), At: now}, nil
}

func (s *ResponseService) adjustWorkload(ctx context.Context, tx sqlx.ExtContext, examID, assistantID string, delta int) error {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return s.adjustWorkloadFor(ctx, tx, exam, assistantID, delta)
}

func (s *ResponseService) adjustWorkloadFor(ctx context.Context, tx sqlx.ExtContext, exam *models.Exam, assistantID string, delta int) error {
	assistant, err := s.assistants.FindByID(ctx, assistantID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assistant")
	}
	inDept := assistant.Department == exam.Department
	if err := s.assistants.AdjustProctoringCounters(ctx, tx, assistantID, inDept, delta); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust proctoring counters")
	}
	return nil
}
