package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-ops/proctor-api/internal/dto"
	"github.com/campus-ops/proctor-api/internal/models"
	appErrors "github.com/campus-ops/proctor-api/pkg/errors"
)

type fakeLifecycleStore struct {
	byID          map[string]*models.ProctoringAssignment
	nonTerminal   map[string]*models.ProctoringAssignment
	rejected      map[string]bool
	created       []models.ProctoringAssignment
	statusUpdates map[string]models.AssignmentStatus
	live          []models.ProctoringAssignment
	deletedIDs    []string
}

func liveKey(examID, assistantID string) string {
	return examID + "|" + assistantID
}

func (f *fakeLifecycleStore) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ProctoringAssignment, error) {
	if assignment, ok := f.byID[id]; ok {
		cp := *assignment
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLifecycleStore) FindNonTerminalByExamAndAssistant(ctx context.Context, exec sqlx.ExtContext, examID, assistantID string) (*models.ProctoringAssignment, error) {
	if assignment, ok := f.nonTerminal[liveKey(examID, assistantID)]; ok {
		cp := *assignment
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLifecycleStore) HasRejected(ctx context.Context, exec sqlx.ExtContext, examID, assistantID string) (bool, error) {
	return f.rejected[liveKey(examID, assistantID)], nil
}

func (f *fakeLifecycleStore) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.ProctoringAssignment) error {
	if assignment.ID == "" {
		assignment.ID = "pa-" + assignment.AssistantID
	}
	f.created = append(f.created, *assignment)
	return nil
}

func (f *fakeLifecycleStore) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.AssignmentStatus, respondedAt *time.Time) error {
	if f.statusUpdates == nil {
		f.statusUpdates = make(map[string]models.AssignmentStatus)
	}
	f.statusUpdates[id] = status
	return nil
}

func (f *fakeLifecycleStore) ListNonTerminalByExamForUpdate(ctx context.Context, exec sqlx.ExtContext, examID string) ([]models.ProctoringAssignment, error) {
	return f.live, nil
}

func (f *fakeLifecycleStore) DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (int64, error) {
	f.deletedIDs = append(f.deletedIDs, ids...)
	return int64(len(ids)), nil
}

func newResponseService(t *testing.T, exams *fakeExamStore, assistants *fakeAssistantStore, store *fakeLifecycleStore) (*ResponseService, sqlmock.Sqlmock, *fakeNotifier, *fakeInvalidator) {
	t.Helper()
	db, mock := newTxProvider(t)
	notify := &fakeNotifier{}
	invalidate := &fakeInvalidator{}
	svc := NewResponseService(db, exams, assistants, store, notify, invalidate, nil, nil, zap.NewNop())
	return svc, mock, notify, invalidate
}

func TestRespondAcceptBumpsCounters(t *testing.T) {
	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	assistants := &fakeAssistantStore{assistants: map[string]*models.Assistant{
		"ta-1": {ID: "ta-1", Department: "CS"},
	}}
	store := &fakeLifecycleStore{byID: map[string]*models.ProctoringAssignment{
		"pa-1": {ID: "pa-1", ExamID: "exam-1", AssistantID: "ta-1", Status: models.AssignmentPending},
	}}

	svc, mock, _, invalidate := newResponseService(t, exams, assistants, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	assignment, err := svc.Respond(context.Background(), "pa-1", "ta-1", dto.RespondRequest{Decision: "accept"})
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentAccepted, assignment.Status)
	assert.NotNil(t, assignment.RespondedAt)
	assert.Equal(t, models.AssignmentAccepted, store.statusUpdates["pa-1"])
	require.Equal(t, []string{"ta-1"}, assistants.adjustments)
	assert.Equal(t, []int{1}, assistants.deltas)
	assert.Equal(t, []bool{true}, assistants.inDept)
	assert.Equal(t, []string{"exam-1"}, invalidate.examIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRespondAcceptOutOfDepartment(t *testing.T) {
	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	assistants := &fakeAssistantStore{assistants: map[string]*models.Assistant{
		"ta-ee": {ID: "ta-ee", Department: "EE"},
	}}
	store := &fakeLifecycleStore{byID: map[string]*models.ProctoringAssignment{
		"pa-1": {ID: "pa-1", ExamID: "exam-1", AssistantID: "ta-ee", Status: models.AssignmentPending},
	}}

	svc, mock, _, _ := newResponseService(t, exams, assistants, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.Respond(context.Background(), "pa-1", "ta-ee", dto.RespondRequest{Decision: "accept"})
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, assistants.inDept)
}

func TestRespondRejectLeavesCounters(t *testing.T) {
	assistants := &fakeAssistantStore{}
	store := &fakeLifecycleStore{byID: map[string]*models.ProctoringAssignment{
		"pa-1": {ID: "pa-1", ExamID: "exam-1", AssistantID: "ta-1", Status: models.AssignmentPending},
	}}

	svc, mock, _, _ := newResponseService(t, &fakeExamStore{}, assistants, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	assignment, err := svc.Respond(context.Background(), "pa-1", "ta-1", dto.RespondRequest{Decision: "reject"})
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentRejected, assignment.Status)
	assert.Empty(t, assistants.adjustments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRespondForeignAssignmentForbidden(t *testing.T) {
	store := &fakeLifecycleStore{byID: map[string]*models.ProctoringAssignment{
		"pa-1": {ID: "pa-1", ExamID: "exam-1", AssistantID: "ta-owner", Status: models.AssignmentPending},
	}}

	svc, mock, _, _ := newResponseService(t, &fakeExamStore{}, &fakeAssistantStore{}, store)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Respond(context.Background(), "pa-1", "ta-intruder", dto.RespondRequest{Decision: "accept"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.statusUpdates)
}

func TestRespondIllegalTransitionConflicts(t *testing.T) {
	store := &fakeLifecycleStore{byID: map[string]*models.ProctoringAssignment{
		"pa-1": {ID: "pa-1", ExamID: "exam-1", AssistantID: "ta-1", Status: models.AssignmentAccepted},
	}}

	svc, mock, _, _ := newResponseService(t, &fakeExamStore{}, &fakeAssistantStore{}, store)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Respond(context.Background(), "pa-1", "ta-1", dto.RespondRequest{Decision: "reject"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSwapImmediateActivatesAndReversesWorkload(t *testing.T) {
	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	assistants := &fakeAssistantStore{assistants: map[string]*models.Assistant{
		"ta-out": {ID: "ta-out", Department: "CS"},
		"ta-in":  {ID: "ta-in", Department: "CS"},
	}}
	store := &fakeLifecycleStore{nonTerminal: map[string]*models.ProctoringAssignment{
		liveKey("exam-1", "ta-out"): {ID: "pa-out", ExamID: "exam-1", AssistantID: "ta-out", Status: models.AssignmentAccepted},
	}}

	svc, mock, notify, invalidate := newResponseService(t, exams, assistants, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Swap(context.Background(), dto.SwapRequest{
		ExamID:      "exam-1",
		OutgoingID:  "ta-out",
		IncomingID:  "ta-in",
		Mode:        dto.SwapImmediate,
		RequestedBy: "staff-1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentSwapped, result.Outgoing.Status)
	assert.Equal(t, models.AssignmentActive, result.Incoming.Status)
	assert.True(t, result.Incoming.IsManual)
	assert.Equal(t, models.AssignmentSwapped, store.statusUpdates["pa-out"])
	require.Len(t, store.created, 1)

	// Accepted outgoing under an immediate swap hands its workload back.
	assert.Equal(t, []string{"ta-out"}, assistants.adjustments)
	assert.Equal(t, []int{-1}, assistants.deltas)

	assert.Equal(t, []string{"exam-1"}, exams.swapBumped)
	assert.ElementsMatch(t, []string{"ta-out", "ta-in"}, notify.recipients)
	assert.Equal(t, []string{"exam-1"}, invalidate.examIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRequestedLeavesPendingAndCounters(t *testing.T) {
	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	assistants := &fakeAssistantStore{assistants: map[string]*models.Assistant{
		"ta-in": {ID: "ta-in", Department: "CS"},
	}}
	store := &fakeLifecycleStore{nonTerminal: map[string]*models.ProctoringAssignment{
		liveKey("exam-1", "ta-out"): {ID: "pa-out", ExamID: "exam-1", AssistantID: "ta-out", Status: models.AssignmentAccepted},
	}}

	svc, mock, _, _ := newResponseService(t, exams, assistants, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Swap(context.Background(), dto.SwapRequest{
		ExamID:     "exam-1",
		OutgoingID: "ta-out",
		IncomingID: "ta-in",
		Mode:       dto.SwapRequested,
	})
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentPending, result.Incoming.Status)
	// A requested swap never unwinds the outgoing workload.
	assert.Empty(t, assistants.adjustments)
	assert.Equal(t, []string{"exam-1"}, exams.swapBumped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRejectedIncomingBlocked(t *testing.T) {
	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	assistants := &fakeAssistantStore{assistants: map[string]*models.Assistant{
		"ta-in": {ID: "ta-in", Department: "CS"},
	}}
	store := &fakeLifecycleStore{
		nonTerminal: map[string]*models.ProctoringAssignment{
			liveKey("exam-1", "ta-out"): {ID: "pa-out", ExamID: "exam-1", AssistantID: "ta-out", Status: models.AssignmentPending},
		},
		rejected: map[string]bool{liveKey("exam-1", "ta-in"): true},
	}

	svc, mock, _, _ := newResponseService(t, exams, assistants, store)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Swap(context.Background(), dto.SwapRequest{
		ExamID:     "exam-1",
		OutgoingID: "ta-out",
		IncomingID: "ta-in",
		Mode:       dto.SwapImmediate,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestSwapIncomingAlreadyAssignedBlocked(t *testing.T) {
	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	assistants := &fakeAssistantStore{assistants: map[string]*models.Assistant{
		"ta-in": {ID: "ta-in", Department: "CS"},
	}}
	store := &fakeLifecycleStore{nonTerminal: map[string]*models.ProctoringAssignment{
		liveKey("exam-1", "ta-out"): {ID: "pa-out", ExamID: "exam-1", AssistantID: "ta-out", Status: models.AssignmentPending},
		liveKey("exam-1", "ta-in"):  {ID: "pa-in", ExamID: "exam-1", AssistantID: "ta-in", Status: models.AssignmentPending},
	}}

	svc, mock, _, _ := newResponseService(t, exams, assistants, store)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Swap(context.Background(), dto.SwapRequest{
		ExamID:     "exam-1",
		OutgoingID: "ta-out",
		IncomingID: "ta-in",
		Mode:       dto.SwapRequested,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSwapOutgoingNotAssignedConflicts(t *testing.T) {
	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	assistants := &fakeAssistantStore{assistants: map[string]*models.Assistant{
		"ta-in": {ID: "ta-in", Department: "CS"},
	}}

	svc, mock, _, _ := newResponseService(t, exams, assistants, &fakeLifecycleStore{})
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Swap(context.Background(), dto.SwapRequest{
		ExamID:     "exam-1",
		OutgoingID: "ta-out",
		IncomingID: "ta-in",
		Mode:       dto.SwapImmediate,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCancelForExamRemovesLiveAssignments(t *testing.T) {
	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	store := &fakeLifecycleStore{live: []models.ProctoringAssignment{
		{ID: "pa-1", ExamID: "exam-1", AssistantID: "ta-1", Status: models.AssignmentAccepted},
		{ID: "pa-2", ExamID: "exam-1", AssistantID: "ta-2", Status: models.AssignmentPending},
	}}

	svc, mock, notify, invalidate := newResponseService(t, exams, &fakeAssistantStore{}, store)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.CancelForExam(context.Background(), "exam-1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Cancelled)
	assert.ElementsMatch(t, []string{"pa-1", "pa-2"}, store.deletedIDs)
	assert.ElementsMatch(t, []string{"ta-1", "ta-2"}, notify.recipients)
	assert.Equal(t, []string{"exam-1"}, invalidate.examIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelForExamUnknownExam(t *testing.T) {
	svc, _, _, _ := newResponseService(t, &fakeExamStore{}, &fakeAssistantStore{}, &fakeLifecycleStore{})

	_, err := svc.CancelForExam(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
