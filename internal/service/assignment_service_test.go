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

func newTxProvider(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

type fakeExamStore struct {
	exams        map[string]*models.Exam
	created      []*models.Exam
	countedID    string
	manualCount  int
	autoCount    int
	swapBumped   []string
	incrementErr error
}

func (f *fakeExamStore) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if exam, ok := f.exams[id]; ok {
		cp := *exam
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeExamStore) Create(ctx context.Context, exec sqlx.ExtContext, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = "exam-created"
	}
	f.created = append(f.created, exam)
	return nil
}

func (f *fakeExamStore) UpdateAssignmentCounts(ctx context.Context, exec sqlx.ExtContext, id string, manual, auto int) error {
	f.countedID = id
	f.manualCount = manual
	f.autoCount = auto
	return nil
}

func (f *fakeExamStore) IncrementSwapCount(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if f.incrementErr != nil {
		return f.incrementErr
	}
	f.swapBumped = append(f.swapBumped, id)
	return nil
}

type fakeAssistantStore struct {
	assistants  map[string]*models.Assistant
	adjustments []string
	deltas      []int
	inDept      []bool
}

func (f *fakeAssistantStore) FindByID(ctx context.Context, id string) (*models.Assistant, error) {
	if assistant, ok := f.assistants[id]; ok {
		cp := *assistant
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAssistantStore) AdjustProctoringCounters(ctx context.Context, exec sqlx.ExtContext, assistantID string, inDept bool, delta int) error {
	f.adjustments = append(f.adjustments, assistantID)
	f.inDept = append(f.inDept, inDept)
	f.deltas = append(f.deltas, delta)
	return nil
}

type fakeAssignmentWriter struct {
	created      []models.ProctoringAssignment
	deletedExams []string
}

func (f *fakeAssignmentWriter) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.ProctoringAssignment) error {
	if assignment.ID == "" {
		assignment.ID = "pa-" + assignment.AssistantID
	}
	f.created = append(f.created, *assignment)
	return nil
}

func (f *fakeAssignmentWriter) DeleteByExamExceptRejected(ctx context.Context, exec sqlx.ExtContext, examID string) (int64, error) {
	f.deletedExams = append(f.deletedExams, examID)
	return 0, nil
}

type fakeEligibility struct {
	result *EligibilityResult
	opts   EligibilityOptions
}

func (f *fakeEligibility) Evaluate(ctx context.Context, exam *models.Exam, opts EligibilityOptions) (*EligibilityResult, error) {
	f.opts = opts
	return f.result, nil
}

type fakeNotifier struct {
	recipients []string
}

func (f *fakeNotifier) Notify(ctx context.Context, recipientID, subject, body string) {
	f.recipients = append(f.recipients, recipientID)
}

type fakeInvalidator struct {
	examIDs []string
}

func (f *fakeInvalidator) InvalidateExam(ctx context.Context, examID string) {
	f.examIDs = append(f.examIDs, examID)
}

func emptySets() models.ExclusionSets {
	return models.ExclusionSets{
		OfferingConflict:           map[string]bool{},
		OfferingCourseExamConflict: map[string]bool{},
		ProctoringConflict:         map[string]bool{},
		OnLeave:                    map[string]bool{},
		Rejected:                   map[string]bool{},
	}
}

func poolOf(ids ...string) []models.CandidateEvaluation {
	pool := make([]models.CandidateEvaluation, 0, len(ids))
	for _, id := range ids {
		pool = append(pool, models.CandidateEvaluation{
			Assistant:      models.Assistant{ID: id, Department: "CS"},
			SameDepartment: true,
		})
	}
	return pool
}

func storedExam() *models.Exam {
	return &models.Exam{
		ID:         "exam-1",
		CourseID:   "course-1",
		CourseCode: "CS101",
		Department: "CS",
		StartsAt:   time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC),
		ProctorNum: 3,
	}
}

func TestAssignProctorsManualThenAuto(t *testing.T) {
	db, mock := newTxProvider(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	assistants := &fakeAssistantStore{assistants: map[string]*models.Assistant{
		"ta-manual": {ID: "ta-manual", Department: "CS"},
	}}
	writer := &fakeAssignmentWriter{}
	elig := &fakeEligibility{result: &EligibilityResult{Pool: poolOf("ta-auto-1", "ta-auto-2"), Sets: emptySets()}}
	notify := &fakeNotifier{}
	invalidate := &fakeInvalidator{}

	svc := NewAssignmentService(db, exams, assistants, writer, elig, notify, invalidate, nil, nil, zap.NewNop())
	result, err := svc.AssignProctors(context.Background(), dto.AssignProctorsRequest{
		ExamID:              "exam-1",
		ManualAssistantIDs:  []string{"ta-manual"},
		RequiredCount:       3,
		AutoAssignRemaining: true,
		AssignedBy:          "staff-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ManualCount)
	assert.Equal(t, 2, result.AutoCount)
	assert.Zero(t, result.Warnings.Shortfall)
	require.Len(t, writer.created, 3)
	assert.True(t, writer.created[0].IsManual)
	assert.False(t, writer.created[1].IsManual)
	for _, assignment := range writer.created {
		assert.Equal(t, models.AssignmentPending, assignment.Status)
		assert.Equal(t, "staff-1", assignment.AssignedBy)
	}

	assert.Equal(t, []string{"exam-1"}, writer.deletedExams)
	assert.Equal(t, "exam-1", exams.countedID)
	assert.Equal(t, 1, exams.manualCount)
	assert.Equal(t, 2, exams.autoCount)
	assert.ElementsMatch(t, []string{"ta-manual", "ta-auto-1", "ta-auto-2"}, notify.recipients)
	assert.Equal(t, []string{"exam-1"}, invalidate.examIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignProctorsManualDropped(t *testing.T) {
	db, mock := newTxProvider(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	sets := emptySets()
	sets.ProctoringConflict["ta-busy"] = true

	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	assistants := &fakeAssistantStore{assistants: map[string]*models.Assistant{
		"ta-busy": {ID: "ta-busy", Department: "CS"},
	}}
	writer := &fakeAssignmentWriter{}
	elig := &fakeEligibility{result: &EligibilityResult{Pool: poolOf("ta-auto"), Sets: sets}}

	svc := NewAssignmentService(db, exams, assistants, writer, elig, &fakeNotifier{}, &fakeInvalidator{}, nil, nil, zap.NewNop())
	result, err := svc.AssignProctors(context.Background(), dto.AssignProctorsRequest{
		ExamID:              "exam-1",
		ManualAssistantIDs:  []string{"ta-busy"},
		RequiredCount:       1,
		AutoAssignRemaining: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Warnings.ManualDropped)
	assert.NotEmpty(t, result.Warnings.Messages)
	assert.Equal(t, 0, result.ManualCount)
	assert.Equal(t, 1, result.AutoCount)
	require.Len(t, writer.created, 1)
	assert.Equal(t, "ta-auto", writer.created[0].AssistantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignProctorsShortfallIsWarning(t *testing.T) {
	db, mock := newTxProvider(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	elig := &fakeEligibility{result: &EligibilityResult{Pool: poolOf("ta-only"), Sets: emptySets()}}

	svc := NewAssignmentService(db, exams, &fakeAssistantStore{}, &fakeAssignmentWriter{}, elig, &fakeNotifier{}, &fakeInvalidator{}, nil, nil, zap.NewNop())
	result, err := svc.AssignProctors(context.Background(), dto.AssignProctorsRequest{
		ExamID:              "exam-1",
		RequiredCount:       4,
		AutoAssignRemaining: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Warnings.Shortfall)
	assert.Equal(t, 1, result.AutoCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignProctorsCreatesExamFromCourseContext(t *testing.T) {
	db, mock := newTxProvider(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	exams := &fakeExamStore{exams: map[string]*models.Exam{}}
	writer := &fakeAssignmentWriter{}
	elig := &fakeEligibility{result: &EligibilityResult{Pool: poolOf("ta-1", "ta-2"), Sets: emptySets()}}

	svc := NewAssignmentService(db, exams, &fakeAssistantStore{}, writer, elig, &fakeNotifier{}, &fakeInvalidator{}, nil, nil, zap.NewNop())
	result, err := svc.AssignProctors(context.Background(), dto.AssignProctorsRequest{
		CourseID:            "course-9",
		CourseCode:          "EE301",
		Department:          "EE",
		Date:                "2026-01-17T13:00:00Z",
		RequiredCount:       2,
		AutoAssignRemaining: true,
	})
	require.NoError(t, err)

	require.Len(t, exams.created, 1)
	assert.Equal(t, "course-9", exams.created[0].CourseID)
	assert.Equal(t, 2, exams.created[0].ProctorNum)
	assert.Equal(t, exams.created[0].ID, result.ExamID)
	// A brand new exam has nothing to wipe.
	assert.Empty(t, writer.deletedExams)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignProctorsUnknownManualAssistantRollsBack(t *testing.T) {
	db, mock := newTxProvider(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	elig := &fakeEligibility{result: &EligibilityResult{Sets: emptySets()}}

	svc := NewAssignmentService(db, exams, &fakeAssistantStore{}, &fakeAssignmentWriter{}, elig, &fakeNotifier{}, &fakeInvalidator{}, nil, nil, zap.NewNop())
	_, err := svc.AssignProctors(context.Background(), dto.AssignProctorsRequest{
		ExamID:             "exam-1",
		ManualAssistantIDs: []string{"ghost"},
		RequiredCount:      1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignProctorsValidatesRequest(t *testing.T) {
	db, _ := newTxProvider(t)
	svc := NewAssignmentService(db, &fakeExamStore{}, &fakeAssistantStore{}, &fakeAssignmentWriter{}, &fakeEligibility{}, &fakeNotifier{}, &fakeInvalidator{}, nil, nil, zap.NewNop())

	_, err := svc.AssignProctors(context.Background(), dto.AssignProctorsRequest{ExamID: "exam-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignProctorsStrictLeavePassedThrough(t *testing.T) {
	db, mock := newTxProvider(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	exams := &fakeExamStore{exams: map[string]*models.Exam{"exam-1": storedExam()}}
	elig := &fakeEligibility{result: &EligibilityResult{Sets: emptySets()}}

	svc := NewAssignmentService(db, exams, &fakeAssistantStore{}, &fakeAssignmentWriter{}, elig, &fakeNotifier{}, &fakeInvalidator{}, nil, nil, zap.NewNop())
	_, err := svc.AssignProctors(context.Background(), dto.AssignProctorsRequest{
		ExamID:           "exam-1",
		RequiredCount:    1,
		StrictLeaveCheck: true,
		DepartmentFilter: "CS",
	})
	require.NoError(t, err)

	assert.True(t, elig.opts.CheckLeave)
	assert.True(t, elig.opts.StrictLeave)
	assert.Equal(t, "CS", elig.opts.Department)
	assert.NoError(t, mock.ExpectationsWereMet())
}
