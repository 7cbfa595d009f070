package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-ops/proctor-api/internal/models"
)

type stubAssistantPool struct {
	active    []models.Assistant
	courseTAs []string
}

func (s *stubAssistantPool) ListActive(ctx context.Context) ([]models.Assistant, error) {
	return s.active, nil
}

func (s *stubAssistantPool) ListCourseAssistantIDs(ctx context.Context, courseID string) ([]string, error) {
	return s.courseTAs, nil
}

type stubOfferings struct {
	byCourse  []string
	byCourses []string
}

func (s *stubOfferings) ListAssistantIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	return s.byCourse, nil
}

func (s *stubOfferings) ListAssistantIDsByCourses(ctx context.Context, courseIDs []string) ([]string, error) {
	return s.byCourses, nil
}

type stubExamDates struct {
	courseIDs []string
}

func (s *stubExamDates) ListCourseIDsWithExamOn(ctx context.Context, date time.Time, excludeExamID string) ([]string, error) {
	return s.courseIDs, nil
}

type stubLeaves struct {
	onLeave []string
	queried bool
}

func (s *stubLeaves) ListApprovedAssistantIDsOn(ctx context.Context, date time.Time) ([]string, error) {
	s.queried = true
	return s.onLeave, nil
}

type stubAssignmentWindow struct {
	window   []models.AssignmentWindowEntry
	rejected []string
}

func (s *stubAssignmentWindow) ListWindow(ctx context.Context, from, to time.Time) ([]models.AssignmentWindowEntry, error) {
	return s.window, nil
}

func (s *stubAssignmentWindow) ListRejectedAssistantIDs(ctx context.Context, examID string) ([]string, error) {
	return s.rejected, nil
}

func activeAssistant(id, department string) models.Assistant {
	return models.Assistant{ID: id, Department: department, Active: true}
}

func testExam() *models.Exam {
	return &models.Exam{
		ID:         "exam-1",
		CourseID:   "course-1",
		CourseCode: "CS101",
		Department: "CS",
		StartsAt:   time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestEligibilityEvaluateHardExclusions(t *testing.T) {
	assistants := &stubAssistantPool{active: []models.Assistant{
		activeAssistant("ta-clean", "CS"),
		activeAssistant("ta-offering", "CS"),
		activeAssistant("ta-same-date", "CS"),
		activeAssistant("ta-busy", "CS"),
		activeAssistant("ta-rejected", "CS"),
	}}
	offerings := &stubOfferings{
		byCourse:  []string{"ta-offering"},
		byCourses: []string{"ta-same-date"},
	}
	examDates := &stubExamDates{courseIDs: []string{"course-2"}}
	window := &stubAssignmentWindow{
		window: []models.AssignmentWindowEntry{
			{AssistantID: "ta-busy", ExamID: "exam-other", ExamStartsAt: time.Date(2026, 1, 14, 14, 0, 0, 0, time.UTC)},
		},
		rejected: []string{"ta-rejected"},
	}

	svc := NewEligibilityService(assistants, offerings, examDates, &stubLeaves{}, window, zap.NewNop())
	result, err := svc.Evaluate(context.Background(), testExam(), EligibilityOptions{})
	require.NoError(t, err)

	require.Len(t, result.Pool, 1)
	assert.Equal(t, "ta-clean", result.Pool[0].Assistant.ID)

	assert.Equal(t, 1, result.Warnings.OfferingConflicts)
	assert.Equal(t, 1, result.Warnings.OfferingCourseExamConflicts)
	assert.Equal(t, 1, result.Warnings.ProctoringConflicts)

	assert.True(t, result.Sets.Excludes("ta-offering", false))
	assert.True(t, result.Sets.Excludes("ta-same-date", false))
	assert.True(t, result.Sets.Excludes("ta-busy", false))
	assert.True(t, result.Sets.Excludes("ta-rejected", false))
	assert.False(t, result.Sets.Excludes("ta-clean", false))
}

func TestEligibilityEvaluateConsecutiveDayFlagsNotExcludes(t *testing.T) {
	assistants := &stubAssistantPool{active: []models.Assistant{activeAssistant("ta-1", "CS")}}
	window := &stubAssignmentWindow{
		window: []models.AssignmentWindowEntry{
			{AssistantID: "ta-1", ExamID: "exam-prev", ExamStartsAt: time.Date(2026, 1, 13, 10, 0, 0, 0, time.UTC)},
		},
	}

	svc := NewEligibilityService(assistants, &stubOfferings{}, &stubExamDates{}, &stubLeaves{}, window, zap.NewNop())
	result, err := svc.Evaluate(context.Background(), testExam(), EligibilityOptions{})
	require.NoError(t, err)

	require.Len(t, result.Pool, 1)
	assert.True(t, result.Pool[0].ConsecutiveDayAssignment)
	assert.Equal(t, 1, result.Warnings.ConsecutiveDayDemotions)
	assert.False(t, result.Sets.Excludes("ta-1", false))
}

func TestEligibilityEvaluateLeavePolicies(t *testing.T) {
	assistants := &stubAssistantPool{active: []models.Assistant{activeAssistant("ta-leave", "CS")}}
	leaves := &stubLeaves{onLeave: []string{"ta-leave"}}

	// Leave check disabled: the lookup never runs.
	svc := NewEligibilityService(assistants, &stubOfferings{}, &stubExamDates{}, leaves, &stubAssignmentWindow{}, zap.NewNop())
	result, err := svc.Evaluate(context.Background(), testExam(), EligibilityOptions{})
	require.NoError(t, err)
	assert.False(t, leaves.queried)
	require.Len(t, result.Pool, 1)
	assert.False(t, result.Pool[0].OnLeave)

	// Lenient: flagged and counted, still in the pool.
	result, err = svc.Evaluate(context.Background(), testExam(), EligibilityOptions{CheckLeave: true})
	require.NoError(t, err)
	require.Len(t, result.Pool, 1)
	assert.True(t, result.Pool[0].OnLeave)
	assert.Equal(t, 1, result.Warnings.OnLeave)
	assert.False(t, result.Sets.Excludes("ta-leave", false))

	// Strict: excluded outright.
	result, err = svc.Evaluate(context.Background(), testExam(), EligibilityOptions{CheckLeave: true, StrictLeave: true})
	require.NoError(t, err)
	assert.Empty(t, result.Pool)
	assert.Equal(t, 1, result.Warnings.OnLeave)
	assert.True(t, result.Sets.Excludes("ta-leave", true))
}

func TestEligibilityEvaluateDepartmentFilter(t *testing.T) {
	multi := activeAssistant("ta-multi", "EE")
	multi.MultidepartmentExam = true
	assistants := &stubAssistantPool{active: []models.Assistant{
		activeAssistant("ta-cs", "CS"),
		activeAssistant("ta-ee", "EE"),
		multi,
	}}

	svc := NewEligibilityService(assistants, &stubOfferings{}, &stubExamDates{}, &stubLeaves{}, &stubAssignmentWindow{}, zap.NewNop())
	result, err := svc.Evaluate(context.Background(), testExam(), EligibilityOptions{Department: "CS"})
	require.NoError(t, err)

	ids := make([]string, 0, len(result.Pool))
	for _, c := range result.Pool {
		ids = append(ids, c.Assistant.ID)
	}
	assert.ElementsMatch(t, []string{"ta-cs", "ta-multi"}, ids)
}

func TestEligibilityEvaluateCourseAffiliationFlag(t *testing.T) {
	assistants := &stubAssistantPool{
		active:    []models.Assistant{activeAssistant("ta-1", "CS"), activeAssistant("ta-2", "CS")},
		courseTAs: []string{"ta-2"},
	}

	svc := NewEligibilityService(assistants, &stubOfferings{}, &stubExamDates{}, &stubLeaves{}, &stubAssignmentWindow{}, zap.NewNop())
	result, err := svc.Evaluate(context.Background(), testExam(), EligibilityOptions{})
	require.NoError(t, err)

	require.Len(t, result.Pool, 2)
	for _, c := range result.Pool {
		assert.Equal(t, c.Assistant.ID == "ta-2", c.CourseAssistant)
	}
}
