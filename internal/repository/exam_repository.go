package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-ops/proctor-api/internal/models"
)

// ExamRepository persists exams and their assignment counters.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// FindByID loads one exam.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT * FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// Create inserts a new exam inside the caller's transaction.
func (r *ExamRepository) Create(ctx context.Context, exec sqlx.ExtContext, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now
	const query = `INSERT INTO exams
		(id, course_id, course_code, department, starts_at, duration_minutes, exam_type, grad_course,
		 proctor_num, manual_assigned_tas, auto_assigned_tas, swap_count, outdated, created_at, updated_at)
		VALUES (:id, :course_id, :course_code, :department, :starts_at, :duration_minutes, :exam_type, :grad_course,
		 :proctor_num, :manual_assigned_tas, :auto_assigned_tas, :swap_count, :outdated, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// ListCourseIDsWithExamOn returns courses that have another exam scheduled
// on the given calendar date. Used by the offering-course-exam conflict
// check.
func (r *ExamRepository) ListCourseIDsWithExamOn(ctx context.Context, date time.Time, excludeExamID string) ([]string, error) {
	const query = `SELECT DISTINCT course_id FROM exams
		WHERE starts_at >= $1 AND starts_at < $2 AND id <> $3 AND NOT outdated`
	dayStart := date.UTC().Truncate(24 * time.Hour)
	var courseIDs []string
	if err := r.db.SelectContext(ctx, &courseIDs, query, dayStart, dayStart.Add(24*time.Hour), excludeExamID); err != nil {
		return nil, fmt.Errorf("list exam courses by date: %w", err)
	}
	return courseIDs, nil
}

// UpdateAssignmentCounts stores the manual/auto proctor tallies for an exam.
func (r *ExamRepository) UpdateAssignmentCounts(ctx context.Context, exec sqlx.ExtContext, id string, manual, auto int) error {
	const query = `UPDATE exams SET manual_assigned_tas = $1, auto_assigned_tas = $2, updated_at = $3 WHERE id = $4`
	if _, err := exec.ExecContext(ctx, query, manual, auto, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update exam assignment counts: %w", err)
	}
	return nil
}

// IncrementSwapCount bumps the exam's swap counter by one.
func (r *ExamRepository) IncrementSwapCount(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE exams SET swap_count = swap_count + 1, updated_at = $1 WHERE id = $2`
	if _, err := exec.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("increment exam swap count: %w", err)
	}
	return nil
}
