package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-ops/proctor-api/internal/models"
)

// ProctoringRepository persists proctoring assignments. Mutating methods
// accept an sqlx.ExtContext so services can group them into one transaction.
type ProctoringRepository struct {
	db *sqlx.DB
}

// NewProctoringRepository constructs the repository.
func NewProctoringRepository(db *sqlx.DB) *ProctoringRepository {
	return &ProctoringRepository{db: db}
}

// FindByID loads one assignment.
func (r *ProctoringRepository) FindByID(ctx context.Context, id string) (*models.ProctoringAssignment, error) {
	const query = `SELECT * FROM proctoring_assignments WHERE id = $1`
	var assignment models.ProctoringAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindByIDForUpdate loads one assignment locking the row for the duration
// of the caller's transaction.
func (r *ProctoringRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ProctoringAssignment, error) {
	const query = `SELECT * FROM proctoring_assignments WHERE id = $1 FOR UPDATE`
	var assignment models.ProctoringAssignment
	if err := sqlx.GetContext(ctx, exec, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindNonTerminalByExamAndAssistant returns the assistant's live assignment
// for the exam, locked for update. sql.ErrNoRows when none exists.
func (r *ProctoringRepository) FindNonTerminalByExamAndAssistant(ctx context.Context, exec sqlx.ExtContext, examID, assistantID string) (*models.ProctoringAssignment, error) {
	const query = `SELECT * FROM proctoring_assignments
		WHERE exam_id = $1 AND assistant_id = $2 AND status IN ($3, $4, $5)
		FOR UPDATE`
	var assignment models.ProctoringAssignment
	err := sqlx.GetContext(ctx, exec, &assignment, query, examID, assistantID,
		models.AssignmentPending, models.AssignmentAccepted, models.AssignmentActive)
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// HasRejected reports whether the assistant has ever rejected this exam.
// Rejection permanently blocks re-assignment to the same exam.
func (r *ProctoringRepository) HasRejected(ctx context.Context, exec sqlx.ExtContext, examID, assistantID string) (bool, error) {
	const query = `SELECT 1 FROM proctoring_assignments
		WHERE exam_id = $1 AND assistant_id = $2 AND status = $3 LIMIT 1`
	var one int
	err := sqlx.GetContext(ctx, exec, &one, query, examID, assistantID, models.AssignmentRejected)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check rejected assignment: %w", err)
	}
	return true, nil
}

// ListRejectedAssistantIDs returns all assistants with a rejection tombstone
// for the exam.
func (r *ProctoringRepository) ListRejectedAssistantIDs(ctx context.Context, examID string) ([]string, error) {
	const query = `SELECT assistant_id FROM proctoring_assignments WHERE exam_id = $1 AND status = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, examID, models.AssignmentRejected); err != nil {
		return nil, fmt.Errorf("list rejected assistants: %w", err)
	}
	return ids, nil
}

// ListWindow returns non-terminal assignments whose exams start inside
// [from, to), one compact row each. Feeds the proctoring-conflict and
// consecutive-day checks.
func (r *ProctoringRepository) ListWindow(ctx context.Context, from, to time.Time) ([]models.AssignmentWindowEntry, error) {
	const query = `SELECT pa.assistant_id, pa.exam_id, e.starts_at AS exam_starts_at
		FROM proctoring_assignments pa
		JOIN exams e ON e.id = pa.exam_id
		WHERE pa.status IN ($1, $2, $3) AND e.starts_at >= $4 AND e.starts_at < $5`
	var entries []models.AssignmentWindowEntry
	err := r.db.SelectContext(ctx, &entries, query,
		models.AssignmentPending, models.AssignmentAccepted, models.AssignmentActive, from, to)
	if err != nil {
		return nil, fmt.Errorf("list assignment window: %w", err)
	}
	return entries, nil
}

// ListByExam returns the exam's roster with assistant descriptors.
func (r *ProctoringRepository) ListByExam(ctx context.Context, examID string) ([]models.ProctoringAssignmentDetail, error) {
	const query = `
SELECT pa.id, pa.exam_id, pa.assistant_id, pa.status, pa.is_manual, pa.assigned_by, pa.assigned_at, pa.responded_at,
       a.full_name AS assistant_name, a.email AS assistant_email,
       e.course_code, e.starts_at AS exam_starts_at, e.department AS exam_department
FROM proctoring_assignments pa
JOIN assistants a ON a.id = pa.assistant_id
JOIN exams e ON e.id = pa.exam_id
WHERE pa.exam_id = $1
ORDER BY pa.assigned_at ASC`
	var details []models.ProctoringAssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query, examID); err != nil {
		return nil, fmt.Errorf("list assignments by exam: %w", err)
	}
	return details, nil
}

// ListByAssistant returns the assistant's assignments, newest exam first.
func (r *ProctoringRepository) ListByAssistant(ctx context.Context, assistantID string) ([]models.ProctoringAssignmentDetail, error) {
	const query = `
SELECT pa.id, pa.exam_id, pa.assistant_id, pa.status, pa.is_manual, pa.assigned_by, pa.assigned_at, pa.responded_at,
       a.full_name AS assistant_name, a.email AS assistant_email,
       e.course_code, e.starts_at AS exam_starts_at, e.department AS exam_department
FROM proctoring_assignments pa
JOIN assistants a ON a.id = pa.assistant_id
JOIN exams e ON e.id = pa.exam_id
WHERE pa.assistant_id = $1
ORDER BY e.starts_at DESC`
	var details []models.ProctoringAssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query, assistantID); err != nil {
		return nil, fmt.Errorf("list assignments by assistant: %w", err)
	}
	return details, nil
}

// Create inserts a new assignment inside the caller's transaction.
func (r *ProctoringRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.ProctoringAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO proctoring_assignments
		(id, exam_id, assistant_id, status, is_manual, assigned_by, assigned_at, responded_at)
		VALUES (:id, :exam_id, :assistant_id, :status, :is_manual, :assigned_by, :assigned_at, :responded_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, assignment); err != nil {
		return fmt.Errorf("create proctoring assignment: %w", err)
	}
	return nil
}

// UpdateStatus stores a status transition and the response timestamp.
func (r *ProctoringRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.AssignmentStatus, respondedAt *time.Time) error {
	const query = `UPDATE proctoring_assignments SET status = $1, responded_at = $2 WHERE id = $3`
	if _, err := exec.ExecContext(ctx, query, status, respondedAt, id); err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	return nil
}

// DeleteByExamExceptRejected clears the exam's assignment set for a full
// re-assignment. REJECTED rows survive as permanent tombstones so the
// assistant is never re-assigned to the exam.
func (r *ProctoringRepository) DeleteByExamExceptRejected(ctx context.Context, exec sqlx.ExtContext, examID string) (int64, error) {
	const query = `DELETE FROM proctoring_assignments WHERE exam_id = $1 AND status <> $2`
	result, err := exec.ExecContext(ctx, query, examID, models.AssignmentRejected)
	if err != nil {
		return 0, fmt.Errorf("delete exam assignments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted exam assignments: %w", err)
	}
	return affected, nil
}

// ListNonTerminalByExamForUpdate locks and returns the exam's live
// assignments for the cancellation cascade.
func (r *ProctoringRepository) ListNonTerminalByExamForUpdate(ctx context.Context, exec sqlx.ExtContext, examID string) ([]models.ProctoringAssignment, error) {
	const query = `SELECT * FROM proctoring_assignments
		WHERE exam_id = $1 AND status IN ($2, $3, $4)
		FOR UPDATE`
	var assignments []models.ProctoringAssignment
	err := sqlx.SelectContext(ctx, exec, &assignments, query, examID,
		models.AssignmentPending, models.AssignmentAccepted, models.AssignmentActive)
	if err != nil {
		return nil, fmt.Errorf("list non-terminal assignments: %w", err)
	}
	return assignments, nil
}

// DeleteByIDs removes the given assignment rows.
func (r *ProctoringRepository) DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM proctoring_assignments WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("build assignment delete query: %w", err)
	}
	query = exec.Rebind(query)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete assignments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted assignments: %w", err)
	}
	return affected, nil
}
