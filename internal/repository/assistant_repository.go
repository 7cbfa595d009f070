package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campus-ops/proctor-api/internal/models"
)

// AssistantRepository reads the teaching assistant roster and maintains the
// proctoring counters the response state machine adjusts.
type AssistantRepository struct {
	db *sqlx.DB
}

// NewAssistantRepository constructs the repository.
func NewAssistantRepository(db *sqlx.DB) *AssistantRepository {
	return &AssistantRepository{db: db}
}

// FindByID loads one assistant.
func (r *AssistantRepository) FindByID(ctx context.Context, id string) (*models.Assistant, error) {
	const query = `SELECT * FROM assistants WHERE id = $1`
	var assistant models.Assistant
	if err := r.db.GetContext(ctx, &assistant, query, id); err != nil {
		return nil, err
	}
	return &assistant, nil
}

// ListActive returns all active assistants, the candidate pool for every
// eligibility evaluation.
func (r *AssistantRepository) ListActive(ctx context.Context) ([]models.Assistant, error) {
	const query = `SELECT * FROM assistants WHERE active ORDER BY full_name ASC`
	var assistants []models.Assistant
	if err := r.db.SelectContext(ctx, &assistants, query); err != nil {
		return nil, fmt.Errorf("list active assistants: %w", err)
	}
	return assistants, nil
}

// ListCourseAssistantIDs returns assistants registered in the course's TA
// pool, used by the course-affiliation ranking preference.
func (r *AssistantRepository) ListCourseAssistantIDs(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT assistant_id FROM course_assistants WHERE course_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list course assistants: %w", err)
	}
	return ids, nil
}

// AdjustProctoringCounters moves the in- or out-of-department proctoring
// tally by delta. Accept passes +1; the immediate-swap workload reversal
// passes -1.
func (r *AssistantRepository) AdjustProctoringCounters(ctx context.Context, exec sqlx.ExtContext, assistantID string, inDept bool, delta int) error {
	column := "proctoring_out_dept"
	if inDept {
		column = "proctoring_in_dept"
	}
	query := fmt.Sprintf(`UPDATE assistants SET %s = %s + $1, updated_at = $2 WHERE id = $3`, column, column)
	if _, err := exec.ExecContext(ctx, query, delta, time.Now().UTC(), assistantID); err != nil {
		return fmt.Errorf("adjust proctoring counters: %w", err)
	}
	return nil
}
