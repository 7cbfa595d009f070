package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campus-ops/proctor-api/internal/models"
)

// LeaveRepository reads approved leave windows for eligibility snapshots.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// ListApprovedAssistantIDsOn returns assistants with an approved leave
// request covering the given calendar date. Waiting and rejected requests
// never affect eligibility.
func (r *LeaveRepository) ListApprovedAssistantIDsOn(ctx context.Context, date time.Time) ([]string, error) {
	const query = `SELECT DISTINCT assistant_id FROM leave_requests
		WHERE status = $1 AND start_date <= $2 AND end_date >= $2`
	day := date.UTC().Truncate(24 * time.Hour)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, models.LeaveApproved, day); err != nil {
		return nil, fmt.Errorf("list approved leave: %w", err)
	}
	return ids, nil
}
