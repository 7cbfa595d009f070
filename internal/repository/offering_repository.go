package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// OfferingRepository reads teaching/grading offerings for conflict lookups.
// The engine never mutates offerings.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs the repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// ListAssistantIDsByCourse returns assistants holding an offering on the
// course. These assistants may not proctor the course's own exam.
func (r *OfferingRepository) ListAssistantIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT DISTINCT assistant_id FROM offerings WHERE course_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list offering assistants by course: %w", err)
	}
	return ids, nil
}

// ListAssistantIDsByCourses returns assistants holding an offering on any of
// the given courses. Feeds the same-date offering-course-exam check.
func (r *OfferingRepository) ListAssistantIDsByCourses(ctx context.Context, courseIDs []string) ([]string, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT DISTINCT assistant_id FROM offerings WHERE course_id IN (?)`, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("build offering course query: %w", err)
	}
	query = r.db.Rebind(query)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list offering assistants by courses: %w", err)
	}
	return ids, nil
}
