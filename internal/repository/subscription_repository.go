package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-sales-api/internal/models"
)

// SubscriptionRepository serves read access to the subscription ledger.
// Subscription writes happen only inside the enrollment transaction.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository constructs the repository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Exists reports whether the user already holds a subscription to the course.
func (r *SubscriptionRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM subscriptions WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return true, nil
}

// ListByUser returns the courses a user has bought, newest first.
func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]models.SubscribedCourse, error) {
	const query = `SELECT s.id, s.user_id, s.course_id, s.created_at,
        c.title AS course_title, c.author AS course_author, c.start_date
        FROM subscriptions s
        JOIN courses c ON c.id = s.course_id
        WHERE s.user_id = $1
        ORDER BY s.created_at DESC`
	var subscriptions []models.SubscribedCourse
	if err := r.db.SelectContext(ctx, &subscriptions, query, userID); err != nil {
		return nil, fmt.Errorf("list user subscriptions: %w", err)
	}
	return subscriptions, nil
}
