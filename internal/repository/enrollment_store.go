package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/course-sales-api/internal/models"
	appErrors "github.com/noah-isme/course-sales-api/pkg/errors"
)

// Postgres error codes the enrollment transaction cares about.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// EnrollmentTx exposes the storage operations available inside a single
// enrollment transaction. Implementations must scope every operation to the
// transaction that produced them.
type EnrollmentTx interface {
	SubscriptionExists(ctx context.Context, userID, courseID string) (bool, error)
	CountSubscribers(ctx context.Context, courseID string) (int, error)
	// DebitBalance atomically subtracts amount from the user's balance and
	// returns the remainder. It fails with InsufficientFunds when the balance
	// cannot cover the amount; the balance is never observed negative.
	DebitBalance(ctx context.Context, userID string, amount int) (int, error)
	// CreateSubscription inserts the ledger row. The (user_id, course_id)
	// unique constraint is the hard backstop against double subscription;
	// violations surface as DuplicateSubscription.
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	// GroupsByOccupancy returns the course's groups ordered by member count
	// ascending, creation position ascending.
	GroupsByOccupancy(ctx context.Context, courseID string) ([]models.GroupOccupancy, error)
	CreateGroup(ctx context.Context, group *models.Group) error
	AddGroupMember(ctx context.Context, groupID, userID string) error
}

// EnrollmentStore owns the transaction boundary of the enrollment operation.
// WithinCourse locks the course row for the duration of the callback, which
// serializes all enrollments into the same course (capacity checks and group
// assignment read-then-write shared per-course aggregates).
type EnrollmentStore struct {
	db *sqlx.DB
}

// NewEnrollmentStore constructs the store.
func NewEnrollmentStore(db *sqlx.DB) *EnrollmentStore {
	return &EnrollmentStore{db: db}
}

// WithinCourse begins a transaction, locks the course row and invokes fn with
// the locked course and a transaction-scoped EnrollmentTx. The transaction
// commits only if fn returns nil; any error rolls every write back.
func (s *EnrollmentStore) WithinCourse(ctx context.Context, courseID string, fn func(tx EnrollmentTx, course *models.Course) error) error {
	dbtx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "begin enrollment transaction")
	}
	defer dbtx.Rollback() //nolint:errcheck

	const lockQuery = `SELECT id, title, author, start_date, price, created_at, updated_at FROM courses WHERE id = $1 FOR UPDATE`
	var course models.Course
	if err := dbtx.GetContext(ctx, &course, lockQuery, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrCourseNotFound
		}
		return translatePG(err, "lock course")
	}

	if err := fn(&enrollmentTx{tx: dbtx}, &course); err != nil {
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "commit enrollment transaction")
	}
	return nil
}

type enrollmentTx struct {
	tx *sqlx.Tx
}

func (t *enrollmentTx) SubscriptionExists(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM subscriptions WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := t.tx.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, translatePG(err, "check subscription")
	}
	return true, nil
}

func (t *enrollmentTx) CountSubscribers(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM subscriptions WHERE course_id = $1`
	var count int
	if err := t.tx.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, translatePG(err, "count subscribers")
	}
	return count, nil
}

func (t *enrollmentTx) DebitBalance(ctx context.Context, userID string, amount int) (int, error) {
	const query = `UPDATE balances SET bonus_count = bonus_count - $2, updated_at = $3
        WHERE user_id = $1 AND bonus_count >= $2
        RETURNING bonus_count`
	var remaining int
	err := t.tx.GetContext(ctx, &remaining, query, userID, amount, time.Now().UTC())
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, translatePG(err, "debit balance")
	}

	// The conditional update matched nothing: either the balance cannot
	// cover the price or the balance row is missing entirely.
	var current int
	checkErr := t.tx.GetContext(ctx, &current, `SELECT bonus_count FROM balances WHERE user_id = $1`, userID)
	if checkErr == nil {
		return 0, appErrors.ErrInsufficientFunds
	}
	if errors.Is(checkErr, sql.ErrNoRows) {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "balance not found")
	}
	return 0, translatePG(checkErr, "read balance")
}

func (t *enrollmentTx) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subscriptions (id, user_id, course_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := t.tx.ExecContext(ctx, query, sub.ID, sub.UserID, sub.CourseID, sub.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return appErrors.ErrDuplicateSubscription
		}
		return translatePG(err, "create subscription")
	}
	return nil
}

func (t *enrollmentTx) GroupsByOccupancy(ctx context.Context, courseID string) ([]models.GroupOccupancy, error) {
	const query = `SELECT g.id, g.course_id, g.position, g.created_at, COUNT(m.user_id) AS member_count
        FROM course_groups g
        LEFT JOIN group_members m ON m.group_id = g.id
        WHERE g.course_id = $1
        GROUP BY g.id, g.course_id, g.position, g.created_at
        ORDER BY member_count ASC, g.position ASC`
	var groups []models.GroupOccupancy
	if err := t.tx.SelectContext(ctx, &groups, query, courseID); err != nil {
		return nil, translatePG(err, "load group occupancy")
	}
	return groups, nil
}

func (t *enrollmentTx) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_groups (id, course_id, position, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := t.tx.ExecContext(ctx, query, group.ID, group.CourseID, group.Position, group.CreatedAt); err != nil {
		return translatePG(err, "create group")
	}
	return nil
}

func (t *enrollmentTx) AddGroupMember(ctx context.Context, groupID, userID string) error {
	const query = `INSERT INTO group_members (group_id, user_id, joined_at) VALUES ($1, $2, $3)`
	if _, err := t.tx.ExecContext(ctx, query, groupID, userID, time.Now().UTC()); err != nil {
		return translatePG(err, "add group member")
	}
	return nil
}

// translatePG maps transient Postgres failures to StoreUnavailable so callers
// can retry, and wraps everything else with context.
func translatePG(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
