package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-sales-api/internal/models"
)

// UserRepository mirrors identity-provider subjects locally and seeds their
// balances.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, full_name, is_staff, created_at FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// Ensure upserts the mirrored user record and, for a first-seen user, seeds
// their balance with the configured starting bonus count. Both writes share
// one transaction so a user can never exist without a balance.
func (r *UserRepository) Ensure(ctx context.Context, user *models.User, startingBonus int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ensure user: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	const userQuery = `INSERT INTO users (id, email, full_name, is_staff, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, full_name = EXCLUDED.full_name, is_staff = EXCLUDED.is_staff`
	if _, err := tx.ExecContext(ctx, userQuery, user.ID, user.Email, user.FullName, user.IsStaff, user.CreatedAt); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	const balanceQuery = `INSERT INTO balances (user_id, bonus_count, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, balanceQuery, user.ID, startingBonus, time.Now().UTC()); err != nil {
		return fmt.Errorf("seed balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ensure user: %w", err)
	}
	return nil
}
