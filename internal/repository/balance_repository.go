package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-sales-api/internal/models"
)

// BalanceRepository serves read access to user balances. Debits happen only
// inside the enrollment transaction.
type BalanceRepository struct {
	db *sqlx.DB
}

// NewBalanceRepository constructs the repository.
func NewBalanceRepository(db *sqlx.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// FindByUser returns the balance of the given user.
func (r *BalanceRepository) FindByUser(ctx context.Context, userID string) (*models.Balance, error) {
	const query = `SELECT user_id, bonus_count, updated_at FROM balances WHERE user_id = $1`
	var balance models.Balance
	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		return nil, err
	}
	return &balance, nil
}
