package models

import "time"

// Balance is a user's spendable bonus-point total. It is seeded when the
// user is first seen and only ever mutated by enrollment debits; the storage
// layer guarantees it never goes negative.
type Balance struct {
	UserID     string    `db:"user_id" json:"user_id"`
	BonusCount int       `db:"bonus_count" json:"bonus_count"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
