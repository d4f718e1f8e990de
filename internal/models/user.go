package models

import "time"

// User mirrors the subject supplied by the external identity provider.
// Records are created lazily on a user's first authenticated request; the
// service itself stores no credentials.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	IsStaff   bool      `db:"is_staff" json:"is_staff"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Profile combines the mirrored user with their current balance.
type Profile struct {
	User
	BonusCount int `json:"bonus_count"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
