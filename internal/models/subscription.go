package models

import "time"

// Subscription is the durable record that a user has bought access to a
// course. At most one may ever exist per (user, course) pair; the storage
// layer enforces this with a unique constraint.
type Subscription struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SubscribedCourse joins a subscription with its course for "my courses"
// listings.
type SubscribedCourse struct {
	Subscription
	CourseTitle  string    `db:"course_title" json:"course_title"`
	CourseAuthor string    `db:"course_author" json:"course_author"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
}

// EnrollmentResult is the outcome of a successful enrollment: the new
// subscription, the group the student landed in, and what is left on their
// balance after the debit.
type EnrollmentResult struct {
	Subscription     Subscription `json:"subscription"`
	Group            Group        `json:"group"`
	RemainingBalance int          `json:"remaining_balance"`
}
