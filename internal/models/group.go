package models

import "time"

// Group is a capacity-bounded cohort of students within a course. Position is
// assigned at creation time, per course, starting at 1; it gives groups a
// stable creation order used to break occupancy ties deterministically.
type Group struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GroupOccupancy pairs a group with its current member count.
type GroupOccupancy struct {
	Group
	MemberCount int `db:"member_count" json:"member_count"`
}

// GroupMember records a user's membership in a group.
type GroupMember struct {
	GroupID  string    `db:"group_id" json:"group_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// RosterEntry is a group member enriched with user info for roster views
// and exports.
type RosterEntry struct {
	GroupID       string    `db:"group_id" json:"group_id"`
	GroupPosition int       `db:"group_position" json:"group_position"`
	UserID        string    `db:"user_id" json:"user_id"`
	Email         string    `db:"email" json:"email"`
	FullName      string    `db:"full_name" json:"full_name"`
	JoinedAt      time.Time `db:"joined_at" json:"joined_at"`
}
