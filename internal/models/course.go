package models

import "time"

// Course represents a purchasable offering priced in bonus points.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Author    string    `db:"author" json:"author"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	Price     int       `db:"price" json:"price"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail extends Course with aggregate counters for admin views.
type CourseDetail struct {
	Course
	LessonsCount     int `db:"lessons_count" json:"lessons_count"`
	GroupsCount      int `db:"groups_count" json:"groups_count"`
	SubscribersCount int `db:"subscribers_count" json:"subscribers_count"`
}

// CourseFilter defines filter criteria for listing courses. When
// ExcludeSubscriberID is set, courses that user already bought are omitted.
type CourseFilter struct {
	Search              string
	ExcludeSubscriberID string
	Page                int
	PageSize            int
	SortBy              string
	SortOrder           string
}

// Lesson belongs to a course and points at its content.
type Lesson struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Link      string    `db:"link" json:"link"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
