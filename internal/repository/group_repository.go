package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-sales-api/internal/models"
)

// GroupRepository serves read access to course groups and their rosters.
// Group creation and membership writes happen only inside the enrollment
// transaction (see EnrollmentStore).
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// ListByCourse returns the groups of a course with their member counts,
// ordered by creation position.
func (r *GroupRepository) ListByCourse(ctx context.Context, courseID string) ([]models.GroupOccupancy, error) {
	const query = `SELECT g.id, g.course_id, g.position, g.created_at, COUNT(m.user_id) AS member_count
        FROM course_groups g
        LEFT JOIN group_members m ON m.group_id = g.id
        WHERE g.course_id = $1
        GROUP BY g.id, g.course_id, g.position, g.created_at
        ORDER BY g.position ASC`
	var groups []models.GroupOccupancy
	if err := r.db.SelectContext(ctx, &groups, query, courseID); err != nil {
		return nil, fmt.Errorf("list course groups: %w", err)
	}
	return groups, nil
}

// FindByID returns a group by its ID.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, course_id, position, created_at FROM course_groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// Roster returns the members of a single group with user info.
func (r *GroupRepository) Roster(ctx context.Context, groupID string) ([]models.RosterEntry, error) {
	const query = `SELECT m.group_id, g.position AS group_position, m.user_id, u.email, u.full_name, m.joined_at
        FROM group_members m
        JOIN course_groups g ON g.id = m.group_id
        JOIN users u ON u.id = m.user_id
        WHERE m.group_id = $1
        ORDER BY m.joined_at ASC, m.user_id ASC`
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, groupID); err != nil {
		return nil, fmt.Errorf("group roster: %w", err)
	}
	return entries, nil
}

// CourseRoster returns every member of every group of a course, ordered by
// group position then join time. Used by the roster export.
func (r *GroupRepository) CourseRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	const query = `SELECT m.group_id, g.position AS group_position, m.user_id, u.email, u.full_name, m.joined_at
        FROM group_members m
        JOIN course_groups g ON g.id = m.group_id
        JOIN users u ON u.id = m.user_id
        WHERE g.course_id = $1
        ORDER BY g.position ASC, m.joined_at ASC, m.user_id ASC`
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, courseID); err != nil {
		return nil, fmt.Errorf("course roster: %w", err)
	}
	return entries, nil
}
