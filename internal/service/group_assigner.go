package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/course-sales-api/internal/models"
	"github.com/noah-isme/course-sales-api/internal/repository"
	"github.com/noah-isme/course-sales-api/pkg/config"
	appErrors "github.com/noah-isme/course-sales-api/pkg/errors"
)

// GroupAssigner places a freshly subscribed student into exactly one group of
// the course. It prefers opening a new group while the course is under its
// group quota, which spreads students across groups instead of packing them;
// once the quota is reached it fills the least-populated group.
//
// Assign must run inside the enrollment transaction, after the subscription
// write, so that the occupancy it reads cannot change underneath it.
type GroupAssigner struct {
	limits config.EnrollmentConfig
	logger *zap.Logger
}

// NewGroupAssigner constructs the assignment engine.
func NewGroupAssigner(limits config.EnrollmentConfig, logger *zap.Logger) *GroupAssigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupAssigner{limits: limits, logger: logger}
}

// Assign puts the user into a group of the course, creating one when the
// course is still under its group quota.
func (a *GroupAssigner) Assign(ctx context.Context, tx repository.EnrollmentTx, courseID, userID string) (*models.Group, error) {
	groups, err := tx.GroupsByOccupancy(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if len(groups) < a.limits.MaxGroupsPerCourse {
		group := &models.Group{CourseID: courseID, Position: len(groups) + 1}
		if err := tx.CreateGroup(ctx, group); err != nil {
			return nil, err
		}
		if err := tx.AddGroupMember(ctx, group.ID, userID); err != nil {
			return nil, err
		}
		return group, nil
	}

	// Quota reached: groups arrive ordered by member count, then creation
	// position, so the first entry is the deterministic target.
	least := groups[0]
	if least.MemberCount < a.limits.MaxSubscribersPerGroup {
		if err := tx.AddGroupMember(ctx, least.ID, userID); err != nil {
			return nil, err
		}
		return &least.Group, nil
	}

	// Unreachable when the orchestrator's capacity pre-check ran under the
	// same course lock; reaching it means the capacity invariant broke.
	a.logger.Error("group assignment found course at full capacity",
		zap.String("course_id", courseID),
		zap.String("user_id", userID),
		zap.Int("groups", len(groups)),
	)
	return nil, appErrors.ErrCourseFull
}
