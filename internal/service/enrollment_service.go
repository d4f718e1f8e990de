package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/course-sales-api/internal/models"
	"github.com/noah-isme/course-sales-api/internal/repository"
	"github.com/noah-isme/course-sales-api/pkg/config"
	appErrors "github.com/noah-isme/course-sales-api/pkg/errors"
)

type enrollmentStore interface {
	WithinCourse(ctx context.Context, courseID string, fn func(tx repository.EnrollmentTx, course *models.Course) error) error
}

// EnrollmentService is the entry point of the enrollment operation. A single
// Enroll call checks the caller's standing against the course, debits their
// balance, writes the subscription and assigns a group, all inside one
// storage transaction serialized per course: either every effect commits or
// none does.
type EnrollmentService struct {
	store    enrollmentStore
	assigner *GroupAssigner
	limits   config.EnrollmentConfig
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(store enrollmentStore, assigner *GroupAssigner, limits config.EnrollmentConfig, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{store: store, assigner: assigner, limits: limits, metrics: metrics, logger: logger}
}

// Enroll subscribes the user to the course, paying with bonus points.
//
// Preconditions are evaluated in order and the first failure wins: the course
// must exist, the user must not already be subscribed, the course must have
// seats left, and the balance must cover the price. Only then are the debit,
// the subscription and the group assignment performed. Every step runs under
// the course row lock taken by the store, so concurrent enrollments into the
// same course observe each other's effects.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID string) (*models.EnrollmentResult, error) {
	if userID == "" || courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user and course are required")
	}

	var result models.EnrollmentResult
	err := s.store.WithinCourse(ctx, courseID, func(tx repository.EnrollmentTx, course *models.Course) error {
		exists, err := tx.SubscriptionExists(ctx, userID, course.ID)
		if err != nil {
			return err
		}
		if exists {
			return appErrors.ErrAlreadySubscribed
		}

		subscribers, err := tx.CountSubscribers(ctx, course.ID)
		if err != nil {
			return err
		}
		if subscribers >= s.limits.MaxSubscribersPerCourse() {
			return appErrors.ErrCourseCapacity
		}

		remaining, err := tx.DebitBalance(ctx, userID, course.Price)
		if err != nil {
			return err
		}

		sub := &models.Subscription{UserID: userID, CourseID: course.ID}
		if err := tx.CreateSubscription(ctx, sub); err != nil {
			return err
		}

		group, err := s.assigner.Assign(ctx, tx, course.ID, userID)
		if err != nil {
			return err
		}

		result = models.EnrollmentResult{Subscription: *sub, Group: *group, RemainingBalance: remaining}
		return nil
	})
	if err != nil {
		appErr := appErrors.FromError(err)
		s.metrics.ObserveEnrollment(appErr.Code)
		if appErr.Code == appErrors.ErrInternal.Code {
			s.logger.Error("enrollment failed", zap.String("user_id", userID), zap.String("course_id", courseID), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
		}
		return nil, appErr
	}

	s.metrics.ObserveEnrollment("SUCCESS")
	s.logger.Info("user enrolled",
		zap.String("user_id", userID),
		zap.String("course_id", courseID),
		zap.String("group_id", result.Group.ID),
		zap.Int("remaining_balance", result.RemainingBalance),
	)
	return &result, nil
}
