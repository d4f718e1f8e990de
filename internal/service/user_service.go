package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/noah-isme/course-sales-api/internal/models"
	"github.com/noah-isme/course-sales-api/pkg/config"
	appErrors "github.com/noah-isme/course-sales-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Ensure(ctx context.Context, user *models.User, startingBonus int) error
}

type balanceRepository interface {
	FindByUser(ctx context.Context, userID string) (*models.Balance, error)
}

type userSubscriptionRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.SubscribedCourse, error)
}

// UserService mirrors identity-provider subjects and answers profile queries.
type UserService struct {
	users         userRepository
	balances      balanceRepository
	subscriptions userSubscriptionRepository
	limits        config.EnrollmentConfig
	logger        *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(users userRepository, balances balanceRepository, subscriptions userSubscriptionRepository, limits config.EnrollmentConfig, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, balances: balances, subscriptions: subscriptions, limits: limits, logger: logger}
}

// EnsureFromClaims upserts the local mirror of the authenticated subject.
// First-seen users get a balance seeded with the configured starting bonus.
func (s *UserService) EnsureFromClaims(ctx context.Context, claims *models.JWTClaims) error {
	if claims == nil || claims.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	user := &models.User{
		ID:       claims.UserID,
		Email:    claims.Email,
		FullName: claims.FullName,
		IsStaff:  claims.IsStaff,
	}
	if err := s.users.Ensure(ctx, user, s.limits.DefaultBonusBalance); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision user")
	}
	return nil
}

// Profile returns the user together with their current bonus balance.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	profile := &models.Profile{User: *user}
	balance, err := s.balances.FindByUser(ctx, userID)
	if err != nil {
		if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load balance")
		}
		s.logger.Warn("user has no balance row", zap.String("user_id", userID))
	} else {
		profile.BonusCount = balance.BonusCount
	}
	return profile, nil
}

// SubscribedCourses lists the courses the user has bought.
func (s *UserService) SubscribedCourses(ctx context.Context, userID string) ([]models.SubscribedCourse, error) {
	courses, err := s.subscriptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subscribed courses")
	}
	return courses, nil
}
