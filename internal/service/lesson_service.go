package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/course-sales-api/internal/models"
	appErrors "github.com/noah-isme/course-sales-api/pkg/errors"
)

type lessonRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

type lessonCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type lessonAccessRepository interface {
	Exists(ctx context.Context, userID, courseID string) (bool, error)
}

// LessonRequest captures lesson create/update payloads.
type LessonRequest struct {
	Title string `json:"title" validate:"required"`
	Link  string `json:"link" validate:"required,url"`
}

// LessonService guards lesson content behind course purchase.
type LessonService struct {
	lessons       lessonRepository
	courses       lessonCourseRepository
	subscriptions lessonAccessRepository
	validator     *validator.Validate
}

// NewLessonService constructs LessonService.
func NewLessonService(lessons lessonRepository, courses lessonCourseRepository, subscriptions lessonAccessRepository, validate *validator.Validate) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	return &LessonService{lessons: lessons, courses: courses, subscriptions: subscriptions, validator: validate}
}

// ListForUser returns a course's lessons for a reader. Non-staff readers must
// have bought the course.
func (s *LessonService) ListForUser(ctx context.Context, courseID string, claims *models.JWTClaims) ([]models.Lesson, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if err := s.authorize(ctx, courseID, claims); err != nil {
		return nil, err
	}

	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}

func (s *LessonService) authorize(ctx context.Context, courseID string, claims *models.JWTClaims) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.IsStaff {
		return nil
	}
	subscribed, err := s.subscriptions.Exists(ctx, claims.UserID, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subscription")
	}
	if !subscribed {
		return appErrors.Clone(appErrors.ErrForbidden, "course has not been purchased")
	}
	return nil
}

// Create adds a lesson to a course.
func (s *LessonService) Create(ctx context.Context, courseID string, req LessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	lesson := &models.Lesson{CourseID: courseID, Title: req.Title, Link: req.Link}
	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	return lesson, nil
}

// Update modifies a lesson.
func (s *LessonService) Update(ctx context.Context, id string, req LessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	lesson.Title = req.Title
	lesson.Link = req.Link
	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	return lesson, nil
}

// Delete removes a lesson.
func (s *LessonService) Delete(ctx context.Context, id string) error {
	if _, err := s.lessons.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if err := s.lessons.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	return nil
}
