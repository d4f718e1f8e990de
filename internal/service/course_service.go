package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-sales-api/internal/models"
	appErrors "github.com/noah-isme/course-sales-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

const catalogCachePrefix = "catalog:courses"

// CreateCourseRequest captures the course creation payload.
type CreateCourseRequest struct {
	Title     string    `json:"title" validate:"required"`
	Author    string    `json:"author" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	Price     int       `json:"price" validate:"gte=0"`
}

// UpdateCourseRequest modifies course fields.
type UpdateCourseRequest struct {
	Title     string    `json:"title" validate:"required"`
	Author    string    `json:"author" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	Price     int       `json:"price" validate:"gte=0"`
}

// CourseService coordinates the course catalog.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

type cachedCatalogPage struct {
	Courses []models.Course `json:"courses"`
	Total   int             `json:"total"`
}

// List returns courses with pagination metadata. The anonymous catalog (no
// subscriber exclusion, no search) is served through the cache when enabled.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	cacheable := filter.ExcludeSubscriberID == "" && filter.Search == ""
	cacheKey := fmt.Sprintf("%s:p%d:s%d:%s:%s", catalogCachePrefix, page, size, filter.SortBy, filter.SortOrder)

	if cacheable {
		var cached cachedCatalogPage
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return cached.Courses, &models.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}, nil
		}
	}

	start := time.Now()
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	s.metrics.ObserveDBQuery("catalog_list", time.Since(start))

	if cacheable {
		_ = s.cache.Set(ctx, cacheKey, cachedCatalogPage{Courses: courses, Total: total}, 0)
	}

	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return courses, pagination, nil
}

// Get returns detailed course information.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	start := time.Now()
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	s.metrics.ObserveDBQuery("course_detail", time.Since(start))
	return detail, nil
}

// Create adds a new course to the catalog.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		Title:     req.Title,
		Author:    req.Author,
		StartDate: req.StartDate,
		Price:     req.Price,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// Update modifies a course.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	course.Title = req.Title
	course.Author = req.Author
	course.StartDate = req.StartDate
	course.Price = req.Price
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// Delete removes a course along with its lessons, groups and subscriptions.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.ErrCourseNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, catalogCachePrefix+":*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
