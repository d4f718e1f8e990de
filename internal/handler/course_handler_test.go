package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-sales-api/internal/middleware"
	"github.com/noah-isme/course-sales-api/internal/models"
	"github.com/noah-isme/course-sales-api/internal/repository"
	"github.com/noah-isme/course-sales-api/internal/service"
	"github.com/noah-isme/course-sales-api/pkg/config"
	appErrors "github.com/noah-isme/course-sales-api/pkg/errors"
)

type courseRepoMock struct {
	courses map[string]models.Course
}

func (m *courseRepoMock) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var list []models.Course
	for _, c := range m.courses {
		list = append(list, c)
	}
	return list, len(list), nil
}

func (m *courseRepoMock) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *courseRepoMock) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if c, ok := m.courses[id]; ok {
		return &models.CourseDetail{Course: c}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *courseRepoMock) Create(ctx context.Context, course *models.Course) error { return nil }
func (m *courseRepoMock) Update(ctx context.Context, course *models.Course) error { return nil }
func (m *courseRepoMock) Delete(ctx context.Context, id string) error             { return nil }

// payStoreMock implements the enrollment store contract for a single course
// with one open group slot.
type payStoreMock struct {
	course     models.Course
	balance    int
	subscribed bool
	err        error
}

func (m *payStoreMock) WithinCourse(ctx context.Context, courseID string, fn func(tx repository.EnrollmentTx, course *models.Course) error) error {
	if courseID != m.course.ID {
		return appErrors.ErrCourseNotFound
	}
	if m.err != nil {
		return m.err
	}
	return fn(&payTxMock{store: m}, &m.course)
}

type payTxMock struct {
	store *payStoreMock
}

func (t *payTxMock) SubscriptionExists(ctx context.Context, userID, courseID string) (bool, error) {
	return t.store.subscribed, nil
}

func (t *payTxMock) CountSubscribers(ctx context.Context, courseID string) (int, error) {
	return 0, nil
}

func (t *payTxMock) DebitBalance(ctx context.Context, userID string, amount int) (int, error) {
	if t.store.balance < amount {
		return 0, appErrors.ErrInsufficientFunds
	}
	t.store.balance -= amount
	return t.store.balance, nil
}

func (t *payTxMock) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	sub.ID = "sub-1"
	t.store.subscribed = true
	return nil
}

func (t *payTxMock) GroupsByOccupancy(ctx context.Context, courseID string) ([]models.GroupOccupancy, error) {
	return nil, nil
}

func (t *payTxMock) CreateGroup(ctx context.Context, group *models.Group) error {
	group.ID = "g1"
	return nil
}

func (t *payTxMock) AddGroupMember(ctx context.Context, groupID, userID string) error {
	return nil
}

func testEnrollmentLimits() config.EnrollmentConfig {
	return config.EnrollmentConfig{MaxGroupsPerCourse: 10, MaxSubscribersPerGroup: 30, DefaultBonusBalance: 1000}
}

func newCourseTestHandler(store *payStoreMock) *CourseHandler {
	limits := testEnrollmentLimits()
	courseRepo := &courseRepoMock{courses: map[string]models.Course{store.course.ID: store.course}}
	cacheSvc := service.NewCacheService(nil, nil, 0, zap.NewNop(), false)
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, nil, validator.New(), zap.NewNop())
	assigner := service.NewGroupAssigner(limits, zap.NewNop())
	enrollmentSvc := service.NewEnrollmentService(store, assigner, limits, service.NewMetricsService(), zap.NewNop())
	return NewCourseHandler(courseSvc, enrollmentSvc)
}

func TestCourseHandlerPay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &payStoreMock{course: models.Course{ID: "c1", Price: 250}, balance: 1000}
	handler := newCourseTestHandler(store)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/courses/c1/pay", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Pay(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.EnrollmentResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "sub-1", envelope.Data.Subscription.ID)
	assert.Equal(t, 750, envelope.Data.RemainingBalance)
	assert.Equal(t, 750, store.balance)
}

func TestCourseHandlerPayUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCourseTestHandler(&payStoreMock{course: models.Course{ID: "c1"}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/courses/c1/pay", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Pay(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCourseHandlerPayAlreadySubscribed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &payStoreMock{course: models.Course{ID: "c1", Price: 250}, balance: 1000, subscribed: true}
	handler := newCourseTestHandler(store)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/courses/c1/pay", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Pay(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, appErrors.ErrAlreadySubscribed.Code, envelope.Error.Code)
	assert.Equal(t, 1000, store.balance)
}

func TestCourseHandlerPayCourseNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCourseTestHandler(&payStoreMock{course: models.Course{ID: "c1"}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/courses/missing/pay", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})

	handler.Pay(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCourseHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCourseTestHandler(&payStoreMock{course: models.Course{ID: "c1", Title: "Go Basics"}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/courses", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []models.Course    `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 1)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}
