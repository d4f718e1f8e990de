package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-sales-api/internal/handler"
	"github.com/noah-isme/course-sales-api/internal/service"
	"github.com/noah-isme/course-sales-api/pkg/config"
)

func testAPIHandlers() apiHandlers {
	return apiHandlers{
		courses: handler.NewCourseHandler(nil, nil),
		lessons: handler.NewLessonHandler(nil),
		groups:  handler.NewGroupHandler(nil),
		users:   handler.NewUserHandler(nil),
		tokens:  service.NewTokenService(config.AuthConfig{TokenSecret: "secret"}),
		userSvc: service.NewUserService(nil, nil, nil, config.EnrollmentConfig{}, nil),
	}
}

func routePaths(r *gin.Engine) map[string]bool {
	paths := make(map[string]bool)
	for _, route := range r.Routes() {
		paths[route.Method+" "+route.Path] = true
	}
	return paths
}

func TestRegisterAPIRoutesMountsPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{APIPrefix: "/api/v1"}
	cfg.Exports.Enabled = true

	r := gin.New()
	registerAPIRoutes(r, cfg, testAPIHandlers())

	paths := routePaths(r)
	assert.True(t, paths[http.MethodGet+" /api/v1/courses"])
	assert.True(t, paths[http.MethodGet+" /api/v1/courses/:id"])
	assert.True(t, paths[http.MethodPost+" /api/v1/courses/:id/pay"])
	assert.True(t, paths[http.MethodGet+" /api/v1/courses/:id/lessons"])
	assert.True(t, paths[http.MethodGet+" /api/v1/me"])
	assert.True(t, paths[http.MethodGet+" /api/v1/me/courses"])
	assert.True(t, paths[http.MethodPost+" /api/v1/courses"])
	assert.True(t, paths[http.MethodGet+" /api/v1/groups/:id/roster"])
	assert.True(t, paths[http.MethodGet+" /api/v1/courses/:id/roster/export"])

	for p := range paths {
		parts := strings.SplitN(p, " ", 2)
		assert.True(t, strings.HasPrefix(parts[1], "/api/v1/"), "route %s not under prefix", p)
	}
}

func TestRegisterAPIRoutesExportsDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{APIPrefix: "/api/v1"}

	r := gin.New()
	registerAPIRoutes(r, cfg, testAPIHandlers())

	paths := routePaths(r)
	assert.False(t, paths[http.MethodGet+" /api/v1/courses/:id/roster/export"])
	assert.True(t, paths[http.MethodGet+" /api/v1/groups/:id/roster"])
}
