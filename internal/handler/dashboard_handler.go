package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trakfit-api/internal/dto"
	"github.com/noah-isme/trakfit-api/internal/models"
	appErrors "github.com/noah-isme/trakfit-api/pkg/errors"
	"github.com/noah-isme/trakfit-api/pkg/response"
)

type dashboardService interface {
	StudentDashboard(ctx context.Context, userID string) (*dto.StudentDashboardResponse, error)
	StudentHistory(ctx context.Context, userID string, filter models.FitnessTestFilter) (*dto.StudentHistoryResponse, error)
	TeacherDashboard(ctx context.Context, activityLimit int) (*dto.TeacherDashboardResponse, bool, error)
	TeacherStudentProfile(ctx context.Context, studentNo string) (*dto.TeacherStudentProfileResponse, error)
	ExportClassStatistics(ctx context.Context, format string) ([]byte, string, string, error)
}

// DashboardHandler wires the dashboard aggregations to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Student godoc
// @Summary Student dashboard
// @Description Latest record, latest pre/post records and pre/post improvements
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /students/me/dashboard [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.service.StudentDashboard(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// History godoc
// @Summary Student test history
// @Description Records newest first, each compared to the chronologically previous test
// @Tags Dashboard
// @Produce json
// @Param type query string false "Filter by test type (pre or post)"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /students/me/history [get]
func (h *DashboardHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter, err := parseTestFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	history, err := h.service.StudentHistory(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Teacher godoc
// @Summary Teacher class dashboard
// @Description Class-wide averages plus the recent activity feed; format=csv|pdf exports the statistics table
// @Tags Dashboard
// @Produce json
// @Param format query string false "Export format (csv or pdf)"
// @Param limit query int false "Activity feed size"
// @Success 200 {object} response.Envelope
// @Router /teacher/dashboard [get]
func (h *DashboardHandler) Teacher(c *gin.Context) {
	if format := strings.TrimSpace(c.Query("format")); format != "" {
		payload, filename, contentType, err := h.service.ExportClassStatistics(c.Request.Context(), format)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, contentType, payload)
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	start := time.Now()
	summary, cacheHit, err := h.service.TeacherDashboard(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := map[string]interface{}{
		"cache_hit":          cacheHit,
		"processing_time_ms": time.Since(start).Milliseconds(),
	}
	response.JSON(c, http.StatusOK, summary, nil, meta)
}

// TeacherStudent godoc
// @Summary Per-student profile for teachers
// @Tags Dashboard
// @Produce json
// @Param studentNo path string true "Student number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teacher/students/{studentNo} [get]
func (h *DashboardHandler) TeacherStudent(c *gin.Context) {
	profile, err := h.service.TeacherStudentProfile(c.Request.Context(), c.Param("studentNo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
