package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trakfit-api/internal/models"
	"github.com/noah-isme/trakfit-api/internal/service"
	appErrors "github.com/noah-isme/trakfit-api/pkg/errors"
	"github.com/noah-isme/trakfit-api/pkg/response"
)

// FitnessTestHandler exposes the test ledger endpoints.
type FitnessTestHandler struct {
	tests *service.FitnessTestService
}

// NewFitnessTestHandler constructs FitnessTestHandler.
func NewFitnessTestHandler(tests *service.FitnessTestService) *FitnessTestHandler {
	return &FitnessTestHandler{tests: tests}
}

// SubmitPre godoc
// @Summary Submit a pre test
// @Tags Tests
// @Accept json
// @Produce json
// @Param payload body service.SubmitTestRequest true "Measurements"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/me/tests/pre [post]
func (h *FitnessTestHandler) SubmitPre(c *gin.Context) {
	h.submit(c, models.TestTypePre)
}

// SubmitPost godoc
// @Summary Submit a post test
// @Tags Tests
// @Accept json
// @Produce json
// @Param payload body service.SubmitTestRequest true "Measurements"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/me/tests/post [post]
func (h *FitnessTestHandler) SubmitPost(c *gin.Context) {
	h.submit(c, models.TestTypePost)
}

func (h *FitnessTestHandler) submit(c *gin.Context, testType models.TestType) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid test payload"))
		return
	}

	test, err := h.tests.Submit(c.Request.Context(), claims.UserID, testType, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, test)
}

// RegistrationPreTest godoc
// @Summary Submit or skip the registration pre test
// @Description Available once, right after registration. Send {"skip": true} to decline.
// @Tags Tests
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/register/pre-test [post]
func (h *FitnessTestHandler) RegistrationPreTest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var raw struct {
		Skip bool `json:"skip"`
		service.SubmitTestRequest
	}
	decoder := json.NewDecoder(c.Request.Body)
	if err := decoder.Decode(&raw); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid test payload"))
		return
	}

	var req *service.SubmitTestRequest
	if !raw.Skip {
		req = &raw.SubmitTestRequest
	}

	test, err := h.tests.SubmitRegistrationPreTest(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if test == nil {
		response.NoContent(c)
		return
	}

	response.Created(c, test)
}

// Update godoc
// @Summary Edit an existing post test
// @Tags Tests
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param payload body service.SubmitTestRequest true "Measurements"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/me/tests/{id} [put]
func (h *FitnessTestHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid test payload"))
		return
	}

	staff := claims.Staff || claims.Superuser
	test, err := h.tests.Update(c.Request.Context(), claims.UserID, staff, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, test, nil)
}

// Remark godoc
// @Summary Attach teacher feedback to a test record
// @Tags Tests
// @Accept json
// @Produce json
// @Param payload body service.RemarkRequest true "Remark payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tests/remark [post]
func (h *FitnessTestHandler) Remark(c *gin.Context) {
	var req service.RemarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid remark payload"))
		return
	}

	remark, err := h.tests.AddRemark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"remark": remark}, nil)
}

// parseTestFilter reads the shared type/from/to query parameters.
func parseTestFilter(c *gin.Context) (models.FitnessTestFilter, error) {
	var filter models.FitnessTestFilter

	if raw := c.Query("type"); raw != "" {
		testType := models.TestType(raw)
		if !testType.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "type must be pre or post")
		}
		filter.TestType = &testType
	}
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
		}
		filter.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
		}
		filter.To = &parsed
	}
	return filter, nil
}
