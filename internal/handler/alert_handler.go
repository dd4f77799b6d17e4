package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-absence-alerts/internal/dto"
	"github.com/noah-isme/sma-absence-alerts/internal/models"
	appErrors "github.com/noah-isme/sma-absence-alerts/pkg/errors"
	"github.com/noah-isme/sma-absence-alerts/pkg/response"
	"github.com/noah-isme/sma-absence-alerts/pkg/tabular"
)

type alertEvaluator interface {
	Evaluate(ctx context.Context, req dto.EvaluateAlertsRequest) (*models.AlertResult, error)
	EvaluateTables(ctx context.Context, attendance, roster tabular.Table) (*models.AlertResult, error)
	FromStore(ctx context.Context, query dto.AlertQuery) (*models.AlertResult, bool, error)
	InvalidateCache(ctx context.Context) error
}

// AlertHandler exposes absence alert evaluation endpoints.
type AlertHandler struct {
	alerts         alertEvaluator
	maxUploadBytes int64
}

// NewAlertHandler constructs the handler. maxUploadBytes bounds the whole multipart body.
func NewAlertHandler(alerts alertEvaluator, maxUploadBytes int64) *AlertHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &AlertHandler{alerts: alerts, maxUploadBytes: maxUploadBytes}
}

// Evaluate godoc
// @Summary Evaluate absence alerts from inline tables
// @Description Detects each student's latest absence streak and returns rows for streaks longer than the threshold.
// @Tags AbsenceAlerts
// @Accept json
// @Produce json
// @Param payload body dto.EvaluateAlertsRequest true "Attendance and student tables"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /absence-alerts/evaluate [post]
func (h *AlertHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateAlertsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	result, err := h.alerts.Evaluate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondAlerts(c, result, false)
}

// Upload godoc
// @Summary Evaluate absence alerts from uploaded files
// @Tags AbsenceAlerts
// @Accept multipart/form-data
// @Produce json
// @Param attendance formData file true "Attendance table (csv or xlsx)"
// @Param students formData file true "Student roster (csv or xlsx)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /absence-alerts/upload [post]
func (h *AlertHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	attendance, err := readUploadedTable(c, "attendance")
	if err != nil {
		response.Error(c, err)
		return
	}
	roster, err := readUploadedTable(c, "students")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.alerts.EvaluateTables(c.Request.Context(), attendance, roster)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondAlerts(c, result, false)
}

// List godoc
// @Summary Evaluate absence alerts from stored attendance
// @Tags AbsenceAlerts
// @Produce json
// @Param classId query string false "Class ID"
// @Param studentId query string false "Student ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /absence-alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	var query dto.AlertQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	result, cached, err := h.alerts.FromStore(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondAlerts(c, result, cached)
}

// InvalidateCache godoc
// @Summary Drop cached store evaluations
// @Description Call after correcting attendance so the next store query is recomputed.
// @Tags AbsenceAlerts
// @Success 204
// @Router /absence-alerts/cache [delete]
func (h *AlertHandler) InvalidateCache(c *gin.Context) {
	if err := h.alerts.InvalidateCache(c.Request.Context()); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate alert cache"))
		return
	}
	response.NoContent(c)
}

func respondAlerts(c *gin.Context, result *models.AlertResult, cached bool) {
	response.JSON(c, http.StatusOK, result.Rows, map[string]interface{}{
		"summary": result.Summary,
		"cached":  cached,
	})
}

func readUploadedTable(c *gin.Context, field string) (tabular.Table, error) {
	header, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return tabular.Table{}, appErrors.Clone(appErrors.ErrValidation, "upload exceeds size limit")
		}
		return tabular.Table{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s file is required", field))
	}
	return openTable(field, header)
}

func openTable(field string, header *multipart.FileHeader) (tabular.Table, error) {
	file, err := header.Open()
	if err != nil {
		return tabular.Table{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cannot read "+field+" file")
	}
	defer file.Close() //nolint:errcheck
	table, err := tabular.Read(header.Filename, file)
	if err != nil {
		return tabular.Table{}, err
	}
	table.Name = field
	return table, nil
}
