package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-absence-alerts/internal/dto"
	"github.com/noah-isme/sma-absence-alerts/internal/models"
	"github.com/noah-isme/sma-absence-alerts/internal/service"
	appErrors "github.com/noah-isme/sma-absence-alerts/pkg/errors"
	"github.com/noah-isme/sma-absence-alerts/pkg/response"
)

type exportJobManager interface {
	CreateJob(ctx context.Context, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*dto.ExportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler exposes asynchronous alert export endpoints.
type ExportHandler struct {
	exports exportJobManager
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportJobManager) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Create godoc
// @Summary Queue an absence alert export
// @Tags AbsenceAlerts
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export parameters"
// @Success 202 {object} response.Envelope
// @Router /absence-alerts/exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	resp, err := h.exports.CreateJob(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, resp)
}

// Status godoc
// @Summary Export job status
// @Tags AbsenceAlerts
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /absence-alerts/exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp, err := h.exports.GetStatus(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Download godoc
// @Summary Download a finished export via signed token
// @Tags AbsenceAlerts
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.exports.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	var size int64 = -1
	if info, err := download.File.Stat(); err == nil {
		size = info.Size()
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, size, contentType(download.Format), download.File, nil)
}

func contentType(format models.ExportFormat) string {
	switch format {
	case models.ExportFormatCSV:
		return "text/csv"
	case models.ExportFormatPDF:
		return "application/pdf"
	case models.ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
