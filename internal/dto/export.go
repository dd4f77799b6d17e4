package dto

import "github.com/noah-isme/sma-absence-alerts/internal/models"

// ExportRequest captures POST /absence-alerts/exports payload.
type ExportRequest struct {
	ClassID string              `json:"classId"`
	From    string              `json:"from"`
	To      string              `json:"to"`
	Format  models.ExportFormat `json:"format"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
