package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-absence-alerts/internal/dto"
	"github.com/noah-isme/sma-absence-alerts/internal/models"
	"github.com/noah-isme/sma-absence-alerts/pkg/export"
	"github.com/noah-isme/sma-absence-alerts/pkg/storage"
)

type alertSource interface {
	FromStore(ctx context.Context, query dto.AlertQuery) (*models.AlertResult, bool, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type tableRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
	Rows         int
}

// ExportService renders alert results to files and signs download links.
type ExportService struct {
	alerts  alertSource
	storage fileStorage
	csv     tableRenderer
	xlsx    tableRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService with the stock renderers.
func NewExportService(alerts alertSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		alerts:  alerts,
		storage: files,
		csv:     export.NewCSVExporter(),
		xlsx:    export.NewXLSXExporter(),
		pdf:     export.NewPDFExporter(),
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate evaluates the job's store query, renders it and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	result, _, err := s.alerts.FromStore(ctx, dto.AlertQuery{
		ClassID: job.Params.ClassID,
		From:    job.Params.DateFrom,
		To:      job.Params.DateTo,
	})
	if err != nil {
		return nil, err
	}
	dataset := export.NotificationDataset(result.Rows)

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, exportTitle(job.Params))
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("absence alert export written",
		zap.String("job_id", job.ID),
		zap.String("path", relPath),
		zap.Int("rows", len(result.Rows)))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
		Rows:         len(result.Rows),
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	class := sanitizeFilename(job.Params.ClassID)
	return fmt.Sprintf("absence_alerts_%s_%s_%s.%s", class, timestamp, shortID(job.ID), job.Params.Format)
}

func exportTitle(params models.ExportJobParams) string {
	title := "Absence Alerts"
	if params.ClassID != "" {
		title += " - " + params.ClassID
	}
	if params.DateFrom != "" || params.DateTo != "" {
		title += fmt.Sprintf(" (%s to %s)", orDash(params.DateFrom), orDash(params.DateTo))
	}
	return title
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 60 {
		return result[:60]
	}
	return result
}
