package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-absence-alerts/internal/dto"
	"github.com/noah-isme/sma-absence-alerts/internal/models"
	"github.com/noah-isme/sma-absence-alerts/internal/repository"
	appErrors "github.com/noah-isme/sma-absence-alerts/pkg/errors"
	"github.com/noah-isme/sma-absence-alerts/pkg/jobs"
	"github.com/noah-isme/sma-absence-alerts/pkg/tabular"
)

// ExportJobType labels absence alert export jobs on the queue.
const ExportJobType = "absence_alert_export"

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

type exportFiles interface {
	ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

// ExportJobServiceConfig governs recovery and cleanup.
type ExportJobServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportJobService manages the export job lifecycle.
type ExportJobService struct {
	repo    exportJobStore
	queue   jobDispatcher
	files   exportFiles
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ExportJobServiceConfig
}

// NewExportJobService constructs the export job service.
func NewExportJobService(repo exportJobStore, queue jobDispatcher, files exportFiles, metrics *MetricsService, logger *zap.Logger, cfg ExportJobServiceConfig) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportJobService{repo: repo, queue: queue, files: files, metrics: metrics, logger: logger, cfg: cfg}
}

// CreateJob validates the request, persists a job and enqueues it.
func (s *ExportJobService) CreateJob(ctx context.Context, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error) {
	if err := validateExportRequest(req); err != nil {
		return nil, err
	}
	job := &models.ExportJob{
		Params: models.ExportJobParams{
			ClassID:  req.ClassID,
			DateFrom: req.From,
			DateTo:   req.To,
			Format:   req.Format,
		},
		Status:    models.ExportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType}); err != nil {
		s.markFailed(ctx, job.ID, "failed to enqueue job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus returns job progress. Teachers may only read their own jobs.
func (s *ExportJobService) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*dto.ExportStatusResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == models.RoleTeacher && job.CreatedBy != actorID {
		return nil, appErrors.ErrForbidden
	}
	resp := &dto.ExportStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.files.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs re-enqueues jobs left queued or processing by a previous process.
func (s *ExportJobService) RecoverPendingJobs(ctx context.Context) int {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued export jobs", zap.Error(err))
		return 0
	}
	recovered := 0
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Info("recovered pending export jobs", zap.Int("count", recovered))
	}
	return recovered
}

// StartCleanup purges expired export files every CleanupInterval until ctx ends.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

// MarkExhausted records a job as FAILED once the queue gives up retrying it.
func (s *ExportJobService) MarkExhausted(ctx context.Context, job jobs.Job, cause error) {
	s.markFailed(ctx, job.ID, cause.Error())
	s.metrics.RecordExportJob(models.ExportStatusFailed)
}

func (s *ExportJobService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	const batch = 100
	finished, err := s.repo.ListFinishedBefore(ctx, cutoff, batch)
	if err != nil {
		s.logger.Warn("cleanup list failed", zap.Error(err))
		return
	}
	for _, job := range finished {
		if job.ResultURL == nil {
			continue
		}
		token := extractToken(*job.ResultURL)
		if token == "" {
			continue
		}
		_, relPath, _, err := s.files.ParseToken(token, true)
		if err != nil {
			continue
		}
		if err := s.files.Delete(relPath); err != nil {
			s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	removed, err := s.files.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("files", len(removed)))
	}
}

func (s *ExportJobService) load(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

func (s *ExportJobService) markFailed(ctx context.Context, id, msg string) {
	failed := models.ExportStatusFailed
	progress := 100
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateExportJobParams{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("failed to mark job failed", zap.String("job_id", id), zap.Error(err))
	}
}

func validateExportRequest(req dto.ExportRequest) error {
	if !req.Format.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "format must be one of csv, pdf, xlsx")
	}
	var from, to time.Time
	var err error
	if req.From != "" {
		if from, err = tabular.ParseDate(req.From); err != nil {
			return appErrors.Clone(appErrors.ErrInvalidDate, "from is not a date")
		}
	}
	if req.To != "" {
		if to, err = tabular.ParseDate(req.To); err != nil {
			return appErrors.Clone(appErrors.ErrInvalidDate, "to is not a date")
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	return nil
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ExportWorker bridges queue jobs to ExportService.
type ExportWorker struct {
	repo     exportJobStore
	exporter exportGenerator
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, exporter exportGenerator, metrics *MetricsService, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportWorker{repo: repo, exporter: exporter, metrics: metrics, logger: logger}
}

// Handle processes a queue job. A returned error asks the queue to retry;
// the job stays QUEUED with the last error until retries run out.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if record.Status == models.ExportStatusFinished || record.Status == models.ExportStatusFailed {
		return nil
	}
	processing := models.ExportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &processing, Progress: &progress}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		queued := models.ExportStatusQueued
		reset := 0
		msg := err.Error()
		if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &queued,
			Progress:     &reset,
			ErrorMessage: &msg,
		}); updateErr != nil {
			w.logger.Warn("failed to mark job queued", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return err
	}

	finished := models.ExportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	noError := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &noError,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.RecordExportJob(finished)
	return nil
}
