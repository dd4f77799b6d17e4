package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-absence-alerts/internal/dto"
	"github.com/noah-isme/sma-absence-alerts/internal/models"
	"github.com/noah-isme/sma-absence-alerts/internal/repository"
	"github.com/noah-isme/sma-absence-alerts/internal/streak"
	appErrors "github.com/noah-isme/sma-absence-alerts/pkg/errors"
	"github.com/noah-isme/sma-absence-alerts/pkg/tabular"
)

// Alert sources used as metric labels.
const (
	AlertSourceInline = "inline"
	AlertSourceUpload = "upload"
	AlertSourceStore  = "store"
)

const alertCachePrefix = "absence-alerts:"

type attendanceReader interface {
	ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type rosterReader interface {
	ListRoster(ctx context.Context, filter repository.RosterFilter) ([]models.Student, error)
}

// AlertServiceConfig tunes the alert service.
type AlertServiceConfig struct {
	MinAbsentDays int
	// Lookback is the window used when a store query names no start date.
	Lookback time.Duration
	CacheTTL time.Duration
}

// AlertService evaluates absence alerts from inline tables, uploads or the store.
type AlertService struct {
	attendance attendanceReader
	roster     rosterReader
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        AlertServiceConfig
	now        func() time.Time
}

// NewAlertService constructs the alert service. Store readers may be nil when
// only inline and upload evaluation is needed.
func NewAlertService(attendance attendanceReader, roster rosterReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AlertServiceConfig) *AlertService {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(jsonFieldName)
	validate.RegisterCustomTypeFunc(dto.PresenceValue, dto.PresentString{})
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinAbsentDays <= 0 {
		cfg.MinAbsentDays = streak.DefaultMinAbsentDays
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 30 * 24 * time.Hour
	}
	return &AlertService{
		attendance: attendance,
		roster:     roster,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Evaluate runs the alert pipeline over tables supplied in the request body.
func (s *AlertService) Evaluate(ctx context.Context, req dto.EvaluateAlertsRequest) (*models.AlertResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, schemaError(err)
	}

	attendance := make([]models.AttendanceRecord, 0, len(req.Attendance))
	for i, row := range req.Attendance {
		date, err := tabular.ParseDate(strings.TrimSpace(row.AttendanceDate))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, appErrors.ErrInvalidDate.Status,
				fmt.Sprintf("attendance[%d]: attendance_date is not a date: %q", i, row.AttendanceDate))
		}
		attendance = append(attendance, models.AttendanceRecord{
			StudentID: row.StudentID,
			Date:      date,
			Status:    models.AttendanceStatus(row.Status.Value),
		})
	}
	roster := make([]models.Student, 0, len(req.Students))
	for _, st := range req.Students {
		roster = append(roster, models.Student{StudentID: st.StudentID, StudentName: st.StudentName.Value, ParentEmail: st.ParentEmail.Value})
	}

	minDays := s.cfg.MinAbsentDays
	if req.MinAbsentDays != nil {
		minDays = *req.MinAbsentDays
	}
	result := s.run(AlertSourceInline, minDays, attendance, roster)
	return &result, nil
}

// EvaluateTables runs the pipeline over parsed CSV or XLSX tables.
func (s *AlertService) EvaluateTables(ctx context.Context, attendanceTable, rosterTable tabular.Table) (*models.AlertResult, error) {
	attendance, err := tabular.ParseAttendance(attendanceTable)
	if err != nil {
		return nil, err
	}
	roster, err := tabular.ParseRoster(rosterTable)
	if err != nil {
		return nil, err
	}
	result := s.run(AlertSourceUpload, s.cfg.MinAbsentDays, attendance, roster)
	return &result, nil
}

// FromStore evaluates alerts for attendance held in Postgres. The boolean
// reports whether the result came from cache.
func (s *AlertService) FromStore(ctx context.Context, query dto.AlertQuery) (*models.AlertResult, bool, error) {
	if s.attendance == nil || s.roster == nil {
		return nil, false, appErrors.Clone(appErrors.ErrDisabled, "attendance store not configured")
	}
	filter, err := s.storeFilter(query)
	if err != nil {
		return nil, false, err
	}

	key := s.cacheKey(filter)
	var cached models.AlertResult
	if s.cache.Get(ctx, key, &cached) {
		if cached.Rows == nil {
			cached.Rows = []models.NotificationRow{}
		}
		return &cached, true, nil
	}

	var (
		attendance []models.AttendanceRecord
		roster     []models.Student
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		records, err := s.attendance.ListRecords(gctx, filter)
		s.metrics.ObserveDBQuery("attendance_records", time.Since(start))
		attendance = records
		return err
	})
	g.Go(func() error {
		start := time.Now()
		rosterFilter := repository.RosterFilter{ClassID: filter.ClassID}
		if filter.StudentID != "" {
			rosterFilter.StudentIDs = []string{filter.StudentID}
		}
		students, err := s.roster.ListRoster(gctx, rosterFilter)
		s.metrics.ObserveDBQuery("roster", time.Since(start))
		roster = students
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	result := s.run(AlertSourceStore, s.cfg.MinAbsentDays, attendance, roster)
	s.cache.Set(ctx, key, result, s.cfg.CacheTTL)
	return &result, false, nil
}

// InvalidateCache drops every cached store evaluation.
func (s *AlertService) InvalidateCache(ctx context.Context) error {
	return s.cache.Invalidate(ctx, alertCachePrefix+"*")
}

func (s *AlertService) run(source string, minDays int, attendance []models.AttendanceRecord, roster []models.Student) models.AlertResult {
	start := time.Now()
	reporter := streak.NewReporter(streak.Options{MinAbsentDays: minDays})
	result := reporter.Run(attendance, roster)
	duration := time.Since(start)
	s.metrics.RecordAlertRun(source, result.Summary, duration)

	fields := []zap.Field{
		zap.String("source", source),
		zap.Int("min_absent_days", reporter.MinAbsentDays()),
		zap.Int("attendance_rows", result.Summary.AttendanceRows),
		zap.Int("streaks", result.Summary.StreaksDetected),
		zap.Int("notifications", result.Summary.Notifications),
		zap.Int("invalid_emails", result.Summary.InvalidEmails),
		zap.Int("unmatched", result.Summary.UnmatchedStudents),
		zap.Duration("duration", duration),
	}
	if result.Summary.DuplicateRoster > 0 {
		s.logger.Warn("duplicate roster entries ignored", zap.Int("duplicates", result.Summary.DuplicateRoster))
	}
	if unknown := unknownStatuses(attendance); len(unknown) > 0 {
		s.logger.Warn("unrecognised attendance statuses treated as not absent", zap.Strings("statuses", unknown))
	}
	s.logger.Info("absence alerts evaluated", fields...)
	return result
}

// unknownStatuses lists distinct statuses outside the recognised set, in first-seen order.
func unknownStatuses(attendance []models.AttendanceRecord) []string {
	seen := make(map[models.AttendanceStatus]struct{})
	var unknown []string
	for _, rec := range attendance {
		if rec.Status.Known() {
			continue
		}
		if _, ok := seen[rec.Status]; ok {
			continue
		}
		seen[rec.Status] = struct{}{}
		unknown = append(unknown, string(rec.Status))
	}
	return unknown
}

func (s *AlertService) storeFilter(query dto.AlertQuery) (models.AttendanceFilter, error) {
	to := models.DateOnly(s.now().UTC())
	if query.To != "" {
		parsed, err := tabular.ParseDate(query.To)
		if err != nil {
			return models.AttendanceFilter{}, appErrors.Clone(appErrors.ErrInvalidDate, fmt.Sprintf("to is not a date: %q", query.To))
		}
		to = parsed
	}
	from := models.DateOnly(to.Add(-s.cfg.Lookback))
	if query.From != "" {
		parsed, err := tabular.ParseDate(query.From)
		if err != nil {
			return models.AttendanceFilter{}, appErrors.Clone(appErrors.ErrInvalidDate, fmt.Sprintf("from is not a date: %q", query.From))
		}
		from = parsed
	}
	if from.After(to) {
		return models.AttendanceFilter{}, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	return models.AttendanceFilter{
		ClassID:   query.ClassID,
		StudentID: query.StudentID,
		DateFrom:  &from,
		DateTo:    &to,
	}, nil
}

func (s *AlertService) cacheKey(filter models.AttendanceFilter) string {
	return fmt.Sprintf("%sclass=%s:student=%s:%s:%s:min=%d", alertCachePrefix,
		filter.ClassID, filter.StudentID,
		filter.DateFrom.Format(models.DateLayout), filter.DateTo.Format(models.DateLayout),
		s.cfg.MinAbsentDays)
}

func schemaError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alert payload")
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() != "required" {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("%s failed %s", fieldPath(fe.Namespace()), fe.Tag()))
		}
		missing = append(missing, fieldPath(fe.Namespace()))
	}
	return appErrors.Wrap(err, appErrors.ErrSchema.Code, appErrors.ErrSchema.Status,
		"required field missing: "+strings.Join(missing, ", "))
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
