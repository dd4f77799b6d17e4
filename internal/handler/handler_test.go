package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-absence-alerts/internal/dto"
	"github.com/noah-isme/sma-absence-alerts/internal/middleware"
	"github.com/noah-isme/sma-absence-alerts/internal/models"
	"github.com/noah-isme/sma-absence-alerts/internal/service"
	appErrors "github.com/noah-isme/sma-absence-alerts/pkg/errors"
	"github.com/noah-isme/sma-absence-alerts/pkg/tabular"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// alertServiceFake runs the real service so responses carry real rows.
func alertServiceFake() *service.AlertService {
	return service.NewAlertService(nil, nil, nil, nil, nil, nil, service.AlertServiceConfig{})
}

func TestAlertHandlerEvaluate(t *testing.T) {
	h := NewAlertHandler(alertServiceFake(), 0)
	payload, _ := json.Marshal(dto.EvaluateAlertsRequest{
		Attendance: []dto.AttendanceRowInput{
			{StudentID: "S1", AttendanceDate: "2024-01-01", Status: dto.Present("Absent")},
			{StudentID: "S1", AttendanceDate: "2024-01-02", Status: dto.Present("Absent")},
			{StudentID: "S1", AttendanceDate: "2024-01-03", Status: dto.Present("Absent")},
			{StudentID: "S1", AttendanceDate: "2024-01-04", Status: dto.Present("Absent")},
		},
		Students: []dto.StudentInput{{StudentID: "S1", StudentName: dto.Present("Alice"), ParentEmail: dto.Present("alice@example.com")}},
	})
	c, w := newGinContext(http.MethodPost, "/absence-alerts/evaluate", payload)
	h.Evaluate(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	var rows []models.NotificationRow
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].TotalAbsentDays)
	assert.Contains(t, string(env.Data), `"absence_start_date":"2024-01-01"`)
	assert.Equal(t, false, env.Meta["cached"])
	require.Contains(t, env.Meta, "summary")
}

func TestAlertHandlerEvaluateErrors(t *testing.T) {
	h := NewAlertHandler(alertServiceFake(), 0)

	c, w := newGinContext(http.MethodPost, "/absence-alerts/evaluate", []byte("{"))
	h.Evaluate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	payload := []byte(`{"attendance":[{"student_id":"S1","attendance_date":"someday","status":"Absent"}]}`)
	c, w = newGinContext(http.MethodPost, "/absence-alerts/evaluate", payload)
	h.Evaluate(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_DATE", decode(t, w).Error.Code)

	payload = []byte(`{"attendance":[{"attendance_date":"2024-01-01","status":"Absent"}]}`)
	c, w = newGinContext(http.MethodPost, "/absence-alerts/evaluate", payload)
	h.Evaluate(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "SCHEMA_ERROR", decode(t, w).Error.Code)
}

func multipartBody(t *testing.T, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, file := range files {
		part, err := writer.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestAlertHandlerUpload(t *testing.T) {
	h := NewAlertHandler(alertServiceFake(), 1<<20)
	body, contentType := multipartBody(t, map[string][2]string{
		"attendance": {"attendance.csv", "student_id,attendance_date,status\nS1,2024-01-01,Absent\nS1,2024-01-02,Absent\nS1,2024-01-03,Absent\nS1,2024-01-04,Absent\nS2,2024-01-01,Absent\n"},
		"students":   {"students.csv", "student_id,student_name,parent_email\nS1,Alice,alice@example.com\nS2,Bob,bob@example.com\n"},
	})
	c, w := newGinContext(http.MethodPost, "/absence-alerts/upload", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)
	h.Upload(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rows []models.NotificationRow
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "S1", rows[0].StudentID)
}

func TestAlertHandlerUploadErrors(t *testing.T) {
	h := NewAlertHandler(alertServiceFake(), 1<<20)

	body, contentType := multipartBody(t, map[string][2]string{
		"attendance": {"attendance.csv", "student_id,attendance_date,status\n"},
	})
	c, w := newGinContext(http.MethodPost, "/absence-alerts/upload", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)
	h.Upload(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, contentType = multipartBody(t, map[string][2]string{
		"attendance": {"attendance.csv", "student_id,status\nS1,Absent\n"},
		"students":   {"students.csv", "student_id,student_name,parent_email\n"},
	})
	c, w = newGinContext(http.MethodPost, "/absence-alerts/upload", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)
	h.Upload(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "SCHEMA_ERROR", decode(t, w).Error.Code)
}

type storeAlertsStub struct {
	query         dto.AlertQuery
	result        *models.AlertResult
	cached        bool
	err           error
	invalidated   int
	invalidateErr error
}

func (s *storeAlertsStub) InvalidateCache(ctx context.Context) error {
	s.invalidated++
	return s.invalidateErr
}

func (s *storeAlertsStub) Evaluate(ctx context.Context, req dto.EvaluateAlertsRequest) (*models.AlertResult, error) {
	return nil, nil
}

func (s *storeAlertsStub) EvaluateTables(ctx context.Context, attendance, roster tabular.Table) (*models.AlertResult, error) {
	return nil, nil
}

func (s *storeAlertsStub) FromStore(ctx context.Context, query dto.AlertQuery) (*models.AlertResult, bool, error) {
	s.query = query
	return s.result, s.cached, s.err
}

func TestAlertHandlerList(t *testing.T) {
	stub := &storeAlertsStub{result: &models.AlertResult{Rows: []models.NotificationRow{}}, cached: true}
	h := NewAlertHandler(stub, 0)

	c, w := newGinContext(http.MethodGet, "/absence-alerts?classId=X-A&from=2024-01-01&to=2024-01-31", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.AlertQuery{ClassID: "X-A", From: "2024-01-01", To: "2024-01-31"}, stub.query)
	env := decode(t, w)
	assert.Equal(t, "[]", string(env.Data))
	assert.Equal(t, true, env.Meta["cached"])

	stub.err = appErrors.ErrDisabled
	c, w = newGinContext(http.MethodGet, "/absence-alerts", nil)
	h.List(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAlertHandlerInvalidateCache(t *testing.T) {
	stub := &storeAlertsStub{}
	h := NewAlertHandler(stub, 0)

	c, w := newGinContext(http.MethodDelete, "/absence-alerts/cache", nil)
	h.InvalidateCache(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, stub.invalidated)

	stub.invalidateErr = assert.AnError
	c, w = newGinContext(http.MethodDelete, "/absence-alerts/cache", nil)
	h.InvalidateCache(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type exportServiceMock struct {
	createResp  *dto.ExportJobResponse
	createErr   error
	statusResp  *dto.ExportStatusResponse
	statusErr   error
	download    *service.ExportDownload
	downloadErr error
	actorID     string
}

func (m *exportServiceMock) CreateJob(ctx context.Context, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error) {
	m.actorID = actorID
	return m.createResp, m.createErr
}

func (m *exportServiceMock) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*dto.ExportStatusResponse, error) {
	return m.statusResp, m.statusErr
}

func (m *exportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.downloadErr
}

func TestExportHandlerCreate(t *testing.T) {
	mockSvc := &exportServiceMock{createResp: &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued}}
	h := NewExportHandler(mockSvc)

	payload, _ := json.Marshal(dto.ExportRequest{ClassID: "X-A", Format: models.ExportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/absence-alerts/exports", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	h.Create(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "admin", mockSvc.actorID)

	c, w = newGinContext(http.MethodPost, "/absence-alerts/exports", payload)
	h.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExportHandlerStatus(t *testing.T) {
	mockSvc := &exportServiceMock{statusResp: &dto.ExportStatusResponse{ID: "job-1", Status: models.ExportStatusFinished, Progress: 100}}
	h := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/absence-alerts/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	h.Status(c)
	require.Equal(t, http.StatusOK, w.Code)

	mockSvc.statusErr = appErrors.ErrForbidden
	c, w = newGinContext(http.MethodGet, "/absence-alerts/exports/job-1", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t", Role: models.RoleTeacher})
	h.Status(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.csv")
	require.NoError(t, os.WriteFile(path, []byte("student_id\nS1\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	mockSvc := &exportServiceMock{download: &service.ExportDownload{
		File:      file,
		Filename:  "alerts.csv",
		Format:    models.ExportFormatCSV,
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	h := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/export/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}
	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "alerts.csv")
	assert.Equal(t, "student_id\nS1\n", w.Body.String())

	mockSvc.downloadErr = appErrors.ErrForbidden
	c, w = newGinContext(http.MethodGet, "/export/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, map[string]ReadinessCheck{
		"redis": func(ctx context.Context) error { return assert.AnError },
	})
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
