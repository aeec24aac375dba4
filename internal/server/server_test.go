package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/estimator/internal/estimate"
	"github.com/fyrsmithlabs/estimator/internal/logging"
	"github.com/fyrsmithlabs/estimator/internal/scopecfg"
	"github.com/fyrsmithlabs/estimator/internal/store"
	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// stubProvider replays canned pipeline outputs.
type stubProvider struct {
	rows       []api.ResultRow
	models     api.ModelsResponse
	analyzeErr error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Analyze(ctx context.Context, document string) ([]estimate.Finding, error) {
	if p.analyzeErr != nil {
		return nil, p.analyzeErr
	}
	return []estimate.Finding{{Product: "Portal", Features: "Login"}}, nil
}

func (p *stubProvider) Estimate(ctx context.Context, findings []estimate.Finding, scope estimate.Scope) ([]api.ResultRow, error) {
	return p.rows, nil
}

func (p *stubProvider) Models(ctx context.Context) (api.ModelsResponse, error) {
	return p.models, nil
}

func setupTestServer(t *testing.T) (*Server, *echo.Echo, *stubProvider) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.New(filepath.Join(dir, "estimator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	folder, err := scopecfg.NewFolder(filepath.Join(dir, "scope_config"))
	require.NoError(t, err)

	provider := &stubProvider{
		rows: []api.ResultRow{
			{Product: "Portal", Features: "Login", Size: "Small", Hours: api.Float(8)},
			{Product: "Portal", Features: "Reports", Size: "Medium", Hours: nil},
		},
		models: api.ModelsResponse{Provider: "stub", SelectedModel: "rules"},
	}

	logger := logging.NewTestLogger().Logger
	srv, err := New(st, folder, estimate.NewService(provider, logger), logger, Config{
		ProjectsDir:    filepath.Join(dir, "projects"),
		MaxUploadBytes: 1 << 20,
	})
	require.NoError(t, err)

	e := echo.New()
	srv.Register(e)
	return srv, e, provider
}

// multipartBody builds a multipart form with optional fields and one
// optional file part.
func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doRequest(e *echo.Echo, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func uploadScopeConfig(t *testing.T, e *echo.Echo) {
	t.Helper()
	body, ct := multipartBody(t, nil, "file", "scope.csv", []byte("Size,Dev Hours\nSmall,8\n"))
	rec := doRequest(e, http.MethodPost, "/api/scope-config", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func createProject(t *testing.T, e *echo.Echo, name string) api.Project {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{"project_name": name},
		"file", "requirements.txt", []byte("Product: Portal\n- Login\n"))
	rec := doRequest(e, http.MethodPost, "/api/projects", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p api.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "estimator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	folder, err := scopecfg.NewFolder(filepath.Join(dir, "scope_config"))
	require.NoError(t, err)

	logger := logging.NewTestLogger().Logger
	pipeline := estimate.NewService(&stubProvider{}, logger)

	t.Run("applies config defaults", func(t *testing.T) {
		srv, err := New(st, folder, pipeline, logger, Config{})
		require.NoError(t, err)
		assert.Equal(t, "projects", srv.config.ProjectsDir)
		assert.Equal(t, int64(16*1024*1024), srv.config.MaxUploadBytes)
	})

	t.Run("rejects nil dependencies", func(t *testing.T) {
		_, err := New(nil, folder, pipeline, logger, Config{})
		assert.ErrorContains(t, err, "store")

		_, err = New(st, nil, pipeline, logger, Config{})
		assert.ErrorContains(t, err, "scope config")

		_, err = New(st, folder, nil, logger, Config{})
		assert.ErrorContains(t, err, "pipeline")

		_, err = New(st, folder, pipeline, nil, Config{})
		assert.ErrorContains(t, err, "logger")
	})
}

func TestHandleHealth(t *testing.T) {
	_, e, _ := setupTestServer(t)

	rec := doRequest(e, http.MethodGet, "/api/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleModels(t *testing.T) {
	_, e, _ := setupTestServer(t)

	rec := doRequest(e, http.MethodGet, "/api/models", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp api.ModelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "stub", resp.Provider)
	assert.Equal(t, "rules", resp.SelectedModel)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	_, e, _ := setupTestServer(t)

	rec := doRequest(e, http.MethodGet, "/api/nope", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", errorBody(t, rec))
}

func TestRequestIDHeader(t *testing.T) {
	_, e, _ := setupTestServer(t)

	rec := doRequest(e, http.MethodGet, "/api/health", nil, "")

	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestBodyLimit(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "estimator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	folder, err := scopecfg.NewFolder(filepath.Join(dir, "scope_config"))
	require.NoError(t, err)

	logger := logging.NewTestLogger().Logger
	srv, err := New(st, folder, estimate.NewService(&stubProvider{}, logger), logger, Config{
		ProjectsDir:    filepath.Join(dir, "projects"),
		MaxUploadBytes: 64,
	})
	require.NoError(t, err)

	e := echo.New()
	srv.Register(e)

	body, ct := multipartBody(t, map[string]string{"project_name": "Big"},
		"file", "requirements.txt", bytes.Repeat([]byte("x"), 4096))
	rec := doRequest(e, http.MethodPost, "/api/projects", body, ct)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request Entity Too Large", errorBody(t, rec))
}

func TestMetricsEndpoint(t *testing.T) {
	_, e, _ := setupTestServer(t)

	// Generate at least one request before scraping.
	doRequest(e, http.MethodGet, "/api/health", nil, "")

	rec := doRequest(e, http.MethodGet, "/metrics", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "estimator_http_requests_total"))
}
