package web

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/usergroups/internal/config"
	"github.com/JonMunkholm/usergroups/internal/core"
	"github.com/JonMunkholm/usergroups/internal/tabular"
)

const (
	uidA = "ABCD1234-AB12-CD34-5678-000123ABC456"
	uidB = "EFGH5678-EF56-GH78-9012-000456DEF789"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 30 * time.Second},
		Storage: config.StorageConfig{
			UploadsDir: filepath.Join(root, "uploads"),
			StorageDir: filepath.Join(root, "storage"),
			WorkDir:    filepath.Join(root, "work"),
			Retention:  time.Hour,
		},
		Upload: config.UploadConfig{
			MaxFileSize: 1 << 20,
			MaxWaitTime: 50 * time.Millisecond,
			Timeout:     time.Minute,
		},
		Identifier: config.IdentifierConfig{
			Column:     "Uid",
			Aliases:    tabular.DefaultAliases,
			Separator:  "-",
			SampleSize: 5,
		},
		Rate: config.RateLimitConfig{Enabled: false, RequestsPerMinute: 100, UploadLimit: 10},
		Security: config.SecurityConfig{
			EnableCSP:          true,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	svc, err := core.NewService(cfg, core.WithClock(func() time.Time {
		return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	}))
	require.NoError(t, err)

	s := NewServer(cfg, svc)
	t.Cleanup(func() { s.Shutdown(t.Context()) })
	return s
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, s *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, uploadField, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload_uid_file", body)
	req.Header.Set("Content-Type", ct)
	return do(s, req)
}

func selectUsers(t *testing.T, s *Server, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/select_users", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return do(s, req)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestPipelineEndToEnd(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := upload(t, s, "clients.csv", "Uid\n"+uidA+"\n"+uidB+"\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var up core.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	assert.Equal(t, 2, up.Total)
	assert.Equal(t, tabular.FormatCSV, up.Format)
	assert.NotEmpty(t, up.FileID)

	rec = selectUsers(t, s, `{"category":"Spring Sale","open_rate":50,"newsletter_content":"Hi","file_id":"`+up.FileID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var preview struct {
		Stats struct {
			TotalUsers int `json:"total_users"`
		} `json:"stats"`
		Filename string `json:"zip_filename"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, 2, preview.Stats.TotalUsers)
	assert.Equal(t, "2025-03-14_09-26-53_Spring_Sale_user_groups.zip", preview.Filename)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/download_user_groups", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=2025-03-14_09-26-53_Spring_Sale_user_groups.zip`, rec.Header().Get("Content-Disposition"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 4)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/archives/"+preview.Filename, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOutOfOrderSteps(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := selectUsers(t, s, `{"category":"Ads","open_rate":10}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SES001", decodeError(t, rec).Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/download_user_groups", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SES001", decodeError(t, rec).Code)
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		content    string
		wantStatus int
		wantCode   string
	}{
		{"invalid identifiers", "ids.csv", "Uid\n12345\n", http.StatusUnprocessableEntity, "VAL002"},
		{"missing column", "ids.csv", "name,email\na,b\n", http.StatusUnprocessableEntity, "VAL001"},
		{"unsupported format", "ids.pdf", "%PDF-1.4\x00\x01\x02", http.StatusUnsupportedMediaType, "FILE002"},
	}

	s := newTestServer(t, testConfig(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, s, tt.filename, tt.content)
			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
			assert.NotEmpty(t, resp.Action)
		})
	}
}

func TestUploadMissingFile(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	body, ct := multipartBody(t, "other_field", "ids.csv", "Uid\n"+uidA)
	req := httptest.NewRequest(http.MethodPost, "/upload_uid_file", body)
	req.Header.Set("Content-Type", ct)
	rec := do(s, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", decodeError(t, rec).Code)

	req = httptest.NewRequest(http.MethodPost, "/upload_uid_file", strings.NewReader("Uid\n"+uidA))
	req.Header.Set("Content-Type", "text/csv")
	rec = do(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.MaxFileSize = 64
	s := newTestServer(t, cfg)

	rec := upload(t, s, "ids.csv", "Uid\n"+strings.Repeat(uidA+"\n", 4))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestSelectValidation(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	require.Equal(t, http.StatusOK, upload(t, s, "ids.csv", "Uid\n"+uidA+"\n").Code)

	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"category":`},
		{"rate above range", `{"category":"Ads","open_rate":101}`},
		{"negative rate", `{"category":"Ads","open_rate":-1}`},
		{"missing category", `{"open_rate":10}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := selectUsers(t, s, tt.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VAL003", decodeError(t, rec).Code)
		})
	}
}

func TestArchiveNotFound(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/archives/2020-01-01_00-00-00_Ads_user_groups.zip", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PKG003", decodeError(t, rec).Code)
}

func TestInspect(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	body, ct := multipartBody(t, uploadField, "ids.csv", "name,user_id\nx,"+uidA+"\n")
	req := httptest.NewRequest(http.MethodPost, "/api/inspect", body)
	req.Header.Set("Content-Type", ct)
	rec := do(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ins tabular.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ins))
	assert.Equal(t, tabular.Resolution("alias:user_id"), ins.ResolvedBy)
	assert.Equal(t, 1, ins.Total)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var sum core.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, "empty", sum.State)
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	require.Equal(t, http.StatusOK, upload(t, s, "<i>ids.csv", "Uid\n"+uidA+"\n").Code)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	page := rec.Body.String()
	assert.Contains(t, page, `name="uid_file"`)
	assert.Contains(t, page, "Digest Product")
	assert.Contains(t, page, "&lt;i&gt;ids.csv: 1 users")
	assert.NotContains(t, page, "<i>ids")
}

func TestHTMXErrorPartial(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/download_user_groups", nil)
	req.Header.Set("HX-Request", "true")
	rec := do(s, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "SES001")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","gate":{"busy":false,"since":"0001-01-01T00:00:00Z"}}`, rec.Body.String())

	upload(t, s, "ids.csv", "Uid\n"+uidA+"\n")

	rec = do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "usergroups_uploads_total")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	s := newTestServer(t, cfg)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodOptions, "/select_users", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := do(s, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = do(s, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUploadRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 2}
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, upload(t, s, "ids.csv", "Uid\n"+uidA+"\n").Code)
	}

	rec := upload(t, s, "ids.csv", "Uid\n"+uidA+"\n")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Other routes draw from the general budget.
	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
