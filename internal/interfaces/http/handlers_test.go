package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-service/internal/application/service"
	"github.com/garyjia/voucher-service/internal/importer"
	"github.com/garyjia/voucher-service/internal/infrastructure/persistence/repository"
	"github.com/garyjia/voucher-service/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/voucher-service/internal/infrastructure/storage"
	"github.com/garyjia/voucher-service/pkg/database"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

type testEnv struct {
	server     *Server
	uploadsDir string
}

func newTestEnv(t *testing.T, cfg ServerConfig) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	root := t.TempDir()

	db, err := database.New(database.Config{Path: filepath.Join(root, "test.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(context.Background(), database.EmbeddedMigrations()))

	sqlDB := sqlite.NewDB(db.DB, logger)
	repo := repository.NewVoucherRepository(sqlDB, logger)
	uploadsDir := filepath.Join(root, "uploads")
	uploads, err := storage.NewLocalUploadStorage(uploadsDir, logger)
	require.NoError(t, err)

	codes := service.NewCodeGenerator()
	handlers := NewHandlers(
		service.NewVoucherQueryService(repo, nopLogger{}),
		service.NewVoucherService(repo, sqlDB, codes, nopLogger{}),
		service.NewImportService(repo, uploads, importer.NewParser(time.UTC, logger), codes, nopLogger{}),
		uploads,
		repo,
		nopLogger{},
	)

	return &testEnv{server: NewServer(cfg, handlers, nopLogger{}), uploadsDir: uploadsDir}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Router().ServeHTTP(w, req)

	var resp Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func decodeData(t *testing.T, resp Response, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestHandlers_VoucherLifecycle(t *testing.T) {
	env := newTestEnv(t, DefaultServerConfig())

	w, resp := env.do(t, http.MethodPost, "/api/vouchers", map[string]interface{}{
		"voucher_code": "LIFE0001",
		"alias":        "VIP-01",
		"price":        25,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Status)
	var created struct {
		ID          int64  `json:"id"`
		VoucherCode string `json:"voucher_code"`
		Status      string `json:"status"`
	}
	decodeData(t, resp, &created)
	assert.Equal(t, "LIFE0001", created.VoucherCode)
	assert.Equal(t, "Not used", created.Status)

	w, resp = env.do(t, http.MethodPost, "/api/vouchers", map[string]interface{}{"voucher_code": "LIFE0001"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.CodeDuplicateCode, resp.Message)

	w, resp = env.do(t, http.MethodPost, "/api/vouchers", map[string]interface{}{"price": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.CodeInvalidPrice, resp.Message)

	idPath := fmt.Sprintf("/api/vouchers/%d", created.ID)

	w, _ = env.do(t, http.MethodGet, idPath, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, http.MethodPut, idPath, map[string]interface{}{"first_name": "Ada"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		FirstName string `json:"first_name"`
		Alias     string `json:"alias"`
	}
	decodeData(t, resp, &updated)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "VIP-01", updated.Alias)

	for i := 1; i <= 2; i++ {
		w, resp = env.do(t, http.MethodPost, idPath+"/print", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var printed struct {
			IsPrinted  bool  `json:"is_printed"`
			PrintCount int64 `json:"print_count"`
		}
		decodeData(t, resp, &printed)
		assert.True(t, printed.IsPrinted)
		assert.Equal(t, int64(i), printed.PrintCount)
	}

	w, _ = env.do(t, http.MethodDelete, idPath, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, http.MethodGet, idPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, service.CodeVoucherNotFound, resp.Message)

	w, _ = env.do(t, http.MethodPost, idPath+"/print", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodDelete, idPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/vouchers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_ListVouchers_Pagination(t *testing.T) {
	env := newTestEnv(t, DefaultServerConfig())

	for i := 0; i < 23; i++ {
		body := map[string]interface{}{"voucher_code": fmt.Sprintf("PAGE%04d", i)}
		if i == 7 {
			body["alias"] = "VIP-01"
		}
		w, _ := env.do(t, http.MethodPost, "/api/vouchers", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	tests := []struct {
		name      string
		query     string
		wantItems int
		wantTotal int64
		wantPages int
		wantPage  int
		wantLimit int
	}{
		{"first page", "?page=1&limit=10", 10, 23, 3, 1, 10},
		{"last page", "?page=3&limit=10", 3, 23, 3, 3, 10},
		{"beyond last page", "?page=9&limit=10", 0, 23, 3, 9, 10},
		{"defaults", "", 10, 23, 3, 1, 10},
		{"garbage falls back", "?page=x&limit=-4", 10, 23, 3, 1, 10},
		{"case-insensitive search", "?search=vip-01", 1, 1, 1, 1, 10},
		{"no match", "?status=Expired", 0, 0, 0, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, http.MethodGet, "/api/vouchers"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var items []map[string]interface{}
			decodeData(t, resp, &items)
			assert.Len(t, items, tt.wantItems)

			require.NotNil(t, resp.Pagination)
			assert.Equal(t, tt.wantTotal, resp.Pagination.Total)
			assert.Equal(t, tt.wantPages, resp.Pagination.TotalPages)
			assert.Equal(t, tt.wantPage, resp.Pagination.Page)
			assert.Equal(t, tt.wantLimit, resp.Pagination.Limit)
		})
	}
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, field, filename, content string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	body, contentType := multipartUpload(t, field, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/vouchers/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	e.server.Router().ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func assertUploadsEmpty(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "uploads must not be left behind")
}

func TestHandlers_ImportVouchers(t *testing.T) {
	env := newTestEnv(t, DefaultServerConfig())

	t.Run("imports a csv", func(t *testing.T) {
		w, resp := env.upload(t, "file", "vouchers.csv", "Voucher code,Status,Disabled\nIMP00001,Used,TRUE\n,,\n")
		require.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, resp.Status)

		var result struct {
			ImportedCount int `json:"importedCount"`
			Vouchers      []struct {
				ID         int64  `json:"id"`
				Code       string `json:"voucher_code"`
				IsPrinted  bool   `json:"is_printed"`
				PrintCount int64  `json:"print_count"`
				Disabled   bool   `json:"disabled"`
			} `json:"vouchers"`
		}
		decodeData(t, resp, &result)
		assert.Equal(t, 1, result.ImportedCount)
		require.Len(t, result.Vouchers, 1)
		assert.NotZero(t, result.Vouchers[0].ID)
		assert.Equal(t, "IMP00001", result.Vouchers[0].Code)
		assert.True(t, result.Vouchers[0].Disabled)
		assert.False(t, result.Vouchers[0].IsPrinted)
		assert.Zero(t, result.Vouchers[0].PrintCount)
		assertUploadsEmpty(t, env.uploadsDir)
	})

	t.Run("unsupported format", func(t *testing.T) {
		w, resp := env.upload(t, "file", "notes.txt", "hello")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, service.CodeUnsupportedFileFormat, resp.Message)
		assertUploadsEmpty(t, env.uploadsDir)
	})

	t.Run("no valid data", func(t *testing.T) {
		w, resp := env.upload(t, "file", "empty.csv", "Voucher code\n")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, service.CodeNoValidDataFound, resp.Message)
		assertUploadsEmpty(t, env.uploadsDir)
	})

	t.Run("unreadable file", func(t *testing.T) {
		w, resp := env.upload(t, "file", "broken.csv", "Voucher code,Alias\nABC,\"unterminated\n")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, service.CodeImportFailed, resp.Message)
		assert.False(t, resp.Status)
		assertUploadsEmpty(t, env.uploadsDir)
	})

	t.Run("no file", func(t *testing.T) {
		w, resp := env.upload(t, "", "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, service.CodeNoFileUploaded, resp.Message)
	})

	t.Run("duplicate code aborts the batch", func(t *testing.T) {
		w, resp := env.upload(t, "file", "dup.csv", "Voucher code\nNEW00009\nIMP00001\n")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, service.CodeDuplicateCode, resp.Message)

		w, resp = env.do(t, http.MethodGet, "/api/vouchers?search=NEW00009", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(0), resp.Pagination.Total)
		assertUploadsEmpty(t, env.uploadsDir)
	})
}

func TestHandlers_ImportVouchers_TooLarge(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.MaxUploadSize = 1024
	env := newTestEnv(t, cfg)

	content := "Voucher code\n" + string(bytes.Repeat([]byte("ABCDEFGH\n"), 1024))
	w, resp := env.upload(t, "file", "big.csv", content)

	assert.False(t, resp.Status)
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, w.Code)
	assertUploadsEmpty(t, env.uploadsDir)
}

func TestHandlers_Auth(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.JWTSecret = "test-secret"
	env := newTestEnv(t, cfg)

	sign := func(secret string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "operator-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return signed
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign("other-secret"), http.StatusUnauthorized},
		{"malformed header", "Token " + sign("test-secret"), http.StatusUnauthorized},
		{"valid token", "Bearer " + sign("test-secret"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/vouchers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			env.server.Router().ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	env.server.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "health stays public")
}

func TestHandlers_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, DefaultServerConfig())

	w, resp := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	down := NewServer(DefaultServerConfig(), NewHandlers(nil, nil, nil, nil, failingPinger{}, nopLogger{}), nopLogger{})
	rec = httptest.NewRecorder()
	down.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, DefaultServerConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/vouchers", nil)
	req.Header.Set("Origin", "http://localhost:8000")
	w := httptest.NewRecorder()
	env.server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:8000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	env.server.Router().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
