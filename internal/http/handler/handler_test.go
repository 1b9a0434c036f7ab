package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"securedoc/internal/config"
	judgeMocks "securedoc/internal/judge/mocks"
	"securedoc/internal/model"
	"securedoc/internal/service"
	serviceMocks "securedoc/internal/service/mocks"
	"securedoc/internal/stamp"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	app   *fiber.App
	docs  *serviceMocks.MockDocumentService
	shops *serviceMocks.MockShopService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	env := &testEnv{
		docs:  new(serviceMocks.MockDocumentService),
		shops: new(serviceMocks.MockShopService),
	}
	env.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(env.app, Deps{
		DB:      db,
		Docs:    env.docs,
		Shops:   env.shops,
		Judge:   new(judgeMocks.MockJudge),
		Revoker: nil,
		Security: config.SecurityConfig{
			WarnThreshold: 3,
			WarnRevert:    2 * time.Second,
			TickInterval:  time.Second,
		},
		Metrics: metrics,
		Log:     zap.NewNop(),
	})
	return env
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var res errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dbMock.ExpectPing().WillReturnError(nil)

		app := fiber.New()
		registerHealthRoutes(app, db)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		app := fiber.New()
		registerHealthRoutes(app, db)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})

	t.Run("liveness", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		app := fiber.New()
		registerHealthRoutes(app, db)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func uploadBody(t *testing.T, fields map[string]string, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range filenames {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		part.Write([]byte("file bytes"))
	}
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestUploadEndpoint(t *testing.T) {
	t.Run("link mode returns share link", func(t *testing.T) {
		env := newTestEnv(t)
		env.docs.On("Upload", mock.Anything, mock.MatchedBy(func(files []service.UploadFile) bool {
			return len(files) == 2 && files[0].Filename == "a.png"
		}), mock.MatchedBy(func(in service.UploadInput) bool {
			return in.OwnerID == "owner-1" && in.Mode == service.ModeLink &&
				in.ExpiresIn == 30 && in.WatermarkStyle == model.WatermarkFooter
		})).Return(&service.UploadResult{Link: "http://localhost:8080/view/sec-1"}, nil).Once()

		body, ct := uploadBody(t, map[string]string{
			"ownerId":       "owner-1",
			"mode":          "LINK",
			"expiresIn":     "30",
			"watermarkType": "FOOTER",
		}, "a.png", "b.png")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var result service.UploadResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "http://localhost:8080/view/sec-1", result.Link)
		env.docs.AssertExpectations(t)
	})

	t.Run("no files maps to 400", func(t *testing.T) {
		env := newTestEnv(t)
		env.docs.On("Upload", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, service.ErrNoFiles).Once()

		body, ct := uploadBody(t, map[string]string{"ownerId": "owner-1"})
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "BAD_REQUEST", decodeError(t, resp).Error.Code)
	})

	t.Run("non-numeric expiresIn", func(t *testing.T) {
		env := newTestEnv(t)
		body, ct := uploadBody(t, map[string]string{"expiresIn": "soon"}, "a.png")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_EXPIRES_IN", decodeError(t, resp).Error.Code)
	})

	t.Run("unknown shop maps to 404", func(t *testing.T) {
		env := newTestEnv(t)
		env.docs.On("Upload", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, service.ErrShopUnknown).Once()

		body, ct := uploadBody(t, map[string]string{"mode": "SHOP", "shopId": "NOPE-1"}, "a.png")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "SHOP_NOT_FOUND", decodeError(t, resp).Error.Code)
	})
}

func TestViewEndpoint(t *testing.T) {
	t.Run("returns metadata", func(t *testing.T) {
		env := newTestEnv(t)
		env.docs.On("View", mock.Anything, "sec-1").Return(&model.Document{
			SecureID:   "sec-1",
			SenderName: "Ravi",
		}, nil).Once()

		resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/view/sec-1", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var doc model.Document
		json.NewDecoder(resp.Body).Decode(&doc)
		assert.Equal(t, "Ravi", doc.SenderName)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		env := newTestEnv(t)
		env.docs.On("View", mock.Anything, "sec-x").Return(nil, service.ErrNotFound).Once()

		resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/view/sec-x", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("expired link returns 410", func(t *testing.T) {
		env := newTestEnv(t)
		env.docs.On("View", mock.Anything, "sec-1").Return(nil, service.ErrExpired).Once()

		resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/view/sec-1", nil))
		assert.Equal(t, http.StatusGone, resp.StatusCode)
		assert.Equal(t, "LINK_EXPIRED", decodeError(t, resp).Error.Code)
	})
}

func TestRenderEndpoint(t *testing.T) {
	t.Run("serves png bytes", func(t *testing.T) {
		env := newTestEnv(t)
		png := []byte{0x89, 'P', 'N', 'G'}
		env.docs.On("Render", mock.Anything, "sec-1").Return(png, nil).Once()

		resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/view/sec-1/render", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

		got, _ := io.ReadAll(resp.Body)
		assert.Equal(t, png, got)
	})

	t.Run("render failure returns 500 without fallback bytes", func(t *testing.T) {
		env := newTestEnv(t)
		env.docs.On("Render", mock.Anything, "sec-1").Return(nil, stamp.ErrRender).Once()

		resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/view/sec-1/render", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "RENDER_FAILED", decodeError(t, resp).Error.Code)
	})
}

func TestVerifyEndpoint(t *testing.T) {
	t.Run("records the visit", func(t *testing.T) {
		env := newTestEnv(t)
		env.docs.On("Verify", mock.Anything, "sec-1", "Ravi Cafe", "data:...").Return(nil).Once()

		payload, _ := json.Marshal(map[string]string{
			"secureId": "sec-1",
			"name":     "Ravi Cafe",
			"snapshot": "data:...",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/verify", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		env.docs.AssertExpectations(t)
	})

	t.Run("missing name", func(t *testing.T) {
		env := newTestEnv(t)
		payload, _ := json.Marshal(map[string]string{"secureId": "sec-1"})
		req := httptest.NewRequest(http.MethodPost, "/api/verify", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "NAME_REQUIRED", decodeError(t, resp).Error.Code)
	})
}

func TestMyLogsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.docs.On("OwnerLogs", mock.Anything, "owner-1").Return([]model.Document{
		{SecureID: "sec-1", AccessLogs: []model.AccessLogEntry{
			{AccessedBy: model.SecurityActor, Snapshot: model.BlockedPrefix + "Screenshot attempt"},
		}},
	}, nil).Once()

	resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/my-logs/owner-1", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Files []model.Document `json:"files"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	require.Len(t, body.Files, 1)
	assert.True(t, body.Files[0].AccessLogs[0].Blocked())
}

func TestShopEndpoints(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		env := newTestEnv(t)
		env.shops.On("Create", mock.Anything, "owner-1", "HERO-1", "Hero Prints").
			Return(&model.Shop{ShopID: "HERO-1"}, nil).Once()

		payload, _ := json.Marshal(map[string]string{
			"ownerId":  "owner-1",
			"shopId":   "HERO-1",
			"shopName": "Hero Prints",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/shop/create", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("create duplicate maps to 409", func(t *testing.T) {
		env := newTestEnv(t)
		env.shops.On("Create", mock.Anything, "owner-1", "HERO-1", "").
			Return(nil, service.ErrShopTaken).Once()

		payload, _ := json.Marshal(map[string]string{"ownerId": "owner-1", "shopId": "HERO-1"})
		req := httptest.NewRequest(http.MethodPost, "/api/shop/create", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := env.app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "SHOP_TAKEN", decodeError(t, resp).Error.Code)
	})

	t.Run("me returns null when no shop", func(t *testing.T) {
		env := newTestEnv(t)
		env.shops.On("Mine", mock.Anything, "owner-1").Return(nil, nil).Once()

		resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/shop/me/owner-1", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Shop *model.Shop `json:"shop"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Nil(t, body.Shop)
	})

	t.Run("inbox", func(t *testing.T) {
		env := newTestEnv(t)
		env.shops.On("Inbox", mock.Anything, "HERO-1").Return([]model.Document{
			{SecureID: "sec-1", ReceiverShopID: "HERO-1"},
		}, nil).Once()

		resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/shop/files/HERO-1", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Files []model.Document `json:"files"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		require.Len(t, body.Files, 1)
	})
}

func TestSourceEndpoint(t *testing.T) {
	t.Run("owner gets url", func(t *testing.T) {
		env := newTestEnv(t)
		env.docs.On("SourceURL", mock.Anything, "sec-1", "owner-1").
			Return("https://minio/presigned", nil).Once()

		resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/source/sec-1?ownerId=owner-1", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "https://minio/presigned", body["url"])
	})

	t.Run("non-owner gets 403", func(t *testing.T) {
		env := newTestEnv(t)
		env.docs.On("SourceURL", mock.Anything, "sec-1", "intruder").
			Return("", service.ErrNotOwner).Once()

		resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/source/sec-1?ownerId=intruder", nil))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", decodeError(t, resp).Error.Code)
	})
}

func TestSessionEndpointRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/session/sec-1", nil))
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestRouting(t *testing.T) {
	env := newTestEnv(t)

	t.Run("not found route", func(t *testing.T) {
		resp, _ := env.app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, _ := env.app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})
}
