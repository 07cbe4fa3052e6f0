package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message-scheduler/internal/config"
	"message-scheduler/internal/db"
	"message-scheduler/internal/dispatcher"
	"message-scheduler/internal/mailer"
	"message-scheduler/internal/metrics"
	"message-scheduler/internal/model"
	"message-scheduler/internal/repository"
	"message-scheduler/internal/store"
)

type testServer struct {
	router *gin.Engine
	store  *store.MemoryStore
	sent   []string
}

func newTestServer(t *testing.T, withLogs bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{store: store.New()}
	m := mailer.Func(func(ctx context.Context, to, subject, body string) error {
		ts.sent = append(ts.sent, to)
		return nil
	})

	var repo *repository.Repository
	var recorder dispatcher.DeliveryRecorder
	if withLogs {
		conn, err := db.Init(config.DeliveryLogConfig{
			Enabled: true,
			Driver:  config.DriverSQLite,
			DSN:     fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close(conn) })
		repo = repository.New(conn)
		recorder = repo
	}

	d := dispatcher.New(&config.DispatcherConfig{Interval: time.Hour}, ts.store, m, recorder, metrics.NewMetrics(prometheus.NewRegistry()))
	t.Cleanup(func() { d.Stop() })

	ts.router = gin.New()
	NewHandlers(ts.store, d, repo).SetupRoutes(ts.router)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthAndNotFound(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, StatusResponse{Message: "Everything is working fine"}, decode[StatusResponse](t, w))

	w = ts.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, StatusResponse{Message: "Resource not found"}, decode[StatusResponse](t, w))

	w = ts.do(t, http.MethodGet, "/api/logs", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateIgnoresStoreOwnedFields(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodPost, "/api/message", `{
		"id": "mine",
		"email": "a@x.com",
		"message_body": "hi",
		"created_at": "2001-01-01T00:00:00Z",
		"send_at": null,
		"send": true
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	created := decode[model.Message](t, w)
	assert.NotEqual(t, "mine", created.ID)
	assert.False(t, created.Sent)
	require.NotNil(t, created.CreatedAt)
	assert.True(t, created.CreatedAt.After(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "hi", created.BodyText())
	assert.Nil(t, created.SendAt)

	w = ts.do(t, http.MethodGet, "/api/message/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[model.Message](t, w).ID)
}

func TestCreateRequiresEmail(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodPost, "/api/message", `{"message_body": "hi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/message", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ts.store.List())
}

func TestMessageLifecycle(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodPost, "/api/message", map[string]any{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	created := decode[model.Message](t, w)

	w = ts.do(t, http.MethodGet, "/api/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Message](t, w), 1)

	w = ts.do(t, http.MethodPut, "/api/message/"+created.ID, map[string]any{
		"id":           "body-id",
		"email":        "b@x.com",
		"message_body": "updated",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[model.Message](t, w)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "b@x.com", updated.Email)
	assert.Equal(t, "updated", updated.BodyText())

	w = ts.do(t, http.MethodPut, "/api/message/unknown", map[string]any{"email": "b@x.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/message/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[model.Message](t, w).ID)

	w = ts.do(t, http.MethodDelete, "/api/message/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodGet, "/api/message/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, w).Error)
}

func TestRunOnceDispatchesAndLogs(t *testing.T) {
	ts := newTestServer(t, true)

	sendAt := time.Now().Add(-time.Second).UTC().Format(time.RFC3339)
	w := ts.do(t, http.MethodPost, "/api/message", map[string]any{"email": "a@x.com", "send_at": sendAt})
	require.Equal(t, http.StatusOK, w.Code)
	created := decode[model.Message](t, w)

	w = ts.do(t, http.MethodPost, "/api/scheduler/run-once", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"a@x.com"}, ts.sent)

	w = ts.do(t, http.MethodGet, "/api/message/"+created.ID, nil)
	assert.True(t, decode[model.Message](t, w).Sent)

	w = ts.do(t, http.MethodGet, "/api/message/"+created.ID+"/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[[]model.DeliveryLog](t, w)
	require.Len(t, logs, 1)
	assert.Equal(t, model.DeliveryStatusSuccess, logs[0].Status)

	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/logs/%d", logs[0].ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/logs/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodGet, "/api/logs/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/logs?page=1&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Logs       []model.DeliveryLog `json:"logs"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}](t, w)
	assert.Len(t, page.Logs, 1)
	assert.EqualValues(t, 1, page.Pagination.Total)
}

func TestSchedulerEndpoints(t *testing.T) {
	ts := newTestServer(t, true)

	w := ts.do(t, http.MethodGet, "/api/scheduler/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[SchedulerStatusResponse](t, w)
	assert.Equal(t, "stopped", status.Status)
	assert.Equal(t, "1h0m0s", status.Interval)

	w = ts.do(t, http.MethodPost, "/api/scheduler/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodPost, "/api/scheduler/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "running", health.Dispatcher)
	assert.Equal(t, "ok", health.DeliveryLog)
	assert.Equal(t, "0", health.Metrics["stored_messages"])

	w = ts.do(t, http.MethodPost, "/api/scheduler/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/scheduler/status", nil)
	assert.Equal(t, "stopped", decode[SchedulerStatusResponse](t, w).Status)
}
