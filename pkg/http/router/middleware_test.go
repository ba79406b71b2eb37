package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	http_server "github.com/lintang-b-s/awooter/pkg/http/server"
	"github.com/lintang-b-s/awooter/pkg/http/usecases"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

var noContent = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestEnforceJSONHandler(t *testing.T) {
	testCases := []struct {
		name        string
		method      string
		body        string
		contentType string
		status      int
	}{
		{name: "json body", method: http.MethodPost, body: "{}", contentType: "application/json", status: http.StatusNoContent},
		{name: "json with charset", method: http.MethodPost, body: "{}", contentType: "application/json; charset=utf-8", status: http.StatusNoContent},
		{name: "text body", method: http.MethodPost, body: "{}", contentType: "text/plain", status: http.StatusUnsupportedMediaType},
		{name: "missing content type", method: http.MethodPost, body: "{}", status: http.StatusUnsupportedMediaType},
		{name: "empty body", method: http.MethodPost, status: http.StatusNoContent},
		{name: "get", method: http.MethodGet, status: http.StatusNoContent},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/route", bytes.NewBufferString(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			EnforceJSONHandler(noContent).ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRealIP(t *testing.T) {
	testCases := []struct {
		name    string
		headers map[string]string
		expect  string
	}{
		{name: "remote addr", expect: "192.0.2.1"},
		{name: "x-real-ip", headers: map[string]string{"X-Real-IP": "10.0.0.7"}, expect: "10.0.0.7"},
		{name: "x-forwarded-for", headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, expect: "1.2.3.4"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			var got string
			RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = RealIPFromContext(r.Context())
			})).ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestHeartbeat(t *testing.T) {
	h := Heartbeat("/healthz")(noContent)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ".", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecoverPanic(t *testing.T) {
	api := NewAPI(zap.NewNop(), http_server.Config{})
	rec := httptest.NewRecorder()
	api.recoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
}

func TestLogger(t *testing.T) {
	core, logs := zapobserver.New(zapcore.InfoLevel)
	h := RealIP(Logger(zap.New(core))(noContent))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/route", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/api/route", fields["path"])
	assert.Equal(t, int64(http.StatusNoContent), fields["status"])
	assert.Equal(t, "192.0.2.1", fields["ip"])
}

func TestStatusRecorderHijack(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rec.Hijack()
	assert.Error(t, err)
}

func TestLimit(t *testing.T) {
	h := RealIP(Limit(1)(noContent))
	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, request("10.0.0.2"), "limits are per client")
}

func TestDeadline(t *testing.T) {
	var deadline time.Time
	var set bool
	Deadline(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, set = r.Context().Deadline()
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, set)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

type stubService struct{}

func (stubService) Route(ctx context.Context, job usecases.RouteJob) (*usecases.RouteReport, error) {
	return &usecases.RouteReport{JobID: job.ID}, nil
}

func TestHandler(t *testing.T) {
	config := http_server.Config{Port: 6060, WebsocketPort: 6666, Timeout: time.Minute, RequestsPerSecond: 1,
		MaxBodyBytes: 1 << 16, WebsocketTimeout: time.Second}
	h := NewAPI(zap.NewNop(), config).Handler(config, true, stubService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := `{"job_id": "j", "fabric": {"dim_x": 2, "dim_y": 2, "tracks": 1, "bels_per_tile": 1,
		"hop_pip_delay": 0.3, "local_pip_delay": 0.1}}`
	req := httptest.NewRequest(http.MethodPost, "/api/route", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "j", rec.Header().Get("X-Job-Id"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, "/api/route", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/route", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
