package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/geomag-nowcast-service/internal/adapter/http"
	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
	"github.com/couchcryptid/geomag-nowcast-service/internal/inference"
	"github.com/couchcryptid/geomag-nowcast-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModelVersion = "unet-baseline-v1"

var fixedNow = time.Date(2024, time.May, 10, 18, 30, 0, 0, time.UTC)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(readyErr error) (*httpadapter.Server, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	svc := inference.NewService(testModelVersion, clockwork.NewFakeClockAt(fixedNow))
	return httpadapter.NewServer(":0", svc, &mockReadiness{err: readyErr}, metrics, slog.Default()), metrics
}

func do(srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthReturnsModelVersion(t *testing.T) {
	srv, _ := newTestServer(nil)
	rec := do(srv, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok": true, "modelVersion": "unet-baseline-v1"}`, rec.Body.String())
}

func TestInferReturnsForecast(t *testing.T) {
	srv, metrics := newTestServer(nil)
	body := `{"horizonMinutes": 30, "sequence": [
		{"timestamp": "2024-05-10T18:25:00Z", "indices": {"kp": 2}},
		{"timestamp": "2024-05-10T18:30:00Z", "solarWind": {"speed": 650, "density": 12}, "magneticField": {"z": -15}, "indices": {"kp": 6}}
	]}`

	rec := do(srv, http.MethodPost, "/infer", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var fc domain.Forecast
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, testModelVersion, fc.ModelVersion)
	assert.True(t, fc.GeneratedAt.Equal(fixedNow))
	assert.Equal(t, 30, fc.HorizonMinutes)
	require.Len(t, fc.Predictions, 6)

	// driver = 15*0.45 + 300*0.004 + 12*0.05 = 8.55, from the last point only.
	for i, p := range fc.Predictions {
		assert.True(t, p.Timestamp.Equal(fixedNow.Add(time.Duration(5*(i+1))*time.Minute)))
		assert.InDelta(t, 150.6, p.GeomagneticPerturbation, 1e-9)
		assert.InDelta(t, 6.0/9*0.7+8.55*0.03, p.AuroraIntensity, 1e-9)
		assert.InDelta(t, 0.9-float64(i)*0.02, p.Confidence, 1e-9)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InferenceRequests.WithLabelValues(observability.OutcomeSuccess)))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.ForecastSteps))
}

func TestInferDefaultsAndEmptyBody(t *testing.T) {
	srv, _ := newTestServer(nil)

	rec := do(srv, http.MethodPost, "/infer", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var fc domain.Forecast
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, 60, fc.HorizonMinutes)
	assert.Len(t, fc.Predictions, 12)
}

func TestInferHorizonClamping(t *testing.T) {
	tests := []struct {
		horizon int
		steps   int
	}{
		{0, 1},
		{4, 1},
		{-30, 1},
		{120, 24},
		{600, 24},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.horizon), func(t *testing.T) {
			srv, _ := newTestServer(nil)
			rec := do(srv, http.MethodPost, "/infer", fmt.Sprintf(`{"horizonMinutes": %d}`, tt.horizon))
			require.Equal(t, http.StatusOK, rec.Code)

			var fc domain.Forecast
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
			assert.Len(t, fc.Predictions, tt.steps)
		})
	}
}

func TestInferRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not JSON", `{"horizonMinutes": `},
		{"empty", ``},
		{"wrong horizon type", `{"horizonMinutes": "sixty"}`},
		{"wrong sequence type", `{"sequence": "none"}`},
		{"forecast overflows", `{"horizonMinutes": 10, "sequence": [{"indices": {"kp": 1e308}}]}`},
		{"driver overflows", `{"sequence": [{"solarWind": {"speed": 1.7e308}, "magneticField": {"z": -1.7e308}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, metrics := newTestServer(nil)
			rec := do(srv, http.MethodPost, "/infer", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InferenceRequests.WithLabelValues(observability.OutcomeBadInput)))
			assert.Zero(t, testutil.ToFloat64(metrics.InferenceRequests.WithLabelValues(observability.OutcomeSuccess)))
		})
	}
}

func TestUnknownRoutesReturn404(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/models"},
		{http.MethodGet, "/infer"},
		{http.MethodPost, "/health"},
		{http.MethodPost, "/predict"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			srv, _ := newTestServer(nil)
			rec := do(srv, tt.method, tt.path, `{}`)

			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, `{"error": "Not found"}`, rec.Body.String())
		})
	}
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(nil)
	rec := do(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(nil)
	rec := do(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _ := newTestServer(fmt.Errorf("registry unreadable"))
	rec := do(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(nil)
	rec := do(srv, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
