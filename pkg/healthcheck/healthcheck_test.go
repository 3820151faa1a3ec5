package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// mockChecker returns a fixed status and counts calls
type mockChecker struct {
	mu      sync.Mutex
	status  Status
	message string
	calls   int
}

func newMockChecker(status Status) *mockChecker {
	return &mockChecker{status: status}
}

func (m *mockChecker) set(status Status, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	m.message = message
}

func (m *mockChecker) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockChecker) Check(ctx context.Context) Check {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return Check{Status: m.status, Message: m.message, LastChecked: time.Now()}
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHealthCheck_NoCheckers(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Empty(t, response.Checks)
}

func TestHealthCheck_StatusAggregation(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("1.0.0", zap.NewNop())
			for i, s := range tt.statuses {
				hc.Register(string(rune('a'+i)), newMockChecker(s))
			}

			response := hc.Check(context.Background())

			assert.Equal(t, tt.want, response.Status)
			require.Len(t, response.Checks, len(tt.statuses))
			assert.Equal(t, "a", response.Checks[0].Name, "checks are sorted by name")
		})
	}
}

func TestHealthCheck_Caching(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	checker := newMockChecker(StatusHealthy)
	hc.Register("db", checker)

	hc.Check(context.Background())
	hc.Check(context.Background())
	assert.Equal(t, 1, checker.callCount())

	hc.SetCacheTTL(0)
	hc.Check(context.Background())
	assert.Equal(t, 2, checker.callCount())
}

func TestHealthCheck_Handlers(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.SetCacheTTL(0)
	checker := newMockChecker(StatusHealthy)
	hc.Register("db", checker)

	router := gin.New()
	router.GET("/health", hc.Handler())
	router.GET("/ready", hc.ReadinessHandler())
	router.GET("/live", hc.LivenessHandler())

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, get("/health").Code)
	assert.Equal(t, http.StatusOK, get("/ready").Code)

	checker.set(StatusDegraded, "slow")
	assert.Equal(t, http.StatusOK, get("/health").Code, "degraded is still serving")
	assert.Equal(t, http.StatusServiceUnavailable, get("/ready").Code)

	checker.set(StatusUnhealthy, "down")
	w := get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])

	assert.Equal(t, http.StatusOK, get("/live").Code)
}

func TestDatabaseChecker(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	db, err := gdb.DB()
	require.NoError(t, err)
	db.SetMaxOpenConns(4)

	check := NewDatabaseChecker(db).Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)
	assert.NotNil(t, check.Metadata)

	require.NoError(t, db.Close())
	check = NewDatabaseChecker(db).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.Contains(t, check.Message, "closed")
}

func TestPingChecker(t *testing.T) {
	ok := NewPingChecker("cache", func(context.Context) error { return nil }).Check(context.Background())
	assert.Equal(t, StatusHealthy, ok.Status)

	bad := NewPingChecker("cache", func(context.Context) error { return errors.New("closed") }).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, bad.Status)
	assert.Equal(t, "closed", bad.Message)
}

func TestWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHealthMetrics(reg, "planner")
	checker := newMockChecker(StatusDegraded)

	WithMetrics("db", metrics, checker).Check(context.Background())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.checksTotal.WithLabelValues("db", "degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.healthStatus.WithLabelValues("db")))
	assert.Same(t, checker, WithMetrics("db", nil, checker))
}

func TestCheck_MarshalJSON(t *testing.T) {
	check := Check{Name: "db", Status: StatusHealthy, Duration: 1500 * time.Millisecond}

	raw, err := json.Marshal(check)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 1500.0, decoded["duration_ms"])
	assert.Equal(t, "db", decoded["name"])
}
