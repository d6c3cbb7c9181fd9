package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	err error
}

func (s stubStore) HealthCheck(ctx context.Context) error {
	return s.err
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestHealthChecker_Check(t *testing.T) {
	t.Run("no dependencies", func(t *testing.T) {
		status := NewHealthChecker(nil, nil, "dev").Check(context.Background())
		assert.Equal(t, StatusHealthy, status.Status)
		assert.Equal(t, "dev", status.Version)
		assert.Empty(t, status.Dependencies)
	})

	t.Run("healthy store and redis", func(t *testing.T) {
		_, client := newRedis(t)
		status := NewHealthChecker(stubStore{}, client, "dev").Check(context.Background())
		assert.Equal(t, StatusHealthy, status.Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["store"].Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["redis"].Status)
	})

	t.Run("store down is unhealthy", func(t *testing.T) {
		status := NewHealthChecker(stubStore{err: errors.New("no db")}, nil, "dev").Check(context.Background())
		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Equal(t, "no db", status.Dependencies["store"].Message)
	})

	t.Run("redis down is degraded", func(t *testing.T) {
		mr, client := newRedis(t)
		mr.Close()

		status := NewHealthChecker(stubStore{}, client, "dev").Check(context.Background())
		assert.Equal(t, StatusDegraded, status.Status)
		assert.Equal(t, StatusUnhealthy, status.Dependencies["redis"].Status)
	})

	t.Run("store and redis down is unhealthy", func(t *testing.T) {
		mr, client := newRedis(t)
		mr.Close()

		status := NewHealthChecker(stubStore{err: errors.New("x")}, client, "dev").Check(context.Background())
		assert.Equal(t, StatusUnhealthy, status.Status)
	})
}

func TestRegisterHealthRoutes(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		store      StoreChecker
		wantStatus int
	}{
		{"liveness", "/health/live", stubStore{err: errors.New("down")}, http.StatusOK},
		{"readiness healthy", "/health/ready", stubStore{}, http.StatusOK},
		{"readiness unhealthy", "/health/ready", stubStore{err: errors.New("down")}, http.StatusServiceUnavailable},
		{"health alias", "/health", stubStore{}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			RegisterHealthRoutes(mux, NewHealthChecker(tt.store, nil, "dev"))

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body, "status")
		})
	}
}
