package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"stockflow/internal/pkg/config"
)

func TestNewRouter_HealthAndMetrics(t *testing.T) {
	r := NewRouter(noop.NewTracerProvider().Tracer("test"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRun_ShutdownRunsHooks(t *testing.T) {
	cfg := config.Default()
	cfg.App.Port = 0

	var hookCalled atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, AppInfo{
			ServiceName: "bootstrap-test",
			RegisterHandlers: func(appCtx AppCtx) error {
				assert.Nil(t, appCtx.Nacos)
				appCtx.OnShutdown(func(context.Context) error {
					hookCalled.Store(true)
					return nil
				})
				return nil
			},
		}, cfg)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, hookCalled.Load())
}

func TestRun_RegisterHandlersError(t *testing.T) {
	cfg := config.Default()
	cfg.App.Port = 0

	err := Run(context.Background(), AppInfo{
		ServiceName: "bootstrap-test",
		RegisterHandlers: func(AppCtx) error {
			return errors.New("store unavailable")
		},
	}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
}
