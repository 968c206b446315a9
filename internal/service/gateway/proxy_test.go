package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"stockflow/internal/pkg/httpclient"
	"stockflow/internal/pkg/httpmw"
)

func upstream(t *testing.T, name, prefix string, h http.HandlerFunc) Upstream {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	up, err := ParseUpstream(name, prefix, srv.URL+"/")
	require.NoError(t, err)
	return up
}

func newGatewayRouter(ups ...Upstream) *mux.Router {
	tracer := noop.NewTracerProvider().Tracer("test")
	r := mux.NewRouter()
	r.Use(httpmw.RequestID)
	New(httpclient.NewClient(tracer), ups...).RegisterRoutes(r)
	return r
}

func healthy(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/healthz" {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func TestParseUpstream(t *testing.T) {
	up, err := ParseUpstream("order-service", "/orders", "http://order:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://order:8080", up.Target.String())

	for _, bad := range []string{"order:8080", "ftp://order", "", "://"} {
		_, err := ParseUpstream("order-service", "/orders", bad)
		assert.Error(t, err, bad)
	}
}

func TestProxy_RoutesByPrefix(t *testing.T) {
	orders := upstream(t, "order-service", "/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/3", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(httpmw.RequestIDHeader))
		assert.NotEmpty(t, r.Header.Get("X-Forwarded-For"))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Order not found"}`))
	})
	inventory := upstream(t, "inventory-service", "/inventory", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inventory/1/check", r.URL.Path)
		assert.Equal(t, "quantity=2", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"available":true}`))
	})
	r := newGatewayRouter(orders, inventory)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/3", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Order not found"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inventory/1/check?quantity=2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":true}`, rec.Body.String())
}

func TestProxy_UpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	up, err := ParseUpstream("order-service", "/orders", srv.URL)
	require.NoError(t, err)
	srv.Close()

	rec := httptest.NewRecorder()
	newGatewayRouter(up).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"Upstream unavailable"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	orders := upstream(t, "order-service", "/orders", healthy)
	inventory := upstream(t, "inventory-service", "/inventory", healthy)

	rec := httptest.NewRecorder()
	newGatewayRouter(orders, inventory).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	sick := upstream(t, "inventory-service", "/inventory", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	rec = httptest.NewRecorder()
	newGatewayRouter(orders, sick).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body readinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"inventory-service"}, body.NotReady)
}
