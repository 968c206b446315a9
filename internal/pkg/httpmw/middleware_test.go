package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
)

func newRouter(h http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, Tracing(noop.NewTracerProvider().Tracer("test")), Observe, Recover)
	r.HandleFunc("/things/{id:[0-9]+}", h)
	return r
}

func TestRequestID_GeneratedWhenMissing(t *testing.T) {
	var seen string
	r := newRouter(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/1", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_Propagated(t *testing.T) {
	r := newRouter(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/things/1", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRecover_ReturnsInternalServerError(t *testing.T) {
	r := newRouter(func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/2", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouteTemplate(t *testing.T) {
	var tpl string
	r := newRouter(func(w http.ResponseWriter, r *http.Request) { tpl = routeTemplate(r) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/42", nil))
	assert.Equal(t, "/things/{id:[0-9]+}", tpl)
}
