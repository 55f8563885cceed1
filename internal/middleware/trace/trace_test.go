package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	applog "relief/internal/log"
)

type recordingObserver struct {
	mu     sync.Mutex
	routes []string
	status []int
}

func (o *recordingObserver) ObserveRequest(_, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routes = append(o.routes, route)
	o.status = append(o.status, status)
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf})
	obs := &recordingObserver{}
	m := NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" }, obs)

	var seen string
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/proposals/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proposals/3", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header %q, want %q", rec.Header().Get(RequestIDHeader), seen)
	}
	if !strings.Contains(buf.String(), "request_id="+seen) {
		t.Errorf("handler log missing request id: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "status_code=418") {
		t.Errorf("completion log missing status: %s", buf.String())
	}
	if len(obs.routes) != 1 || obs.routes[0] != "/api/proposals/{id}" || obs.status[0] != http.StatusTeapot {
		t.Errorf("unexpected observation %v %v", obs.routes, obs.status)
	}
}

func TestMiddlewareReusesValidIncomingID(t *testing.T) {
	m := NewMiddleware(nil, nil, nil)
	in := uuid.NewString()

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, in)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != in {
		t.Errorf("got %q, want incoming %q", seen, in)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "<script>" {
		t.Error("malformed incoming id must be replaced")
	}
}

func TestResponseWriterKeepsFirstStatus(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	_, _ = rw.Write([]byte("ok"))
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", rw.statusCode)
	}
}
