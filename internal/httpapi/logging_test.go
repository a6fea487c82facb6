package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func TestLoggingMiddlewareAssignsRequestID(t *testing.T) {
	var seen string
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromRequest(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/portal/admin/voters", nil))
	if seen == "" {
		t.Fatalf("expected a request id on the request")
	}
	if got := resp.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("expected response id %q, got %q", seen, got)
	}

	req := httptest.NewRequest(http.MethodGet, "/portal/admin/voters", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if seen != "req-42" || resp.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("expected caller id to be kept, got %q", seen)
	}
}

func TestLoggingMiddlewareCountsArea(t *testing.T) {
	count := func() int {
		v := requestsByArea.Get("voter")
		if v == nil {
			return 0
		}
		n, _ := strconv.Atoi(v.String())
		return n
	}
	before := count()
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/portal/voter/elections", nil))
	if got := count(); got != before+1 {
		t.Fatalf("expected voter count %d, got %d", before+1, got)
	}
}

func TestRequestArea(t *testing.T) {
	cases := map[string]string{
		"/portal/auth/admin/login":   "auth",
		"/portal/admin/staff":        "admin",
		"/portal/confirmations/abc":  "confirmations",
		"/portal/realtime/websocket": "realtime",
		"/portal/locations/select":   "refdata",
		"/healthz":                   "ops",
		"/admin/staff":               "web",
	}
	for path, want := range cases {
		if got := requestArea(path); got != want {
			t.Fatalf("%s: expected %s, got %s", path, want, got)
		}
	}
}
