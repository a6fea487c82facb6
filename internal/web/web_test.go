package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesShellForPageRoutes(t *testing.T) {
	for _, path := range []string{"/", "/admin/login", "/voter"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		Handler().ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "/assets/app.js") {
			t.Fatalf("%s: expected the shell page", path)
		}
	}
}

func TestHandlerServesAssets(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/assets/app.css", nil)
	resp := httptest.NewRecorder()
	Handler().ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "text/css; charset=utf-8" {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestHandlerRejectsUnknownAPIPaths(t *testing.T) {
	for _, path := range []string{"/portal/unknown", "/assets/missing.js"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		Handler().ServeHTTP(resp, req)
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected status 404, got %d", path, resp.Code)
		}
	}
}

func TestHandlerRejectsPost(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp := httptest.NewRecorder()
	Handler().ServeHTTP(resp, req)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", resp.Code)
	}
}
