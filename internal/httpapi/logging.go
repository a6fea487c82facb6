package httpapi

import (
	"bufio"
	"errors"
	"expvar"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	requestsTotal   = expvar.NewInt("requests_total")
	requestsErrors  = expvar.NewInt("requests_errors_total")
	requestsByArea  = expvar.NewMap("requests_by_area")
	sessionsExpired = expvar.NewInt("sessions_expired_total")
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack keeps the SockJS websocket transport working behind the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// requestArea names the part of the portal a path belongs to.
func requestArea(path string) string {
	switch {
	case strings.HasPrefix(path, "/portal/auth/"):
		return "auth"
	case strings.HasPrefix(path, "/portal/admin/"):
		return "admin"
	case strings.HasPrefix(path, "/portal/voter/"):
		return "voter"
	case strings.HasPrefix(path, "/portal/confirmations/"):
		return "confirmations"
	case strings.HasPrefix(path, "/portal/realtime"):
		return "realtime"
	case strings.HasPrefix(path, "/portal/"):
		return "refdata"
	case path == "/healthz" || path == "/metrics":
		return "ops"
	default:
		return "web"
	}
}

// LoggingMiddleware gives every request an X-Request-ID (reusing the
// caller's), counts it per area and logs one line. Successful static and
// realtime transport requests are counted but not logged.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := requestIDFromRequest(r)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set("X-Request-ID", requestID)
		}
		w.Header().Set("X-Request-ID", requestID)

		writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r)
		duration := time.Since(start)

		area := requestArea(r.URL.Path)
		requestsTotal.Add(1)
		requestsByArea.Add(area, 1)
		if writer.status >= http.StatusBadRequest {
			requestsErrors.Add(1)
		}
		if writer.status < http.StatusBadRequest && (area == "web" || area == "realtime" || area == "ops") {
			return
		}
		log.Printf("request method=%s path=%s area=%s status=%d duration_ms=%d request_id=%s", r.Method, r.URL.Path, area, writer.status, duration.Milliseconds(), requestID)
	})
}
