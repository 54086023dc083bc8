package httpserver

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestIDMiddleware tags every request with an id, reusing a well formed
// incoming X-Request-ID, and stores a logger carrying it in the context.
func RequestIDMiddleware(log logr.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		l := log.WithValues("request_id", id)
		next.ServeHTTP(w, r.WithContext(logr.NewContext(r.Context(), l)))
	})
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logr.FromContextOrDiscard(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start).Round(time.Millisecond).String(),
		)
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logr.FromContextOrDiscard(r.Context()).Error(fmt.Errorf("panic: %v", err), "handler panicked", "stack", string(debug.Stack()))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// HTTPSRedirectMiddleware redirects HTTP requests to HTTPS. /healthz is
// served as is so plain-HTTP health checks keep working.
func HTTPSRedirectMiddleware(httpsPort string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		host := r.Host
		// Strip existing port if present
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if httpsPort != "" && httpsPort != "443" && httpsPort != ":443" {
			host = net.JoinHostPort(host, strings.TrimPrefix(httpsPort, ":"))
		}

		target := "https://" + host + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}

// CSRFMiddleware checks Origin/Referer on state-changing requests so the
// form can only be posted from pages served by this host.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			// Fall back to Referer
			ref := r.Header.Get("Referer")
			if ref != "" {
				if u, err := url.Parse(ref); err == nil {
					origin = u.Scheme + "://" + u.Host
				}
			}
		}

		// Scripted clients such as curl send neither header.
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		u, err := url.Parse(origin)
		if err != nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if !strings.EqualFold(stripDefaultPort(u.Host), stripDefaultPort(r.Host)) {
			logr.FromContextOrDiscard(r.Context()).Info("CSRF blocked", "origin", origin, "host", r.Host)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func stripDefaultPort(hostport string) string {
	if h, port, err := net.SplitHostPort(hostport); err == nil && (port == "80" || port == "443") {
		return h
	}
	return hostport
}
