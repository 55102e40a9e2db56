package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveSecure(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	w := serveSecure(t, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, next handler not reached", w.Code)
	}
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"X-XSS-Protection":       "0",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}

	// The grid page loads thumbnails and opens an EventSource on its own
	// origin; nothing may frame it.
	csp := w.Header().Get("Content-Security-Policy")
	for _, d := range []string{
		"default-src 'self'",
		"img-src 'self' data:",
		"connect-src 'self'",
		"object-src 'none'",
		"frame-ancestors 'none'",
	} {
		if !strings.Contains(csp, d) {
			t.Errorf("CSP missing %q in: %s", d, csp)
		}
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		want      bool
	}{
		{"plain http", "", false},
		{"forwarded https", "https", true},
		{"forwarded http", "http", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:3000/", nil)
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-Proto", tt.forwarded)
			}
			hsts := serveSecure(t, req).Header().Get("Strict-Transport-Security")
			if got := strings.Contains(hsts, "max-age="); got != tt.want {
				t.Errorf("HSTS = %q, want present=%v", hsts, tt.want)
			}
		})
	}
}
