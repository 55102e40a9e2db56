package middleware

import "net/http"

// CrossOrigin rejects state-changing browser requests that come from another
// origin, so a web page cannot trigger shortcuts or open files through the
// local API. Requests without browser fetch metadata (curl, the CLI client)
// pass.
func CrossOrigin(next http.Handler) http.Handler {
	p := http.NewCrossOriginProtection()
	p.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"cross-origin request rejected"}` + "\n")) //nolint:errcheck
	}))
	return p.Handler(next)
}
