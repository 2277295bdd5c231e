package middleware

import (
	"net/http"
	"strings"

	"shipwise-backend/config"
)

// NewCORSMiddleware answers preflights for the merchant dashboard. Origins
// come from ALLOWED_ORIGIN, comma separated; "*" allows any.
func NewCORSMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	anyOrigin := false
	for _, o := range strings.Split(cfg.AllowedOrigin, ",") {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			anyOrigin = true
		default:
			allowed[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			} else if anyOrigin {
				// credentials cannot be combined with a wildcard origin
				h.Set("Access-Control-Allow-Origin", "*")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
