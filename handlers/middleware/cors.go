package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// NewCorsMiddleware answers preflight requests and sets the allow headers for
// origins matching one of the patterns. A pattern may contain * wildcards.
func NewCorsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				for _, allowed := range allowedOrigins {
					if matchOrigin(allowed, origin) {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
						w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
						w.Header().Add("Vary", "Origin")
						break
					}
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchOrigin(pattern, origin string) bool {
	if pattern == "*" {
		return true
	}

	// Escape special regex chars except *
	pattern = regexp.QuoteMeta(pattern)
	pattern = strings.ReplaceAll(pattern, "\\*", ".*")
	pattern = "^" + pattern + "$"

	matched, err := regexp.MatchString(pattern, origin)
	if err != nil {
		return false
	}
	return matched
}
