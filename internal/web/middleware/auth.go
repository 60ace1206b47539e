package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tablecfg/internal/config"
	"github.com/JonMunkholm/tablecfg/internal/logging"
)

// APIKeyAuth rejects requests without an accepted key when
// cfg.RequireAPIKey is set. The key is read from X-API-Key or from an
// "Authorization: Bearer" header.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			key := requestAPIKey(r)
			if key == "" {
				logging.FromContext(r.Context()).Warn("auth: missing API key",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				denyJSON(w, http.StatusUnauthorized, "missing API key", "AUTH001")
				return
			}

			if !isValidAPIKey(key, cfg.APIKeys) {
				logging.FromContext(r.Context()).Warn("auth: invalid API key",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				denyJSON(w, http.StatusForbidden, "invalid API key", "AUTH002")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// isValidAPIKey compares against every configured key in constant time.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}

func denyJSON(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
