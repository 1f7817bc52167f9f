package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/audience/internal/config"
	"github.com/JonMunkholm/audience/internal/core"
	"github.com/JonMunkholm/audience/internal/logging"
)

var (
	errMissingAPIKey = errors.New("missing api key")
	errInvalidAPIKey = errors.New("invalid api key")
)

// APIKeyAuth rejects API requests without a configured key when
// cfg.RequireAPIKey is set. The key is read from X-API-Key, or from an
// "Authorization: Bearer" header. With auth required and no keys configured
// every request is rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		keys = append(keys, []byte(k))
	}

	return func(next http.Handler) http.Handler {
		if !cfg.RequireAPIKey {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestKey(r)
			switch {
			case key == "":
				reject(w, r, http.StatusUnauthorized, errMissingAPIKey)
			case !matchesAny([]byte(key), keys):
				reject(w, r, http.StatusForbidden, errInvalidAPIKey)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func requestKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// matchesAny compares key against every configured key in constant time.
func matchesAny(key []byte, keys [][]byte) bool {
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(key, k)
	}
	return found == 1
}

// reject writes the same error body the API handlers use.
func reject(w http.ResponseWriter, r *http.Request, status int, err error) {
	logging.FromContext(r.Context()).Warn("api key rejected", "method", r.Method, "path", r.URL.Path, "error", err)

	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   err.Error(),
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
