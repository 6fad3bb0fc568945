package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/termbase/mcp-server/internal/config"
)

// Middleware wraps an http.Handler with request authentication.
type Middleware func(http.Handler) http.Handler

// excludedPaths bypass authentication so health checks stay reachable
var excludedPaths = map[string]bool{
	"/health": true,
}

// credentialCheck reports whether a request carries valid credentials.
type credentialCheck func(r *http.Request) bool

// NewMiddleware creates an authentication middleware based on settings
func NewMiddleware(settings config.AuthSettings) (Middleware, error) {
	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		return guard(checkBasic(settings.Basic), `Basic realm="Restricted"`), nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		return guard(checkAPIKey(settings.APIKeys), ""), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

// guard rejects requests failing the credential check, except on excluded
// paths. A non-empty challenge is sent as WWW-Authenticate on rejection.
func guard(check credentialCheck, challenge string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excludedPaths[r.URL.Path] || check(r) {
				next.ServeHTTP(w, r)
				return
			}
			if challenge != "" {
				w.Header().Set("WWW-Authenticate", challenge)
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}
}

// checkBasic compares both credential parts unconditionally to keep the
// comparison constant time.
func checkBasic(settings config.BasicAuthSettings) credentialCheck {
	return func(r *http.Request) bool {
		user, pass, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(settings.Username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(settings.Password)) == 1
		return ok && userMatch && passMatch
	}
}

func checkAPIKey(apiKeys []string) credentialCheck {
	return func(r *http.Request) bool {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			return false
		}
		for _, validKey := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
				return true
			}
		}
		return false
	}
}
