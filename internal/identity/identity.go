// Package identity provides anonymous per-device identity primitives.
//
// The session cookie issued here is the stable per-browser-context
// identifier events are stamped with: it survives page loads, so every
// design session from the same device shares one session id.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	SessionCookieName = "designtrace_session_id"
	TabHeaderName     = "X-Designtrace-Tab-ID"
	DefaultTabIDValue = "default"
	sessionCookieAge  = 180 * 24 * time.Hour
)

type contextKey int

const (
	sessionIDKey contextKey = iota
	tabIDKey
)

var (
	sessionIDPattern = regexp.MustCompile(`^dt_[a-f0-9]{32}$`)
	tabIDPattern     = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// SessionIDFromContext extracts the stable device session ID from the
// request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// TabIDFromContext extracts the per-tab identifier from the request context.
func TabIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tabIDKey).(string); ok {
		return v
	}
	return DefaultTabIDValue
}

func generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return "dt_" + hex.EncodeToString(buf), nil
}

func isValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

func sanitizeTabID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !tabIDPattern.MatchString(id) {
		return DefaultTabIDValue
	}
	return id
}

func getOrCreateSessionID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(SessionCookieName); err == nil && isValidSessionID(c.Value) {
		setSessionCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateSessionID()
	if err != nil {
		return "", err
	}
	setSessionCookie(w, id, isDev)
	return id, nil
}

func setSessionCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionCookieAge.Seconds()),
		Expires:  time.Now().Add(sessionCookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func tabIDFromRequest(r *http.Request) string {
	tid := r.Header.Get(TabHeaderName)
	if tid == "" {
		tid = r.URL.Query().Get("tab_id")
	}
	return sanitizeTabID(tid)
}

// Middleware injects the stable device session ID and the per-tab ID into
// the request context. Events arriving without a session id fall back to
// the one established here.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := getOrCreateSessionID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish session identity"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			ctx = context.WithValue(ctx, tabIDKey, tabIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
