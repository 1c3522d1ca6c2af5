package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

// MiddlewareConfig configures request authentication
type MiddlewareConfig struct {
	// Verifier checks tokens; nil disables token checks and attaches Anonymous
	Verifier       Verifier
	AllowedIPs     []string
	TrustedProxies []string
	CookieName     string
	Logger         *log.Logger
}

// Middleware enforces the IP allowlist and token verification
type Middleware struct {
	verifier   Verifier
	allowed    *IPList
	trusted    *IPList
	cookieName string
	logger     *log.Logger
}

func NewMiddleware(cfg MiddlewareConfig) (*Middleware, error) {
	allowed, err := NewIPList(cfg.AllowedIPs)
	if err != nil {
		return nil, err
	}
	trusted, err := NewIPList(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "token"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	return &Middleware{
		verifier:   cfg.Verifier,
		allowed:    allowed,
		trusted:    trusted,
		cookieName: cfg.CookieName,
		logger:     cfg.Logger,
	}, nil
}

// Handler wraps next; rejected requests get a JSON error body
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := ClientIP(r, m.trusted)
		ctx := contextWithClientIP(r.Context(), clientIP)

		if !m.allowed.Empty() && !m.allowed.Contains(clientIP) {
			m.logger.Printf("Access denied for IP: %s (Path: %s, Method: %s)", clientIP, r.URL.Path, r.Method)
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}

		if m.verifier == nil {
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, Anonymous)))
			return
		}

		principal, err := m.verifier.Verify(ctx, m.extractToken(r))
		if err != nil {
			status, message := http.StatusUnauthorized, "Unauthorized"
			if errors.Is(err, ErrExpiredToken) {
				message = "Token expired"
			}
			m.logger.Printf("Authentication failed for %s %s from %s: %v", r.Method, r.URL.Path, clientIP, err)
			writeError(w, status, message)
			return
		}

		if !principal.Role.Valid() {
			m.logger.Printf("Rejected principal %s with unknown role %q", principal.Subject, principal.Role)
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, *principal)))
	})
}

// ClientIP resolves the caller address with the configured trusted proxies
func (m *Middleware) ClientIP(r *http.Request) string {
	return ClientIP(r, m.trusted)
}

// extractToken prefers an Authorization bearer token over the session cookie
func (m *Middleware) extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
