// Package auth verifies caller tokens and guards the HTTP surface.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/ca-srg/mailscope/internal/types"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrForbidden    = errors.New("forbidden")
)

// Role is the access level carried by a verified token
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleViewer   Role = "viewer"
	RoleWLViewer Role = "wl_viewer"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleViewer, RoleWLViewer:
		return true
	}
	return false
}

// Principal is the verified identity of a caller
type Principal struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// Anonymous is attached to requests when authentication is disabled
var Anonymous = Principal{Subject: "anonymous", Role: RoleViewer}

// Verifier checks a raw bearer token and returns its principal
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// NewVerifierFromConfig builds the verifier selected by AUTH_MODE.
// AUTH_MODE=none returns a nil Verifier.
func NewVerifierFromConfig(ctx context.Context, cfg *types.Config) (Verifier, error) {
	switch cfg.AuthMode {
	case types.AuthModeJWT:
		return NewJWTVerifier([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	case types.AuthModeOIDC:
		return NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCRoleClaim)
	case types.AuthModeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
}

type contextKey string

const (
	principalContextKey contextKey = "principal"
	clientIPContextKey  contextKey = "client_ip"
)

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the principal attached by the middleware
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// ClientIPFromContext returns the client address resolved by the middleware
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

func contextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey, ip)
}
