package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier validates ID tokens from an OpenID Connect provider and reads
// the role from a configurable claim
type OIDCVerifier struct {
	verifier  *oidc.IDTokenVerifier
	roleClaim string
}

// NewOIDCVerifier runs provider discovery against issuer
func NewOIDCVerifier(ctx context.Context, issuer, clientID, roleClaim string) (*OIDCVerifier, error) {
	if issuer == "" {
		return nil, fmt.Errorf("issuer URL is required for OIDC discovery")
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return newOIDCVerifier(provider.Verifier(&oidc.Config{ClientID: clientID}), roleClaim), nil
}

// NewOIDCVerifierWithKeySet skips discovery and verifies against keySet
func NewOIDCVerifierWithKeySet(issuer, clientID, roleClaim string, keySet oidc.KeySet) *OIDCVerifier {
	return newOIDCVerifier(oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: clientID}), roleClaim)
}

func newOIDCVerifier(v *oidc.IDTokenVerifier, roleClaim string) *OIDCVerifier {
	if roleClaim == "" {
		roleClaim = "role"
	}
	return &OIDCVerifier{verifier: v, roleClaim: roleClaim}
}

func (v *OIDCVerifier) Verify(ctx context.Context, tokenString string) (*Principal, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	idToken, err := v.verifier.Verify(ctx, tokenString)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrInvalidToken
	}

	subject := idToken.Subject
	if email, ok := claims["email"].(string); ok && email != "" {
		subject = email
	}

	return &Principal{Subject: subject, Role: roleFromClaim(claims[v.roleClaim])}, nil
}

// roleFromClaim accepts a string or the first known entry of a string list
func roleFromClaim(value interface{}) Role {
	switch v := value.(type) {
	case string:
		return Role(strings.ToLower(v))
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && Role(strings.ToLower(s)).Valid() {
				return Role(strings.ToLower(s))
			}
		}
	}
	return ""
}
