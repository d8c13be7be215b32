package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig configures bearer-JWT authentication for the HTTP surface.
// An empty Secret disables authentication entirely.
type AuthConfig struct {
	// Secret is the shared secret for HS256-family JWT validation.
	Secret string

	// Issuer is the expected "iss" claim (optional).
	Issuer string

	// Audience is the expected "aud" claim (optional).
	Audience string

	// NameClaim is the JWT claim for the caller's name (default "name").
	NameClaim string

	// EmailClaim is the JWT claim for the caller's email (default "email").
	EmailClaim string
}

// Identity is the authenticated caller extracted from token claims.
type Identity struct {
	Name  string
	Email string
}

type identityKey struct{}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Authenticator validates bearer tokens on incoming requests.
type Authenticator struct {
	cfg AuthConfig
}

// NewAuthenticator builds an authenticator from cfg.
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.NameClaim == "" {
		cfg.NameClaim = "name"
	}
	if cfg.EmailClaim == "" {
		cfg.EmailClaim = "email"
	}
	return &Authenticator{cfg: cfg}
}

// Enabled reports whether a secret is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && a.cfg.Secret != ""
}

// Middleware rejects requests without a valid bearer token when enabled.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		identity, err := a.validate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("Authorization header must be a bearer token")
	}
	return token, nil
}

// validate parses the token, verifies signature and registered claims, and
// extracts the caller identity.
func (a *Authenticator) validate(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid token claims")
	}

	if a.cfg.Issuer != "" {
		issuer, _ := claims.GetIssuer()
		if issuer != a.cfg.Issuer {
			return Identity{}, fmt.Errorf("invalid issuer: expected %s, got %s", a.cfg.Issuer, issuer)
		}
	}
	if a.cfg.Audience != "" {
		audiences, _ := claims.GetAudience()
		found := false
		for _, aud := range audiences {
			if aud == a.cfg.Audience {
				found = true
				break
			}
		}
		if !found {
			return Identity{}, fmt.Errorf("invalid audience: expected %s", a.cfg.Audience)
		}
	}

	name, _ := claims[a.cfg.NameClaim].(string)
	email, _ := claims[a.cfg.EmailClaim].(string)
	if name == "" && email == "" {
		return Identity{}, fmt.Errorf("token missing identity claims (%s or %s)", a.cfg.NameClaim, a.cfg.EmailClaim)
	}
	return Identity{Name: name, Email: email}, nil
}
