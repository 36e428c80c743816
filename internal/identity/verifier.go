package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates a bearer token issued by the identity provider and
// extracts the subject claims.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (Claims, error)
}

// StaticVerifierConfig configures HS256 verification of provider-issued
// access tokens.
type StaticVerifierConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// StaticVerifier validates HS256 tokens against a shared secret. Used for
// managed providers that sign access tokens symmetrically and in tests.
type StaticVerifier struct {
	cfg StaticVerifierConfig
}

// NewStaticVerifier constructs a StaticVerifier.
func NewStaticVerifier(cfg StaticVerifierConfig) (*StaticVerifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("identity verifier: secret is required")
	}
	if cfg.Leeway <= 0 {
		cfg.Leeway = 30 * time.Second
	}
	return &StaticVerifier{cfg: cfg}, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims

	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify parses and validates the token, returning the provider claims.
func (v *StaticVerifier) Verify(_ context.Context, rawToken string) (Claims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return Claims{}, errors.New("identity verifier: token is required")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.cfg.Leeway),
	}
	if v.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		options = append(options, jwt.WithAudience(v.cfg.Audience))
	}

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(rawToken, &claims, func(*jwt.Token) (any, error) {
		return []byte(v.cfg.Secret), nil
	}, options...)
	if err != nil {
		return Claims{}, fmt.Errorf("identity verifier: parse token: %w", err)
	}
	if !token.Valid {
		return Claims{}, errors.New("identity verifier: token is invalid")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, errors.New("identity verifier: token has no subject")
	}

	return Claims{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
