package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestStaticVerifierAcceptsValidToken(t *testing.T) {
	verifier, err := NewStaticVerifier(StaticVerifierConfig{
		Secret: "test-secret",
		Issuer: "https://issuer.example.com",
	})
	require.NoError(t, err)

	raw := signTestToken(t, "test-secret", jwt.MapClaims{
		"sub":   "auth0|abc",
		"iss":   "https://issuer.example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": "a@example.com",
		"name":  "A",
	})

	claims, err := verifier.Verify(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "auth0|abc", claims.Subject)
	require.Equal(t, "a@example.com", claims.Email)
	require.Equal(t, "A", claims.Name)
}

func TestStaticVerifierRejections(t *testing.T) {
	verifier, err := NewStaticVerifier(StaticVerifierConfig{
		Secret: "test-secret",
		Issuer: "https://issuer.example.com",
		Leeway: time.Second,
	})
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("wrong secret", func(t *testing.T) {
		raw := signTestToken(t, "other-secret", jwt.MapClaims{
			"sub": "auth0|abc",
			"iss": "https://issuer.example.com",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err := verifier.Verify(ctx, raw)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		raw := signTestToken(t, "test-secret", jwt.MapClaims{
			"sub": "auth0|abc",
			"iss": "https://issuer.example.com",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		_, err := verifier.Verify(ctx, raw)
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		raw := signTestToken(t, "test-secret", jwt.MapClaims{
			"sub": "auth0|abc",
			"iss": "https://evil.example.com",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err := verifier.Verify(ctx, raw)
		require.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		raw := signTestToken(t, "test-secret", jwt.MapClaims{
			"iss": "https://issuer.example.com",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err := verifier.Verify(ctx, raw)
		require.Error(t, err)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "")
		require.Error(t, err)
	})
}

func TestStaticVerifierRequiresSecret(t *testing.T) {
	_, err := NewStaticVerifier(StaticVerifierConfig{})
	require.Error(t, err)
}
