package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/athlos-app/athlos/internal/identity"
	"github.com/athlos-app/athlos/pkg/errors"
	"github.com/athlos-app/athlos/pkg/response"
)

const (
	CtxUserIDKey     = "userID"
	CtxExternalIDKey = "externalID"
	CtxClaimsKey     = "identityClaims"
)

// Auth validates the bearer token against the identity provider and resolves
// the caller's internal user id into the request context.
func Auth(verifier identity.TokenVerifier, users *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		user, err := users.ResolveInternalUser(c.Request.Context(), claims.Subject)
		if err != nil {
			// A valid token for an unknown or deactivated subject is still
			// unauthenticated from the API's point of view.
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, user.ID)
		c.Set(CtxExternalIDKey, claims.Subject)

		c.Next()
	}
}
