package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/athlos-app/athlos/internal/identity"
	"github.com/athlos-app/athlos/internal/middleware"
	appErrors "github.com/athlos-app/athlos/pkg/errors"
	"github.com/athlos-app/athlos/pkg/response"
)

// AuthHandler exposes the sign-in flow against the managed identity
// provider and profile endpoints for the authenticated user.
type AuthHandler struct {
	users    *identity.Service
	provider *identity.OIDCProvider
}

// NewAuthHandler constructs an AuthHandler. The provider may be nil when the
// deployment relies on externally issued tokens only.
func NewAuthHandler(users *identity.Service, provider *identity.OIDCProvider) *AuthHandler {
	return &AuthHandler{users: users, provider: provider}
}

// Login redirects the browser to the identity provider's authorization page.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.provider == nil {
		response.Error(c, appErrors.NewBadRequest("interactive login is not configured"))
		return
	}

	state := strings.TrimSpace(c.Query("state"))
	if state == "" {
		state = "athlos"
	}

	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// Callback completes the authorization-code flow: the code is exchanged for
// tokens, the ID-token claims are synced into the local user store, and the
// provider tokens are returned for the client to hold.
func (h *AuthHandler) Callback(c *gin.Context) {
	if h.provider == nil {
		response.Error(c, appErrors.NewBadRequest("interactive login is not configured"))
		return
	}

	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		response.Error(c, appErrors.NewBadRequest("authorization code is required"))
		return
	}

	claims, token, err := h.provider.Exchange(requestContext(c), code)
	if err != nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.users.SyncUser(requestContext(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := gin.H{
		"user":         user,
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
	}
	if raw, ok := token.Extra("id_token").(string); ok && raw != "" {
		payload["id_token"] = raw
	}
	if !token.Expiry.IsZero() {
		payload["expires_at"] = token.Expiry
	}

	response.Success(c, http.StatusOK, payload)
}

// Me returns the authenticated user's synced profile.
func (h *AuthHandler) Me(c *gin.Context) {
	externalID := c.GetString(middleware.CtxExternalIDKey)

	user, err := h.users.ResolveInternalUser(requestContext(c), externalID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}
