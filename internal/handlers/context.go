package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseBoolQuery(c *gin.Context, name string) bool {
	raw := strings.TrimSpace(c.Query(name))
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}
