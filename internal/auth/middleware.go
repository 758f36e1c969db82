package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"prospera-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
	if len(raw) <= len(bearerPrefix) || !strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	return strings.TrimSpace(raw[len(bearerPrefix):]), true
}

// RequireAccessToken verifies an access token and injects identity into request context.
// It does not perform authorization; route guards in internal/rbac do that.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := m.VerifyActive(c.Request.Context(), tok, TokenTypeAccess, time.Now())
		if err != nil {
			if errors.Is(err, ErrRevocationUnavailable) {
				logger.FromGin(c).Error("token revocation check failed", "err", err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := WithIdentity(c.Request.Context(), claims.Subject, claims.BankID)
		ctx = withTokenID(ctx, claims.ID)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", claims.Subject)
		c.Set("bank_id", claims.BankID)
		c.Set("claims", claims)

		c.Next()
	}
}

// ClaimsFromGin returns the verified claims stored by RequireAccessToken.
func ClaimsFromGin(c *gin.Context) (Claims, bool) {
	v, ok := c.Get("claims")
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
