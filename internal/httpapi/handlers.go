package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"prospera-platform/internal/access"
	"prospera-platform/internal/admin"
	"prospera-platform/internal/audit"
	"prospera-platform/internal/auth"
	"prospera-platform/internal/directory"
	"prospera-platform/internal/metrics"
	"prospera-platform/internal/rbac"
	"prospera-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth      *auth.Manager
	Resolver  *access.Resolver
	Directory directory.Store
	Admin     *admin.Service
	Metrics   *metrics.Access
}

// ClientIP records the caller address for audit events.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(audit.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}

// --- Auth ---

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates a refresh token. The old refresh token stops working.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken, time.Now())
	if err != nil {
		if unavailable(err) {
			logger.FromGin(c).Error("token refresh unavailable", "err", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout revokes the presented access token and, if supplied, the caller's refresh token.
func (h Handlers) Logout(c *gin.Context) {
	claims, ok := auth.ClaimsFromGin(c)
	if !ok || h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx := c.Request.Context()

	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.Auth.Revoke(ctx, claims); err != nil {
		logger.FromGin(c).Error("logout revoke failed", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "logout unavailable"})
		return
	}

	if tok := strings.TrimSpace(req.RefreshToken); tok != "" {
		rc, err := h.Auth.VerifyActive(ctx, tok, auth.TokenTypeRefresh, time.Now())
		switch {
		case err == nil && rc.Subject == claims.Subject:
			if err := h.Auth.Revoke(ctx, rc); err != nil {
				logger.FromGin(c).Warn("logout refresh revoke failed", "err", err)
			}
		case err != nil && !errors.Is(err, auth.ErrTokenRevoked):
			logger.FromGin(c).Debug("logout ignored refresh token", "err", err)
		}
	}
	logger.FromGin(c).Info("logged out", "user_id", claims.Subject, "jti", auth.TokenID(ctx))
	c.Status(http.StatusNoContent)
}

// --- Identity ---

// Me returns the caller identity with the role as currently stored.
// The role is never read from the token.
func (h Handlers) Me(c *gin.Context) {
	claims, ok := auth.ClaimsFromGin(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if h.Directory == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "directory not configured"})
		return
	}
	role, err := h.Directory.RoleByIdentity(c.Request.Context(), claims.Subject)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		role = access.RoleCompanyEmployee
	case err != nil:
		logger.FromGin(c).Error("role lookup failed", "user_id", claims.Subject, "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "role unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": claims.Subject,
		"bank_id": claims.BankID,
		"email":   claims.Email,
		"role":    role,
	})
}

// --- Access checks ---

type checkAccessRequest struct {
	Capability string `json:"capability"`
	access.ResourceContext
}

// CheckAccess resolves a capability for the caller. Used by the UI to show or hide features.
// The answer never explains why a check was denied.
func (h Handlers) CheckAccess(c *gin.Context) {
	if h.Resolver == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "resolver not configured"})
		return
	}
	var req checkAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ctx := c.Request.Context()
	userID, _ := auth.UserID(ctx)

	// Owners of named resources come from the directory, never from the client.
	if req.ResourceID != "" {
		req.ResourceOwnerUserID = ""
	}

	capability, err := access.ParseCapability(strings.TrimSpace(req.Capability))
	if err != nil {
		h.Metrics.ObserveDecision("unknown", string(access.ReasonDenied))
		c.JSON(http.StatusOK, access.Decision{Reason: access.ReasonDenied})
		return
	}
	d := h.Resolver.Resolve(ctx, userID, capability, &req.ResourceContext)
	h.Metrics.ObserveDecision(string(capability), string(d.Reason))

	c.JSON(http.StatusOK, d)
}

// --- Employees ---

// GetEmployee returns one employee record. Requires rbac guard on manage-employees.
func (h Handlers) GetEmployee(c *gin.Context) {
	if h.Directory == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "directory not configured"})
		return
	}
	ctx := c.Request.Context()
	emp, err := h.Directory.Employee(ctx, c.Param("company_id"), c.Param("employee_id"))
	if errors.Is(err, directory.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("employee lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if d, ok := rbac.DecisionFromGin(c); !ok || d.SelfOnly() {
		userID, _ := auth.UserID(ctx)
		if emp.PlatformUserID == "" || emp.PlatformUserID != userID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
	}
	c.JSON(http.StatusOK, emp)
}

// --- Admin ---

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h Handlers) UpdateRole(c *gin.Context) {
	if h.Admin == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "admin not configured"})
		return
	}
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Role) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "role required"})
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	ctx := c.Request.Context()
	actorID, _ := auth.UserID(ctx)
	out, err := h.Admin.UpdateRole(ctx, actorID, c.Param("user_id"), role)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) SetCompanyAdmin(c *gin.Context) { h.companyAdmin(c, true) }

func (h Handlers) RemoveCompanyAdmin(c *gin.Context) { h.companyAdmin(c, false) }

func (h Handlers) companyAdmin(c *gin.Context, enabled bool) {
	if h.Admin == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "admin not configured"})
		return
	}
	ctx := c.Request.Context()
	actorID, _ := auth.UserID(ctx)
	out, err := h.Admin.SetCompanyAdmin(ctx, actorID, c.Param("company_id"), c.Param("user_id"), enabled)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SuperadminPing is a trivial endpoint behind the superadmin-tools guard.
func (h Handlers) SuperadminPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, admin.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, admin.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, directory.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, admin.ErrUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
	default:
		logger.FromGin(c).Error("admin action failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func unavailable(err error) bool {
	return errors.Is(err, auth.ErrRevocationUnavailable) || errors.Is(err, auth.ErrNoRevoker)
}
