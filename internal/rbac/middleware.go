package rbac

import (
	"net/http"

	"prospera-platform/internal/access"
	"prospera-platform/internal/audit"
	"prospera-platform/internal/auth"
	"prospera-platform/internal/metrics"
	"prospera-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const decisionKey = "access_decision"

// ContextFunc derives the resource context of a request, or nil when there is none.
type ContextFunc func(c *gin.Context) *access.ResourceContext

// Guard turns resolver decisions into route-level allow/deny.
// Audit and Metrics are optional.
type Guard struct {
	Resolver *access.Resolver
	Audit    *audit.Service
	Metrics  *metrics.Access
}

// Require allows the request through only when the caller is granted capability.
// Rules:
// - no identity in context: 401
// - any other denial (including lookup failures): 403 with a generic body
// - the granted Decision is stored on the gin context (see DecisionFromGin)
// Requires auth.RequireAccessToken earlier in the chain.
func (g Guard) Require(capability access.Capability, rcFn ContextFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID, _ := auth.UserID(ctx)

		var rc *access.ResourceContext
		if rcFn != nil {
			rc = rcFn(c)
		}

		d := g.Resolver.Resolve(ctx, userID, capability, rc)
		g.Metrics.ObserveDecision(string(capability), string(d.Reason))

		if d.Granted {
			c.Set(decisionKey, d)
			c.Next()
			return
		}

		if d.Reason == access.ReasonUnauthenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if g.Audit != nil {
			companyID := ""
			if rc != nil {
				companyID = rc.CompanyID
			}
			if err := g.Audit.LogAccessDenied(ctx, auth.BankID(ctx), userID, string(capability), string(d.Reason), companyID); err != nil {
				logger.FromGin(c).Warn("audit access denial failed", "err", err)
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}

// RequireSuperAdmin guards platform-wide tooling.
func (g Guard) RequireSuperAdmin() gin.HandlerFunc {
	return g.Require(access.CapabilitySuperadminTools, nil)
}

// FromParams builds a ResourceContext from route parameters. Empty names are skipped.
func FromParams(companyParam, resourceParam string) ContextFunc {
	return func(c *gin.Context) *access.ResourceContext {
		rc := &access.ResourceContext{}
		if companyParam != "" {
			rc.CompanyID = c.Param(companyParam)
		}
		if resourceParam != "" {
			rc.ResourceID = c.Param(resourceParam)
		}
		return rc
	}
}

// DecisionFromGin returns the Decision that let the request through.
func DecisionFromGin(c *gin.Context) (access.Decision, bool) {
	v, ok := c.Get(decisionKey)
	if !ok {
		return access.Decision{}, false
	}
	d, ok := v.(access.Decision)
	return d, ok
}
