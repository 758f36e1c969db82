package main

import (
	"net/http"

	"prospera-platform/internal/access"
	"prospera-platform/internal/auth"
	"prospera-platform/internal/httpapi"
	"prospera-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, guard rbac.Guard, metricsHandler http.Handler) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	v1 := r.Group("/v1")
	v1.Use(httpapi.ClientIP())
	v1.POST("/auth/refresh", h.Refresh)

	// protected API group
	authed := v1.Group("")
	authed.Use(auth.RequireAccessToken(h.Auth))
	{
		authed.POST("/auth/logout", h.Logout)
		authed.GET("/me", h.Me)
		authed.POST("/access/check", h.CheckAccess)

		authed.GET("/companies/:company_id/employees/:employee_id",
			guard.Require(access.CapabilityManageEmployees, rbac.FromParams("company_id", "employee_id")),
			h.GetEmployee,
		)

		// Admin services re-check authority themselves; the guard only turns away
		// callers that cannot manage companies at all.
		adminGroup := authed.Group("/admin")
		adminGroup.Use(guard.Require(access.CapabilityManageCompany, nil))
		{
			adminGroup.PUT("/users/:user_id/role", h.UpdateRole)
			adminGroup.PUT("/companies/:company_id/admins/:user_id", h.SetCompanyAdmin)
			adminGroup.DELETE("/companies/:company_id/admins/:user_id", h.RemoveCompanyAdmin)
		}

		authed.GET("/superadmin/ping", guard.RequireSuperAdmin(), h.SuperadminPing)
	}
}
