// Package http holds the HTTP server plumbing, including the Module
// interface each domain package implements to mount its routes.
package http

import (
	"bharatcrm_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that mounts its own HTTP routes.
// Keeping route setup inside each module leaves the router unaware of
// individual endpoints.
type Module interface {
	// Name identifies the module in logs.
	Name() string
	// RegisterRoutes mounts the module's routes using the shared groups
	// and middleware in the RouterContext.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext bundles the shared dependencies modules need when
// registering routes, instead of a long parameter list per module.
type RouterContext struct {
	// Engine is the root Gin engine for modules needing engine-level access.
	Engine *gin.Engine
	// V1 is the public /api/v1 route group.
	V1 *gin.RouterGroup
	// Protected is the authenticated group under /api/v1.
	Protected *gin.RouterGroup
	// Admin is the admin-only group under /api/v1/admin.
	Admin *gin.RouterGroup
	// Config exposes the JWT settings needed by auth middleware.
	Config config.JWTConfig
	// AuthMiddleware authenticates requests on protected routes.
	AuthMiddleware gin.HandlerFunc
}
