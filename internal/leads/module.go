// Package leads implements lead management: CRUD, assignment resolution,
// duplicate detection, CSV import and activity timelines.
package leads

import (
	"bharatcrm_backend/internal/events"
	apphttp "bharatcrm_backend/internal/http"
	"bharatcrm_backend/platform/logger"
	"bharatcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler  *Handler
	service  *Service
	resolver *Resolver
	repo     *Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	resolver := NewResolver(repo, log)
	detector := NewDetector(repo, log)
	service := NewService(repo, resolver, detector, bus, log)
	handler := NewHandler(service, val)

	return &Module{handler: handler, service: service, resolver: resolver, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service exposes the lead service for cross-module wiring.
func (m *Module) Service() *Service {
	return m.service
}

// Resolver exposes the assignment resolver for integration-sourced leads.
func (m *Module) Resolver() *Resolver {
	return m.resolver
}

// Repository exposes the lead repository for cross-module wiring.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	group.POST("", m.handler.HandleCreate)
	group.GET("", m.handler.HandleList)
	group.POST("/check-duplicate", m.handler.HandleCheckDuplicate)
	group.GET("/:id", m.handler.HandleGet)
	group.PUT("/:id/status", m.handler.HandleUpdateStatus)
	group.POST("/:id/notes", m.handler.HandleAddNote)
	group.GET("/:id/activities", m.handler.HandleListActivities)

	admin := ctx.Admin.Group("/leads")
	admin.PUT("/:id/assign", m.handler.HandleReassign)
	admin.POST("/import/preview", m.handler.HandleImportPreview)
	admin.POST("/import/confirm", m.handler.HandleImportConfirm)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
