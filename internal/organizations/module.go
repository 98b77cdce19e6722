// Package organizations provides the sales team bounded context: team
// listing, assignment settings, and the approval workflow.
package organizations

import (
	apphttp "bharatcrm_backend/internal/http"
	"bharatcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the organizations bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	repo    *Repository
}

// NewModule creates and initializes the organizations module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	service := NewService(repo)
	handler := NewHandler(service, val)

	return &Module{handler: handler, service: service, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "organizations"
}

// Service exposes the organizations service for cross-module wiring.
func (m *Module) Service() *Service {
	return m.service
}

// Repository exposes the organizations repository for cross-module wiring.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts team routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/team", m.handler.HandleListTeam)

	adminTeam := ctx.Admin.Group("/team")
	adminTeam.PUT("/:userId", m.handler.HandleUpdateTeamSettings)
	adminTeam.POST("/:userId/approve", m.handler.HandleApprove)
	adminTeam.POST("/:userId/reject", m.handler.HandleReject)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
