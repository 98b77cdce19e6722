// Package auth provides authentication: login, signup, and JWT issuance.
package auth

import (
	apphttp "bharatcrm_backend/internal/http"
	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	service := NewService(repo, cfg)
	handler := NewHandler(service, val)

	return &Module{handler: handler, service: service}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service exposes the auth service for cross-module wiring.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/auth")
	group.POST("/login", m.handler.HandleLogin)
	group.POST("/register", m.handler.HandleRegisterOrganization)
	group.POST("/register-sales", m.handler.HandleRegisterSales)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
