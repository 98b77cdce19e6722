// Package integrations connects external lead sources: Meta Lead Ads
// webhooks, Google Sheets pull sync, campaign/form routing rules and sync
// audit logs.
package integrations

import (
	"bharatcrm_backend/internal/events"
	apphttp "bharatcrm_backend/internal/http"
	"bharatcrm_backend/internal/leads"
	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/logger"
	"bharatcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the integrations bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	repo    *Repository
}

// NewModule wires the integrations module. It depends on the leads module
// for lead persistence and assignment resolution.
func NewModule(pool *pgxpool.Pool, leadsModule *leads.Module, oauthCfg config.GoogleOAuthConfig, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	graph := NewGraphClient()
	leadRepo := leadsModule.Repository()
	resolver := leadsModule.Resolver()

	webhook := NewWebhookService(repo, leadRepo, resolver, graph, bus, log)
	sheets := NewSheetsSyncService(repo, leadRepo, resolver, oauthCfg, bus, log)
	service := NewService(repo, leadRepo, sheets, graph, log)
	handler := NewHandler(service, webhook, val)

	return &Module{handler: handler, service: service, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "integrations"
}

// Service exposes the integrations service for cross-module wiring.
func (m *Module) Service() *Service {
	return m.service
}

// Repository exposes the integrations repository for cross-module wiring.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts integration routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Webhook endpoints are unauthenticated; the secret and signature
	// checks gate them instead.
	webhooks := ctx.V1.Group("/webhooks")
	webhooks.GET("/meta", m.handler.HandleWebhookVerify)
	webhooks.POST("/meta", m.handler.HandleWebhookReceive)

	ctx.Protected.GET("/integrations", m.handler.HandleList)

	admin := ctx.Admin.Group("/integrations")
	admin.POST("", m.handler.HandleCreate)
	admin.DELETE("/:id", m.handler.HandleDeactivate)
	admin.POST("/:id/sync", m.handler.HandleSync)
	admin.GET("/:id/assignments", m.handler.HandleListAssignments)
	admin.POST("/:id/assignments", m.handler.HandleUpsertAssignment)
	admin.DELETE("/:id/assignments/:assignmentId", m.handler.HandleDeactivateAssignment)
	admin.GET("/:id/campaigns", m.handler.HandleDiscoverCampaigns)
	admin.GET("/:id/forms", m.handler.HandleDiscoverForms)

	ctx.Admin.GET("/sync-logs", m.handler.HandleListSyncLogs)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
