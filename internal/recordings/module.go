// Package recordings imports call recordings from Google Drive, matches
// them to leads by phone number, and runs them through an AI
// transcription and summarization pipeline.
package recordings

import (
	"bharatcrm_backend/internal/events"
	apphttp "bharatcrm_backend/internal/http"
	"bharatcrm_backend/internal/integrations"
	"bharatcrm_backend/internal/leads"
	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/logger"
	"bharatcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the recordings bounded context module implementing http.Module.
type Module struct {
	handler    *Handler
	sync       *SyncService
	processing *ProcessingService
}

// NewModule wires the recordings module. It depends on the leads module for
// phone matching and activity notes, and on the integrations module for the
// organization's Google Drive connection. The archiver is optional; pass
// nil when object storage is not configured.
func NewModule(pool *pgxpool.Pool, leadsModule *leads.Module, integrationsRepo *integrations.Repository, oauthCfg config.GoogleOAuthConfig, aiCfg config.AIConfig, archiver Archiver, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	drive := newGoogleDriveClient(oauthCfg, integrationsRepo, log)

	sync := NewSyncService(repo, leadsModule.Repository(), integrationsRepo, drive, log)
	selector := &configSelector{store: repo, env: aiCfg}
	processing := NewProcessingService(repo, integrationsRepo, drive, selector, archiver, leadsModule.Repository(), bus, log)
	service := NewService(repo, log)
	handler := NewHandler(service, sync, processing, val)

	return &Module{handler: handler, sync: sync, processing: processing}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "recordings"
}

// SyncService exposes the Drive sync for the scheduler worker.
func (m *Module) SyncService() *SyncService {
	return m.sync
}

// ProcessingService exposes the AI pipeline for the scheduler worker.
func (m *Module) ProcessingService() *ProcessingService {
	return m.processing
}

// RegisterRoutes mounts recording routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	protected := ctx.Protected.Group("/recordings")
	protected.GET("", m.handler.HandleList)
	protected.GET("/:id", m.handler.HandleGet)

	admin := ctx.Admin.Group("/recordings")
	// POST triggers a scan; GET only reports the recorded sync state.
	admin.POST("/sync", m.handler.HandleSync)
	admin.GET("/sync", m.handler.HandleSyncStatus)
	admin.POST("/process", m.handler.HandleProcessOne)
	admin.PUT("/process", m.handler.HandleProcessPending)
	admin.POST("/:id/process", m.handler.HandleProcess)
	admin.DELETE("/:id", m.handler.HandleDelete)
	admin.GET("/providers", m.handler.HandleListProviderConfigs)
	admin.PUT("/providers", m.handler.HandleSaveProviderConfig)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
