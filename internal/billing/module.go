package billing

import (
	apphttp "bharatcrm_backend/internal/http"
	"bharatcrm_backend/internal/organizations"
	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/logger"
	"bharatcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the billing bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, orgsModule *organizations.Module, cfg config.StripeConfig, log *logger.Logger, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	service := NewService(repo, cfg, log)
	handler := NewHandler(service, orgsModule.Repository(), val)
	return &Module{handler: handler}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "billing"
}

// RegisterRoutes mounts billing routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhooks/stripe", m.handler.HandleWebhook)

	ctx.Protected.GET("/billing/subscription", m.handler.HandleGetSubscription)
	ctx.Admin.POST("/billing/checkout", m.handler.HandleCheckout)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
