package http

import (
	"context"

	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/events"
	"bharatcrm_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router needs.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is what the health endpoint pings.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App carries the wired-up application from the composition root in
// main.go into the router.
type App struct {
	// Config provides the HTTP and JWT settings.
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health backs the readiness check, typically a DB ping.
	Health HealthChecker
	// EventBus carries domain events between modules.
	EventBus events.Bus
	// Modules lists every HTTP-facing domain module.
	Modules []Module
}
