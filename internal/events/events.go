// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"bharatcrm_backend/platform/events"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadAssigned is published when a lead is assigned to a sales user,
// whether on creation or on reassignment.
type LeadAssigned struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	OrgID      uuid.UUID `json:"orgId"`
	AssignedTo uuid.UUID `json:"assignedTo"`
	LeadName   string    `json:"leadName"`
	Source     string    `json:"source"`
	Method     string    `json:"method"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadImported is published when an integration sync or webhook creates a lead.
type LeadImported struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	OrgID         uuid.UUID `json:"orgId"`
	IntegrationID uuid.UUID `json:"integrationId"`
	Platform      string    `json:"platform"`
}

func (e LeadImported) EventName() string { return "leads.lead.imported" }

// =============================================================================
// Recording Domain Events
// =============================================================================

// RecordingProcessed is published when AI processing of a recording
// finishes, successfully or not.
type RecordingProcessed struct {
	BaseEvent
	RecordingID uuid.UUID  `json:"recordingId"`
	OrgID       uuid.UUID  `json:"orgId"`
	LeadID      *uuid.UUID `json:"leadId,omitempty"`
	Succeeded   bool       `json:"succeeded"`
}

func (e RecordingProcessed) EventName() string { return "recordings.recording.processed" }
