package leads

import (
	"time"

	"github.com/google/uuid"
)

// Lead pipeline stages.
const (
	StatusNew         = "new"
	StatusContacted   = "contacted"
	StatusQualified   = "qualified"
	StatusDemo        = "demo_scheduled"
	StatusNegotiation = "negotiation"
	StatusWon         = "won"
	StatusLost        = "lost"
)

// ValidStatuses lists the allowed lead pipeline stages.
var ValidStatuses = []string{
	StatusNew, StatusContacted, StatusQualified, StatusDemo,
	StatusNegotiation, StatusWon, StatusLost,
}

// Assignment methods, in resolver priority order.
const (
	MethodForm       = "form"
	MethodCampaign   = "campaign"
	MethodSalesAuto  = "sales_auto"
	MethodPercentage = "percentage"
	MethodRoundRobin = "round_robin"
	MethodUnassigned = "unassigned"
)

// IntegrationMetadata is the typed shape of provider campaign/form
// identifiers attached to an integration-sourced lead. Persisted as JSONB.
type IntegrationMetadata struct {
	CampaignID   string `json:"campaign_id,omitempty"`
	CampaignName string `json:"campaign_name,omitempty"`
	FormID       string `json:"form_id,omitempty"`
	FormName     string `json:"form_name,omitempty"`
	AdID         string `json:"ad_id,omitempty"`
	PageID       string `json:"page_id,omitempty"`
}

// IsZero reports whether no provider identifiers are present.
func (m IntegrationMetadata) IsZero() bool {
	return m == IntegrationMetadata{}
}

// Lead is the organization-scoped lead record.
type Lead struct {
	ID                  uuid.UUID            `json:"id"`
	OrganizationID      uuid.UUID            `json:"organization_id"`
	Name                string               `json:"name"`
	Email               *string              `json:"email,omitempty"`
	Phone               *string              `json:"phone,omitempty"`
	Status              string               `json:"status"`
	Source              string               `json:"source"`
	AssignedTo          *uuid.UUID           `json:"assigned_to,omitempty"`
	CreatedBy           *uuid.UUID           `json:"created_by,omitempty"`
	AssignmentMethod    *string              `json:"assignment_method,omitempty"`
	IntegrationID       *uuid.UUID           `json:"integration_id,omitempty"`
	IntegrationMetadata *IntegrationMetadata `json:"integration_metadata,omitempty"`
	ExternalID          *string              `json:"external_id,omitempty"`
	CustomFields        map[string]string    `json:"custom_fields,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// Activity is a timeline entry on a lead.
type Activity struct {
	ID           uuid.UUID  `json:"id"`
	LeadID       uuid.UUID  `json:"lead_id"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	ActivityType string     `json:"activity_type"`
	Body         string     `json:"body"`
	CreatedAt    time.Time  `json:"created_at"`
}
