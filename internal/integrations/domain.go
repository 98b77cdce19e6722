package integrations

import (
	"time"

	"github.com/google/uuid"
)

// Supported integration platforms.
const (
	PlatformFacebook     = "facebook"
	PlatformInstagram    = "instagram"
	PlatformWhatsApp     = "whatsapp"
	PlatformLinkedIn     = "linkedin"
	PlatformGoogle       = "google"
	PlatformGoogleSheets = "google_sheets"
)

// ValidPlatforms lists the accepted platform values.
var ValidPlatforms = []string{
	PlatformFacebook, PlatformInstagram, PlatformWhatsApp,
	PlatformLinkedIn, PlatformGoogle, PlatformGoogleSheets,
}

// Credentials is the JSONB credential blob stored per integration. Fields
// are platform-specific; unused ones stay empty.
type Credentials struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenExpiry  time.Time `json:"token_expiry,omitempty"`
	AppSecret    string    `json:"app_secret,omitempty"`
	PageID       string    `json:"page_id,omitempty"`
}

// Settings is the JSONB per-integration configuration blob.
type Settings struct {
	SpreadsheetID string `json:"spreadsheet_id,omitempty"`
	SheetRange    string `json:"sheet_range,omitempty"`
	FolderID      string `json:"folder_id,omitempty"`
}

// Integration is a connected external platform for an organization.
type Integration struct {
	ID             uuid.UUID   `json:"id"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	Platform       string      `json:"platform"`
	Name           string      `json:"name"`
	Credentials    Credentials `json:"-"`
	Settings       Settings    `json:"settings"`
	WebhookSecret  string      `json:"-"`
	VerifyToken    string      `json:"-"`
	IsActive       bool        `json:"is_active"`
	SyncStatus     string      `json:"sync_status"`
	LastSyncAt     *time.Time  `json:"last_sync_at,omitempty"`
	ErrorMessage   *string     `json:"error_message,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// CampaignAssignment maps a campaign or form to a sales user. ref_type
// distinguishes the two key spaces.
type CampaignAssignment struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	IntegrationID  uuid.UUID  `json:"integration_id"`
	RefType        string     `json:"ref_type"`
	RefID          string     `json:"ref_id"`
	RefName        string     `json:"ref_name"`
	AssignedTo     uuid.UUID  `json:"assigned_to"`
	IsActive       bool       `json:"is_active"`
	CreatedBy      *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SyncLog is an audit row for a sync or webhook run.
type SyncLog struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	IntegrationID  *uuid.UUID `json:"integration_id,omitempty"`
	SyncType       string     `json:"sync_type"`
	Status         string     `json:"status"`
	LeadsCreated   int        `json:"leads_created"`
	LeadsSkipped   int        `json:"leads_skipped"`
	Message        *string    `json:"message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Sync log statuses.
const (
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)
