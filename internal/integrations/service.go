package integrations

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"slices"

	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// salesChecker validates assignment targets.
type salesChecker interface {
	IsEligibleSales(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// Service manages platform integrations, campaign/form assignment rules
// and sync dispatch.
type Service struct {
	repo   *Repository
	sales  salesChecker
	sheets *SheetsSyncService
	graph  *GraphClient
	log    *logger.Logger
}

func NewService(repo *Repository, sales salesChecker, sheets *SheetsSyncService, graph *GraphClient, log *logger.Logger) *Service {
	return &Service{repo: repo, sales: sales, sheets: sheets, graph: graph, log: log}
}

// CreateIntegrationInput is the admin payload for connecting a platform.
type CreateIntegrationInput struct {
	Platform      string      `json:"platform" validate:"required"`
	Name          string      `json:"name" validate:"required,min=1,max=200"`
	Credentials   Credentials `json:"credentials"`
	SpreadsheetID string      `json:"spreadsheet_id"`
	SheetRange    string      `json:"sheet_range"`
	FolderID      string      `json:"folder_id"`
}

// CreateIntegration connects a platform. Webhook-capable platforms get a
// generated webhook secret and verify token for the Meta subscription setup.
func (s *Service) CreateIntegration(ctx context.Context, input CreateIntegrationInput, orgID uuid.UUID) (Integration, error) {
	if !slices.Contains(ValidPlatforms, input.Platform) {
		return Integration{}, apperr.Validation("unsupported platform")
	}

	params := CreateIntegrationParams{
		OrganizationID: orgID,
		Platform:       input.Platform,
		Name:           input.Name,
		Credentials:    input.Credentials,
		Settings: Settings{
			SpreadsheetID: input.SpreadsheetID,
			SheetRange:    input.SheetRange,
			FolderID:      input.FolderID,
		},
	}

	switch input.Platform {
	case PlatformFacebook, PlatformInstagram, PlatformWhatsApp, PlatformLinkedIn:
		params.WebhookSecret = randomToken()
		params.VerifyToken = randomToken()
	}

	integration, err := s.repo.Create(ctx, params)
	if err != nil {
		return Integration{}, apperr.Wrap(apperr.KindInternal, "failed to create integration", err)
	}
	return integration, nil
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]Integration, error) {
	return s.repo.ListByOrganization(ctx, orgID)
}

func (s *Service) Get(ctx context.Context, id, orgID uuid.UUID) (Integration, error) {
	integration, err := s.repo.GetByID(ctx, id, orgID)
	if err == ErrNotFound {
		return Integration{}, apperr.NotFound("integration not found")
	}
	return integration, err
}

func (s *Service) Deactivate(ctx context.Context, id, orgID uuid.UUID) error {
	err := s.repo.Deactivate(ctx, id, orgID)
	if err == ErrNotFound {
		return apperr.NotFound("integration not found")
	}
	return err
}

// Sync runs a pull sync for the integration. Only Google Sheets supports
// pull today; Meta platforms are push-only via webhook.
func (s *Service) Sync(ctx context.Context, id, orgID uuid.UUID) (ProcessResult, error) {
	integration, err := s.Get(ctx, id, orgID)
	if err != nil {
		return ProcessResult{}, err
	}
	if integration.Platform != PlatformGoogleSheets {
		return ProcessResult{}, apperr.Validation("platform does not support pull sync")
	}
	return s.sheets.Sync(ctx, integration)
}

// AssignmentInput is the admin payload for a campaign/form routing rule.
type AssignmentInput struct {
	RefType    string `json:"ref_type" validate:"required,oneof=campaign form"`
	RefID      string `json:"ref_id" validate:"required"`
	RefName    string `json:"ref_name"`
	AssignedTo string `json:"assigned_to" validate:"required,uuid"`
}

// UpsertAssignment creates or replaces the routing rule for a campaign or
// form. The target must be an approved, active sales user.
func (s *Service) UpsertAssignment(ctx context.Context, input AssignmentInput, integrationID, orgID uuid.UUID, actor uuid.UUID) (CampaignAssignment, error) {
	if _, err := s.Get(ctx, integrationID, orgID); err != nil {
		return CampaignAssignment{}, err
	}

	assignedTo, err := uuid.Parse(input.AssignedTo)
	if err != nil {
		return CampaignAssignment{}, apperr.Validation("invalid assigned_to")
	}
	eligible, err := s.sales.IsEligibleSales(ctx, orgID, assignedTo)
	if err != nil {
		return CampaignAssignment{}, err
	}
	if !eligible {
		return CampaignAssignment{}, apperr.Validation("assignee is not an approved sales user")
	}

	created, err := s.repo.UpsertAssignment(ctx, CampaignAssignment{
		OrganizationID: orgID,
		IntegrationID:  integrationID,
		RefType:        input.RefType,
		RefID:          input.RefID,
		RefName:        input.RefName,
		AssignedTo:     assignedTo,
		CreatedBy:      &actor,
	})
	if err != nil {
		return CampaignAssignment{}, apperr.Wrap(apperr.KindInternal, "failed to save assignment", err)
	}
	return created, nil
}

func (s *Service) ListAssignments(ctx context.Context, integrationID, orgID uuid.UUID) ([]CampaignAssignment, error) {
	if _, err := s.Get(ctx, integrationID, orgID); err != nil {
		return nil, err
	}
	return s.repo.ListAssignments(ctx, orgID, integrationID)
}

func (s *Service) DeactivateAssignment(ctx context.Context, id, orgID uuid.UUID) error {
	err := s.repo.DeactivateAssignment(ctx, id, orgID)
	if err == ErrNotFound {
		return apperr.NotFound("assignment not found")
	}
	return err
}

func (s *Service) ListSyncLogs(ctx context.Context, orgID uuid.UUID, limit int) ([]SyncLog, error) {
	return s.repo.ListSyncLogs(ctx, orgID, limit)
}

// DiscoverCampaigns lists the integration's ad campaigns from the Graph API
// so admins can pick routing targets.
func (s *Service) DiscoverCampaigns(ctx context.Context, integrationID, orgID uuid.UUID, adAccountID string) ([]GraphCampaign, error) {
	integration, err := s.Get(ctx, integrationID, orgID)
	if err != nil {
		return nil, err
	}
	if adAccountID == "" {
		return nil, apperr.Validation("ad_account_id is required")
	}
	return s.graph.ListCampaigns(ctx, adAccountID, integration.Credentials.AccessToken)
}

// DiscoverForms lists the integration's Lead Ads forms, attributed to the
// campaigns running them when an ad account is given.
func (s *Service) DiscoverForms(ctx context.Context, integrationID, orgID uuid.UUID, adAccountID string) ([]GraphForm, error) {
	integration, err := s.Get(ctx, integrationID, orgID)
	if err != nil {
		return nil, err
	}
	if integration.Credentials.PageID == "" {
		return nil, apperr.Validation("integration has no connected page")
	}
	return s.graph.ListForms(ctx, integration.Credentials.PageID, adAccountID, integration.Credentials.AccessToken)
}

func randomToken() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
