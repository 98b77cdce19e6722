package recordings

import (
	"context"
	"strings"

	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const defaultListLimit = 50

// Service covers recording CRUD and provider configuration. Sync and AI
// processing live in their own services.
type Service struct {
	repo *Repository
	log  *logger.Logger
}

func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Get(ctx context.Context, id, orgID uuid.UUID) (Recording, error) {
	rec, err := s.repo.GetByID(ctx, id, orgID)
	if err == ErrNotFound {
		return Recording{}, apperr.NotFound("recording not found")
	}
	return rec, err
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, status string, limit, offset int) ([]Recording, error) {
	if status != "" {
		switch status {
		case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		default:
			return nil, apperr.Validation("unknown status filter: " + status)
		}
	}
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, orgID, status, limit, offset)
}

// Delete removes a recording and tombstones its Drive file id so a later
// folder scan does not bring it back.
func (s *Service) Delete(ctx context.Context, id, orgID, deletedBy uuid.UUID) error {
	err := s.repo.Delete(ctx, id, orgID, deletedBy)
	if err == ErrNotFound {
		return apperr.NotFound("recording not found")
	}
	if err != nil {
		return err
	}
	s.log.Info("recording deleted", "recordingId", id, "deletedBy", deletedBy)
	return nil
}

// ProviderConfigInput is the admin payload for configuring an AI provider.
type ProviderConfigInput struct {
	Provider  string  `json:"provider" validate:"required,oneof=groq openai gemini"`
	APIKey    string  `json:"api_key" validate:"required"`
	Model     *string `json:"model,omitempty"`
	IsDefault bool    `json:"is_default"`
}

func (s *Service) ListProviderConfigs(ctx context.Context, orgID uuid.UUID) ([]ProviderConfig, error) {
	return s.repo.ListProviderConfigs(ctx, orgID)
}

func (s *Service) SaveProviderConfig(ctx context.Context, input ProviderConfigInput, orgID uuid.UUID) error {
	pc := ProviderConfig{
		OrganizationID: orgID,
		Provider:       strings.ToLower(input.Provider),
		APIKey:         strings.TrimSpace(input.APIKey),
		Model:          input.Model,
		IsActive:       true,
		IsDefault:      input.IsDefault,
	}
	if pc.APIKey == "" {
		return apperr.Validation("api_key is required")
	}
	return s.repo.UpsertProviderConfig(ctx, pc)
}
