package recordings

import (
	"bytes"
	"context"
	"io"

	"bharatcrm_backend/internal/events"
	"bharatcrm_backend/internal/integrations"
	"bharatcrm_backend/internal/recordings/ai"
	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// bulkProcessLimit caps one bulk processing request. Items run one at a
// time; the cap keeps a single request from monopolizing the AI providers.
const bulkProcessLimit = 10

// processStore is the slice of the repository the processing pipeline needs.
type processStore interface {
	GetByID(ctx context.Context, id, orgID uuid.UUID) (Recording, error)
	MarkProcessing(ctx context.Context, id, orgID uuid.UUID) (Recording, error)
	SaveAnalysis(ctx context.Context, id uuid.UUID, transcript string, analysis Analysis, archiveObject *string) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	PendingForProcessing(ctx context.Context, orgID uuid.UUID, limit int) ([]Recording, error)
	ListProviderConfigs(ctx context.Context, orgID uuid.UUID) ([]ProviderConfig, error)
}

// activityWriter posts processing results to the matched lead's timeline.
type activityWriter interface {
	CreateActivity(ctx context.Context, orgID, leadID uuid.UUID, userID *uuid.UUID, activityType, body string) error
}

// providerSelector picks the AI provider for an organization.
type providerSelector interface {
	Select(ctx context.Context, orgID uuid.UUID) (ai.Provider, error)
}

// configSelector implements the selection order: the organization's
// default-flagged provider, else its groq config, else its openai config,
// else server-level API keys in the same order.
type configSelector struct {
	store processStore
	env   config.AIConfig
}

func (s *configSelector) Select(ctx context.Context, orgID uuid.UUID) (ai.Provider, error) {
	configs, err := s.store.ListProviderConfigs(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if pick := pickProviderConfig(configs); pick != nil {
		return buildProvider(pick.Provider, pick.APIKey, derefModel(pick.Model))
	}

	if key := s.env.GetGroqAPIKey(); key != "" {
		return ai.NewGroq(key, ""), nil
	}
	if key := s.env.GetOpenAIAPIKey(); key != "" {
		return ai.NewOpenAI(key, ""), nil
	}
	return nil, apperr.Validation("no AI provider configured")
}

func pickProviderConfig(configs []ProviderConfig) *ProviderConfig {
	for i := range configs {
		if configs[i].IsDefault {
			return &configs[i]
		}
	}
	for _, name := range []string{ProviderGroq, ProviderOpenAI} {
		for i := range configs {
			if configs[i].Provider == name {
				return &configs[i]
			}
		}
	}
	return nil
}

func buildProvider(name, apiKey, model string) (ai.Provider, error) {
	switch name {
	case ProviderGroq:
		return ai.NewGroq(apiKey, model), nil
	case ProviderOpenAI:
		return ai.NewOpenAI(apiKey, model), nil
	case ProviderGemini:
		return ai.NewGemini(apiKey, model), nil
	default:
		return nil, apperr.Validation("unknown AI provider: " + name)
	}
}

func derefModel(m *string) string {
	if m == nil {
		return ""
	}
	return *m
}

// ProcessingService runs the AI pipeline on imported recordings: download,
// archive, transcribe, summarize, persist.
type ProcessingService struct {
	repo         processStore
	integrations driveIntegrations
	drive        driveClient
	selector     providerSelector
	archiver     Archiver
	activities   activityWriter
	bus          events.Bus
	log          *logger.Logger
}

func NewProcessingService(repo processStore, store driveIntegrations, drive driveClient, selector providerSelector, archiver Archiver, activities activityWriter, bus events.Bus, log *logger.Logger) *ProcessingService {
	return &ProcessingService{
		repo:         repo,
		integrations: store,
		drive:        drive,
		selector:     selector,
		archiver:     archiver,
		activities:   activities,
		bus:          bus,
		log:          log,
	}
}

// Process runs the full pipeline on one recording. Only pending and failed
// recordings are processable; any failure lands the recording in failed
// state with the error stored, never half-processed.
func (s *ProcessingService) Process(ctx context.Context, recordingID, orgID uuid.UUID) (Recording, error) {
	rec, err := s.repo.MarkProcessing(ctx, recordingID, orgID)
	if err == ErrNotFound {
		if _, getErr := s.repo.GetByID(ctx, recordingID, orgID); getErr == nil {
			return Recording{}, apperr.Conflict("recording is already processing or completed")
		}
		return Recording{}, apperr.NotFound("recording not found")
	}
	if err != nil {
		return Recording{}, err
	}

	if err := s.run(ctx, &rec, orgID); err != nil {
		s.fail(ctx, rec, err)
		return Recording{}, err
	}

	completed, err := s.repo.GetByID(ctx, recordingID, orgID)
	if err != nil {
		return Recording{}, err
	}

	s.bus.Publish(ctx, events.RecordingProcessed{
		BaseEvent:   events.NewBaseEvent(),
		RecordingID: completed.ID,
		OrgID:       orgID,
		LeadID:      completed.LeadID,
		Succeeded:   true,
	})
	return completed, nil
}

func (s *ProcessingService) run(ctx context.Context, rec *Recording, orgID uuid.UUID) error {
	integration, err := s.integrations.GetByPlatform(ctx, orgID, integrations.PlatformGoogle)
	if err == integrations.ErrNotFound {
		return apperr.Validation("no Google Drive connection for this organization")
	}
	if err != nil {
		return err
	}

	body, err := s.drive.Download(ctx, &integration, rec.DriveFileID)
	if err != nil {
		return err
	}
	defer body.Close()

	audio, err := io.ReadAll(body)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "failed to read recording audio", err)
	}

	var archiveObject *string
	if s.archiver != nil {
		object, err := s.archiver.Archive(ctx, orgID, rec.ID, rec.FileName, bytes.NewReader(audio), int64(len(audio)))
		if err != nil {
			// The archive is a safety copy; processing continues without it.
			s.log.Warn("recording archive failed", "recordingId", rec.ID, "error", err)
		} else {
			archiveObject = &object
		}
	}

	provider, err := s.selector.Select(ctx, orgID)
	if err != nil {
		return err
	}

	transcript, err := provider.Transcribe(ctx, bytes.NewReader(audio), rec.FileName)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "transcription failed", err)
	}

	raw, err := provider.Complete(ctx, BuildSummaryPrompt(transcript))
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "summarization failed", err)
	}

	analysis, ok := ParseAnalysis(raw)
	if !ok {
		s.log.Warn("analysis output unusable, storing neutral defaults", "recordingId", rec.ID, "provider", provider.Name())
	}

	if err := s.repo.SaveAnalysis(ctx, rec.ID, transcript, analysis, archiveObject); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to save analysis", err)
	}

	if rec.LeadID != nil {
		note := "Call recording analyzed: " + analysis.Summary
		if err := s.activities.CreateActivity(ctx, orgID, *rec.LeadID, nil, "recording_analysis", note); err != nil {
			s.log.Warn("failed to write lead activity", "recordingId", rec.ID, "error", err)
		}
	}
	return nil
}

func (s *ProcessingService) fail(ctx context.Context, rec Recording, cause error) {
	if err := s.repo.MarkFailed(ctx, rec.ID, cause.Error()); err != nil {
		s.log.Error("failed to mark recording failed", "recordingId", rec.ID, "error", err)
	}
	s.bus.Publish(ctx, events.RecordingProcessed{
		BaseEvent:   events.NewBaseEvent(),
		RecordingID: rec.ID,
		OrgID:       rec.OrganizationID,
		LeadID:      rec.LeadID,
		Succeeded:   false,
	})
}

// BulkItem is the per-recording outcome of a bulk processing run.
type BulkItem struct {
	RecordingID uuid.UUID `json:"recording_id"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// ProcessPending processes up to bulkProcessLimit pending recordings, one
// at a time. A failure is recorded on its item and the loop continues.
func (s *ProcessingService) ProcessPending(ctx context.Context, orgID uuid.UUID) ([]BulkItem, error) {
	pending, err := s.repo.PendingForProcessing(ctx, orgID, bulkProcessLimit)
	if err != nil {
		return nil, err
	}

	items := make([]BulkItem, 0, len(pending))
	for _, rec := range pending {
		item := BulkItem{RecordingID: rec.ID}
		if _, err := s.Process(ctx, rec.ID, orgID); err != nil {
			item.Status = StatusFailed
			item.Error = err.Error()
		} else {
			item.Status = StatusCompleted
		}
		items = append(items, item)
	}
	return items, nil
}
