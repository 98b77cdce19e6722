package recordings

import (
	"context"
	"errors"
	"io"
	"testing"

	"bharatcrm_backend/internal/events"
	"bharatcrm_backend/internal/recordings/ai"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeProcessStore struct {
	recordings map[uuid.UUID]Recording
	pending    []Recording
	configs    []ProviderConfig

	savedTranscript string
	savedAnalysis   *Analysis
	savedArchive    *string
	failedMessage   string
}

func (f *fakeProcessStore) GetByID(_ context.Context, id, _ uuid.UUID) (Recording, error) {
	rec, ok := f.recordings[id]
	if !ok {
		return Recording{}, ErrNotFound
	}
	return rec, nil
}

func (f *fakeProcessStore) MarkProcessing(_ context.Context, id, _ uuid.UUID) (Recording, error) {
	rec, ok := f.recordings[id]
	if !ok {
		return Recording{}, ErrNotFound
	}
	if rec.ProcessingStatus != StatusPending && rec.ProcessingStatus != StatusFailed {
		return Recording{}, ErrNotFound
	}
	rec.ProcessingStatus = StatusProcessing
	f.recordings[id] = rec
	return rec, nil
}

func (f *fakeProcessStore) SaveAnalysis(_ context.Context, id uuid.UUID, transcript string, analysis Analysis, archiveObject *string) error {
	rec := f.recordings[id]
	rec.ProcessingStatus = StatusCompleted
	rec.Transcript = &transcript
	rec.Summary = &analysis.Summary
	f.recordings[id] = rec
	f.savedTranscript = transcript
	f.savedAnalysis = &analysis
	f.savedArchive = archiveObject
	return nil
}

func (f *fakeProcessStore) MarkFailed(_ context.Context, id uuid.UUID, message string) error {
	rec := f.recordings[id]
	rec.ProcessingStatus = StatusFailed
	f.recordings[id] = rec
	f.failedMessage = message
	return nil
}

func (f *fakeProcessStore) PendingForProcessing(_ context.Context, _ uuid.UUID, limit int) ([]Recording, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeProcessStore) ListProviderConfigs(_ context.Context, _ uuid.UUID) ([]ProviderConfig, error) {
	return f.configs, nil
}

type fakeProvider struct {
	name          string
	transcript    string
	completion    string
	transcribeErr error
	completeErr   error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Transcribe(_ context.Context, r io.Reader, _ string) (string, error) {
	io.Copy(io.Discard, r)
	return f.transcript, f.transcribeErr
}

func (f *fakeProvider) Complete(_ context.Context, _ string) (string, error) {
	return f.completion, f.completeErr
}

type fakeSelector struct {
	provider ai.Provider
	err      error
}

func (f *fakeSelector) Select(_ context.Context, _ uuid.UUID) (ai.Provider, error) {
	return f.provider, f.err
}

type fakeArchiver struct {
	objects []string
	err     error
}

func (f *fakeArchiver) Archive(_ context.Context, orgID, recordingID uuid.UUID, fileName string, r io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	io.Copy(io.Discard, r)
	object := orgID.String() + "/" + recordingID.String() + "/" + fileName
	f.objects = append(f.objects, object)
	return object, nil
}

type fakeActivityWriter struct {
	notes []string
}

func (f *fakeActivityWriter) CreateActivity(_ context.Context, _, _ uuid.UUID, _ *uuid.UUID, _, body string) error {
	f.notes = append(f.notes, body)
	return nil
}

type captureBus struct {
	published []events.Event
}

func (b *captureBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *captureBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *captureBus) Subscribe(_ string, _ events.Handler) {}

const goodCompletion = `{"summary": "Lead wants a demo.", "sentiment": "positive", "sentiment_reasoning": "Asked for next steps.", "key_points": ["budget fits"], "action_items": ["book demo"], "next_steps": ["demo Friday"], "quality_scores": {"engagement": 8, "communication": 7, "objection_handling": 6, "closing": 7, "overall": 7}}`

func processTestSetup(rec Recording) (*fakeProcessStore, *ProcessingService, *fakeActivityWriter, *fakeArchiver, *captureBus) {
	store := &fakeProcessStore{recordings: map[uuid.UUID]Recording{rec.ID: rec}}
	integ := &fakeDriveIntegrations{integration: driveTestIntegration()}
	drive := &fakeDriveClient{audio: "raw audio bytes"}
	selector := &fakeSelector{provider: &fakeProvider{name: "groq", transcript: "hello transcript", completion: goodCompletion}}
	archiver := &fakeArchiver{}
	activities := &fakeActivityWriter{}
	bus := &captureBus{}

	svc := NewProcessingService(store, integ, drive, selector, archiver, activities, bus, logger.New("test"))
	return store, svc, activities, archiver, bus
}

func pendingRecording(leadID *uuid.UUID) Recording {
	return Recording{
		ID:               uuid.New(),
		OrganizationID:   uuid.New(),
		DriveFileID:      "file-1",
		FileName:         "+919876543210_2023-08-01.mp3",
		LeadID:           leadID,
		ProcessingStatus: StatusPending,
	}
}

func TestProcessCompletesPipeline(t *testing.T) {
	leadID := uuid.New()
	rec := pendingRecording(&leadID)
	store, svc, activities, archiver, bus := processTestSetup(rec)

	result, err := svc.Process(context.Background(), rec.ID, rec.OrganizationID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.ProcessingStatus != StatusCompleted {
		t.Fatalf("status = %s, want completed", result.ProcessingStatus)
	}
	if store.savedTranscript != "hello transcript" {
		t.Fatalf("transcript = %q", store.savedTranscript)
	}
	if store.savedAnalysis == nil || store.savedAnalysis.Summary != "Lead wants a demo." {
		t.Fatalf("analysis = %+v", store.savedAnalysis)
	}
	if store.savedArchive == nil || len(archiver.objects) != 1 {
		t.Fatal("want audio archived and object recorded")
	}
	if len(activities.notes) != 1 {
		t.Fatalf("activities = %v, want one analysis note on the lead", activities.notes)
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events", len(bus.published))
	}
	processed, ok := bus.published[0].(events.RecordingProcessed)
	if !ok || !processed.Succeeded {
		t.Fatalf("event = %+v, want successful RecordingProcessed", bus.published[0])
	}
}

func TestProcessArchiveFailureIsNotFatal(t *testing.T) {
	rec := pendingRecording(nil)
	store, svc, _, _, _ := processTestSetup(rec)

	failing := &fakeArchiver{err: errors.New("bucket offline")}
	svc.archiver = failing

	if _, err := svc.Process(context.Background(), rec.ID, rec.OrganizationID); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if store.savedAnalysis == nil {
		t.Fatal("analysis must be saved even when archiving fails")
	}
	if store.savedArchive != nil {
		t.Fatal("archive object must stay empty when archiving fails")
	}
}

func TestProcessTranscriptionFailureMarksFailed(t *testing.T) {
	rec := pendingRecording(nil)
	store, svc, _, _, bus := processTestSetup(rec)
	svc.selector = &fakeSelector{provider: &fakeProvider{name: "groq", transcribeErr: errors.New("model overloaded")}}

	if _, err := svc.Process(context.Background(), rec.ID, rec.OrganizationID); err == nil {
		t.Fatal("want error when transcription fails")
	}
	if store.recordings[rec.ID].ProcessingStatus != StatusFailed {
		t.Fatalf("status = %s, want failed", store.recordings[rec.ID].ProcessingStatus)
	}
	if store.failedMessage == "" {
		t.Fatal("want failure message recorded")
	}
	processed, ok := bus.published[0].(events.RecordingProcessed)
	if !ok || processed.Succeeded {
		t.Fatalf("event = %+v, want failed RecordingProcessed", bus.published[0])
	}
}

func TestProcessUnusableAnalysisStillCompletes(t *testing.T) {
	rec := pendingRecording(nil)
	store, svc, _, _, _ := processTestSetup(rec)
	svc.selector = &fakeSelector{provider: &fakeProvider{name: "groq", transcript: "hi", completion: "The call went well overall."}}

	if _, err := svc.Process(context.Background(), rec.ID, rec.OrganizationID); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if store.savedAnalysis == nil || store.savedAnalysis.Sentiment != "neutral" {
		t.Fatalf("analysis = %+v, want neutral defaults stored", store.savedAnalysis)
	}
}

func TestProcessRejectsCompletedRecording(t *testing.T) {
	rec := pendingRecording(nil)
	rec.ProcessingStatus = StatusCompleted
	_, svc, _, _, _ := processTestSetup(rec)

	if _, err := svc.Process(context.Background(), rec.ID, rec.OrganizationID); err == nil {
		t.Fatal("want error for already completed recording")
	}
}

func TestProcessFailedRecordingCanRetry(t *testing.T) {
	rec := pendingRecording(nil)
	rec.ProcessingStatus = StatusFailed
	store, svc, _, _, _ := processTestSetup(rec)

	if _, err := svc.Process(context.Background(), rec.ID, rec.OrganizationID); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if store.recordings[rec.ID].ProcessingStatus != StatusCompleted {
		t.Fatal("failed recording must be retryable")
	}
}

func TestProcessPendingContinuesPastFailures(t *testing.T) {
	good := pendingRecording(nil)
	bad := pendingRecording(nil)
	bad.OrganizationID = good.OrganizationID
	bad.DriveFileID = "file-missing"

	store := &fakeProcessStore{
		recordings: map[uuid.UUID]Recording{good.ID: good, bad.ID: bad},
		pending:    []Recording{bad, good},
	}
	integ := &fakeDriveIntegrations{integration: driveTestIntegration()}
	drive := &fakeDriveClient{audio: "raw"}
	selector := &fakeSelector{provider: &fakeProvider{
		name: "groq", transcript: "t", completion: goodCompletion,
	}}
	svc := NewProcessingService(store, integ, drive, selector, nil, &fakeActivityWriter{}, &captureBus{}, logger.New("test"))

	// The bad item fails at the provider for its run only.
	calls := 0
	svc.selector = selectorFunc(func(ctx context.Context, orgID uuid.UUID) (ai.Provider, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("no provider")
		}
		return selector.provider, nil
	})

	items, err := svc.ProcessPending(context.Background(), good.OrganizationID)
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d", len(items))
	}
	if items[0].Status != StatusFailed || items[0].Error == "" {
		t.Fatalf("items[0] = %+v, want failed with error", items[0])
	}
	if items[1].Status != StatusCompleted {
		t.Fatalf("items[1] = %+v, want completed", items[1])
	}
}

type selectorFunc func(ctx context.Context, orgID uuid.UUID) (ai.Provider, error)

func (f selectorFunc) Select(ctx context.Context, orgID uuid.UUID) (ai.Provider, error) {
	return f(ctx, orgID)
}

func TestConfigSelectorOrder(t *testing.T) {
	model := "custom-model"
	tests := []struct {
		name    string
		configs []ProviderConfig
		want    string
	}{
		{
			name: "default flag wins",
			configs: []ProviderConfig{
				{Provider: ProviderGroq, APIKey: "k1"},
				{Provider: ProviderGemini, APIKey: "k2", IsDefault: true},
			},
			want: "gemini",
		},
		{
			name: "groq preferred without default",
			configs: []ProviderConfig{
				{Provider: ProviderOpenAI, APIKey: "k1"},
				{Provider: ProviderGroq, APIKey: "k2", Model: &model},
			},
			want: "groq",
		},
		{
			name:    "no configs falls back to server key",
			configs: nil,
			want:    "groq",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector := &configSelector{
				store: &fakeProcessStore{configs: tt.configs},
				env:   staticAIConfig{groq: "server-key"},
			}
			provider, err := selector.Select(context.Background(), uuid.New())
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if provider.Name() != tt.want {
				t.Fatalf("provider = %s, want %s", provider.Name(), tt.want)
			}
		})
	}
}

func TestConfigSelectorNoProviderAnywhere(t *testing.T) {
	selector := &configSelector{store: &fakeProcessStore{}, env: staticAIConfig{}}

	if _, err := selector.Select(context.Background(), uuid.New()); err == nil {
		t.Fatal("want error when no provider is configured anywhere")
	}
}

type staticAIConfig struct {
	groq   string
	openai string
	gemini string
}

func (c staticAIConfig) GetGroqAPIKey() string   { return c.groq }
func (c staticAIConfig) GetOpenAIAPIKey() string { return c.openai }
func (c staticAIConfig) GetGeminiAPIKey() string { return c.gemini }
