package recordings

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"bharatcrm_backend/internal/integrations"
	"bharatcrm_backend/internal/leads"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRecordingStore struct {
	imported   map[string]bool
	tombstoned map[string]bool
	created    []CreateRecordingParams
	createErr  error
}

func (f *fakeRecordingStore) ImportedFileIDs(_ context.Context, _ uuid.UUID) (map[string]bool, error) {
	if f.imported == nil {
		return map[string]bool{}, nil
	}
	return f.imported, nil
}

func (f *fakeRecordingStore) TombstonedFileIDs(_ context.Context, _ uuid.UUID) (map[string]bool, error) {
	if f.tombstoned == nil {
		return map[string]bool{}, nil
	}
	return f.tombstoned, nil
}

func (f *fakeRecordingStore) Create(_ context.Context, params CreateRecordingParams) (Recording, error) {
	if f.createErr != nil {
		return Recording{}, f.createErr
	}
	f.created = append(f.created, params)
	return Recording{ID: uuid.New(), DriveFileID: params.DriveFileID, ProcessingStatus: StatusPending}, nil
}

type fakeLeadSource struct {
	leads []leads.PhoneLead
}

func (f *fakeLeadSource) ListWithPhone(_ context.Context, _ uuid.UUID, offset, limit int) ([]leads.PhoneLead, error) {
	if offset >= len(f.leads) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.leads) {
		end = len(f.leads)
	}
	return f.leads[offset:end], nil
}

type fakeDriveIntegrations struct {
	integration *integrations.Integration
	synced      []uuid.UUID
}

func (f *fakeDriveIntegrations) GetByPlatform(_ context.Context, _ uuid.UUID, _ string) (integrations.Integration, error) {
	if f.integration == nil {
		return integrations.Integration{}, integrations.ErrNotFound
	}
	return *f.integration, nil
}

func (f *fakeDriveIntegrations) UpdateCredentials(_ context.Context, _ uuid.UUID, _ integrations.Credentials) error {
	return nil
}

func (f *fakeDriveIntegrations) MarkSynced(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.synced = append(f.synced, id)
	return nil
}

type fakeDriveClient struct {
	files   []DriveFile
	listErr error
	audio   string
}

func (f *fakeDriveClient) ListFolder(_ context.Context, _ *integrations.Integration, _ string) ([]DriveFile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

func (f *fakeDriveClient) Download(_ context.Context, _ *integrations.Integration, _ string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.audio)), nil
}

func driveTestIntegration() *integrations.Integration {
	return &integrations.Integration{
		ID:       uuid.New(),
		Platform: integrations.PlatformGoogle,
		Settings: integrations.Settings{FolderID: "folder-1"},
	}
}

func TestSyncImportsAndMatchesLeads(t *testing.T) {
	leadID := uuid.New()
	store := &fakeRecordingStore{imported: map[string]bool{"file-old": true}}
	source := &fakeLeadSource{leads: []leads.PhoneLead{
		{ID: leadID, Name: "Priya", Phone: "9876543210"},
	}}
	drive := &fakeDriveClient{files: []DriveFile{
		{ID: "file-old", Name: "+919876543210_2023-08-01.mp3"},
		{ID: "file-new", Name: "call_+919876543210_2023-08-01.mp3", MimeType: "audio/mpeg"},
		{ID: "file-nophone", Name: "team_meeting.mp3", CreatedTime: time.Date(2023, 8, 2, 10, 0, 0, 0, time.UTC)},
	}}
	integ := &fakeDriveIntegrations{integration: driveTestIntegration()}

	svc := NewSyncService(store, source, integ, drive, logger.New("test"))
	result, err := svc.Sync(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if result.Imported != 2 || result.Skipped != 1 || result.Unmatched != 1 {
		t.Fatalf("result = %+v, want 2 imported, 1 skipped, 1 unmatched", result)
	}
	if len(store.created) != 2 {
		t.Fatalf("created %d recordings", len(store.created))
	}

	matched := store.created[0]
	if matched.LeadID == nil || *matched.LeadID != leadID {
		t.Fatalf("matched.LeadID = %v, want %s", matched.LeadID, leadID)
	}
	if matched.PhoneNumber == nil || *matched.PhoneNumber != "+919876543210" {
		t.Fatalf("matched.PhoneNumber = %v", matched.PhoneNumber)
	}
	if matched.RecordingDate == nil || !matched.RecordingDate.Equal(time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("matched.RecordingDate = %v, want filename date", matched.RecordingDate)
	}

	unmatched := store.created[1]
	if unmatched.LeadID != nil {
		t.Fatalf("unmatched.LeadID = %v, want nil", unmatched.LeadID)
	}
	// No date in the filename, so the Drive created time is used.
	if unmatched.RecordingDate == nil || !unmatched.RecordingDate.Equal(time.Date(2023, 8, 2, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unmatched.RecordingDate = %v, want Drive created time", unmatched.RecordingDate)
	}

	if len(integ.synced) != 1 {
		t.Fatal("want integration marked synced")
	}
}

func TestSyncNeverReimportsTombstonedFiles(t *testing.T) {
	store := &fakeRecordingStore{tombstoned: map[string]bool{"file-deleted": true}}
	drive := &fakeDriveClient{files: []DriveFile{
		{ID: "file-deleted", Name: "+919876543210.mp3"},
	}}
	integ := &fakeDriveIntegrations{integration: driveTestIntegration()}

	svc := NewSyncService(store, &fakeLeadSource{}, integ, drive, logger.New("test"))

	// The file stays in the folder; repeated scans must keep skipping it.
	for i := 0; i < 3; i++ {
		result, err := svc.Sync(context.Background(), uuid.New())
		if err != nil {
			t.Fatalf("Sync #%d: %v", i, err)
		}
		if result.Imported != 0 || result.Skipped != 1 {
			t.Fatalf("Sync #%d result = %+v, want tombstoned file skipped", i, result)
		}
	}
	if len(store.created) != 0 {
		t.Fatalf("created %d recordings from a tombstoned file", len(store.created))
	}
}

func TestSyncRequiresDriveConnection(t *testing.T) {
	svc := NewSyncService(&fakeRecordingStore{}, &fakeLeadSource{}, &fakeDriveIntegrations{}, &fakeDriveClient{}, logger.New("test"))

	if _, err := svc.Sync(context.Background(), uuid.New()); err == nil {
		t.Fatal("want error when no Google integration exists")
	}
}

func TestSyncRequiresFolderSelection(t *testing.T) {
	integration := driveTestIntegration()
	integration.Settings.FolderID = ""
	integ := &fakeDriveIntegrations{integration: integration}

	svc := NewSyncService(&fakeRecordingStore{}, &fakeLeadSource{}, integ, &fakeDriveClient{}, logger.New("test"))

	if _, err := svc.Sync(context.Background(), uuid.New()); err == nil {
		t.Fatal("want error when no folder is configured")
	}
}

func TestSyncContinuesPastInsertFailures(t *testing.T) {
	store := &fakeRecordingStore{createErr: errors.New("insert failed")}
	drive := &fakeDriveClient{files: []DriveFile{
		{ID: "file-1", Name: "+919876543210.mp3"},
	}}
	integ := &fakeDriveIntegrations{integration: driveTestIntegration()}

	svc := NewSyncService(store, &fakeLeadSource{}, integ, drive, logger.New("test"))
	result, err := svc.Sync(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Imported != 0 || result.Skipped != 1 {
		t.Fatalf("result = %+v, want failed insert counted as skipped", result)
	}
}
