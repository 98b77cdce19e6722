package integrations

import (
	"context"
	"errors"
	"testing"

	"bharatcrm_backend/internal/leads"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeSheetReader struct {
	rows [][]interface{}
	err  error
}

func (f *fakeSheetReader) ReadRows(_ context.Context, _ *Integration, _, _ string) ([][]interface{}, error) {
	return f.rows, f.err
}

type fakeOAuthConfig struct{}

func (fakeOAuthConfig) GetGoogleClientID() string     { return "client" }
func (fakeOAuthConfig) GetGoogleClientSecret() string { return "secret" }
func (fakeOAuthConfig) GetGoogleRedirectURL() string  { return "http://localhost/callback" }

func sheetsTestService(store *fakeIntegrationStore, leadStore *fakeLeadStore, reader sheetReader) *SheetsSyncService {
	svc := NewSheetsSyncService(nil, leadStore, &fakeAssigner{}, fakeOAuthConfig{}, nopBus{}, logger.New("test"))
	svc.repo = store
	svc.reader = reader
	return svc
}

func sheetsIntegration() Integration {
	return Integration{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Platform:       PlatformGoogleSheets,
		Settings:       Settings{SpreadsheetID: "sheet-1"},
	}
}

func TestSheetsSyncImportsNewRows(t *testing.T) {
	store := &fakeIntegrationStore{}
	leadStore := &fakeLeadStore{
		// Row 2 was imported by a previous run.
		existing: map[string]leads.Lead{"sheet-1:2": {ID: uuid.New()}},
	}

	reader := &fakeSheetReader{rows: [][]interface{}{
		{"Name", "Phone", "Email", "City"},
		{"Already Imported", "9811111111", "", ""},
		{"New Lead", "9822222222", "new@example.com", "Jaipur"},
	}}

	result, err := sheetsTestService(store, leadStore, reader).Sync(context.Background(), sheetsIntegration())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if result.Created != 1 || result.Skipped != 1 {
		t.Fatalf("result = %+v, want 1 created 1 skipped", result)
	}
	if len(leadStore.created) != 1 {
		t.Fatalf("created = %d leads, want 1", len(leadStore.created))
	}
	params := leadStore.created[0]
	if params.Name != "New Lead" {
		t.Fatalf("name = %q", params.Name)
	}
	if params.Phone == nil || *params.Phone != "+919822222222" {
		t.Fatalf("phone = %v, want normalized", params.Phone)
	}
	if params.ExternalID == nil || *params.ExternalID != "sheet-1:3" {
		t.Fatalf("externalID = %v, want row-keyed sheet-1:3", params.ExternalID)
	}
	if params.CustomFields["city"] != "Jaipur" {
		t.Fatalf("customFields = %+v", params.CustomFields)
	}
	if !store.synced {
		t.Fatal("last_sync_at not updated")
	}
	if len(store.syncLogs) != 1 || store.syncLogs[0].Status != SyncStatusSuccess {
		t.Fatalf("syncLogs = %+v, want one success entry", store.syncLogs)
	}
}

func TestSheetsSyncReadFailureMarksError(t *testing.T) {
	store := &fakeIntegrationStore{}
	reader := &fakeSheetReader{err: errors.New("token expired")}

	_, err := sheetsTestService(store, &fakeLeadStore{}, reader).Sync(context.Background(), sheetsIntegration())
	if err == nil {
		t.Fatal("want error when sheet read fails")
	}
	if store.failedMessage == "" {
		t.Fatal("integration not marked failed")
	}
	if len(store.syncLogs) != 1 || store.syncLogs[0].Status != SyncStatusError {
		t.Fatalf("syncLogs = %+v, want one error entry", store.syncLogs)
	}
}

func TestSheetsSyncRequiresSpreadsheet(t *testing.T) {
	svc := sheetsTestService(&fakeIntegrationStore{}, &fakeLeadStore{}, &fakeSheetReader{})

	integration := sheetsIntegration()
	integration.Settings.SpreadsheetID = ""

	if _, err := svc.Sync(context.Background(), integration); err == nil {
		t.Fatal("want error when no spreadsheet configured")
	}
}

func TestSheetsSyncRejectsOtherPlatforms(t *testing.T) {
	svc := sheetsTestService(&fakeIntegrationStore{}, &fakeLeadStore{}, &fakeSheetReader{})

	integration := sheetsIntegration()
	integration.Platform = PlatformFacebook

	if _, err := svc.Sync(context.Background(), integration); err == nil {
		t.Fatal("want error for non-sheets platform")
	}
}
