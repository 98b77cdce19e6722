package integrations

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"bharatcrm_backend/internal/events"
	"bharatcrm_backend/internal/leads"
	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeIntegrationStore struct {
	byVerifyToken map[string]Integration
	syncLogs      []SyncLog
	synced        bool
	failedMessage string
}

func (f *fakeIntegrationStore) GetByVerifyToken(_ context.Context, token string) (Integration, error) {
	if in, ok := f.byVerifyToken[token]; ok {
		return in, nil
	}
	return Integration{}, ErrNotFound
}

func (f *fakeIntegrationStore) GetByWebhookSecret(_ context.Context, _ string) (Integration, error) {
	return Integration{}, ErrNotFound
}

func (f *fakeIntegrationStore) WriteSyncLog(_ context.Context, log SyncLog) error {
	f.syncLogs = append(f.syncLogs, log)
	return nil
}

func (f *fakeIntegrationStore) MarkSynced(_ context.Context, _ uuid.UUID, _ time.Time) error {
	f.synced = true
	return nil
}

func (f *fakeIntegrationStore) MarkSyncFailed(_ context.Context, _ uuid.UUID, message string) error {
	f.failedMessage = message
	return nil
}

type fakeLeadStore struct {
	existing map[string]leads.Lead
	created  []leads.CreateLeadParams
}

func (f *fakeLeadStore) GetByExternalID(_ context.Context, _ uuid.UUID, externalID string) (leads.Lead, error) {
	if lead, ok := f.existing[externalID]; ok {
		return lead, nil
	}
	return leads.Lead{}, leads.ErrNotFound
}

func (f *fakeLeadStore) Create(_ context.Context, params leads.CreateLeadParams) (leads.Lead, error) {
	f.created = append(f.created, params)
	return leads.Lead{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		Source:         params.Source,
		AssignedTo:     params.AssignedTo,
	}, nil
}

type fakeAssigner struct {
	decision leads.Decision
}

func (f *fakeAssigner) Assign(_ context.Context, _ leads.AssignmentInput, _ uuid.UUID, createdBy *uuid.UUID) leads.Decision {
	d := f.decision
	if d.Method == "" {
		d = leads.Decision{CreatedBy: createdBy, Method: leads.MethodUnassigned}
	}
	return d
}

type fakeFetcher struct {
	details *LeadgenDetails
	err     error
}

func (f *fakeFetcher) FetchLeadgen(_ context.Context, _, _ string) (*LeadgenDetails, error) {
	return f.details, f.err
}

type nopBus struct{}

func (nopBus) Publish(context.Context, events.Event) {}
func (nopBus) PublishSync(context.Context, events.Event) error {
	return nil
}
func (nopBus) Subscribe(string, events.Handler) {}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"page"}`)

	tests := []struct {
		name   string
		secret string
		header string
		want   bool
	}{
		{"valid", "app-secret", sign(body, "app-secret"), true},
		{"wrong secret", "app-secret", sign(body, "other"), false},
		{"missing prefix", "app-secret", "deadbeef", false},
		{"empty header", "app-secret", "", false},
		{"no secret configured skips check", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(body, tt.secret, tt.header); got != tt.want {
				t.Fatalf("VerifySignature = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapFieldData(t *testing.T) {
	mapped := MapFieldData([]LeadgenField{
		{Name: "first_name", Values: []string{"Priya"}},
		{Name: "full_name", Values: []string{"Priya Sharma"}},
		{Name: "email", Values: []string{"priya@example.com"}},
		{Name: "phone_number", Values: []string{"9876543210"}},
		{Name: "company_name", Values: []string{"Acme Pvt Ltd"}},
		{Name: "city", Values: []string{"Pune"}},
	})

	if mapped.Name != "Priya Sharma" {
		t.Fatalf("name = %q, want full_name to win over first_name", mapped.Name)
	}
	if mapped.Email == nil || *mapped.Email != "priya@example.com" {
		t.Fatalf("email = %v", mapped.Email)
	}
	if mapped.Phone == nil || *mapped.Phone != "+919876543210" {
		t.Fatalf("phone = %v, want normalized +91 form", mapped.Phone)
	}
	if mapped.Extras["company"] != "Acme Pvt Ltd" || mapped.Extras["city"] != "Pune" {
		t.Fatalf("extras = %+v", mapped.Extras)
	}
}

func TestMapFieldDataDefaultsName(t *testing.T) {
	mapped := MapFieldData([]LeadgenField{
		{Name: "email", Values: []string{"x@example.com"}},
	})
	if mapped.Name != "Unknown" {
		t.Fatalf("name = %q, want Unknown default", mapped.Name)
	}
}

func webhookBody(leadgenID string) []byte {
	return []byte(`{
		"object": "page",
		"entry": [{"id": "123", "changes": [{"field": "leadgen", "value": {"leadgen_id": "` + leadgenID + `", "page_id": "123", "form_id": "F1"}}]}]
	}`)
}

func TestProcessCreatesLead(t *testing.T) {
	store := &fakeIntegrationStore{}
	leadStore := &fakeLeadStore{}
	assignee := uuid.New()

	svc := NewWebhookService(store, leadStore,
		&fakeAssigner{decision: leads.Decision{AssignedTo: &assignee, CreatedBy: &assignee, Method: leads.MethodForm}},
		&fakeFetcher{details: &LeadgenDetails{
			ID:         "LG1",
			FieldData:  []LeadgenField{{Name: "full_name", Values: []string{"Amit"}}, {Name: "phone", Values: []string{"9811111111"}}},
			FormID:     "F1",
			CampaignID: "C1",
		}},
		nopBus{}, logger.New("test"))

	integration := Integration{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Platform:       PlatformFacebook,
		Credentials:    Credentials{AccessToken: "token"},
	}

	result, err := svc.Process(context.Background(), integration, webhookBody("LG1"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Created != 1 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want 1 created", result)
	}
	if len(leadStore.created) != 1 {
		t.Fatalf("created = %d leads, want 1", len(leadStore.created))
	}

	params := leadStore.created[0]
	if params.ExternalID == nil || *params.ExternalID != "LG1" {
		t.Fatalf("externalID = %v, want LG1", params.ExternalID)
	}
	if params.AssignedTo == nil || *params.AssignedTo != assignee {
		t.Fatalf("assignedTo = %v, want %v", params.AssignedTo, assignee)
	}
	if params.Source != PlatformFacebook {
		t.Fatalf("source = %q, want %q", params.Source, PlatformFacebook)
	}
	if len(store.syncLogs) != 1 || store.syncLogs[0].Status != SyncStatusSuccess {
		t.Fatalf("syncLogs = %+v, want one success entry", store.syncLogs)
	}
	if !store.synced {
		t.Fatal("last_sync_at not updated")
	}
}

func TestProcessReplayedLeadgenSkips(t *testing.T) {
	store := &fakeIntegrationStore{}
	leadStore := &fakeLeadStore{
		existing: map[string]leads.Lead{"LG1": {ID: uuid.New()}},
	}

	svc := NewWebhookService(store, leadStore, &fakeAssigner{}, &fakeFetcher{}, nopBus{}, logger.New("test"))

	result, err := svc.Process(context.Background(), Integration{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Platform:       PlatformFacebook,
	}, webhookBody("LG1"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.Created != 0 || result.Skipped != 1 {
		t.Fatalf("result = %+v, want replay skipped", result)
	}
	if result.Message != "Lead already exists" {
		t.Fatalf("message = %q, want replay message", result.Message)
	}
	if len(leadStore.created) != 0 {
		t.Fatalf("created = %d leads, want none on replay", len(leadStore.created))
	}
	if len(store.syncLogs) != 1 || store.syncLogs[0].Status != SyncStatusSuccess || store.syncLogs[0].LeadsCreated != 0 {
		t.Fatalf("syncLogs = %+v, want success with zero created", store.syncLogs)
	}
}

func TestProcessRejectsDeliveryWithoutLeadgenID(t *testing.T) {
	store := &fakeIntegrationStore{}
	leadStore := &fakeLeadStore{}
	svc := NewWebhookService(store, leadStore, &fakeAssigner{}, &fakeFetcher{}, nopBus{}, logger.New("test"))

	integration := Integration{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Platform:       PlatformFacebook,
	}

	bodies := map[string][]byte{
		"empty leadgen_id":   webhookBody(""),
		"no leadgen changes": []byte(`{"object":"page","entry":[{"id":"123","changes":[{"field":"page_update","value":{}}]}]}`),
		"no entries":         []byte(`{"object":"page","entry":[]}`),
	}

	for name, body := range bodies {
		store.syncLogs = nil
		store.synced = false

		_, err := svc.Process(context.Background(), integration, body)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: err = %v, want validation error", name, err)
		}
		if len(leadStore.created) != 0 {
			t.Fatalf("%s: created = %d leads, want none", name, len(leadStore.created))
		}
		if len(store.syncLogs) != 1 || store.syncLogs[0].Status != SyncStatusError {
			t.Fatalf("%s: syncLogs = %+v, want one error entry", name, store.syncLogs)
		}
		if store.synced {
			t.Fatalf("%s: last_sync_at must not update", name)
		}
	}
}

func TestProcessFetchFailureWritesErrorLog(t *testing.T) {
	store := &fakeIntegrationStore{}
	svc := NewWebhookService(store, &fakeLeadStore{}, &fakeAssigner{},
		&fakeFetcher{err: errors.New("graph down")}, nopBus{}, logger.New("test"))

	_, err := svc.Process(context.Background(), Integration{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Platform:       PlatformFacebook,
	}, webhookBody("LG1"))
	if err == nil {
		t.Fatal("want error when Graph fetch fails")
	}
	if len(store.syncLogs) != 1 || store.syncLogs[0].Status != SyncStatusError {
		t.Fatalf("syncLogs = %+v, want one error entry", store.syncLogs)
	}
	if store.synced {
		t.Fatal("last_sync_at must not update on failure")
	}
}

func TestVerifyHandshake(t *testing.T) {
	store := &fakeIntegrationStore{
		byVerifyToken: map[string]Integration{"tok": {ID: uuid.New()}},
	}
	svc := NewWebhookService(store, &fakeLeadStore{}, &fakeAssigner{}, &fakeFetcher{}, nopBus{}, logger.New("test"))

	challenge, err := svc.VerifyHandshake(context.Background(), "subscribe", "tok", "1234")
	if err != nil {
		t.Fatalf("VerifyHandshake: %v", err)
	}
	if challenge != "1234" {
		t.Fatalf("challenge = %q, want echoed back", challenge)
	}

	if _, err := svc.VerifyHandshake(context.Background(), "subscribe", "wrong", "1234"); err == nil {
		t.Fatal("want error for unknown verify token")
	}
	if _, err := svc.VerifyHandshake(context.Background(), "unsubscribe", "tok", "1234"); err == nil {
		t.Fatal("want error for wrong mode")
	}
}
