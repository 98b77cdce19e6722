package leads

import (
	"context"
	"strings"
	"testing"

	"bharatcrm_backend/internal/events"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeServiceStore struct {
	created []CreateLeadParams
}

func (f *fakeServiceStore) Create(_ context.Context, params CreateLeadParams) (Lead, error) {
	f.created = append(f.created, params)
	return Lead{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		Source:         params.Source,
		AssignedTo:     params.AssignedTo,
	}, nil
}

func (f *fakeServiceStore) GetByID(_ context.Context, _, _ uuid.UUID) (Lead, error) {
	return Lead{}, ErrNotFound
}

func (f *fakeServiceStore) List(_ context.Context, _ uuid.UUID, _ ListParams) ([]Lead, error) {
	return nil, nil
}

func (f *fakeServiceStore) UpdateStatus(_ context.Context, _, _ uuid.UUID, _ string) (Lead, error) {
	return Lead{}, ErrNotFound
}

func (f *fakeServiceStore) Reassign(_ context.Context, _, _ uuid.UUID, _ *uuid.UUID, _ string) (Lead, error) {
	return Lead{}, ErrNotFound
}

func (f *fakeServiceStore) IsEligibleSales(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeServiceStore) CreateActivity(_ context.Context, _, _ uuid.UUID, _ *uuid.UUID, _, _ string) error {
	return nil
}

func (f *fakeServiceStore) ListActivities(_ context.Context, _, _ uuid.UUID) ([]Activity, error) {
	return nil, nil
}

type noopBus struct{}

func (noopBus) Publish(context.Context, events.Event) {}
func (noopBus) PublishSync(context.Context, events.Event) error {
	return nil
}
func (noopBus) Subscribe(string, events.Handler) {}

func TestPreviewSplitsNewAndDuplicateRows(t *testing.T) {
	existingID := uuid.New()
	store := &fakePhoneLeadStore{
		leads: []PhoneLead{
			{ID: existingID, Name: "Existing Lead", Phone: "+919876543210"},
		},
	}
	importer := NewImporter(NewDetector(store, logger.New("test")))

	csvBody := strings.Join([]string{
		"Name,Email,Phone,City",
		"Fresh Lead,fresh@example.com,9811111111,Mumbai",
		"Dup Lead,dup@example.com,9876543210,Delhi",
		",,,",
	}, "\n")

	preview, err := importer.Preview(context.Background(), strings.NewReader(csvBody), uuid.New())
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	if preview.TotalRows != 3 {
		t.Fatalf("totalRows = %d, want 3", preview.TotalRows)
	}
	if len(preview.NewLeads) != 1 || preview.NewLeads[0].Name != "Fresh Lead" {
		t.Fatalf("newLeads = %+v, want single Fresh Lead", preview.NewLeads)
	}
	if preview.NewLeads[0].Extras["city"] != "Mumbai" {
		t.Fatalf("extras = %+v, want city captured", preview.NewLeads[0].Extras)
	}
	if len(preview.Duplicates) != 1 || preview.Duplicates[0].Existing.ID != existingID {
		t.Fatalf("duplicates = %+v, want one against %v", preview.Duplicates, existingID)
	}
	if preview.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1 blank row", preview.Skipped)
	}
}

func TestPreviewDeduplicatesWithinFile(t *testing.T) {
	importer := NewImporter(NewDetector(&fakePhoneLeadStore{}, logger.New("test")))

	csvBody := strings.Join([]string{
		"name,phone",
		"First,9811111111",
		"Same Number Again,+919811111111",
	}, "\n")

	preview, err := importer.Preview(context.Background(), strings.NewReader(csvBody), uuid.New())
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(preview.NewLeads) != 1 {
		t.Fatalf("newLeads = %+v, want one; in-file repeat should be skipped", preview.NewLeads)
	}
	if preview.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", preview.Skipped)
	}
}

func TestPreviewRejectsHeaderlessCSV(t *testing.T) {
	importer := NewImporter(NewDetector(&fakePhoneLeadStore{}, logger.New("test")))

	_, err := importer.Preview(context.Background(), strings.NewReader("foo,bar\n1,2\n"), uuid.New())
	if err == nil {
		t.Fatal("want error for CSV without name or phone column")
	}
}

func TestPreviewEmptyFile(t *testing.T) {
	importer := NewImporter(NewDetector(&fakePhoneLeadStore{}, logger.New("test")))

	_, err := importer.Preview(context.Background(), strings.NewReader(""), uuid.New())
	if err == nil {
		t.Fatal("want error for empty CSV")
	}
}

func TestImportConfirmSkipsExcludedDuplicates(t *testing.T) {
	phoneStore := &fakePhoneLeadStore{
		leads: []PhoneLead{
			{ID: uuid.New(), Name: "Existing Lead", Phone: "+919876543210"},
		},
	}
	detector := NewDetector(phoneStore, logger.New("test"))
	store := &fakeServiceStore{}
	svc := NewService(store, testResolver(&fakeAssignmentStore{}), detector, noopBus{}, logger.New("test"))

	csvBody := strings.Join([]string{
		"Name,Email,Phone",
		"Fresh Lead,fresh@example.com,9811111111",
		"Dup Lead,dup@example.com,9876543210",
	}, "\n")

	orgID := uuid.New()
	preview, err := svc.ImportPreview(context.Background(), strings.NewReader(csvBody), orgID)
	if err != nil {
		t.Fatalf("ImportPreview: %v", err)
	}
	if len(preview.NewLeads) != 1 || len(preview.Duplicates) != 1 {
		t.Fatalf("preview = %+v, want 1 new and 1 duplicate", preview)
	}

	// The admin leaves the duplicate unchecked, so only the new row lands.
	actor := uuid.New()
	result, err := svc.ImportConfirm(context.Background(), ConfirmParams{
		Rows:              preview.NewLeads,
		SkippedDuplicates: len(preview.Duplicates),
	}, orgID, actor)
	if err != nil {
		t.Fatalf("ImportConfirm: %v", err)
	}

	if result.Created != 1 || result.Skipped != 1 {
		t.Fatalf("result = %+v, want 1 created 1 skipped", result)
	}
	if len(store.created) != 1 {
		t.Fatalf("created = %d leads, want 1", len(store.created))
	}
	params := store.created[0]
	if params.Name != "Fresh Lead" || params.Source != "csv_import" {
		t.Fatalf("params = %+v, want Fresh Lead via csv_import", params)
	}
	if params.Phone == nil || *params.Phone != "+919811111111" {
		t.Fatalf("phone = %v, want normalized +91 form", params.Phone)
	}
	if params.CreatedBy == nil || *params.CreatedBy != actor {
		t.Fatalf("createdBy = %v, want importing admin", params.CreatedBy)
	}
}

func TestImportConfirmCreatesIncludedDuplicates(t *testing.T) {
	store := &fakeServiceStore{}
	svc := NewService(store, testResolver(&fakeAssignmentStore{}), NewDetector(&fakePhoneLeadStore{}, logger.New("test")), noopBus{}, logger.New("test"))

	result, err := svc.ImportConfirm(context.Background(), ConfirmParams{
		Rows: []ImportRow{{Row: 2, Name: "Fresh Lead", Phone: "9811111111"}},
		IncludedDuplicates: []ImportRow{
			{Row: 3, Name: "Dup Lead", Phone: "9876543210"},
		},
	}, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("ImportConfirm: %v", err)
	}
	if result.Created != 2 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want both rows created", result)
	}
}
