package leads

import (
	"context"
	"testing"

	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakePhoneLeadStore struct {
	leads     []PhoneLead
	userNames map[uuid.UUID]string
}

func (f *fakePhoneLeadStore) ListWithPhone(_ context.Context, _ uuid.UUID, offset, limit int) ([]PhoneLead, error) {
	if offset >= len(f.leads) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.leads) {
		end = len(f.leads)
	}
	return f.leads[offset:end], nil
}

func (f *fakePhoneLeadStore) UserName(_ context.Context, id, _ uuid.UUID) (string, error) {
	return f.userNames[id], nil
}

func testDetector(store PhoneLeadLister) *Detector {
	return NewDetector(store, logger.New("test"))
}

func TestCheckExactNormalizedMatch(t *testing.T) {
	leadID := uuid.New()
	assignee := uuid.New()
	store := &fakePhoneLeadStore{
		leads: []PhoneLead{
			{ID: uuid.New(), Name: "Other", Phone: "+919811111111"},
			{ID: leadID, Name: "Priya Sharma", Phone: "+919876543210", AssignedTo: &assignee},
		},
		userNames: map[uuid.UUID]string{assignee: "Rahul Verma"},
	}

	// Candidate arrives as a bare 10-digit number; both sides normalize to
	// the same +91 form.
	match, err := testDetector(store).Check(context.Background(), "98765 43210", uuid.New())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if match == nil || match.ID != leadID {
		t.Fatalf("match = %+v, want lead %v", match, leadID)
	}
	if match.AssigneeName != "Rahul Verma" {
		t.Fatalf("assigneeName = %q, want %q", match.AssigneeName, "Rahul Verma")
	}
}

func TestCheckLastTenDigitFallback(t *testing.T) {
	leadID := uuid.New()
	store := &fakePhoneLeadStore{
		leads: []PhoneLead{
			// Stored with a country code normalization cannot reconcile with
			// the candidate's form, but the local suffix matches.
			{ID: leadID, Name: "Anil Kumar", Phone: "+4409876543210"},
		},
	}

	match, err := testDetector(store).Check(context.Background(), "+919876543210", uuid.New())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if match == nil || match.ID != leadID {
		t.Fatalf("match = %+v, want suffix-matched lead %v", match, leadID)
	}
}

func TestCheckExactMatchBeatsEarlierSuffixMatch(t *testing.T) {
	suffixID := uuid.New()
	exactID := uuid.New()
	store := &fakePhoneLeadStore{
		leads: []PhoneLead{
			{ID: suffixID, Name: "Suffix", Phone: "+4409876543210"},
			{ID: exactID, Name: "Exact", Phone: "9876543210"},
		},
	}

	match, err := testDetector(store).Check(context.Background(), "+919876543210", uuid.New())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if match == nil || match.ID != exactID {
		t.Fatalf("match = %+v, want exact-matched lead %v", match, exactID)
	}
}

func TestCheckNoMatch(t *testing.T) {
	store := &fakePhoneLeadStore{
		leads: []PhoneLead{
			{ID: uuid.New(), Name: "Other", Phone: "+919811111111"},
		},
	}

	match, err := testDetector(store).Check(context.Background(), "+919876543210", uuid.New())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if match != nil {
		t.Fatalf("match = %+v, want nil", match)
	}
}

func TestCheckEmptyCandidate(t *testing.T) {
	store := &fakePhoneLeadStore{
		leads: []PhoneLead{{ID: uuid.New(), Name: "Other", Phone: "+919811111111"}},
	}

	match, err := testDetector(store).Check(context.Background(), "  ", uuid.New())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if match != nil {
		t.Fatalf("match = %+v, want nil for empty candidate", match)
	}
}
