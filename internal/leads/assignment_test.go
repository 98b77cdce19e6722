package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeAssignmentStore struct {
	// keyed by refType + "/" + refID
	assignments map[string]uuid.UUID
	reps        []SalesRep
	eligible    map[uuid.UUID]bool
	lookupErr   error
}

func (f *fakeAssignmentStore) ActiveAssignee(_ context.Context, _, _ uuid.UUID, refType, refID string) (*uuid.UUID, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if id, ok := f.assignments[refType+"/"+refID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (f *fakeAssignmentStore) EligibleSalesReps(_ context.Context, _ uuid.UUID) ([]SalesRep, error) {
	return f.reps, nil
}

func (f *fakeAssignmentStore) IsEligibleSales(_ context.Context, _, userID uuid.UUID) (bool, error) {
	return f.eligible[userID], nil
}

func testResolver(store AssignmentStore) *Resolver {
	return NewResolver(store, logger.New("test"))
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("bad uuid %q: %v", s, err)
	}
	return id
}

func rep(id uuid.UUID, percent, assigned int, createdAt time.Time) SalesRep {
	return SalesRep{ID: id, AllocationPercent: percent, AssignedLeads: assigned, CreatedAt: createdAt}
}

func TestAssignFormMapping(t *testing.T) {
	orgID := uuid.New()
	integrationID := uuid.New()
	assignee := uuid.New()

	store := &fakeAssignmentStore{
		assignments: map[string]uuid.UUID{"form/F1": assignee},
	}

	decision := testResolver(store).Assign(context.Background(), AssignmentInput{
		IntegrationID:       &integrationID,
		IntegrationMetadata: &IntegrationMetadata{FormID: "F1"},
	}, orgID, nil)

	if decision.Method != MethodForm {
		t.Fatalf("method = %q, want %q", decision.Method, MethodForm)
	}
	if decision.AssignedTo == nil || *decision.AssignedTo != assignee {
		t.Fatalf("assignedTo = %v, want %v", decision.AssignedTo, assignee)
	}
	if decision.CreatedBy == nil || *decision.CreatedBy != assignee {
		t.Fatalf("createdBy = %v, want assignee %v", decision.CreatedBy, assignee)
	}
}

func TestAssignFormWithoutMappingShortCircuits(t *testing.T) {
	// A form-tagged lead with no active form mapping must be forced
	// unassigned even when an active campaign mapping exists.
	orgID := uuid.New()
	integrationID := uuid.New()
	campaignAssignee := uuid.New()

	store := &fakeAssignmentStore{
		assignments: map[string]uuid.UUID{"campaign/C1": campaignAssignee},
		reps:        []SalesRep{rep(uuid.New(), 100, 0, time.Now())},
	}

	decision := testResolver(store).Assign(context.Background(), AssignmentInput{
		IntegrationID:       &integrationID,
		IntegrationMetadata: &IntegrationMetadata{FormID: "F1", CampaignID: "C1"},
	}, orgID, nil)

	if decision.Method != MethodUnassigned {
		t.Fatalf("method = %q, want %q", decision.Method, MethodUnassigned)
	}
	if decision.AssignedTo != nil {
		t.Fatalf("assignedTo = %v, want nil", decision.AssignedTo)
	}
}

func TestAssignCampaignMapping(t *testing.T) {
	orgID := uuid.New()
	integrationID := uuid.New()
	assignee := uuid.New()

	store := &fakeAssignmentStore{
		assignments: map[string]uuid.UUID{"campaign/C1": assignee},
	}

	decision := testResolver(store).Assign(context.Background(), AssignmentInput{
		IntegrationID:       &integrationID,
		IntegrationMetadata: &IntegrationMetadata{CampaignID: "C1"},
	}, orgID, nil)

	if decision.Method != MethodCampaign {
		t.Fatalf("method = %q, want %q", decision.Method, MethodCampaign)
	}
	if decision.AssignedTo == nil || *decision.AssignedTo != assignee {
		t.Fatalf("assignedTo = %v, want %v", decision.AssignedTo, assignee)
	}
}

func TestAssignSalesSelfAssignment(t *testing.T) {
	orgID := uuid.New()
	creator := uuid.New()

	store := &fakeAssignmentStore{
		eligible: map[uuid.UUID]bool{creator: true},
		reps:     []SalesRep{rep(uuid.New(), 0, 5, time.Now())},
	}

	decision := testResolver(store).Assign(context.Background(), AssignmentInput{}, orgID, &creator)

	if decision.Method != MethodSalesAuto {
		t.Fatalf("method = %q, want %q", decision.Method, MethodSalesAuto)
	}
	if decision.AssignedTo == nil || *decision.AssignedTo != creator {
		t.Fatalf("assignedTo = %v, want creator %v", decision.AssignedTo, creator)
	}
}

func TestAssignPercentageFirstLeadGoesToHighestShare(t *testing.T) {
	orgID := uuid.New()
	repA := mustUUID(t, "00000000-0000-0000-0000-00000000000a")
	repB := mustUUID(t, "00000000-0000-0000-0000-00000000000b")
	base := time.Now()

	store := &fakeAssignmentStore{
		reps: []SalesRep{
			rep(repB, 40, 0, base),
			rep(repA, 60, 0, base.Add(time.Minute)),
		},
	}

	decision := testResolver(store).Assign(context.Background(), AssignmentInput{}, orgID, nil)

	if decision.Method != MethodPercentage {
		t.Fatalf("method = %q, want %q", decision.Method, MethodPercentage)
	}
	if decision.AssignedTo == nil || *decision.AssignedTo != repA {
		t.Fatalf("assignedTo = %v, want 60%% rep %v", decision.AssignedTo, repA)
	}
}

func TestAssignPercentagePicksMostUnderServed(t *testing.T) {
	orgID := uuid.New()
	repA := uuid.New() // 60%, already has 4 of 5 (ratio > 1 target share)
	repB := uuid.New() // 40%, has 1

	base := time.Now()
	store := &fakeAssignmentStore{
		reps: []SalesRep{
			rep(repA, 60, 4, base),
			rep(repB, 40, 1, base),
		},
	}

	decision := testResolver(store).Assign(context.Background(), AssignmentInput{}, orgID, nil)

	if decision.Method != MethodPercentage {
		t.Fatalf("method = %q, want %q", decision.Method, MethodPercentage)
	}
	// With 6 leads total after this one: repA target 3.6, ratio 1.11;
	// repB target 2.4, ratio 0.42, so repB is under-served.
	if decision.AssignedTo == nil || *decision.AssignedTo != repB {
		t.Fatalf("assignedTo = %v, want under-served rep %v", decision.AssignedTo, repB)
	}
}

func TestAssignPercentageSumNot100FallsBackToRoundRobin(t *testing.T) {
	orgID := uuid.New()
	repA := uuid.New()
	repB := uuid.New()
	base := time.Now()

	store := &fakeAssignmentStore{
		reps: []SalesRep{
			rep(repA, 60, 3, base),
			rep(repB, 30, 1, base.Add(time.Minute)),
		},
	}

	decision := testResolver(store).Assign(context.Background(), AssignmentInput{}, orgID, nil)

	if decision.Method != MethodRoundRobin {
		t.Fatalf("method = %q, want %q", decision.Method, MethodRoundRobin)
	}
	if decision.AssignedTo == nil || *decision.AssignedTo != repB {
		t.Fatalf("assignedTo = %v, want least-loaded rep %v", decision.AssignedTo, repB)
	}
}

func TestAssignRoundRobinTieBreaksByPoolOrder(t *testing.T) {
	orgID := uuid.New()
	older := uuid.New()
	newer := uuid.New()
	base := time.Now()

	// Pool is ordered by created_at; equal load keeps the earlier rep.
	store := &fakeAssignmentStore{
		reps: []SalesRep{
			rep(older, 0, 2, base),
			rep(newer, 0, 2, base.Add(time.Hour)),
		},
	}

	decision := testResolver(store).Assign(context.Background(), AssignmentInput{}, orgID, nil)

	if decision.AssignedTo == nil || *decision.AssignedTo != older {
		t.Fatalf("assignedTo = %v, want earliest-created rep %v", decision.AssignedTo, older)
	}
}

func TestAssignNoEligibleRepsReturnsUnassigned(t *testing.T) {
	store := &fakeAssignmentStore{}

	decision := testResolver(store).Assign(context.Background(), AssignmentInput{}, uuid.New(), nil)

	if decision.Method != MethodUnassigned {
		t.Fatalf("method = %q, want %q", decision.Method, MethodUnassigned)
	}
	if decision.AssignedTo != nil {
		t.Fatalf("assignedTo = %v, want nil", decision.AssignedTo)
	}
}

func TestAssignLookupErrorContinuesToNextRule(t *testing.T) {
	// A failed form/campaign lookup is "no match", not a hard failure; the
	// resolver should still place the lead with the pool.
	orgID := uuid.New()
	integrationID := uuid.New()
	poolRep := uuid.New()

	store := &fakeAssignmentStore{
		lookupErr: errors.New("connection refused"),
		reps:      []SalesRep{rep(poolRep, 0, 0, time.Now())},
	}

	decision := testResolver(store).Assign(context.Background(), AssignmentInput{
		IntegrationID:       &integrationID,
		IntegrationMetadata: &IntegrationMetadata{FormID: "F1", CampaignID: "C1"},
	}, orgID, nil)

	if decision.Method != MethodRoundRobin {
		t.Fatalf("method = %q, want %q", decision.Method, MethodRoundRobin)
	}
	if decision.AssignedTo == nil || *decision.AssignedTo != poolRep {
		t.Fatalf("assignedTo = %v, want %v", decision.AssignedTo, poolRep)
	}
}
