package leads

import (
	"bytes"
	"context"

	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Assignment ref types in campaign_assignments.
const (
	RefTypeForm     = "form"
	RefTypeCampaign = "campaign"
)

// AssignmentStore is the read surface the resolver needs. Satisfied by
// *Repository; tests substitute fakes.
type AssignmentStore interface {
	// ActiveAssignee returns the user behind an active campaign/form mapping,
	// or nil when no active mapping exists.
	ActiveAssignee(ctx context.Context, orgID, integrationID uuid.UUID, refType, refID string) (*uuid.UUID, error)
	// EligibleSalesReps returns the auto-assignment pool ordered by created_at.
	EligibleSalesReps(ctx context.Context, orgID uuid.UUID) ([]SalesRep, error)
	// IsEligibleSales reports whether the user can self-assign leads.
	IsEligibleSales(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// AssignmentInput is the subset of a not-yet-persisted lead the resolver
// looks at.
type AssignmentInput struct {
	IntegrationID       *uuid.UUID
	IntegrationMetadata *IntegrationMetadata
}

// Decision is the resolver output: who owns the lead and how that was decided.
type Decision struct {
	AssignedTo *uuid.UUID
	CreatedBy  *uuid.UUID
	Method     string
}

// Resolver decides lead ownership using a strict priority order:
// form mapping, campaign mapping, sales self-assignment, percentage-weighted
// pool, round-robin pool, unassigned. It is a pure decision function over
// current database state; the only side effects are reads.
type Resolver struct {
	store AssignmentStore
	log   *logger.Logger
}

func NewResolver(store AssignmentStore, log *logger.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// Assign resolves ownership for a new or imported lead. createdBy is the
// user who manually created the lead, nil for integration-sourced leads.
//
// Assign never returns an error: a failed lookup is treated as "no match,
// continue to the next rule" because absence of routing data is a normal
// state, not a failure.
func (r *Resolver) Assign(ctx context.Context, input AssignmentInput, orgID uuid.UUID, createdBy *uuid.UUID) Decision {
	meta := input.IntegrationMetadata

	// Rule 1: form assignment. A form-tagged lead with no active mapping is
	// deliberately forced unassigned instead of falling through: routing for
	// that form was expected to be configured, and silently round-robining
	// those leads would misroute them.
	if input.IntegrationID != nil && meta != nil && meta.FormID != "" {
		assignee, err := r.store.ActiveAssignee(ctx, orgID, *input.IntegrationID, RefTypeForm, meta.FormID)
		if err != nil {
			r.log.Warn("assignment: form lookup failed, continuing", "error", err, "formId", meta.FormID)
		} else if assignee != nil {
			return Decision{AssignedTo: assignee, CreatedBy: assignee, Method: MethodForm}
		} else {
			return Decision{AssignedTo: nil, CreatedBy: createdBy, Method: MethodUnassigned}
		}
	}

	// Rule 2: campaign assignment.
	if input.IntegrationID != nil && meta != nil && meta.CampaignID != "" {
		assignee, err := r.store.ActiveAssignee(ctx, orgID, *input.IntegrationID, RefTypeCampaign, meta.CampaignID)
		if err != nil {
			r.log.Warn("assignment: campaign lookup failed, continuing", "error", err, "campaignId", meta.CampaignID)
		} else if assignee != nil {
			return Decision{AssignedTo: assignee, CreatedBy: assignee, Method: MethodCampaign}
		}
	}

	// Rule 3: sales self-assignment for manually created leads.
	if createdBy != nil {
		eligible, err := r.store.IsEligibleSales(ctx, orgID, *createdBy)
		if err != nil {
			r.log.Warn("assignment: self-assignment lookup failed, continuing", "error", err)
		} else if eligible {
			return Decision{AssignedTo: createdBy, CreatedBy: createdBy, Method: MethodSalesAuto}
		}
	}

	reps, err := r.store.EligibleSalesReps(ctx, orgID)
	if err != nil {
		r.log.Warn("assignment: sales pool lookup failed", "error", err)
		reps = nil
	}

	// Rule 6: no eligible reps at all.
	if len(reps) == 0 {
		return Decision{AssignedTo: nil, CreatedBy: createdBy, Method: MethodUnassigned}
	}

	// Rule 4: percentage-weighted assignment, only when the pool's
	// allocations sum to exactly 100.
	if rep, ok := pickByPercentage(reps); ok {
		return Decision{AssignedTo: &rep.ID, CreatedBy: createdBy, Method: MethodPercentage}
	}

	// Rule 5: round-robin fallback. Least-loaded rep, ties broken by the
	// pool's created_at ordering.
	rep := pickRoundRobin(reps)
	return Decision{AssignedTo: &rep.ID, CreatedBy: createdBy, Method: MethodRoundRobin}
}

// pickByPercentage selects the most under-served rep relative to their
// allocation quota. Returns false when allocations do not sum to 100.
func pickByPercentage(reps []SalesRep) (SalesRep, bool) {
	total := 0
	for _, rep := range reps {
		total += rep.AllocationPercent
	}
	if total != 100 {
		return SalesRep{}, false
	}

	assigned := 0
	for _, rep := range reps {
		assigned += rep.AssignedLeads
	}

	// First lead ever goes to the highest-percentage rep; ties broken by
	// lowest user id for determinism.
	if assigned == 0 {
		best := reps[0]
		for _, rep := range reps[1:] {
			if rep.AllocationPercent > best.AllocationPercent ||
				(rep.AllocationPercent == best.AllocationPercent && lessUUID(rep.ID, best.ID)) {
				best = rep
			}
		}
		return best, true
	}

	// Each rep's target share of the pool once this lead is placed. The rep
	// furthest below their quota (lowest assigned/target ratio) wins; ratio
	// ties broken by lowest user id.
	upcoming := float64(assigned + 1)
	best := reps[0]
	bestRatio := ratioFor(best, upcoming)
	for _, rep := range reps[1:] {
		ratio := ratioFor(rep, upcoming)
		if ratio < bestRatio || (ratio == bestRatio && lessUUID(rep.ID, best.ID)) {
			best = rep
			bestRatio = ratio
		}
	}
	return best, true
}

func ratioFor(rep SalesRep, upcoming float64) float64 {
	target := float64(rep.AllocationPercent) / 100 * upcoming
	if target <= 0 {
		// Zero-percent reps never win while anyone has a real quota.
		return 1e18
	}
	return float64(rep.AssignedLeads) / target
}

func pickRoundRobin(reps []SalesRep) SalesRep {
	best := reps[0]
	for _, rep := range reps[1:] {
		if rep.AssignedLeads < best.AssignedLeads {
			best = rep
		}
	}
	return best
}

func lessUUID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
