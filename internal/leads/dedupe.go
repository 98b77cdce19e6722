package leads

import (
	"context"

	"bharatcrm_backend/platform/logger"
	"bharatcrm_backend/platform/phone"

	"github.com/google/uuid"
)

// dedupeBatchSize is the page size used when scanning the full lead set.
// Batched paging sidesteps per-query row caps.
const dedupeBatchSize = 1000

// PhoneLeadLister is the read surface the duplicate detector needs.
// Satisfied by *Repository; tests substitute fakes.
type PhoneLeadLister interface {
	ListWithPhone(ctx context.Context, orgID uuid.UUID, offset, limit int) ([]PhoneLead, error)
	UserName(ctx context.Context, id, orgID uuid.UUID) (string, error)
}

// DuplicateMatch describes an existing lead matching a candidate phone number.
type DuplicateMatch struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	AssignedTo   *uuid.UUID `json:"assigned_to,omitempty"`
	AssigneeName string     `json:"assignee_name,omitempty"`
}

// Detector finds existing leads with the same phone number before a new
// lead is created in manual/UI flows. Webhook ingestion does not use it;
// replay suppression there is keyed on external_id instead.
type Detector struct {
	store PhoneLeadLister
	log   *logger.Logger
}

func NewDetector(store PhoneLeadLister, log *logger.Logger) *Detector {
	return &Detector{store: store, log: log}
}

// Check scans every lead of the organization with a phone number for a
// match. Exact normalized match is preferred; a last-10-digit match is the
// safety net against inconsistent country-code formatting. Returns nil when
// no match exists.
//
// The last-10-digit fallback can false-positive on distinct international
// numbers sharing a local suffix. Known soft spot, kept for parity with the
// matching behavior users already rely on.
func (d *Detector) Check(ctx context.Context, candidate string, orgID uuid.UUID) (*DuplicateMatch, error) {
	normalized := phone.Normalize(candidate)
	if normalized == "" {
		return nil, nil
	}
	candidateSuffix := phone.LastTenDigits(normalized)

	var suffixMatch *PhoneLead

	for offset := 0; ; offset += dedupeBatchSize {
		batch, err := d.store.ListWithPhone(ctx, orgID, offset, dedupeBatchSize)
		if err != nil {
			return nil, err
		}

		for i := range batch {
			lead := batch[i]
			leadNorm := phone.Normalize(lead.Phone)
			if leadNorm == normalized {
				return d.annotate(ctx, orgID, lead), nil
			}
			if suffixMatch == nil && candidateSuffix != "" && phone.LastTenDigits(leadNorm) == candidateSuffix {
				d.log.Debug("duplicate check: last-10-digit fallback match",
					"candidate", normalized, "existing", leadNorm, "leadId", lead.ID)
				suffixMatch = &batch[i]
			}
		}

		if len(batch) < dedupeBatchSize {
			break
		}
	}

	if suffixMatch != nil {
		return d.annotate(ctx, orgID, *suffixMatch), nil
	}
	return nil, nil
}

func (d *Detector) annotate(ctx context.Context, orgID uuid.UUID, lead PhoneLead) *DuplicateMatch {
	match := &DuplicateMatch{
		ID:         lead.ID,
		Name:       lead.Name,
		Phone:      lead.Phone,
		AssignedTo: lead.AssignedTo,
	}
	if lead.AssignedTo != nil {
		name, err := d.store.UserName(ctx, *lead.AssignedTo, orgID)
		if err != nil {
			d.log.Warn("duplicate check: failed to resolve assignee name", "error", err)
		} else {
			match.AssigneeName = name
		}
	}
	return match
}
