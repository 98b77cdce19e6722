// Package billing keeps per-organization subscription records in sync with
// Stripe. It is intentionally thin: checkout session creation and webhook
// driven status updates, nothing else.
package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription statuses mirror the Stripe subscription lifecycle we care about.
const (
	StatusInactive = "inactive"
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// Subscription is the billing state of one organization.
type Subscription struct {
	ID                   uuid.UUID  `json:"id"`
	OrganizationID       uuid.UUID  `json:"organization_id"`
	Plan                 string     `json:"plan"`
	Status               string     `json:"status"`
	StripeCustomerID     *string    `json:"-"`
	StripeSubscriptionID *string    `json:"-"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
