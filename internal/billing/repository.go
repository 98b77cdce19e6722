package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("subscription not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const subscriptionColumns = `id, organization_id, plan, status, stripe_customer_id,
	stripe_subscription_id, current_period_end, created_at, updated_at`

func scanSubscription(row pgx.Row) (Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.OrganizationID, &s.Plan, &s.Status, &s.StripeCustomerID,
		&s.StripeSubscriptionID, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, ErrNotFound
	}
	return s, err
}

// GetByOrganization returns the organization's subscription row, creating
// the default free/inactive row on first access.
func (r *Repository) GetByOrganization(ctx context.Context, orgID uuid.UUID) (Subscription, error) {
	sub, err := scanSubscription(r.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE organization_id = $1
	`, orgID))
	if err != ErrNotFound {
		return sub, err
	}

	return scanSubscription(r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (organization_id)
		VALUES ($1)
		ON CONFLICT (organization_id) DO UPDATE SET updated_at = now()
		RETURNING `+subscriptionColumns+`
	`, orgID))
}

func (r *Repository) GetByStripeCustomer(ctx context.Context, customerID string) (Subscription, error) {
	return scanSubscription(r.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE stripe_customer_id = $1
	`, customerID))
}

// SetStripeCustomer records the Stripe customer id created during checkout.
func (r *Repository) SetStripeCustomer(ctx context.Context, orgID uuid.UUID, customerID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE subscriptions SET stripe_customer_id = $2, updated_at = now()
		WHERE organization_id = $1
	`, orgID, customerID)
	return err
}

// UpdateStatus applies a webhook-driven state change.
func (r *Repository) UpdateStatus(ctx context.Context, orgID uuid.UUID, plan, status string, stripeSubscriptionID *string, periodEnd *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET plan = $2, status = $3, stripe_subscription_id = $4, current_period_end = $5, updated_at = now()
		WHERE organization_id = $1
	`, orgID, plan, status, stripeSubscriptionID, periodEnd)
	return err
}
