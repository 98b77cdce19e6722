package billing

import (
	"context"
	"encoding/json"
	"time"

	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/webhook"
)

// webhookTolerance absorbs clock drift between Stripe and this server.
const webhookTolerance = 5 * time.Minute

type Service struct {
	repo *Repository
	cfg  config.StripeConfig
	log  *logger.Logger
}

func NewService(repo *Repository, cfg config.StripeConfig, log *logger.Logger) *Service {
	stripe.Key = cfg.GetStripeSecretKey()
	return &Service{repo: repo, cfg: cfg, log: log}
}

func (s *Service) GetSubscription(ctx context.Context, orgID uuid.UUID) (Subscription, error) {
	return s.repo.GetByOrganization(ctx, orgID)
}

// CheckoutInput is the payload for starting a Stripe checkout.
type CheckoutInput struct {
	PriceID    string `json:"price_id" validate:"required"`
	Plan       string `json:"plan" validate:"required"`
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

// CreateCheckoutSession starts a Stripe subscription checkout for the
// organization, creating the Stripe customer on first use.
func (s *Service) CreateCheckoutSession(ctx context.Context, input CheckoutInput, orgID uuid.UUID, email string) (string, error) {
	if !s.cfg.IsBillingEnabled() {
		return "", apperr.Validation("billing is not enabled on this server")
	}

	sub, err := s.repo.GetByOrganization(ctx, orgID)
	if err != nil {
		return "", err
	}

	customerID, err := s.ensureCustomer(ctx, sub, orgID, email)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(input.PriceID), Quantity: stripe.Int64(1)},
		},
		Metadata: map[string]string{
			"org_id": orgID.String(),
			"plan":   input.Plan,
		},
	}

	sess, err := session.New(params)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "could not create checkout session", err)
	}
	return sess.URL, nil
}

func (s *Service) ensureCustomer(ctx context.Context, sub Subscription, orgID uuid.UUID, email string) (string, error) {
	if sub.StripeCustomerID != nil && *sub.StripeCustomerID != "" {
		return *sub.StripeCustomerID, nil
	}

	cust, err := customer.New(&stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
		Metadata: map[string]string{
			"org_id": orgID.String(),
		},
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "could not create Stripe customer", err)
	}

	if err := s.repo.SetStripeCustomer(ctx, orgID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}

// HandleWebhook verifies and applies a Stripe event. Unknown event types are
// acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithTolerance(payload, signature, s.cfg.GetStripeWebhookSecret(), webhookTolerance)
	if err != nil {
		return apperr.Unauthorized("invalid webhook signature")
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.applyCheckoutCompleted(ctx, event)
	case "customer.subscription.updated", "customer.subscription.deleted":
		return s.applySubscriptionChange(ctx, event)
	default:
		s.log.Info("ignoring stripe event", "type", event.Type)
		return nil
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return apperr.Wrap(apperr.KindValidation, "malformed checkout.session payload", err)
	}

	orgID, err := uuid.Parse(sess.Metadata["org_id"])
	if err != nil {
		return apperr.Validation("checkout session missing org_id metadata")
	}
	plan := sess.Metadata["plan"]
	if plan == "" {
		plan = "pro"
	}

	var subscriptionID *string
	if sess.Subscription != nil {
		subscriptionID = &sess.Subscription.ID
	}

	if err := s.repo.UpdateStatus(ctx, orgID, plan, StatusActive, subscriptionID, nil); err != nil {
		return err
	}
	s.log.Info("subscription activated", "orgId", orgID, "plan", plan)
	return nil
}

func (s *Service) applySubscriptionChange(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return apperr.Wrap(apperr.KindValidation, "malformed subscription payload", err)
	}
	if stripeSub.Customer == nil {
		return apperr.Validation("subscription event missing customer")
	}

	sub, err := s.repo.GetByStripeCustomer(ctx, stripeSub.Customer.ID)
	if err == ErrNotFound {
		// A customer we never issued a checkout for; nothing to update.
		s.log.Warn("stripe event for unknown customer", "customerId", stripeSub.Customer.ID)
		return nil
	}
	if err != nil {
		return err
	}

	status := mapStripeStatus(stripeSub.Status)
	var periodEnd *time.Time
	if stripeSub.CurrentPeriodEnd > 0 {
		t := time.Unix(stripeSub.CurrentPeriodEnd, 0).UTC()
		periodEnd = &t
	}

	subscriptionID := stripeSub.ID
	if err := s.repo.UpdateStatus(ctx, sub.OrganizationID, sub.Plan, status, &subscriptionID, periodEnd); err != nil {
		return err
	}
	s.log.Info("subscription updated", "orgId", sub.OrganizationID, "status", status)
	return nil
}

func mapStripeStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return StatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return StatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return StatusCanceled
	default:
		return StatusInactive
	}
}
