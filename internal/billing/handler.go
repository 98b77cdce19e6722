package billing

import (
	"context"
	"io"
	"net/http"

	"bharatcrm_backend/internal/organizations"
	"bharatcrm_backend/platform/httpkit"
	"bharatcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// userSource resolves the requesting user's email for Stripe customer
// creation. Satisfied by the organizations repository.
type userSource interface {
	GetByID(ctx context.Context, id, orgID uuid.UUID) (organizations.User, error)
}

type Handler struct {
	service *Service
	users   userSource
	val     *validator.Validator
}

func NewHandler(service *Service, users userSource, val *validator.Validator) *Handler {
	return &Handler{service: service, users: users, val: val}
}

// HandleGetSubscription returns the organization's subscription state.
// GET /api/v1/billing/subscription
func (h *Handler) HandleGetSubscription(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	sub, err := h.service.GetSubscription(c.Request.Context(), id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, sub)
}

// HandleCheckout starts a Stripe checkout session and returns its URL.
// POST /api/v1/admin/billing/checkout
func (h *Handler) HandleCheckout(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req CheckoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id.UserID(), id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}

	url, err := h.service.CreateCheckoutSession(c.Request.Context(), req, id.OrgID(), user.Email)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"checkout_url": url})
}

// HandleWebhook ingests Stripe events. Unauthenticated; the signature
// header is the credential.
// POST /api/v1/webhooks/stripe
func (h *Handler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read body", nil)
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
