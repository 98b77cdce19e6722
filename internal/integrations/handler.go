package integrations

import (
	"io"
	"net/http"
	"strconv"

	"bharatcrm_backend/platform/httpkit"
	"bharatcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service *Service
	webhook *WebhookService
	val     *validator.Validator
}

func NewHandler(service *Service, webhook *WebhookService, val *validator.Validator) *Handler {
	return &Handler{service: service, webhook: webhook, val: val}
}

// HandleWebhookVerify answers the Meta subscription handshake.
// GET /api/v1/webhooks/meta
func (h *Handler) HandleWebhookVerify(c *gin.Context) {
	challenge, err := h.webhook.VerifyHandshake(
		c.Request.Context(),
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// HandleWebhookReceive ingests a Meta Lead Ads delivery. The integration is
// resolved from the secret query param or X-Webhook-Secret header, and the
// body signature is checked against the integration's app secret.
// POST /api/v1/webhooks/meta
func (h *Handler) HandleWebhookReceive(c *gin.Context) {
	secret := c.Query("secret")
	if secret == "" {
		secret = c.GetHeader("X-Webhook-Secret")
	}
	if secret == "" {
		httpkit.Error(c, http.StatusUnauthorized, "missing webhook secret", nil)
		return
	}

	integration, err := h.webhook.repo.GetByWebhookSecret(c.Request.Context(), secret)
	if err != nil {
		httpkit.Error(c, http.StatusUnauthorized, "unknown webhook secret", nil)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read body", nil)
		return
	}

	if !VerifySignature(body, integration.Credentials.AppSecret, c.GetHeader("X-Hub-Signature-256")) {
		httpkit.Error(c, http.StatusUnauthorized, "invalid signature", nil)
		return
	}

	result, err := h.webhook.Process(c.Request.Context(), integration, body)
	if httpkit.HandleError(c, err) {
		return
	}

	if result.Message == "Lead already exists" {
		c.JSON(http.StatusOK, gin.H{"message": result.Message})
		return
	}
	httpkit.OK(c, result)
}

// HandleList returns the organization's integrations.
// GET /api/v1/integrations
func (h *Handler) HandleList(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	items, err := h.service.List(c.Request.Context(), id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"integrations": items})
}

// HandleCreate connects a new platform.
// POST /api/v1/admin/integrations
func (h *Handler) HandleCreate(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req CreateIntegrationInput
	if !h.bindAndValidate(c, &req) {
		return
	}

	integration, err := h.service.CreateIntegration(c.Request.Context(), req, id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}

	// Webhook setup values are returned once at creation time.
	httpkit.Created(c, gin.H{
		"integration":    integration,
		"webhook_secret": integration.WebhookSecret,
		"verify_token":   integration.VerifyToken,
	})
}

// HandleDeactivate disconnects an integration.
// DELETE /api/v1/admin/integrations/:id
func (h *Handler) HandleDeactivate(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	integrationID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), integrationID, id.OrgID()); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "integration deactivated"})
}

// HandleSync triggers a pull sync (Google Sheets).
// POST /api/v1/admin/integrations/:id/sync
func (h *Handler) HandleSync(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	integrationID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.Sync(c.Request.Context(), integrationID, id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// HandleListAssignments lists the active routing rules of an integration.
// GET /api/v1/admin/integrations/:id/assignments
func (h *Handler) HandleListAssignments(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	integrationID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	items, err := h.service.ListAssignments(c.Request.Context(), integrationID, id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"assignments": items})
}

// HandleUpsertAssignment creates or replaces a campaign/form routing rule.
// POST /api/v1/admin/integrations/:id/assignments
func (h *Handler) HandleUpsertAssignment(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	integrationID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req AssignmentInput
	if !h.bindAndValidate(c, &req) {
		return
	}

	created, err := h.service.UpsertAssignment(c.Request.Context(), req, integrationID, id.OrgID(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, created)
}

// HandleDeactivateAssignment removes a routing rule.
// DELETE /api/v1/admin/integrations/:id/assignments/:assignmentId
func (h *Handler) HandleDeactivateAssignment(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	assignmentID, ok := h.pathID(c, "assignmentId")
	if !ok {
		return
	}

	if err := h.service.DeactivateAssignment(c.Request.Context(), assignmentID, id.OrgID()); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "assignment removed"})
}

// HandleDiscoverCampaigns lists Graph API campaigns for routing setup.
// GET /api/v1/admin/integrations/:id/campaigns?ad_account_id=
func (h *Handler) HandleDiscoverCampaigns(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	integrationID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	campaigns, err := h.service.DiscoverCampaigns(c.Request.Context(), integrationID, id.OrgID(), c.Query("ad_account_id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"campaigns": campaigns})
}

// HandleDiscoverForms lists Graph API lead forms for routing setup.
// GET /api/v1/admin/integrations/:id/forms?ad_account_id=
func (h *Handler) HandleDiscoverForms(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	integrationID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	forms, err := h.service.DiscoverForms(c.Request.Context(), integrationID, id.OrgID(), c.Query("ad_account_id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"forms": forms})
}

// HandleListSyncLogs returns recent sync runs for the organization.
// GET /api/v1/admin/sync-logs?limit=
func (h *Handler) HandleListSyncLogs(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.service.ListSyncLogs(c.Request.Context(), id.OrgID(), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"sync_logs": logs})
}

func (h *Handler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return false
	}
	return true
}
