package integrations

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"bharatcrm_backend/internal/events"
	"bharatcrm_backend/internal/leads"
	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/logger"
	"bharatcrm_backend/platform/phone"

	"github.com/google/uuid"
)

// integrationStore is the slice of the integrations repository the webhook
// pipeline needs. Satisfied by *Repository; tests substitute fakes.
type integrationStore interface {
	GetByVerifyToken(ctx context.Context, token string) (Integration, error)
	GetByWebhookSecret(ctx context.Context, secret string) (Integration, error)
	WriteSyncLog(ctx context.Context, log SyncLog) error
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
}

// leadStore is the slice of the leads repository the webhook pipeline needs.
type leadStore interface {
	GetByExternalID(ctx context.Context, orgID uuid.UUID, externalID string) (leads.Lead, error)
	Create(ctx context.Context, params leads.CreateLeadParams) (leads.Lead, error)
}

// assigner resolves ownership for incoming leads.
type assigner interface {
	Assign(ctx context.Context, input leads.AssignmentInput, orgID uuid.UUID, createdBy *uuid.UUID) leads.Decision
}

// leadgenFetcher retrieves submitted lead data from the Graph API.
type leadgenFetcher interface {
	FetchLeadgen(ctx context.Context, leadgenID, accessToken string) (*LeadgenDetails, error)
}

// WebhookService processes Meta Lead Ads webhook deliveries end to end:
// signature check, Graph API fetch, field mapping, assignment, insert,
// audit log.
type WebhookService struct {
	repo     integrationStore
	leadRepo leadStore
	resolver assigner
	graph    leadgenFetcher
	bus      events.Bus
	log      *logger.Logger
}

func NewWebhookService(repo integrationStore, leadRepo leadStore, resolver assigner, graph leadgenFetcher, bus events.Bus, log *logger.Logger) *WebhookService {
	return &WebhookService{
		repo:     repo,
		leadRepo: leadRepo,
		resolver: resolver,
		graph:    graph,
		bus:      bus,
		log:      log,
	}
}

// VerifyHandshake answers the Meta GET subscription handshake. The verify
// token must belong to an active integration.
func (s *WebhookService) VerifyHandshake(ctx context.Context, mode, token, challenge string) (string, error) {
	if mode != "subscribe" || token == "" {
		return "", apperr.Validation("invalid handshake parameters")
	}
	if _, err := s.repo.GetByVerifyToken(ctx, token); err != nil {
		return "", apperr.Forbidden("unknown verify token")
	}
	return challenge, nil
}

// VerifySignature checks the X-Hub-Signature-256 header against the
// integration's app secret. Integrations without a stored app secret skip
// verification.
func VerifySignature(body []byte, appSecret, header string) bool {
	if appSecret == "" {
		return true
	}
	expected, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(expected))
}

// Webhook payload shapes, per the Meta Lead Ads delivery format.
type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string         `json:"field"`
	Value webhookLeadgen `json:"value"`
}

type webhookLeadgen struct {
	LeadgenID   string `json:"leadgen_id"`
	PageID      string `json:"page_id"`
	FormID      string `json:"form_id"`
	AdID        string `json:"ad_id"`
	CreatedTime int64  `json:"created_time"`
}

// ProcessResult summarizes one webhook delivery.
type ProcessResult struct {
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Message string `json:"message,omitempty"`
}

// Process handles a verified webhook POST body for an integration. Each
// leadgen change is fetched from the Graph API, mapped, assigned and
// inserted. A replayed leadgen id is skipped and logged as a success with
// zero created; a delivery carrying no leadgen id at all is rejected as
// invalid; any other failure writes an error sync_log and aborts so Meta
// retries the delivery.
func (s *WebhookService) Process(ctx context.Context, integration Integration, body []byte) (ProcessResult, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ProcessResult{}, apperr.Validation("malformed webhook payload")
	}

	var result ProcessResult
	processable := 0
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "leadgen" || change.Value.LeadgenID == "" {
				continue
			}
			processable++
			created, err := s.processLeadgen(ctx, integration, change.Value)
			if err != nil {
				s.logSync(ctx, integration, SyncStatusError, result.Created, result.Skipped, err.Error())
				return result, err
			}
			if created {
				result.Created++
			} else {
				result.Skipped++
			}
		}
	}

	if processable == 0 {
		message := "no leadgen id in webhook delivery"
		s.logSync(ctx, integration, SyncStatusError, 0, 0, message)
		return ProcessResult{}, apperr.Validation(message)
	}

	message := ""
	if result.Created == 0 && result.Skipped > 0 {
		message = "Lead already exists"
	}
	result.Message = message
	s.logSync(ctx, integration, SyncStatusSuccess, result.Created, result.Skipped, message)
	_ = s.repo.MarkSynced(ctx, integration.ID, time.Now())
	return result, nil
}

func (s *WebhookService) processLeadgen(ctx context.Context, integration Integration, value webhookLeadgen) (bool, error) {
	_, err := s.leadRepo.GetByExternalID(ctx, integration.OrganizationID, value.LeadgenID)
	if err == nil {
		s.log.Info("webhook: lead already exists, skipping",
			"leadgenId", value.LeadgenID, "orgId", integration.OrganizationID)
		return false, nil
	}
	if err != leads.ErrNotFound {
		return false, apperr.Wrap(apperr.KindInternal, "replay check failed", err)
	}

	details, err := s.graph.FetchLeadgen(ctx, value.LeadgenID, integration.Credentials.AccessToken)
	if err != nil {
		return false, err
	}

	mapped := MapFieldData(details.FieldData)

	meta := &leads.IntegrationMetadata{
		CampaignID:   details.CampaignID,
		CampaignName: details.CampaignName,
		FormID:       firstNonEmpty(details.FormID, value.FormID),
		AdID:         firstNonEmpty(details.AdID, value.AdID),
		PageID:       firstNonEmpty(details.PageID, value.PageID),
	}

	integrationID := integration.ID
	decision := s.resolver.Assign(ctx, leads.AssignmentInput{
		IntegrationID:       &integrationID,
		IntegrationMetadata: meta,
	}, integration.OrganizationID, nil)

	externalID := value.LeadgenID
	lead, err := s.leadRepo.Create(ctx, leads.CreateLeadParams{
		OrganizationID:      integration.OrganizationID,
		Name:                mapped.Name,
		Email:               mapped.Email,
		Phone:               mapped.Phone,
		Source:              integration.Platform,
		AssignedTo:          decision.AssignedTo,
		CreatedBy:           decision.CreatedBy,
		AssignmentMethod:    decision.Method,
		IntegrationID:       &integrationID,
		IntegrationMetadata: meta,
		ExternalID:          &externalID,
		CustomFields:        mapped.Extras,
	})
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to insert lead", err)
	}

	s.bus.Publish(ctx, events.LeadImported{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		OrgID:         lead.OrganizationID,
		IntegrationID: integration.ID,
		Platform:      integration.Platform,
	})
	if lead.AssignedTo != nil {
		s.bus.Publish(ctx, events.LeadAssigned{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			OrgID:      lead.OrganizationID,
			AssignedTo: *lead.AssignedTo,
			LeadName:   lead.Name,
			Source:     lead.Source,
			Method:     decision.Method,
		})
	}
	return true, nil
}

// MappedLead is the CRM-shaped view of a Lead Ads submission.
type MappedLead struct {
	Name   string
	Email  *string
	Phone  *string
	Extras map[string]string
}

// MapFieldData converts Graph API field_data into lead fields. Recognized
// field name variants map to name/email/phone/company; everything else is
// kept as a custom field. Name defaults to "Unknown".
func MapFieldData(fields []LeadgenField) MappedLead {
	mapped := MappedLead{Name: "Unknown"}

	// full_name beats name beats first_name when a form carries several.
	namePriority := map[string]int{"full_name": 3, "name": 2, "first_name": 1}
	nameRank := 0

	for _, field := range fields {
		if len(field.Values) == 0 || field.Values[0] == "" {
			continue
		}
		value := strings.TrimSpace(field.Values[0])

		switch key := strings.ToLower(field.Name); key {
		case "full_name", "first_name", "name":
			if namePriority[key] > nameRank {
				mapped.Name = value
				nameRank = namePriority[key]
			}
		case "email":
			v := value
			mapped.Email = &v
		case "phone_number", "phone":
			normalized := phone.Normalize(value)
			mapped.Phone = &normalized
		case "company_name", "company":
			if mapped.Extras == nil {
				mapped.Extras = make(map[string]string)
			}
			mapped.Extras["company"] = value
		default:
			if mapped.Extras == nil {
				mapped.Extras = make(map[string]string)
			}
			mapped.Extras[strings.ToLower(field.Name)] = value
		}
	}
	return mapped
}

func (s *WebhookService) logSync(ctx context.Context, integration Integration, status string, created, skipped int, message string) {
	var msg *string
	if message != "" {
		msg = &message
	}
	integrationID := integration.ID
	err := s.repo.WriteSyncLog(ctx, SyncLog{
		OrganizationID: integration.OrganizationID,
		IntegrationID:  &integrationID,
		SyncType:       "webhook",
		Status:         status,
		LeadsCreated:   created,
		LeadsSkipped:   skipped,
		Message:        msg,
	})
	if err != nil {
		s.log.Warn("webhook: failed to write sync log", "error", err)
	}
	s.log.SyncEvent("meta_webhook", created, skipped, 0)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
