package integrations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bharatcrm_backend/internal/events"
	"bharatcrm_backend/internal/leads"
	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/logger"
	"bharatcrm_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const defaultSheetRange = "Sheet1!A:Z"

// sheetsStore is the slice of the integrations repository the sheets sync
// needs. Satisfied by *Repository; tests substitute fakes.
type sheetsStore interface {
	WriteSyncLog(ctx context.Context, log SyncLog) error
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkSyncFailed(ctx context.Context, id uuid.UUID, message string) error
}

// sheetReader fetches raw cell values. The real implementation talks to the
// Google Sheets API; tests substitute fakes.
type sheetReader interface {
	ReadRows(ctx context.Context, integration *Integration, spreadsheetID, readRange string) ([][]interface{}, error)
}

// googleSheetReader reads spreadsheets with the stored OAuth token,
// refreshing it through the token source when expired. Refreshed tokens are
// persisted so the next sync does not refresh again.
type googleSheetReader struct {
	repo     *Repository
	oauthCfg config.GoogleOAuthConfig
	log      *logger.Logger
}

func (g *googleSheetReader) ReadRows(ctx context.Context, integration *Integration, spreadsheetID, readRange string) ([][]interface{}, error) {
	ts := GoogleTokenSource(ctx, g.oauthCfg, integration.Credentials)

	// Force the refresh now so an expired grant fails the sync up front
	// instead of midway through row processing.
	token, err := ts.Token()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "Google token refresh failed", err)
	}
	persistRefreshedToken(ctx, g.repo, integration, token, g.log)

	svc, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "could not build Sheets client", err)
	}

	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "could not read spreadsheet", err)
	}
	return resp.Values, nil
}

// GoogleTokenSource builds a refreshing token source from stored
// credentials. Shared by the Sheets sync and the recordings Drive client.
func GoogleTokenSource(ctx context.Context, cfg config.GoogleOAuthConfig, creds Credentials) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID:     cfg.GetGoogleClientID(),
		ClientSecret: cfg.GetGoogleClientSecret(),
		RedirectURL:  cfg.GetGoogleRedirectURL(),
		Endpoint:     google.Endpoint,
	}
	return conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.TokenExpiry,
	})
}

// persistRefreshedToken writes a refreshed access token back to the
// integration row. Best effort; a write failure only costs an extra refresh
// on the next sync.
func persistRefreshedToken(ctx context.Context, repo *Repository, integration *Integration, token *oauth2.Token, log *logger.Logger) {
	if token.AccessToken == integration.Credentials.AccessToken {
		return
	}
	integration.Credentials.AccessToken = token.AccessToken
	integration.Credentials.TokenExpiry = token.Expiry
	if token.RefreshToken != "" {
		integration.Credentials.RefreshToken = token.RefreshToken
	}
	if err := repo.UpdateCredentials(ctx, integration.ID, integration.Credentials); err != nil {
		log.Warn("failed to persist refreshed Google token", "integrationId", integration.ID, "error", err)
	}
}

// SheetsSyncService pulls leads from a configured Google Sheet. Rows are
// keyed by spreadsheet id and row number so re-running the sync only
// imports rows added since the last run.
type SheetsSyncService struct {
	repo     sheetsStore
	leadRepo leadStore
	resolver assigner
	reader   sheetReader
	bus      events.Bus
	log      *logger.Logger
}

func NewSheetsSyncService(repo *Repository, leadRepo leadStore, resolver assigner, oauthCfg config.GoogleOAuthConfig, bus events.Bus, log *logger.Logger) *SheetsSyncService {
	return &SheetsSyncService{
		repo:     repo,
		leadRepo: leadRepo,
		resolver: resolver,
		reader:   &googleSheetReader{repo: repo, oauthCfg: oauthCfg, log: log},
		bus:      bus,
		log:      log,
	}
}

// Sync imports new spreadsheet rows as leads. The first row is the header;
// recognized columns map to lead fields, the rest become custom fields.
func (s *SheetsSyncService) Sync(ctx context.Context, integration Integration) (ProcessResult, error) {
	if integration.Platform != PlatformGoogleSheets {
		return ProcessResult{}, apperr.Validation("integration is not a Google Sheets connection")
	}
	spreadsheetID := integration.Settings.SpreadsheetID
	if spreadsheetID == "" {
		return ProcessResult{}, apperr.Validation("no spreadsheet configured for this integration")
	}
	readRange := integration.Settings.SheetRange
	if readRange == "" {
		readRange = defaultSheetRange
	}

	rows, err := s.reader.ReadRows(ctx, &integration, spreadsheetID, readRange)
	if err != nil {
		_ = s.repo.MarkSyncFailed(ctx, integration.ID, err.Error())
		s.logSheetSync(ctx, integration, SyncStatusError, 0, 0, err.Error())
		return ProcessResult{}, err
	}
	if len(rows) < 2 {
		s.logSheetSync(ctx, integration, SyncStatusSuccess, 0, 0, "no data rows")
		_ = s.repo.MarkSynced(ctx, integration.ID, time.Now())
		return ProcessResult{Message: "no data rows"}, nil
	}

	columns := mapSheetHeader(rows[0])

	var result ProcessResult
	for i, row := range rows[1:] {
		rowNumber := i + 2 // 1-based, after the header
		externalID := fmt.Sprintf("%s:%d", spreadsheetID, rowNumber)

		_, err := s.leadRepo.GetByExternalID(ctx, integration.OrganizationID, externalID)
		if err == nil {
			result.Skipped++
			continue
		}
		if err != leads.ErrNotFound {
			_ = s.repo.MarkSyncFailed(ctx, integration.ID, err.Error())
			s.logSheetSync(ctx, integration, SyncStatusError, result.Created, result.Skipped, err.Error())
			return result, apperr.Wrap(apperr.KindInternal, "row lookup failed", err)
		}

		mapped := mapSheetRow(columns, row)
		if mapped.Name == "Unknown" && mapped.Phone == nil && mapped.Email == nil {
			result.Skipped++
			continue
		}

		integrationID := integration.ID
		decision := s.resolver.Assign(ctx, leads.AssignmentInput{IntegrationID: &integrationID}, integration.OrganizationID, nil)

		lead, err := s.leadRepo.Create(ctx, leads.CreateLeadParams{
			OrganizationID:   integration.OrganizationID,
			Name:             mapped.Name,
			Email:            mapped.Email,
			Phone:            mapped.Phone,
			Source:           PlatformGoogleSheets,
			AssignedTo:       decision.AssignedTo,
			CreatedBy:        decision.CreatedBy,
			AssignmentMethod: decision.Method,
			IntegrationID:    &integrationID,
			ExternalID:       &externalID,
			CustomFields:     mapped.Extras,
		})
		if err != nil {
			s.log.Warn("sheets sync: row insert failed", "row", rowNumber, "error", err)
			result.Skipped++
			continue
		}
		result.Created++

		s.bus.Publish(ctx, events.LeadImported{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        lead.ID,
			OrgID:         lead.OrganizationID,
			IntegrationID: integration.ID,
			Platform:      PlatformGoogleSheets,
		})
	}

	s.logSheetSync(ctx, integration, SyncStatusSuccess, result.Created, result.Skipped, "")
	_ = s.repo.MarkSynced(ctx, integration.ID, time.Now())
	return result, nil
}

// mapSheetHeader resolves header cells to canonical lead fields by position.
func mapSheetHeader(header []interface{}) map[int]string {
	known := map[string]string{
		"name": "name", "full name": "name", "full_name": "name", "lead name": "name",
		"email": "email", "e-mail": "email",
		"phone": "phone", "mobile": "phone", "phone no": "phone", "contact": "phone",
	}

	columns := make(map[int]string, len(header))
	for i, cell := range header {
		key := strings.ToLower(strings.TrimSpace(fmt.Sprint(cell)))
		if canonical, ok := known[key]; ok {
			columns[i] = canonical
		} else if key != "" {
			columns[i] = "extra:" + key
		}
	}
	return columns
}

func mapSheetRow(columns map[int]string, row []interface{}) MappedLead {
	mapped := MappedLead{Name: "Unknown"}
	for i, cell := range row {
		value := strings.TrimSpace(fmt.Sprint(cell))
		if value == "" {
			continue
		}
		switch field := columns[i]; {
		case field == "name":
			mapped.Name = value
		case field == "email":
			v := value
			mapped.Email = &v
		case field == "phone":
			normalized := phone.Normalize(value)
			mapped.Phone = &normalized
		case strings.HasPrefix(field, "extra:"):
			if mapped.Extras == nil {
				mapped.Extras = make(map[string]string)
			}
			mapped.Extras[strings.TrimPrefix(field, "extra:")] = value
		}
	}
	return mapped
}

func (s *SheetsSyncService) logSheetSync(ctx context.Context, integration Integration, status string, created, skipped int, message string) {
	var msg *string
	if message != "" {
		msg = &message
	}
	integrationID := integration.ID
	if err := s.repo.WriteSyncLog(ctx, SyncLog{
		OrganizationID: integration.OrganizationID,
		IntegrationID:  &integrationID,
		SyncType:       "sheets",
		Status:         status,
		LeadsCreated:   created,
		LeadsSkipped:   skipped,
		Message:        msg,
	}); err != nil {
		s.log.Warn("sheets sync: failed to write sync log", "error", err)
	}
	s.log.SyncEvent("google_sheets", created, skipped, 0)
}
