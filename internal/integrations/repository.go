package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("integration not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const integrationColumns = `id, organization_id, platform, name, credentials, config,
	webhook_secret, verify_token, sync_status, last_sync_at, error_message, is_active,
	created_at, updated_at`

func scanIntegration(row pgx.Row) (Integration, error) {
	var in Integration
	var credsRaw, cfgRaw []byte
	var webhookSecret, verifyToken *string
	err := row.Scan(
		&in.ID, &in.OrganizationID, &in.Platform, &in.Name, &credsRaw, &cfgRaw,
		&webhookSecret, &verifyToken, &in.SyncStatus, &in.LastSyncAt,
		&in.ErrorMessage, &in.IsActive, &in.CreatedAt, &in.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Integration{}, ErrNotFound
	}
	if err != nil {
		return Integration{}, err
	}

	_ = json.Unmarshal(credsRaw, &in.Credentials)
	_ = json.Unmarshal(cfgRaw, &in.Settings)
	if webhookSecret != nil {
		in.WebhookSecret = *webhookSecret
	}
	if verifyToken != nil {
		in.VerifyToken = *verifyToken
	}
	return in, nil
}

// CreateIntegrationParams carries the fields to persist a new integration.
type CreateIntegrationParams struct {
	OrganizationID uuid.UUID
	Platform       string
	Name           string
	Credentials    Credentials
	Settings       Settings
	WebhookSecret  string
	VerifyToken    string
}

func (r *Repository) Create(ctx context.Context, params CreateIntegrationParams) (Integration, error) {
	credsRaw, _ := json.Marshal(params.Credentials)
	cfgRaw, _ := json.Marshal(params.Settings)

	var webhookSecret, verifyToken *string
	if params.WebhookSecret != "" {
		webhookSecret = &params.WebhookSecret
	}
	if params.VerifyToken != "" {
		verifyToken = &params.VerifyToken
	}

	return scanIntegration(r.pool.QueryRow(ctx, `
		INSERT INTO platform_integrations (organization_id, platform, name, credentials, config, webhook_secret, verify_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+integrationColumns+`
	`, params.OrganizationID, params.Platform, params.Name, credsRaw, cfgRaw, webhookSecret, verifyToken))
}

func (r *Repository) GetByID(ctx context.Context, id, orgID uuid.UUID) (Integration, error) {
	return scanIntegration(r.pool.QueryRow(ctx, `
		SELECT `+integrationColumns+` FROM platform_integrations
		WHERE id = $1 AND organization_id = $2
	`, id, orgID))
}

// GetByWebhookSecret resolves the integration behind an inbound webhook.
// Only active integrations accept webhooks.
func (r *Repository) GetByWebhookSecret(ctx context.Context, secret string) (Integration, error) {
	return scanIntegration(r.pool.QueryRow(ctx, `
		SELECT `+integrationColumns+` FROM platform_integrations
		WHERE webhook_secret = $1 AND is_active
	`, secret))
}

// GetByPlatform returns the organization's active integration for a
// platform. The oldest active connection wins when several exist.
func (r *Repository) GetByPlatform(ctx context.Context, orgID uuid.UUID, platform string) (Integration, error) {
	return scanIntegration(r.pool.QueryRow(ctx, `
		SELECT `+integrationColumns+` FROM platform_integrations
		WHERE organization_id = $1 AND platform = $2 AND is_active
		ORDER BY created_at ASC
		LIMIT 1
	`, orgID, platform))
}

// ListActiveByPlatform returns every organization's active integrations
// for a platform. Used by the scheduler to fan out sync jobs.
func (r *Repository) ListActiveByPlatform(ctx context.Context, platform string) ([]Integration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+integrationColumns+` FROM platform_integrations
		WHERE platform = $1 AND is_active
		ORDER BY created_at ASC
	`, platform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Integration, 0)
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, in)
	}
	return items, rows.Err()
}

// GetByVerifyToken resolves the integration during the Meta GET handshake.
func (r *Repository) GetByVerifyToken(ctx context.Context, token string) (Integration, error) {
	return scanIntegration(r.pool.QueryRow(ctx, `
		SELECT `+integrationColumns+` FROM platform_integrations
		WHERE verify_token = $1 AND is_active
	`, token))
}

func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]Integration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+integrationColumns+` FROM platform_integrations
		WHERE organization_id = $1
		ORDER BY created_at ASC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Integration, 0)
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, in)
	}
	return items, rows.Err()
}

// UpdateCredentials persists refreshed OAuth tokens.
func (r *Repository) UpdateCredentials(ctx context.Context, id uuid.UUID, creds Credentials) error {
	credsRaw, _ := json.Marshal(creds)
	_, err := r.pool.Exec(ctx, `
		UPDATE platform_integrations SET credentials = $2, updated_at = now() WHERE id = $1
	`, id, credsRaw)
	return err
}

// MarkSynced records a successful sync run on the integration row.
func (r *Repository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE platform_integrations
		SET sync_status = 'idle', last_sync_at = $2, error_message = NULL, updated_at = now()
		WHERE id = $1
	`, id, at)
	return err
}

// MarkSyncFailed records a failed sync run on the integration row.
func (r *Repository) MarkSyncFailed(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE platform_integrations
		SET sync_status = 'error', error_message = $2, updated_at = now()
		WHERE id = $1
	`, id, message)
	return err
}

func (r *Repository) Deactivate(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE platform_integrations SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND organization_id = $2
	`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Campaign / form assignments
// =============================================================================

const assignmentColumns = `id, organization_id, integration_id, ref_type, ref_id, ref_name,
	assigned_to, is_active, created_by, created_at, updated_at`

func scanAssignment(row pgx.Row) (CampaignAssignment, error) {
	var a CampaignAssignment
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.IntegrationID, &a.RefType, &a.RefID, &a.RefName,
		&a.AssignedTo, &a.IsActive, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return CampaignAssignment{}, ErrNotFound
	}
	return a, err
}

// UpsertAssignment creates or replaces the active mapping for a key. The
// partial unique index allows only one active row per key, so the previous
// mapping is deactivated in the same transaction.
func (r *Repository) UpsertAssignment(ctx context.Context, a CampaignAssignment) (CampaignAssignment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return CampaignAssignment{}, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE campaign_assignments SET is_active = FALSE, updated_at = now()
		WHERE organization_id = $1 AND integration_id = $2 AND ref_type = $3 AND ref_id = $4 AND is_active
	`, a.OrganizationID, a.IntegrationID, a.RefType, a.RefID)
	if err != nil {
		return CampaignAssignment{}, err
	}

	created, err := scanAssignment(tx.QueryRow(ctx, `
		INSERT INTO campaign_assignments (organization_id, integration_id, ref_type, ref_id, ref_name, assigned_to, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+assignmentColumns+`
	`, a.OrganizationID, a.IntegrationID, a.RefType, a.RefID, a.RefName, a.AssignedTo, a.CreatedBy))
	if err != nil {
		return CampaignAssignment{}, err
	}

	return created, tx.Commit(ctx)
}

func (r *Repository) ListAssignments(ctx context.Context, orgID, integrationID uuid.UUID) ([]CampaignAssignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assignmentColumns+` FROM campaign_assignments
		WHERE organization_id = $1 AND integration_id = $2 AND is_active
		ORDER BY created_at ASC
	`, orgID, integrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]CampaignAssignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *Repository) DeactivateAssignment(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaign_assignments SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND organization_id = $2
	`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Sync logs
// =============================================================================

// WriteSyncLog records a sync run outcome. Audit only; failures are logged
// by the caller, never propagated.
func (r *Repository) WriteSyncLog(ctx context.Context, log SyncLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sync_logs (organization_id, integration_id, sync_type, status, leads_created, leads_skipped, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, log.OrganizationID, log.IntegrationID, log.SyncType, log.Status, log.LeadsCreated, log.LeadsSkipped, log.Message)
	return err
}

func (r *Repository) ListSyncLogs(ctx context.Context, orgID uuid.UUID, limit int) ([]SyncLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, integration_id, sync_type, status, leads_created, leads_skipped, message, created_at
		FROM sync_logs
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]SyncLog, 0)
	for rows.Next() {
		var l SyncLog
		if err := rows.Scan(&l.ID, &l.OrganizationID, &l.IntegrationID, &l.SyncType, &l.Status, &l.LeadsCreated, &l.LeadsSkipped, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}
