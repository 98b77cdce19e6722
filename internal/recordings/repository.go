package recordings

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("recording not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordingColumns = `id, organization_id, drive_file_id, file_name, mime_type, phone_number,
	lead_id, recording_date, processing_status, transcript, summary, sentiment, sentiment_reasoning,
	key_points, action_items, next_steps, quality_scores, error_message, archive_object,
	created_at, updated_at`

func scanRecording(row pgx.Row) (Recording, error) {
	var rec Recording
	var keyPoints, actionItems, nextSteps, scores []byte
	err := row.Scan(
		&rec.ID, &rec.OrganizationID, &rec.DriveFileID, &rec.FileName, &rec.MimeType,
		&rec.PhoneNumber, &rec.LeadID, &rec.RecordingDate, &rec.ProcessingStatus,
		&rec.Transcript, &rec.Summary, &rec.Sentiment, &rec.SentimentReasoning,
		&keyPoints, &actionItems, &nextSteps, &scores, &rec.ErrorMessage,
		&rec.ArchiveObject, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recording{}, ErrNotFound
	}
	if err != nil {
		return Recording{}, err
	}

	_ = json.Unmarshal(keyPoints, &rec.KeyPoints)
	_ = json.Unmarshal(actionItems, &rec.ActionItems)
	_ = json.Unmarshal(nextSteps, &rec.NextSteps)
	if len(scores) > 0 {
		var s Scores
		if err := json.Unmarshal(scores, &s); err == nil {
			rec.QualityScores = &s
		}
	}
	return rec, nil
}

// CreateRecordingParams carries the fields of a newly discovered Drive file.
type CreateRecordingParams struct {
	OrganizationID uuid.UUID
	DriveFileID    string
	FileName       string
	MimeType       *string
	PhoneNumber    *string
	LeadID         *uuid.UUID
	RecordingDate  *time.Time
}

func (r *Repository) Create(ctx context.Context, params CreateRecordingParams) (Recording, error) {
	return scanRecording(r.pool.QueryRow(ctx, `
		INSERT INTO recordings (organization_id, drive_file_id, file_name, mime_type, phone_number, lead_id, recording_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+recordingColumns+`
	`, params.OrganizationID, params.DriveFileID, params.FileName, params.MimeType,
		params.PhoneNumber, params.LeadID, params.RecordingDate))
}

func (r *Repository) GetByID(ctx context.Context, id, orgID uuid.UUID) (Recording, error) {
	return scanRecording(r.pool.QueryRow(ctx, `
		SELECT `+recordingColumns+` FROM recordings WHERE id = $1 AND organization_id = $2
	`, id, orgID))
}

func (r *Repository) List(ctx context.Context, orgID uuid.UUID, status string, limit, offset int) ([]Recording, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordingColumns+` FROM recordings
		WHERE organization_id = $1 AND ($2 = '' OR processing_status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, orgID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Recording, 0)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// PendingForProcessing returns up to limit pending recordings, oldest first.
func (r *Repository) PendingForProcessing(ctx context.Context, orgID uuid.UUID, limit int) ([]Recording, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordingColumns+` FROM recordings
		WHERE organization_id = $1 AND processing_status = 'pending'
		ORDER BY created_at ASC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Recording, 0, limit)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// ImportedFileIDs returns the Drive file ids already present for the
// organization, for skip checks during sync.
func (r *Repository) ImportedFileIDs(ctx context.Context, orgID uuid.UUID) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT drive_file_id FROM recordings WHERE organization_id = $1
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// MarkProcessing transitions a pending recording to processing. Returns
// ErrNotFound when the recording is not in pending state, so concurrent
// triggers cannot double-process.
func (r *Repository) MarkProcessing(ctx context.Context, id, orgID uuid.UUID) (Recording, error) {
	return scanRecording(r.pool.QueryRow(ctx, `
		UPDATE recordings SET processing_status = 'processing', error_message = NULL, updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND processing_status IN ('pending', 'failed')
		RETURNING `+recordingColumns+`
	`, id, orgID))
}

// SaveAnalysis stores the AI results and completes the recording.
func (r *Repository) SaveAnalysis(ctx context.Context, id uuid.UUID, transcript string, analysis Analysis, archiveObject *string) error {
	keyPoints, _ := json.Marshal(analysis.KeyPoints)
	actionItems, _ := json.Marshal(analysis.ActionItems)
	nextSteps, _ := json.Marshal(analysis.NextSteps)
	scores, _ := json.Marshal(analysis.QualityScores)

	_, err := r.pool.Exec(ctx, `
		UPDATE recordings SET
			processing_status = 'completed',
			transcript = $2, summary = $3, sentiment = $4, sentiment_reasoning = $5,
			key_points = $6, action_items = $7, next_steps = $8, quality_scores = $9,
			archive_object = $10, error_message = NULL, updated_at = now()
		WHERE id = $1
	`, id, transcript, analysis.Summary, analysis.Sentiment, analysis.SentimentReasoning,
		keyPoints, actionItems, nextSteps, scores, archiveObject)
	return err
}

// MarkFailed stores the processing error on the recording.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE recordings SET processing_status = 'failed', error_message = $2, updated_at = now()
		WHERE id = $1
	`, id, message)
	return err
}

// Delete removes a recording and writes a tombstone in one transaction so
// the Drive file is never reimported.
func (r *Repository) Delete(ctx context.Context, id, orgID uuid.UUID, deletedBy uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var driveFileID string
	err = tx.QueryRow(ctx, `
		DELETE FROM recordings WHERE id = $1 AND organization_id = $2
		RETURNING drive_file_id
	`, id, orgID).Scan(&driveFileID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO deleted_recording_files (organization_id, drive_file_id, deleted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, drive_file_id) DO NOTHING
	`, orgID, driveFileID, deletedBy)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// TombstonedFileIDs returns the Drive file ids that were explicitly deleted
// and must never be reimported.
func (r *Repository) TombstonedFileIDs(ctx context.Context, orgID uuid.UUID) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT drive_file_id FROM deleted_recording_files WHERE organization_id = $1
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// =============================================================================
// AI provider configs
// =============================================================================

func (r *Repository) ListProviderConfigs(ctx context.Context, orgID uuid.UUID) ([]ProviderConfig, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, provider, api_key, model, is_active, is_default, created_at
		FROM ai_provider_configs
		WHERE organization_id = $1 AND is_active
		ORDER BY created_at ASC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ProviderConfig, 0)
	for rows.Next() {
		var pc ProviderConfig
		if err := rows.Scan(&pc.ID, &pc.OrganizationID, &pc.Provider, &pc.APIKey, &pc.Model, &pc.IsActive, &pc.IsDefault, &pc.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, pc)
	}
	return items, rows.Err()
}

// UpsertProviderConfig saves an AI provider credential. Setting is_default
// clears the default flag on the organization's other providers.
func (r *Repository) UpsertProviderConfig(ctx context.Context, pc ProviderConfig) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if pc.IsDefault {
		if _, err := tx.Exec(ctx, `
			UPDATE ai_provider_configs SET is_default = FALSE
			WHERE organization_id = $1 AND provider <> $2
		`, pc.OrganizationID, pc.Provider); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ai_provider_configs (organization_id, provider, api_key, model, is_active, is_default)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (organization_id, provider) DO UPDATE SET
			api_key = EXCLUDED.api_key, model = EXCLUDED.model,
			is_active = TRUE, is_default = EXCLUDED.is_default
	`, pc.OrganizationID, pc.Provider, pc.APIKey, pc.Model, pc.IsDefault)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
