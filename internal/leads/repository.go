package leads

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, organization_id, name, email, phone, status, source, assigned_to, created_by,
	assignment_method, integration_id, integration_metadata, external_id, custom_fields, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var metaRaw, customRaw []byte
	err := row.Scan(
		&lead.ID, &lead.OrganizationID, &lead.Name, &lead.Email, &lead.Phone,
		&lead.Status, &lead.Source, &lead.AssignedTo, &lead.CreatedBy,
		&lead.AssignmentMethod, &lead.IntegrationID, &metaRaw, &lead.ExternalID,
		&customRaw, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}

	if len(metaRaw) > 0 {
		var meta IntegrationMetadata
		if err := json.Unmarshal(metaRaw, &meta); err == nil && !meta.IsZero() {
			lead.IntegrationMetadata = &meta
		}
	}
	if len(customRaw) > 0 {
		_ = json.Unmarshal(customRaw, &lead.CustomFields)
	}
	return lead, nil
}

// CreateLeadParams carries everything needed to persist a new lead.
type CreateLeadParams struct {
	OrganizationID      uuid.UUID
	Name                string
	Email               *string
	Phone               *string
	Status              string
	Source              string
	AssignedTo          *uuid.UUID
	CreatedBy           *uuid.UUID
	AssignmentMethod    string
	IntegrationID       *uuid.UUID
	IntegrationMetadata *IntegrationMetadata
	ExternalID          *string
	CustomFields        map[string]string
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	status := params.Status
	if status == "" {
		status = StatusNew
	}

	var metaRaw []byte
	if params.IntegrationMetadata != nil {
		metaRaw, _ = json.Marshal(params.IntegrationMetadata)
	}
	customRaw, _ := json.Marshal(params.CustomFields)
	if params.CustomFields == nil {
		customRaw = []byte(`{}`)
	}

	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			organization_id, name, email, phone, status, source, assigned_to, created_by,
			assignment_method, integration_id, integration_metadata, external_id, custom_fields
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+leadColumns+`
	`,
		params.OrganizationID, params.Name, params.Email, params.Phone, status, params.Source,
		params.AssignedTo, params.CreatedBy, params.AssignmentMethod, params.IntegrationID,
		metaRaw, params.ExternalID, customRaw,
	))
}

func (r *Repository) GetByID(ctx context.Context, id, orgID uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE id = $1 AND organization_id = $2
	`, id, orgID))
}

// GetByExternalID looks up a lead by provider lead id. Used for webhook
// replay protection.
func (r *Repository) GetByExternalID(ctx context.Context, orgID uuid.UUID, externalID string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE organization_id = $1 AND external_id = $2
	`, orgID, externalID))
}

// ListParams filters the lead listing.
type ListParams struct {
	Status     string
	AssignedTo *uuid.UUID
	Limit      int
	Offset     int
}

func (r *Repository) List(ctx context.Context, orgID uuid.UUID, params ListParams) ([]Lead, error) {
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE organization_id = $1
			AND ($2 = '' OR status = $2)
			AND ($3::uuid IS NULL OR assigned_to = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, orgID, params.Status, params.AssignedTo, limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id, orgID uuid.UUID, status string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+leadColumns+`
	`, id, orgID, status))
}

// Reassign transfers ownership of a lead. assignedTo may be nil to unassign.
func (r *Repository) Reassign(ctx context.Context, id, orgID uuid.UUID, assignedTo *uuid.UUID, method string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET assigned_to = $3, assignment_method = $4, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+leadColumns+`
	`, id, orgID, assignedTo, method))
}

// PhoneLead is a minimal lead view for duplicate detection and recording matching.
type PhoneLead struct {
	ID         uuid.UUID
	Name       string
	Phone      string
	AssignedTo *uuid.UUID
}

// ListWithPhone pages through all leads of an organization that have a phone
// number. Batched so callers can scan the full lead set without hitting row
// caps on any one query.
func (r *Repository) ListWithPhone(ctx context.Context, orgID uuid.UUID, offset, limit int) ([]PhoneLead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, phone, assigned_to FROM leads
		WHERE organization_id = $1 AND phone IS NOT NULL AND phone <> ''
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]PhoneLead, 0, limit)
	for rows.Next() {
		var l PhoneLead
		if err := rows.Scan(&l.ID, &l.Name, &l.Phone, &l.AssignedTo); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// UserName returns the display name of a user, for annotating duplicate matches.
func (r *Repository) UserName(ctx context.Context, id, orgID uuid.UUID) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `
		SELECT name FROM users WHERE id = $1 AND organization_id = $2
	`, id, orgID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return name, err
}

// =============================================================================
// Assignment resolver reads
// =============================================================================

// SalesRep is an auto-assignment pool member with their current load.
type SalesRep struct {
	ID                uuid.UUID
	Name              string
	Email             string
	AllocationPercent int
	AssignedLeads     int
	CreatedAt         time.Time
}

// EligibleSalesReps returns the auto-assignment pool: approved, active sales
// users of the organization with their current assigned-lead counts, ordered
// by account creation time.
func (r *Repository) EligibleSalesReps(ctx context.Context, orgID uuid.UUID) ([]SalesRep, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name, u.email, u.lead_allocation_percent,
			COUNT(l.id) AS assigned_leads, u.created_at
		FROM users u
		LEFT JOIN leads l ON l.assigned_to = u.id AND l.organization_id = u.organization_id
		WHERE u.organization_id = $1
			AND u.role = 'sales' AND u.is_approved AND u.is_active
		GROUP BY u.id
		ORDER BY u.created_at ASC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reps := make([]SalesRep, 0)
	for rows.Next() {
		var rep SalesRep
		if err := rows.Scan(&rep.ID, &rep.Name, &rep.Email, &rep.AllocationPercent, &rep.AssignedLeads, &rep.CreatedAt); err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}

// IsEligibleSales reports whether the user is an approved, active sales rep
// of the organization. Used for self-assignment of manually created leads.
func (r *Repository) IsEligibleSales(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE id = $1 AND organization_id = $2
				AND role = 'sales' AND is_approved AND is_active
		)
	`, userID, orgID).Scan(&ok)
	return ok, err
}

// ActiveAssignee returns the user mapped to an active campaign/form
// assignment, or nil when no active mapping exists.
func (r *Repository) ActiveAssignee(ctx context.Context, orgID, integrationID uuid.UUID, refType, refID string) (*uuid.UUID, error) {
	var assignee uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT assigned_to FROM campaign_assignments
		WHERE organization_id = $1 AND integration_id = $2
			AND ref_type = $3 AND ref_id = $4 AND is_active
	`, orgID, integrationID, refType, refID).Scan(&assignee)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignee, nil
}

// =============================================================================
// Activities
// =============================================================================

func (r *Repository) CreateActivity(ctx context.Context, orgID, leadID uuid.UUID, userID *uuid.UUID, activityType, body string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_activities (lead_id, organization_id, user_id, activity_type, body)
		VALUES ($1, $2, $3, $4, $5)
	`, leadID, orgID, userID, activityType, body)
	return err
}

func (r *Repository) ListActivities(ctx context.Context, orgID, leadID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, user_id, activity_type, body, created_at
		FROM lead_activities
		WHERE lead_id = $1 AND organization_id = $2
		ORDER BY created_at DESC
	`, leadID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.UserID, &a.ActivityType, &a.Body, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
