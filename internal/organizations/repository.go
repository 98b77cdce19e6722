package organizations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// User is the organization-scoped sales team view of a user.
type User struct {
	ID                    uuid.UUID
	OrganizationID        uuid.UUID
	Email                 string
	Name                  string
	Role                  string
	ApprovalStatus        string
	IsApproved            bool
	IsActive              bool
	RejectionReason       *string
	ApprovedBy            *uuid.UUID
	ApprovedAt            *time.Time
	LeadAllocationPercent int
	ManagerID             *uuid.UUID
	CreatedAt             time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, organization_id, email, name, role, approval_status, is_approved, is_active,
	rejection_reason, approved_by, approved_at, lead_allocation_percent, manager_id, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.OrganizationID, &u.Email, &u.Name, &u.Role, &u.ApprovalStatus,
		&u.IsApproved, &u.IsActive, &u.RejectionReason, &u.ApprovedBy, &u.ApprovedAt,
		&u.LeadAllocationPercent, &u.ManagerID, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (r *Repository) GetByID(ctx context.Context, id, orgID uuid.UUID) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1 AND organization_id = $2
	`, id, orgID))
}

func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE organization_id = $1 ORDER BY created_at ASC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateTeamSettings updates the assignment-relevant fields of a sales user.
func (r *Repository) UpdateTeamSettings(ctx context.Context, id, orgID uuid.UUID, allocationPercent *int, managerID *uuid.UUID, isActive *bool) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			lead_allocation_percent = COALESCE($3, lead_allocation_percent),
			manager_id = COALESCE($4, manager_id),
			is_active = COALESCE($5, is_active),
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+userColumns+`
	`, id, orgID, allocationPercent, managerID, isActive))
}

// Approve marks a pending user approved and stamps the reviewer.
func (r *Repository) Approve(ctx context.Context, id, orgID, approvedBy uuid.UUID) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			approval_status = 'approved',
			is_approved = TRUE,
			rejection_reason = NULL,
			approved_by = $3,
			approved_at = now(),
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+userColumns+`
	`, id, orgID, approvedBy))
}

// Reject marks a pending user rejected. The reason may be empty; the
// reviewer and timestamp are always stamped.
func (r *Repository) Reject(ctx context.Context, id, orgID, rejectedBy uuid.UUID, reason string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			approval_status = 'rejected',
			is_approved = FALSE,
			rejection_reason = $4,
			approved_by = $3,
			approved_at = now(),
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+userColumns+`
	`, id, orgID, rejectedBy, reason))
}

// ManagerChainHasCycle walks up the manager hierarchy from candidate and
// reports whether userID appears in it. Acyclicity is enforced here at
// assignment time, not by a database constraint.
func (r *Repository) ManagerChainHasCycle(ctx context.Context, orgID, userID uuid.UUID, candidateManager uuid.UUID) (bool, error) {
	current := candidateManager
	for depth := 0; depth < 100; depth++ {
		if current == userID {
			return true, nil
		}
		var next *uuid.UUID
		err := r.pool.QueryRow(ctx, `
			SELECT manager_id FROM users WHERE id = $1 AND organization_id = $2
		`, current, orgID).Scan(&next)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUserNotFound
		}
		if err != nil {
			return false, err
		}
		if next == nil {
			return false, nil
		}
		current = *next
	}
	// A chain deeper than 100 is treated as cyclic.
	return true, nil
}
