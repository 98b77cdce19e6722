package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// Account is the credential-bearing view of a user used by login.
type Account struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Email          string
	PasswordHash   string
	Name           string
	Role           string
	ApprovalStatus string
	IsApproved     bool
	IsActive       bool
	CreatedAt      time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, email, password_hash, name, role, approval_status, is_approved, is_active, created_at
		FROM users WHERE lower(email) = lower($1)
	`, email).Scan(
		&a.ID, &a.OrganizationID, &a.Email, &a.PasswordHash, &a.Name,
		&a.Role, &a.ApprovalStatus, &a.IsApproved, &a.IsActive, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrUserNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// CreateOrganizationWithAdmin creates a new organization and its first user
// as an approved admin. Both rows are written in one transaction; partial
// signups are not useful to anyone.
func (r *Repository) CreateOrganizationWithAdmin(ctx context.Context, orgName, email, passwordHash, name string) (Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Account{}, err
	}
	defer tx.Rollback(ctx)

	var orgID uuid.UUID
	if err := tx.QueryRow(ctx, `
		INSERT INTO organizations (name) VALUES ($1) RETURNING id
	`, orgName).Scan(&orgID); err != nil {
		return Account{}, err
	}

	var a Account
	err = tx.QueryRow(ctx, `
		INSERT INTO users (organization_id, email, password_hash, name, role, approval_status, is_approved)
		VALUES ($1, $2, $3, $4, 'admin', 'approved', TRUE)
		RETURNING id, organization_id, email, password_hash, name, role, approval_status, is_approved, is_active, created_at
	`, orgID, email, passwordHash, name).Scan(
		&a.ID, &a.OrganizationID, &a.Email, &a.PasswordHash, &a.Name,
		&a.Role, &a.ApprovalStatus, &a.IsApproved, &a.IsActive, &a.CreatedAt,
	)
	if err != nil {
		return Account{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, err
	}
	return a, nil
}

// CreateSalesUser registers a sales rep in an existing organization. The
// user starts unapproved and does not participate in assignment until an
// admin approves them.
func (r *Repository) CreateSalesUser(ctx context.Context, orgID uuid.UUID, email, passwordHash, name string) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (organization_id, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, 'sales')
		RETURNING id, organization_id, email, password_hash, name, role, approval_status, is_approved, is_active, created_at
	`, orgID, email, passwordHash, name).Scan(
		&a.ID, &a.OrganizationID, &a.Email, &a.PasswordHash, &a.Name,
		&a.Role, &a.ApprovalStatus, &a.IsApproved, &a.IsActive, &a.CreatedAt,
	)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}
