package organizations

import (
	"context"
	"errors"

	"bharatcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

// userStore is the slice of the repository the service needs.
// Satisfied by *Repository; tests substitute fakes.
type userStore interface {
	GetByID(ctx context.Context, id, orgID uuid.UUID) (User, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]User, error)
	UpdateTeamSettings(ctx context.Context, id, orgID uuid.UUID, allocationPercent *int, managerID *uuid.UUID, isActive *bool) (User, error)
	Approve(ctx context.Context, id, orgID, approvedBy uuid.UUID) (User, error)
	Reject(ctx context.Context, id, orgID, rejectedBy uuid.UUID, reason string) (User, error)
	ManagerChainHasCycle(ctx context.Context, orgID, userID uuid.UUID, candidateManager uuid.UUID) (bool, error)
}

type Service struct {
	repo userStore
}

func NewService(repo userStore) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetUser(ctx context.Context, id, orgID uuid.UUID) (User, error) {
	u, err := s.repo.GetByID(ctx, id, orgID)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindInternal, "failed to load user", err)
	}
	return u, nil
}

func (s *Service) ListTeam(ctx context.Context, orgID uuid.UUID) ([]User, error) {
	users, err := s.repo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list team", err)
	}
	return users, nil
}

// UpdateTeamSettingsParams carries the optional team-setting changes.
type UpdateTeamSettingsParams struct {
	LeadAllocationPercent *int
	ManagerID             *uuid.UUID
	IsActive              *bool
}

func (s *Service) UpdateTeamSettings(ctx context.Context, id, orgID uuid.UUID, params UpdateTeamSettingsParams) (User, error) {
	if params.LeadAllocationPercent != nil {
		if *params.LeadAllocationPercent < 0 || *params.LeadAllocationPercent > 100 {
			return User{}, apperr.Validation("lead allocation percent must be between 0 and 100")
		}
	}

	if params.ManagerID != nil {
		if *params.ManagerID == id {
			return User{}, apperr.Validation("a user cannot manage themselves")
		}
		cyclic, err := s.repo.ManagerChainHasCycle(ctx, orgID, id, *params.ManagerID)
		if errors.Is(err, ErrUserNotFound) {
			return User{}, apperr.NotFound("manager not found")
		}
		if err != nil {
			return User{}, apperr.Wrap(apperr.KindInternal, "failed to check manager hierarchy", err)
		}
		if cyclic {
			return User{}, apperr.Validation("manager assignment would create a cycle")
		}
	}

	u, err := s.repo.UpdateTeamSettings(ctx, id, orgID, params.LeadAllocationPercent, params.ManagerID, params.IsActive)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindInternal, "failed to update user", err)
	}
	return u, nil
}

func (s *Service) Approve(ctx context.Context, id, orgID, approvedBy uuid.UUID) (User, error) {
	u, err := s.repo.Approve(ctx, id, orgID, approvedBy)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindInternal, "failed to approve user", err)
	}
	return u, nil
}

// Reject marks a user rejected. An empty reason is allowed; the reviewer
// and review time are always stamped.
func (s *Service) Reject(ctx context.Context, id, orgID, rejectedBy uuid.UUID, reason string) (User, error) {
	u, err := s.repo.Reject(ctx, id, orgID, rejectedBy, reason)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindInternal, "failed to reject user", err)
	}
	return u, nil
}
