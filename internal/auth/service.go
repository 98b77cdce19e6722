package auth

import (
	"context"
	"strings"
	"time"

	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo *Repository
	cfg  config.AuthServiceConfig
}

func NewService(repo *Repository, cfg config.AuthServiceConfig) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// LoginResult carries the issued token and a safe view of the account.
type LoginResult struct {
	AccessToken string    `json:"accessToken"`
	UserID      uuid.UUID `json:"userId"`
	OrgID       uuid.UUID `json:"orgId"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	account, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		// Same response for unknown email and bad password.
		return LoginResult{}, apperr.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, apperr.Unauthorized("invalid credentials")
	}

	if !account.IsActive {
		return LoginResult{}, apperr.Forbidden("account is deactivated")
	}

	token, err := s.signJWT(account)
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.KindInternal, "failed to sign token", err)
	}

	return LoginResult{
		AccessToken: token,
		UserID:      account.ID,
		OrgID:       account.OrganizationID,
		Name:        account.Name,
		Role:        account.Role,
	}, nil
}

// RegisterOrganization signs up a new organization with its admin user.
func (s *Service) RegisterOrganization(ctx context.Context, orgName, email, password, name string) (LoginResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	account, err := s.repo.CreateOrganizationWithAdmin(ctx, orgName, strings.TrimSpace(email), string(hash), name)
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.KindConflict, "email already registered", err)
	}

	token, err := s.signJWT(account)
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.KindInternal, "failed to sign token", err)
	}

	return LoginResult{
		AccessToken: token,
		UserID:      account.ID,
		OrgID:       account.OrganizationID,
		Name:        account.Name,
		Role:        account.Role,
	}, nil
}

// RegisterSalesUser signs up a sales rep into an existing organization.
// The account awaits admin approval before it can receive leads.
func (s *Service) RegisterSalesUser(ctx context.Context, orgID uuid.UUID, email, password, name string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	if _, err := s.repo.CreateSalesUser(ctx, orgID, strings.TrimSpace(email), string(hash), name); err != nil {
		return apperr.Wrap(apperr.KindConflict, "email already registered", err)
	}
	return nil
}

func (s *Service) signJWT(account Account) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  account.ID.String(),
		"org":  account.OrganizationID.String(),
		"role": account.Role,
		"exp":  now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":  now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
