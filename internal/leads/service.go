package leads

import (
	"context"
	"io"
	"slices"

	"bharatcrm_backend/internal/events"
	"bharatcrm_backend/platform/apperr"
	"bharatcrm_backend/platform/logger"
	"bharatcrm_backend/platform/phone"

	"github.com/google/uuid"
)

// serviceStore is the slice of the repository the service needs.
// Satisfied by *Repository; tests substitute fakes.
type serviceStore interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	GetByID(ctx context.Context, id, orgID uuid.UUID) (Lead, error)
	List(ctx context.Context, orgID uuid.UUID, params ListParams) ([]Lead, error)
	UpdateStatus(ctx context.Context, id, orgID uuid.UUID, status string) (Lead, error)
	Reassign(ctx context.Context, id, orgID uuid.UUID, assignedTo *uuid.UUID, method string) (Lead, error)
	IsEligibleSales(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
	CreateActivity(ctx context.Context, orgID, leadID uuid.UUID, userID *uuid.UUID, activityType, body string) error
	ListActivities(ctx context.Context, orgID, leadID uuid.UUID) ([]Activity, error)
}

// Service implements lead CRUD, duplicate checks and CSV import on top of
// the repository, the assignment resolver and the duplicate detector.
type Service struct {
	repo     serviceStore
	resolver *Resolver
	detector *Detector
	importer *Importer
	bus      events.Bus
	log      *logger.Logger
}

func NewService(repo serviceStore, resolver *Resolver, detector *Detector, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		detector: detector,
		importer: NewImporter(detector),
		bus:      bus,
		log:      log,
	}
}

// CreateLeadInput is the manual-creation payload.
type CreateLeadInput struct {
	Name         string            `json:"name" validate:"required,min=1,max=200"`
	Email        string            `json:"email" validate:"omitempty,email"`
	Phone        string            `json:"phone" validate:"omitempty,min=6,max=20"`
	Source       string            `json:"source" validate:"omitempty,max=50"`
	CustomFields map[string]string `json:"custom_fields"`
}

// Create persists a manually created lead, resolving ownership through the
// assignment rules. Duplicate checking is the caller's responsibility via
// CheckDuplicate; creation itself never blocks on an existing match.
func (s *Service) Create(ctx context.Context, input CreateLeadInput, orgID uuid.UUID, createdBy *uuid.UUID) (Lead, error) {
	source := input.Source
	if source == "" {
		source = "manual"
	}

	decision := s.resolver.Assign(ctx, AssignmentInput{}, orgID, createdBy)

	var email, phoneNum *string
	if input.Email != "" {
		email = &input.Email
	}
	if input.Phone != "" {
		normalized := phone.Normalize(input.Phone)
		phoneNum = &normalized
	}

	lead, err := s.repo.Create(ctx, CreateLeadParams{
		OrganizationID:   orgID,
		Name:             input.Name,
		Email:            email,
		Phone:            phoneNum,
		Source:           source,
		AssignedTo:       decision.AssignedTo,
		CreatedBy:        createdBy,
		AssignmentMethod: decision.Method,
		CustomFields:     input.CustomFields,
	})
	if err != nil {
		return Lead{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	s.publishAssigned(ctx, lead)
	return lead, nil
}

// CheckDuplicate returns an existing lead matching the phone number, or nil.
func (s *Service) CheckDuplicate(ctx context.Context, phoneNumber string, orgID uuid.UUID) (*DuplicateMatch, error) {
	if phone.Normalize(phoneNumber) == "" {
		return nil, apperr.Validation("phone is required")
	}
	match, err := s.detector.Check(ctx, phoneNumber, orgID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "duplicate check failed", err)
	}
	return match, nil
}

func (s *Service) Get(ctx context.Context, id, orgID uuid.UUID) (Lead, error) {
	lead, err := s.repo.GetByID(ctx, id, orgID)
	if err == ErrNotFound {
		return Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, params ListParams) ([]Lead, error) {
	if params.Status != "" && !slices.Contains(ValidStatuses, params.Status) {
		return nil, apperr.Validation("invalid status filter")
	}
	return s.repo.List(ctx, orgID, params)
}

func (s *Service) UpdateStatus(ctx context.Context, id, orgID uuid.UUID, status string, userID uuid.UUID) (Lead, error) {
	if !slices.Contains(ValidStatuses, status) {
		return Lead{}, apperr.Validation("invalid lead status")
	}
	lead, err := s.repo.UpdateStatus(ctx, id, orgID, status)
	if err == ErrNotFound {
		return Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return Lead{}, err
	}
	_ = s.repo.CreateActivity(ctx, orgID, lead.ID, &userID, "status_change", "Status changed to "+status)
	return lead, nil
}

// Reassign transfers a lead to another sales user, or unassigns it when
// assignTo is nil. Admin-only; the handler enforces the role.
func (s *Service) Reassign(ctx context.Context, id, orgID uuid.UUID, assignTo *uuid.UUID, actor uuid.UUID) (Lead, error) {
	method := MethodUnassigned
	if assignTo != nil {
		eligible, err := s.repo.IsEligibleSales(ctx, orgID, *assignTo)
		if err != nil {
			return Lead{}, err
		}
		if !eligible {
			return Lead{}, apperr.Validation("assignee is not an approved sales user")
		}
		method = MethodSalesAuto
	}

	lead, err := s.repo.Reassign(ctx, id, orgID, assignTo, method)
	if err == ErrNotFound {
		return Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return Lead{}, err
	}

	_ = s.repo.CreateActivity(ctx, orgID, lead.ID, &actor, "reassignment", "Lead reassigned")
	s.publishAssigned(ctx, lead)
	return lead, nil
}

func (s *Service) AddNote(ctx context.Context, leadID, orgID, userID uuid.UUID, body string) error {
	if body == "" {
		return apperr.Validation("note body is required")
	}
	if _, err := s.Get(ctx, leadID, orgID); err != nil {
		return err
	}
	return s.repo.CreateActivity(ctx, orgID, leadID, &userID, "note", body)
}

func (s *Service) ListActivities(ctx context.Context, leadID, orgID uuid.UUID) ([]Activity, error) {
	if _, err := s.Get(ctx, leadID, orgID); err != nil {
		return nil, err
	}
	return s.repo.ListActivities(ctx, orgID, leadID)
}

// ImportPreview parses an uploaded CSV and reports new rows vs duplicates
// without writing anything.
func (s *Service) ImportPreview(ctx context.Context, r io.Reader, orgID uuid.UUID) (ImportPreview, error) {
	return s.importer.Preview(ctx, r, orgID)
}

// ImportConfirm creates leads from the staged rows plus any duplicates the
// admin chose to include. Each lead goes through the assignment resolver
// individually so percentage balancing sees the running counts.
func (s *Service) ImportConfirm(ctx context.Context, params ConfirmParams, orgID uuid.UUID, actor uuid.UUID) (ImportResult, error) {
	rows := append([]ImportRow{}, params.Rows...)
	rows = append(rows, params.IncludedDuplicates...)

	result := ImportResult{Skipped: params.SkippedDuplicates}
	for _, row := range rows {
		if row.Name == "" && row.Phone == "" {
			result.Skipped++
			continue
		}
		name := row.Name
		if name == "" {
			name = "Unknown"
		}

		var email, phoneNum *string
		if row.Email != "" {
			email = &row.Email
		}
		if row.Phone != "" {
			normalized := phone.Normalize(row.Phone)
			phoneNum = &normalized
		}

		decision := s.resolver.Assign(ctx, AssignmentInput{}, orgID, nil)
		lead, err := s.repo.Create(ctx, CreateLeadParams{
			OrganizationID:   orgID,
			Name:             name,
			Email:            email,
			Phone:            phoneNum,
			Source:           "csv_import",
			CreatedBy:        &actor,
			AssignedTo:       decision.AssignedTo,
			AssignmentMethod: decision.Method,
			CustomFields:     row.Extras,
		})
		if err != nil {
			s.log.Warn("csv import: row failed", "row", row.Row, "error", err)
			result.Skipped++
			continue
		}
		result.Created++
		s.publishAssigned(ctx, lead)
	}

	s.log.SyncEvent("csv_import", result.Created, result.Skipped, 0)
	return result, nil
}

func (s *Service) publishAssigned(ctx context.Context, lead Lead) {
	if lead.AssignedTo == nil {
		return
	}
	method := ""
	if lead.AssignmentMethod != nil {
		method = *lead.AssignmentMethod
	}
	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		OrgID:      lead.OrganizationID,
		AssignedTo: *lead.AssignedTo,
		LeadName:   lead.Name,
		Source:     lead.Source,
		Method:     method,
	})
}
