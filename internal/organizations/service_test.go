package organizations

import (
	"context"
	"testing"
	"time"

	"bharatcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeUserStore struct {
	users map[uuid.UUID]User
}

func (f *fakeUserStore) get(id uuid.UUID) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id, _ uuid.UUID) (User, error) {
	return f.get(id)
}

func (f *fakeUserStore) ListByOrganization(_ context.Context, _ uuid.UUID) ([]User, error) {
	users := make([]User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeUserStore) UpdateTeamSettings(_ context.Context, id, _ uuid.UUID, allocationPercent *int, managerID *uuid.UUID, isActive *bool) (User, error) {
	u, err := f.get(id)
	if err != nil {
		return User{}, err
	}
	if allocationPercent != nil {
		u.LeadAllocationPercent = *allocationPercent
	}
	if managerID != nil {
		u.ManagerID = managerID
	}
	if isActive != nil {
		u.IsActive = *isActive
	}
	f.users[id] = u
	return u, nil
}

func (f *fakeUserStore) Approve(_ context.Context, id, _ uuid.UUID, approvedBy uuid.UUID) (User, error) {
	u, err := f.get(id)
	if err != nil {
		return User{}, err
	}
	now := time.Now()
	u.ApprovalStatus = "approved"
	u.IsApproved = true
	u.RejectionReason = nil
	u.ApprovedBy = &approvedBy
	u.ApprovedAt = &now
	f.users[id] = u
	return u, nil
}

func (f *fakeUserStore) Reject(_ context.Context, id, _ uuid.UUID, rejectedBy uuid.UUID, reason string) (User, error) {
	u, err := f.get(id)
	if err != nil {
		return User{}, err
	}
	now := time.Now()
	u.ApprovalStatus = "rejected"
	u.IsApproved = false
	u.RejectionReason = &reason
	u.ApprovedBy = &rejectedBy
	u.ApprovedAt = &now
	f.users[id] = u
	return u, nil
}

func (f *fakeUserStore) ManagerChainHasCycle(_ context.Context, _ uuid.UUID, userID uuid.UUID, candidateManager uuid.UUID) (bool, error) {
	current := candidateManager
	for depth := 0; depth < 100; depth++ {
		if current == userID {
			return true, nil
		}
		u, err := f.get(current)
		if err != nil {
			return false, err
		}
		if u.ManagerID == nil {
			return false, nil
		}
		current = *u.ManagerID
	}
	return true, nil
}

func pendingUser(orgID uuid.UUID) User {
	return User{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Email:          "rep@example.com",
		Name:           "Rep",
		Role:           "sales",
		ApprovalStatus: "pending",
	}
}

func TestRejectWithEmptyReasonStillStamps(t *testing.T) {
	orgID := uuid.New()
	user := pendingUser(orgID)
	reviewer := uuid.New()
	store := &fakeUserStore{users: map[uuid.UUID]User{user.ID: user}}
	svc := NewService(store)

	rejected, err := svc.Reject(context.Background(), user.ID, orgID, reviewer, "")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}

	if rejected.ApprovalStatus != "rejected" || rejected.IsApproved {
		t.Fatalf("status = %q approved = %v, want rejected", rejected.ApprovalStatus, rejected.IsApproved)
	}
	if rejected.ApprovedBy == nil || *rejected.ApprovedBy != reviewer {
		t.Fatalf("approvedBy = %v, want reviewer %v stamped", rejected.ApprovedBy, reviewer)
	}
	if rejected.ApprovedAt == nil {
		t.Fatal("approvedAt not stamped")
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "" {
		t.Fatalf("rejectionReason = %v, want empty string kept", rejected.RejectionReason)
	}
}

func TestRejectUnknownUser(t *testing.T) {
	store := &fakeUserStore{users: map[uuid.UUID]User{}}
	svc := NewService(store)

	_, err := svc.Reject(context.Background(), uuid.New(), uuid.New(), uuid.New(), "no fit")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestApproveStampsReviewer(t *testing.T) {
	orgID := uuid.New()
	user := pendingUser(orgID)
	reviewer := uuid.New()
	store := &fakeUserStore{users: map[uuid.UUID]User{user.ID: user}}
	svc := NewService(store)

	approved, err := svc.Approve(context.Background(), user.ID, orgID, reviewer)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.ApprovalStatus != "approved" || !approved.IsApproved {
		t.Fatalf("status = %q approved = %v, want approved", approved.ApprovalStatus, approved.IsApproved)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != reviewer {
		t.Fatalf("approvedBy = %v, want reviewer %v", approved.ApprovedBy, reviewer)
	}
}

func TestUpdateTeamSettingsRejectsOutOfRangePercent(t *testing.T) {
	svc := NewService(nil)
	id := uuid.New()
	orgID := uuid.New()

	for _, percent := range []int{-1, 101} {
		_, err := svc.UpdateTeamSettings(context.Background(), id, orgID, UpdateTeamSettingsParams{
			LeadAllocationPercent: &percent,
		})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("percent %d: expected validation error, got %v", percent, err)
		}
	}
}

func TestUpdateTeamSettingsRejectsSelfManager(t *testing.T) {
	svc := NewService(nil)
	id := uuid.New()

	_, err := svc.UpdateTeamSettings(context.Background(), id, uuid.New(), UpdateTeamSettingsParams{
		ManagerID: &id,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateTeamSettingsRejectsManagerCycle(t *testing.T) {
	orgID := uuid.New()
	a := pendingUser(orgID)
	b := pendingUser(orgID)
	b.ManagerID = &a.ID
	store := &fakeUserStore{users: map[uuid.UUID]User{a.ID: a, b.ID: b}}
	svc := NewService(store)

	_, err := svc.UpdateTeamSettings(context.Background(), a.ID, orgID, UpdateTeamSettingsParams{
		ManagerID: &b.ID,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for cycle, got %v", err)
	}
}
