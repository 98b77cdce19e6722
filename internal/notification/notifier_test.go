package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bharatcrm_backend/internal/events"
	"bharatcrm_backend/internal/organizations"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeSender struct {
	to       []string
	subjects []string
	err      error
}

func (f *fakeSender) Send(_ context.Context, toEmail, subject, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, toEmail)
	f.subjects = append(f.subjects, subject)
	return nil
}

type fakeUsers struct {
	users map[uuid.UUID]organizations.User
}

func (f *fakeUsers) GetByID(_ context.Context, id, _ uuid.UUID) (organizations.User, error) {
	user, ok := f.users[id]
	if !ok {
		return organizations.User{}, organizations.ErrUserNotFound
	}
	return user, nil
}

func TestNotifierEmailsAssignee(t *testing.T) {
	repID := uuid.New()
	sender := &fakeSender{}
	users := &fakeUsers{users: map[uuid.UUID]organizations.User{
		repID: {ID: repID, Name: "Rahul", Email: "rahul@example.com"},
	}}

	bus := events.NewInMemoryBus(logger.New("test"))
	NewNotifier(sender, users, logger.New("test")).Register(bus)

	err := bus.PublishSync(context.Background(), events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     uuid.New(),
		OrgID:      uuid.New(),
		AssignedTo: repID,
		LeadName:   "Priya Sharma",
		Source:     "facebook",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	if len(sender.to) != 1 || sender.to[0] != "rahul@example.com" {
		t.Fatalf("sent to %v, want the assignee", sender.to)
	}
	if !strings.Contains(sender.subjects[0], "Priya Sharma") {
		t.Fatalf("subject = %q, want lead name included", sender.subjects[0])
	}
}

func TestNotifierSwallowsFailures(t *testing.T) {
	repID := uuid.New()
	users := &fakeUsers{users: map[uuid.UUID]organizations.User{
		repID: {ID: repID, Email: "rahul@example.com"},
	}}

	bus := events.NewInMemoryBus(logger.New("test"))
	NewNotifier(&fakeSender{err: errors.New("smtp down")}, users, logger.New("test")).Register(bus)

	// A send failure must not surface as a handler error.
	err := bus.PublishSync(context.Background(), events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		AssignedTo: repID,
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
}

func TestNotifierUnknownAssigneeIsIgnored(t *testing.T) {
	sender := &fakeSender{}
	bus := events.NewInMemoryBus(logger.New("test"))
	NewNotifier(sender, &fakeUsers{}, logger.New("test")).Register(bus)

	err := bus.PublishSync(context.Background(), events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		AssignedTo: uuid.New(),
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if len(sender.to) != 0 {
		t.Fatalf("sent %v, want nothing for unknown assignee", sender.to)
	}
}
