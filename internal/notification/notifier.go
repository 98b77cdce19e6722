package notification

import (
	"context"
	"fmt"
	"html"

	"bharatcrm_backend/internal/events"
	"bharatcrm_backend/internal/organizations"
	"bharatcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// userSource resolves the assignee's email address. Satisfied by the
// organizations repository.
type userSource interface {
	GetByID(ctx context.Context, id, orgID uuid.UUID) (organizations.User, error)
}

// Notifier emails sales reps when leads are assigned to them.
type Notifier struct {
	sender Sender
	users  userSource
	log    *logger.Logger
}

func NewNotifier(sender Sender, users userSource, log *logger.Logger) *Notifier {
	return &Notifier{sender: sender, users: users, log: log}
}

// Register subscribes the notifier to the events it reacts to.
func (n *Notifier) Register(bus events.Bus) {
	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(n.handleLeadAssigned))
}

func (n *Notifier) handleLeadAssigned(ctx context.Context, event events.Event) error {
	assigned, ok := event.(events.LeadAssigned)
	if !ok {
		return nil
	}

	user, err := n.users.GetByID(ctx, assigned.AssignedTo, assigned.OrgID)
	if err != nil {
		n.log.Warn("lead assignment notify: assignee lookup failed", "userId", assigned.AssignedTo, "error", err)
		return nil
	}

	subject := "New lead assigned: " + assigned.LeadName
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>A new lead <strong>%s</strong> (source: %s) has been assigned to you.</p><p>Log in to BharatCRM to follow up.</p>",
		html.EscapeString(user.Name), html.EscapeString(assigned.LeadName), html.EscapeString(assigned.Source),
	)

	if err := n.sender.Send(ctx, user.Email, subject, body); err != nil {
		n.log.Warn("lead assignment notify: send failed", "userId", user.ID, "error", err)
	}
	return nil
}
