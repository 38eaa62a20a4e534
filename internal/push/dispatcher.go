package push

import (
	"context"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/wecube/server/internal/domain"
	"github.com/wecube/server/internal/repository"
)

// Dispatcher turns a stored message into at most one push to its recipient.
// It keeps no state between messages, so handling the same message twice
// sends two pushes and nothing else.
type Dispatcher struct {
	users  repository.UserRepository
	sender Sender
}

func NewDispatcher(users repository.UserRepository, sender Sender) *Dispatcher {
	return &Dispatcher{users: users, sender: sender}
}

// Handle sends the push for msg. A recipient without a push token is not an
// error. Failures are returned for logging and never retried.
func (d *Dispatcher) Handle(ctx context.Context, msg *domain.Message) error {
	user, err := d.users.GetByID(ctx, msg.RecipientID)
	if err != nil {
		return errors.Wrapf(err, "look up recipient %s", msg.RecipientID)
	}
	if user == nil || user.PushToken == nil || *user.PushToken == "" {
		jww.INFO.Printf("push: no push token for user %s", msg.RecipientID)
		return nil
	}

	if err := d.sender.Send(ctx, NewMessage(*user.PushToken, msg)); err != nil {
		return errors.Wrapf(err, "send push for message %s", msg.ID)
	}
	return nil
}
