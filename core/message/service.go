package message

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
)

var (
	// errors
	ErrNotFound = errors.New("message not found")
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, m Message) (Message, error)
		GetMessageByID(ctx context.Context, id string) (Message, error)
		// QueryInbox returns messages sent or received by accountID, newest first.
		QueryInbox(ctx context.Context, accountID string, limit int) ([]Message, error)
		// QueryConversation returns messages exchanged between the two accounts, oldest first.
		QueryConversation(ctx context.Context, accountID, partnerID string) ([]Message, error)
		MarkMessageRead(ctx context.Context, id string) error
		DeleteMessage(ctx context.Context, id string) error
	}

	Accounts interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
	}

	Notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification) (notification.Notification, error)
	}

	Service struct {
		repo     Repository
		accounts Accounts
		notifier Notifier
		pub      notification.Publisher
		logger   core.Logger
	}
)

func NewService(repo Repository, accounts Accounts, notifier Notifier, pub notification.Publisher, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		notifier: notifier,
		pub:      pub,
		logger:   logger,
	}
}

// Send stores a direct message, notifies the recipient and pushes the message to their live channels.
func (svc *Service) Send(ctx context.Context, senderID string, nm NewMessage) (Message, error) {
	sender, err := svc.accounts.GetByID(ctx, senderID)
	if err != nil {
		return Message{}, errors.Wrap(err, "finding sender")
	}
	if _, err = svc.accounts.GetByID(ctx, nm.RecipientID); err != nil {
		return Message{}, errors.Wrap(err, "finding recipient")
	}

	now := core.Now()
	msg := Message{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: nm.RecipientID,
		ClassroomID: nm.ClassroomID,
		Content:     nm.Content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = core.Retry(ctx, func() (err error) {
		msg, err = svc.repo.CreateMessage(ctx, msg)
		return err
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}

	if svc.pub != nil {
		svc.pub.Emit(msg.RecipientID, EventName, msg)
	}
	if svc.notifier != nil {
		_, err = svc.notifier.Notify(ctx, notification.NewNotification{
			RecipientID: msg.RecipientID,
			Type:        notification.TypeMessage,
			Title:       "New message",
			Description: fmt.Sprintf("Message from %s", sender.Name),
			RelatedID:   msg.ID,
		})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("notifying message %s: %v", msg.ID, err), err)
		}
	}
	return msg, nil
}

func (svc *Service) Inbox(ctx context.Context, accountID string) ([]Message, error) {
	var msgs []Message
	err := core.Retry(ctx, func() (err error) {
		msgs, err = svc.repo.QueryInbox(ctx, accountID, InboxLimit)
		return err
	})
	return msgs, errors.Wrap(err, "querying inbox")
}

func (svc *Service) Conversation(ctx context.Context, accountID, partnerID string) ([]Message, error) {
	var msgs []Message
	err := core.Retry(ctx, func() (err error) {
		msgs, err = svc.repo.QueryConversation(ctx, accountID, partnerID)
		return err
	})
	return msgs, errors.Wrap(err, "querying conversation")
}

func (svc *Service) get(ctx context.Context, id string) (Message, error) {
	var msg Message
	err := core.Retry(ctx, func() (err error) {
		msg, err = svc.repo.GetMessageByID(ctx, id)
		return err
	})
	return msg, err
}

// MarkRead marks a message as read; only its recipient may do so.
func (svc *Service) MarkRead(ctx context.Context, id, callerID string) error {
	msg, err := svc.get(ctx, id)
	if err != nil {
		return err
	}
	if msg.RecipientID != callerID {
		return core.ErrForbidden
	}
	err = core.Retry(ctx, func() error { return svc.repo.MarkMessageRead(ctx, id) })
	return errors.Wrap(err, "marking message as read")
}

// Delete removes a message; only its sender or recipient may do so.
func (svc *Service) Delete(ctx context.Context, id, callerID string) error {
	msg, err := svc.get(ctx, id)
	if err != nil {
		return err
	}
	if msg.SenderID != callerID && msg.RecipientID != callerID {
		return core.ErrForbidden
	}
	err = core.Retry(ctx, func() error { return svc.repo.DeleteMessage(ctx, id) })
	return errors.Wrap(err, "deleting message")
}
