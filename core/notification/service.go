package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		// FilterNotifications returns matching notifications, newest first.
		FilterNotifications(ctx context.Context, filter QueryFilter) ([]Notification, error)
		CountNotifications(ctx context.Context, filter QueryFilter) (int, error)
		// MarkNotificationsRead marks the unread notifications matching filter as read and returns how many changed.
		MarkNotificationsRead(ctx context.Context, filter QueryFilter) (int, error)
		DeleteNotification(ctx context.Context, id string) error
	}

	// Publisher pushes live events to an account's connected channels without blocking.
	Publisher interface {
		Emit(accountID, event string, payload interface{}) int
	}

	// Service is the notification dispatcher.
	Service struct {
		repo   Repository
		pub    Publisher
		logger core.Logger
	}
)

func NewService(repo Repository, pub Publisher, logger core.Logger) *Service {
	return &Service{repo: repo, pub: pub, logger: logger}
}

// Notify persists a new unread notification, then pushes it to the recipient's live channels.
// Only the persistence step can fail the call.
func (svc *Service) Notify(ctx context.Context, nn NewNotification) (Notification, error) {
	n := Notification{
		ID:          uuid.New().String(),
		RecipientID: nn.RecipientID,
		Type:        nn.Type,
		Title:       nn.Title,
		Description: nn.Description,
		RelatedID:   nn.RelatedID,
		CreatedAt:   core.Now(),
	}
	err := core.Retry(ctx, func() (err error) {
		n, err = svc.repo.CreateNotification(ctx, n)
		return err
	})
	if err != nil {
		return Notification{}, errors.Wrap(err, "creating notification")
	}

	svc.push(n)
	return n, nil
}

func (svc *Service) push(n Notification) {
	if svc.pub == nil {
		return
	}
	if delivered := svc.pub.Emit(n.RecipientID, EventName, n); delivered == 0 {
		svc.logger.Debug(fmt.Sprintf("notification %s stored for offline account %s", n.ID, n.RecipientID))
	}
}

// MarkRead marks one notification as read; only its recipient may do so.
func (svc *Service) MarkRead(ctx context.Context, id, callerID string) error {
	n, err := svc.get(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != callerID {
		return core.ErrForbidden
	}
	err = core.Retry(ctx, func() error {
		_, err := svc.repo.MarkNotificationsRead(ctx, QueryFilter{IDs: []string{id}, RecipientID: callerID})
		return err
	})
	return errors.Wrap(err, "marking notification as read")
}

// MarkAllRead marks every unread notification of the caller as read and returns how many there were.
func (svc *Service) MarkAllRead(ctx context.Context, callerID string) (int, error) {
	var count int
	err := core.Retry(ctx, func() (err error) {
		count, err = svc.repo.MarkNotificationsRead(ctx, QueryFilter{RecipientID: callerID})
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications as read")
	}
	return count, nil
}

func (svc *Service) UnreadCount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := core.Retry(ctx, func() (err error) {
		count, err = svc.repo.CountNotifications(ctx, QueryFilter{RecipientID: accountID, IsRead: Unread()})
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return count, nil
}

// List returns the latest notifications of the account, newest first.
func (svc *Service) List(ctx context.Context, accountID string) ([]Notification, error) {
	var ns []Notification
	err := core.Retry(ctx, func() (err error) {
		ns, err = svc.repo.FilterNotifications(ctx, QueryFilter{RecipientID: accountID, Limit: ListLimit})
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "filtering notifications")
	}
	return ns, nil
}

// Delete removes one notification; only its recipient may do so.
func (svc *Service) Delete(ctx context.Context, id, callerID string) error {
	n, err := svc.get(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != callerID {
		return core.ErrForbidden
	}
	err = core.Retry(ctx, func() error {
		return svc.repo.DeleteNotification(ctx, id)
	})
	return errors.Wrap(err, "deleting notification")
}

func (svc *Service) get(ctx context.Context, id string) (Notification, error) {
	var n Notification
	err := core.Retry(ctx, func() (err error) {
		n, err = svc.repo.GetNotificationByID(ctx, id)
		return err
	})
	return n, err
}
