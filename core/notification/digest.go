package notification

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
)

const DigestTemplate = "unread_digest"

type DigestAccounts interface {
	ListIDs(ctx context.Context) ([]string, error)
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// SendUnreadDigests emails every account that has unread notifications and returns how many emails were sent.
func (svc *Service) SendUnreadDigests(ctx context.Context, accounts DigestAccounts, mailer core.EmailService) (int, error) {
	ids, err := accounts.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	msgs := make([]*core.EmailMessage, 0)
	for _, id := range ids {
		unread, err := svc.UnreadCount(ctx, id)
		if err != nil {
			return 0, errors.Wrapf(err, "counting unread notifications of %s", id)
		}
		if unread == 0 {
			continue
		}

		acc, err := accounts.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				continue
			}
			return 0, err
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: acc.Name, Address: acc.Email}},
			Subject:      fmt.Sprintf("You have %d unread notification(s)", unread),
			TemplateName: DigestTemplate,
			TemplateData: map[string]interface{}{
				"Name":         acc.Name,
				"Unread":       unread,
				"Rank":         acc.Rank(),
				"Points":       acc.Points,
				"WeeklyPoints": acc.WeeklyPoints,
			},
		})
	}

	if len(msgs) > 0 {
		mailer.SendMessages(msgs...)
	}
	return len(msgs), nil
}
