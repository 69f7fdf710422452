package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
	"github.com/ahmedramy514/khadamli-darasi/storage/database"
)

const notificationColumns = `id, recipient_id, type, title, description, related_id, is_read, created_at`

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

// where builds the WHERE clause matching filter. The query uses "?" bind vars.
func where(filter notification.QueryFilter) (string, []interface{}, error) {
	var (
		conds []string
		args  []interface{}
	)
	if len(filter.IDs) > 0 {
		cond, inArgs, err := sqlx.In(`id IN (?)`, filter.IDs)
		if err != nil {
			return "", nil, errors.Wrap(err, "expanding ids")
		}
		conds = append(conds, cond)
		args = append(args, inArgs...)
	}
	if filter.RecipientID != "" {
		conds = append(conds, `recipient_id = ?`)
		args = append(args, filter.RecipientID)
	}
	if filter.IsRead != nil {
		conds = append(conds, `is_read = ?`)
		args = append(args, *filter.IsRead)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return ` WHERE ` + strings.Join(conds, ` AND `), args, nil
}

func scanNotifications(rows *sqlx.Rows) ([]notification.Notification, error) {
	defer func() { _ = rows.Close() }()

	ns := make([]notification.Notification, 0)
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Description, &n.RelatedID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.CreatedAt = n.CreatedAt.UTC()
		ns = append(ns, n)
	}
	return ns, rows.Err()
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	q := repo.db.Rebind(`INSERT INTO notifications (` + notificationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q, n.ID, n.RecipientID, n.Type, n.Title, n.Description, n.RelatedID, n.IsRead, n.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return notification.Notification{}, account.ErrNotFound
		}
		return notification.Notification{}, database.StorageError("inserting notification", err)
	}
	return n, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	ns, err := repo.FilterNotifications(ctx, notification.QueryFilter{IDs: []string{id}})
	if err != nil {
		return notification.Notification{}, err
	}
	if len(ns) == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return ns[0], nil
}

func (repo *notificationRepository) FilterNotifications(ctx context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	cond, args, err := where(filter)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + notificationColumns + ` FROM notifications` + cond + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := repo.db.QueryxContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return nil, database.StorageError("selecting notifications", err)
	}
	ns, err := scanNotifications(rows)
	return ns, database.StorageError("scanning notifications", err)
}

func (repo *notificationRepository) CountNotifications(ctx context.Context, filter notification.QueryFilter) (int, error) {
	cond, args, err := where(filter)
	if err != nil {
		return 0, err
	}
	var count int
	err = repo.db.GetContext(ctx, &count, repo.db.Rebind(`SELECT COUNT(*) FROM notifications`+cond), args...)
	return count, database.StorageError("counting notifications", err)
}

func (repo *notificationRepository) MarkNotificationsRead(ctx context.Context, filter notification.QueryFilter) (int, error) {
	filter.IsRead = notification.Unread()
	cond, args, err := where(filter)
	if err != nil {
		return 0, err
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE notifications SET is_read = ?`+cond), append([]interface{}{true}, args...)...)
	if err != nil {
		return 0, database.StorageError("marking notifications read", err)
	}
	n, err := res.RowsAffected()
	return int(n), database.StorageError("marking notifications read", err)
}

func (repo *notificationRepository) DeleteNotification(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM notifications WHERE id = ?`), id)
	if err != nil {
		return database.StorageError("deleting notification", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return database.StorageError("deleting notification", err)
	} else if n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

