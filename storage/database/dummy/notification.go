package dummydb

import (
	"context"
	"sort"

	"github.com/ahmedramy514/khadamli-darasi/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db.notification}
}

func matchNotification(n *notification.Notification, filter notification.QueryFilter) bool {
	if filter.RecipientID != "" && n.RecipientID != filter.RecipientID {
		return false
	}
	if filter.IsRead != nil && n.IsRead != *filter.IsRead {
		return false
	}
	if len(filter.IDs) > 0 {
		for _, id := range filter.IDs {
			if n.ID == id {
				return true
			}
		}
		return false
	}
	return true
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) GetNotificationByID(_ context.Context, id string) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.table[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) FilterNotifications(_ context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ns := make([]notification.Notification, 0)
	for _, n := range repo.db.table {
		if matchNotification(n, filter) {
			ns = append(ns, *n)
		}
	}
	sort.Slice(ns, func(i, j int) bool {
		if !ns[i].CreatedAt.Equal(ns[j].CreatedAt) {
			return ns[i].CreatedAt.After(ns[j].CreatedAt)
		}
		return ns[i].ID > ns[j].ID
	})
	if filter.Limit > 0 && len(ns) > filter.Limit {
		ns = ns[:filter.Limit]
	}
	return ns, nil
}

func (repo *notificationRepository) CountNotifications(_ context.Context, filter notification.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, n := range repo.db.table {
		if matchNotification(n, filter) {
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) MarkNotificationsRead(_ context.Context, filter notification.QueryFilter) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	filter.IsRead = notification.Unread()
	var count int
	for _, n := range repo.db.table {
		if matchNotification(n, filter) {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) DeleteNotification(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return notification.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
