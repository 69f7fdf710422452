package dummydb

import (
	"context"
	"sort"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/message"
)

type messageRepository struct {
	db *messageTable
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) message.Repository {
	return &messageRepository{db: db.message}
}

func (repo *messageRepository) query(match func(m *message.Message) bool, newestFirst bool) []message.Message {
	msgs := make([]message.Message, 0)
	for _, m := range repo.db.table {
		if match(m) {
			msgs = append(msgs, *m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return (msgs[i].ID > msgs[j].ID) == newestFirst
		}
		if newestFirst {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs
}

func (repo *messageRepository) CreateMessage(_ context.Context, m message.Message) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[m.ID] = &m
	return m, nil
}

func (repo *messageRepository) GetMessageByID(_ context.Context, id string) (message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return *m, nil
	}
	return message.Message{}, message.ErrNotFound
}

func (repo *messageRepository) QueryInbox(_ context.Context, accountID string, limit int) ([]message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := repo.query(func(m *message.Message) bool {
		return m.SenderID == accountID || m.RecipientID == accountID
	}, true)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (repo *messageRepository) QueryConversation(_ context.Context, accountID, partnerID string) ([]message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.query(func(m *message.Message) bool {
		return (m.SenderID == accountID && m.RecipientID == partnerID) ||
			(m.SenderID == partnerID && m.RecipientID == accountID)
	}, false), nil
}

func (repo *messageRepository) MarkMessageRead(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	m, ok := repo.db.table[id]
	if !ok {
		return message.ErrNotFound
	}
	m.IsRead = true
	m.UpdatedAt = core.Now()
	return nil
}

func (repo *messageRepository) DeleteMessage(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return message.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
