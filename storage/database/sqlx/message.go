package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/message"
	"github.com/ahmedramy514/khadamli-darasi/storage/database"
)

const messageColumns = `id, sender_id, recipient_id, classroom_id, content, is_read, created_at, updated_at`

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) message.Repository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) query(ctx context.Context, q string, args ...interface{}) ([]message.Message, error) {
	rows, err := repo.db.QueryxContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return nil, database.StorageError("selecting messages", err)
	}
	defer func() { _ = rows.Close() }()

	msgs := make([]message.Message, 0)
	for rows.Next() {
		var m message.Message
		err = rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.ClassroomID, &m.Content, &m.IsRead, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, database.StorageError("scanning message", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		m.UpdatedAt = m.UpdatedAt.UTC()
		msgs = append(msgs, m)
	}
	return msgs, database.StorageError("scanning messages", rows.Err())
}

func (repo *messageRepository) CreateMessage(ctx context.Context, m message.Message) (message.Message, error) {
	q := repo.db.Rebind(`INSERT INTO messages (` + messageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q, m.ID, m.SenderID, m.RecipientID, m.ClassroomID, m.Content, m.IsRead, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return message.Message{}, account.ErrNotFound
		}
		return message.Message{}, database.StorageError("inserting message", err)
	}
	return m, nil
}

func (repo *messageRepository) GetMessageByID(ctx context.Context, id string) (message.Message, error) {
	msgs, err := repo.query(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	if err != nil {
		return message.Message{}, err
	}
	if len(msgs) == 0 {
		return message.Message{}, message.ErrNotFound
	}
	return msgs[0], nil
}

func (repo *messageRepository) QueryInbox(ctx context.Context, accountID string, limit int) ([]message.Message, error) {
	return repo.query(ctx, `SELECT `+messageColumns+` FROM messages
		WHERE sender_id = ? OR recipient_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`,
		accountID, accountID, limit,
	)
}

func (repo *messageRepository) QueryConversation(ctx context.Context, accountID, partnerID string) ([]message.Message, error) {
	return repo.query(ctx, `SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
		ORDER BY created_at ASC, id ASC`,
		accountID, partnerID, partnerID, accountID,
	)
}

// exec runs a statement touching a single message, reporting ErrNotFound when none matched.
func (repo *messageRepository) exec(ctx context.Context, op, q string, args ...interface{}) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return database.StorageError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return database.StorageError(op, err)
	}
	if n == 0 {
		return message.ErrNotFound
	}
	return nil
}

func (repo *messageRepository) MarkMessageRead(ctx context.Context, id string) error {
	return repo.exec(ctx, "marking message read", `UPDATE messages SET is_read = ?, updated_at = ? WHERE id = ?`, true, core.Now(), id)
}

func (repo *messageRepository) DeleteMessage(ctx context.Context, id string) error {
	return repo.exec(ctx, "deleting message", `DELETE FROM messages WHERE id = ?`, id)
}
