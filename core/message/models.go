package message

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahmedramy514/khadamli-darasi/core"
)

const (
	// EventName is the live event pushed to the recipient channels.
	EventName = "new_message"

	InboxLimit = 100
)

type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	ClassroomID string    `json:"classroom_id,omitempty"`
	Content     string    `json:"content"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type NewMessage struct {
	RecipientID string `json:"recipient_id" validate:"required,notblank"`
	ClassroomID string `json:"classroom_id"`
	Content     string `json:"content" validate:"required,notblank"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.RecipientID = core.CleanString(nm.RecipientID)
	nm.ClassroomID = core.CleanString(nm.ClassroomID)
	nm.Content = core.CleanString(nm.Content)
	return validate.Struct(nm)
}
