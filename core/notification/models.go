package notification

import "time"

type Type string

const (
	TypeMessage Type = "message"
	TypeAnswer  Type = "answer"
	TypeRating  Type = "rating"
	TypeGrade   Type = "grade"
	TypeBadge   Type = "badge"
)

const (
	// EventName is the live event pushed to the recipient channels.
	EventName = "notification"

	ListLimit = 50
)

type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Type        Type      `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RelatedID   string    `json:"related_id"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type NewNotification struct {
	RecipientID string
	Type        Type
	Title       string
	Description string
	RelatedID   string
}

// QueryFilter applies AND operation on its set fields.
type QueryFilter struct {
	IDs         []string
	RecipientID string
	IsRead      *bool
	Limit       int // no limit when <= 0
}

func Unread() *bool {
	b := false
	return &b
}
