package notification_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
	"github.com/ahmedramy514/khadamli-darasi/core/presence"
	dummydb "github.com/ahmedramy514/khadamli-darasi/storage/database/dummy"
	testutil "github.com/ahmedramy514/khadamli-darasi/tests"
)

type fakeChannel struct {
	id     string
	err    error
	mu     sync.Mutex
	events []presence.Event
}

func (ch *fakeChannel) ID() string { return ch.id }

func (ch *fakeChannel) Send(ev presence.Event) error {
	if ch.err != nil {
		return ch.err
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.events = append(ch.events, ev)
	return nil
}

// brokenRepository fails every write.
type brokenRepository struct {
	notification.Repository
}

func (brokenRepository) CreateNotification(context.Context, notification.Notification) (notification.Notification, error) {
	return notification.Notification{}, errors.New("disk full")
}

func newService(pub notification.Publisher) *notification.Service {
	return notification.NewService(dummydb.NewNotificationRepository(dummydb.Open()), pub, testutil.NewLogger())
}

func notify(t *testing.T, svc *notification.Service, recipientID string) notification.Notification {
	t.Helper()
	n, err := svc.Notify(context.Background(), notification.NewNotification{
		RecipientID: recipientID,
		Type:        notification.TypeMessage,
		Title:       "New message",
		Description: "Ada sent you a message",
		RelatedID:   "msg-1",
	})
	require.NoError(t, err)
	return n
}

func TestService_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("offline recipient", func(t *testing.T) {
		svc := newService(presence.NewRegistry(testutil.NewLogger()))
		n := notify(t, svc, "bob")
		assert.NotEmpty(t, n.ID)
		assert.False(t, n.IsRead)
		assert.Equal(t, "msg-1", n.RelatedID)

		ns, err := svc.List(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []notification.Notification{n}, ns)
	})

	t.Run("live recipient", func(t *testing.T) {
		reg := presence.NewRegistry(testutil.NewLogger())
		live := &fakeChannel{id: "h1"}
		reg.Connect("bob", live)
		reg.Connect("bob", &fakeChannel{id: "h2", err: presence.ErrChannelClosed})
		svc := newService(reg)

		n := notify(t, svc, "bob")
		if assert.Len(t, live.events, 1) {
			assert.Equal(t, notification.EventName, live.events[0].Name)
			assert.Equal(t, n, live.events[0].Payload)
		}

		count, err := svc.UnreadCount(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("no publisher", func(t *testing.T) {
		svc := newService(nil)
		notify(t, svc, "bob")
		count, err := svc.UnreadCount(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("persistence failure", func(t *testing.T) {
		live := &fakeChannel{id: "h1"}
		reg := presence.NewRegistry(testutil.NewLogger())
		reg.Connect("bob", live)
		svc := notification.NewService(brokenRepository{}, reg, testutil.NewLogger())

		_, err := svc.Notify(ctx, notification.NewNotification{RecipientID: "bob", Type: notification.TypeGrade})
		assert.Error(t, err)
		assert.Empty(t, live.events)
	})
}

func TestService_MarkRead(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	n := notify(t, svc, "bob")

	assert.Equal(t, core.ErrForbidden, svc.MarkRead(ctx, n.ID, "eve"))
	assert.True(t, errors.Is(svc.MarkRead(ctx, "lol", "bob"), notification.ErrNotFound))

	require.NoError(t, svc.MarkRead(ctx, n.ID, "bob"))
	count, err := svc.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, count)

	// idempotent
	require.NoError(t, svc.MarkRead(ctx, n.ID, "bob"))
}

func TestService_MarkAllRead(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	for i := 0; i < 2; i++ {
		n := notify(t, svc, "bob")
		require.NoError(t, svc.MarkRead(ctx, n.ID, "bob"))
	}
	for i := 0; i < 5; i++ {
		notify(t, svc, "bob")
	}
	notify(t, svc, "alice")

	count, err := svc.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	changed, err := svc.MarkAllRead(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 5, changed)

	ns, err := svc.List(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, ns, 7)
	for _, n := range ns {
		assert.True(t, n.IsRead)
	}

	changed, err = svc.MarkAllRead(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, changed)

	// other recipients are untouched
	count, err = svc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	n := notify(t, svc, "bob")

	assert.Equal(t, core.ErrForbidden, svc.Delete(ctx, n.ID, "eve"))
	require.NoError(t, svc.Delete(ctx, n.ID, "bob"))

	ns, err := svc.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, ns)
	assert.True(t, errors.Is(svc.Delete(ctx, n.ID, "bob"), notification.ErrNotFound))
}

type recordingMailer struct {
	sent []*core.EmailMessage
}

func (m *recordingMailer) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

func TestService_SendUnreadDigests(t *testing.T) {
	ctx := context.Background()
	db := dummydb.Open()
	accounts := account.NewService(dummydb.NewAccountRepository(db), nil, testutil.NewLogger())
	svc := notification.NewService(dummydb.NewNotificationRepository(db), nil, testutil.NewLogger())

	bob := testutil.CreateAccount(t, accounts, "Bob", "bob@test.cd", account.RoleStudent)
	alice := testutil.CreateAccount(t, accounts, "Alice", "alice@test.cd", account.RoleStudent)
	notify(t, svc, bob.ID)
	notify(t, svc, bob.ID)
	n := notify(t, svc, alice.ID)
	require.NoError(t, svc.MarkRead(ctx, n.ID, alice.ID))

	mailer := &recordingMailer{}
	sent, err := svc.SendUnreadDigests(ctx, accounts, mailer)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	if assert.Len(t, mailer.sent, 1) {
		msg := mailer.sent[0]
		assert.Equal(t, "bob@test.cd", msg.To[0].Address)
		assert.Equal(t, notification.DigestTemplate, msg.TemplateName)
		assert.Equal(t, "You have 2 unread notification(s)", msg.Subject)
	}
}
