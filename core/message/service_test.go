package message_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/message"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
	"github.com/ahmedramy514/khadamli-darasi/core/presence"
	dummydb "github.com/ahmedramy514/khadamli-darasi/storage/database/dummy"
	testutil "github.com/ahmedramy514/khadamli-darasi/tests"
)

type fakeChannel struct {
	id     string
	events []presence.Event
}

func (ch *fakeChannel) ID() string { return ch.id }

func (ch *fakeChannel) Send(ev presence.Event) error {
	ch.events = append(ch.events, ev)
	return nil
}

type testEnv struct {
	notifications *notification.Service
	registry      *presence.Registry
	svc           *message.Service

	ada, bob, eve account.Account
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	// every message gets its own timestamp
	now := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	t.Cleanup(func() { core.NowFunc = time.Now })

	db := dummydb.Open()
	logger := testutil.NewLogger()
	accounts := account.NewService(dummydb.NewAccountRepository(db), nil, logger)

	env := &testEnv{registry: presence.NewRegistry(logger)}
	env.notifications = notification.NewService(dummydb.NewNotificationRepository(db), env.registry, logger)
	env.svc = message.NewService(dummydb.NewMessageRepository(db), accounts, env.notifications, env.registry, logger)

	env.ada = testutil.CreateAccount(t, accounts, "Ada", "ada@test.cd", account.RoleTeacher)
	env.bob = testutil.CreateAccount(t, accounts, "Bob", "bob@test.cd", account.RoleStudent)
	env.eve = testutil.CreateAccount(t, accounts, "Eve", "eve@test.cd", account.RoleStudent)
	return env
}

func (env *testEnv) send(t *testing.T, from, to account.Account, content string) message.Message {
	t.Helper()
	msg, err := env.svc.Send(context.Background(), from.ID, message.NewMessage{RecipientID: to.ID, Content: content})
	require.NoError(t, err)
	return msg
}

func TestService_Send(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	live := &fakeChannel{id: "bob-phone"}
	env.registry.Connect(env.bob.ID, live)

	msg := env.send(t, env.ada, env.bob, "See me after class")
	assert.Equal(t, env.ada.ID, msg.SenderID)
	assert.Equal(t, env.bob.ID, msg.RecipientID)
	assert.False(t, msg.IsRead)

	// the message itself, then its notification
	if assert.Len(t, live.events, 2) {
		assert.Equal(t, presence.Event{Name: message.EventName, Payload: msg}, live.events[0])
		assert.Equal(t, notification.EventName, live.events[1].Name)
	}

	ns, err := env.notifications.List(ctx, env.bob.ID)
	require.NoError(t, err)
	if assert.Len(t, ns, 1) {
		assert.Equal(t, notification.TypeMessage, ns[0].Type)
		assert.Equal(t, msg.ID, ns[0].RelatedID)
		assert.Equal(t, "Message from Ada", ns[0].Description)
	}

	_, err = env.svc.Send(ctx, env.ada.ID, message.NewMessage{RecipientID: "lol", Content: "hi"})
	assert.True(t, errors.Is(err, account.ErrNotFound))
	_, err = env.svc.Send(ctx, "lol", message.NewMessage{RecipientID: env.bob.ID, Content: "hi"})
	assert.True(t, errors.Is(err, account.ErrNotFound))
}

func TestService_InboxAndConversation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	m1 := env.send(t, env.ada, env.bob, "one")
	m2 := env.send(t, env.bob, env.ada, "two")
	m3 := env.send(t, env.eve, env.bob, "three")
	m4 := env.send(t, env.ada, env.bob, "four")

	inbox, err := env.svc.Inbox(ctx, env.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []message.Message{m4, m3, m2, m1}, inbox)

	conv, err := env.svc.Conversation(ctx, env.bob.ID, env.ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []message.Message{m1, m2, m4}, conv)

	conv, err = env.svc.Conversation(ctx, env.ada.ID, env.eve.ID)
	require.NoError(t, err)
	assert.Empty(t, conv)
}

func TestService_MarkRead(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	msg := env.send(t, env.ada, env.bob, "hi")

	assert.Equal(t, core.ErrForbidden, env.svc.MarkRead(ctx, msg.ID, env.ada.ID))
	assert.Equal(t, core.ErrForbidden, env.svc.MarkRead(ctx, msg.ID, env.eve.ID))
	require.NoError(t, env.svc.MarkRead(ctx, msg.ID, env.bob.ID))

	conv, err := env.svc.Conversation(ctx, env.bob.ID, env.ada.ID)
	require.NoError(t, err)
	if assert.Len(t, conv, 1) {
		assert.True(t, conv[0].IsRead)
		assert.True(t, conv[0].UpdatedAt.After(msg.UpdatedAt))
	}

	assert.True(t, errors.Is(env.svc.MarkRead(ctx, "lol", env.bob.ID), message.ErrNotFound))
}

func TestService_Delete(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	m1 := env.send(t, env.ada, env.bob, "one")
	m2 := env.send(t, env.ada, env.bob, "two")

	assert.Equal(t, core.ErrForbidden, env.svc.Delete(ctx, m1.ID, env.eve.ID))
	require.NoError(t, env.svc.Delete(ctx, m1.ID, env.ada.ID))
	require.NoError(t, env.svc.Delete(ctx, m2.ID, env.bob.ID))

	inbox, err := env.svc.Inbox(ctx, env.bob.ID)
	require.NoError(t, err)
	assert.Empty(t, inbox)
	assert.True(t, errors.Is(env.svc.Delete(ctx, m1.ID, env.ada.ID), message.ErrNotFound))
}
