package tests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/ahmedramy514/khadamli-darasi/apps/api/echo"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/message"
	"github.com/ahmedramy514/khadamli-darasi/core/presence"
)

type socketEvent struct {
	Name    string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func readEvent(t *testing.T, conn *websocket.Conn) socketEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev socketEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

// waitOnline waits for the server side of a socket to join its room.
func waitOnline(t *testing.T, reg *presence.Registry, accountID string) {
	t.Helper()
	assert.Eventually(t, func() bool { return reg.IsOnline(accountID) }, 5*time.Second, 10*time.Millisecond)
}

func Test_socket(t *testing.T) {
	e := setup(t)
	srv := httptest.NewServer(e.app)
	defer srv.Close()

	ada := e.createAccount(t, "Ada", "ada@test.cd", account.RoleTeacher)
	bob := e.createAccount(t, "Bob", "bob@test.cd", account.RoleStudent)

	_, resp, err := dial(t, srv, "not-a-token")
	require.Error(t, err)
	if assert.NotNil(t, resp) {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	bobConn, _, err := dial(t, srv, e.token(t, bob))
	require.NoError(t, err)
	defer bobConn.Close()
	adaConn, _, err := dial(t, srv, e.token(t, ada))
	require.NoError(t, err)
	defer adaConn.Close()
	waitOnline(t, e.presence, bob.ID)
	waitOnline(t, e.presence, ada.ID)

	// a message is pushed live, then its notification
	rec := e.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/messages",
		token:    e.token(t, ada),
		body:     []byte(`{"recipient_id": "` + bob.ID + `", "content": "hello"}`),
		wantCode: http.StatusCreated,
	})
	var msg message.Message
	unmarshal(t, rec, &msg)

	ev := readEvent(t, bobConn)
	assert.Equal(t, message.EventName, ev.Name)
	assert.Equal(t, msg.ID, ev.Payload["id"])
	ev = readEvent(t, bobConn)
	assert.Equal(t, "notification", ev.Name)
	assert.Equal(t, msg.ID, ev.Payload["related_id"])

	// typing signals are relayed, never stored
	require.NoError(t, bobConn.WriteJSON(map[string]interface{}{
		"event":   TypingEvent,
		"payload": map[string]string{"to": ada.ID},
	}))
	ev = readEvent(t, adaConn)
	assert.Equal(t, TypingEvent, ev.Name)
	assert.Equal(t, bob.ID, ev.Payload["from"])

	require.NoError(t, bobConn.Close())
	assert.Eventually(t, func() bool { return !e.presence.IsOnline(bob.ID) }, 5*time.Second, 10*time.Millisecond)
}
