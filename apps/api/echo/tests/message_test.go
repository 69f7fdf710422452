package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/ahmedramy514/khadamli-darasi/apps/api/echo"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/message"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
)

func Test_messageAndNotificationApi(t *testing.T) {
	e := setup(t)
	ada := e.createAccount(t, "Ada", "ada@test.cd", account.RoleTeacher)
	bob := e.createAccount(t, "Bob", "bob@test.cd", account.RoleStudent)
	eve := e.createAccount(t, "Eve", "eve@test.cd", account.RoleStudent)
	adaToken, bobToken, eveToken := e.token(t, ada), e.token(t, bob), e.token(t, eve)

	e.do(t, httpTest{method: http.MethodPost, path: "/v1/messages", token: adaToken, body: []byte(`{"recipient_id": "` + bob.ID + `", "content": "  "}`), wantCode: http.StatusBadRequest})
	e.do(t, httpTest{method: http.MethodPost, path: "/v1/messages", token: adaToken, body: []byte(`{"recipient_id": "ghost", "content": "hi"}`), wantCode: http.StatusNotFound})

	rec := e.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/messages",
		token:    adaToken,
		body:     []byte(`{"recipient_id": "` + bob.ID + `", "content": "See me after class"}`),
		wantCode: http.StatusCreated,
	})
	var msg message.Message
	unmarshal(t, rec, &msg)
	assert.Equal(t, ada.ID, msg.SenderID)

	e.do(t, httpTest{method: http.MethodGet, path: "/v1/messages", token: bobToken, wantCode: http.StatusOK, wantData: marshalObj(t, []message.Message{msg})})
	e.do(t, httpTest{method: http.MethodGet, path: "/v1/messages/conversation/" + ada.ID, token: bobToken, wantCode: http.StatusOK, wantData: marshalObj(t, []message.Message{msg})})
	e.do(t, httpTest{method: http.MethodGet, path: "/v1/messages", token: eveToken, wantCode: http.StatusOK, wantData: []byte(`[]`)})

	// notifications
	e.do(t, httpTest{method: http.MethodGet, path: "/v1/notifications/unread-count", token: bobToken, wantCode: http.StatusOK, wantData: marshalObj(t, CountResponse{Count: 1})})

	rec = e.do(t, httpTest{method: http.MethodGet, path: "/v1/notifications", token: bobToken, wantCode: http.StatusOK})
	var ns []notification.Notification
	unmarshal(t, rec, &ns)
	require.Len(t, ns, 1)
	assert.Equal(t, notification.TypeMessage, ns[0].Type)
	assert.Equal(t, msg.ID, ns[0].RelatedID)

	e.do(t, httpTest{method: http.MethodPatch, path: "/v1/notifications/" + ns[0].ID + "/read", token: eveToken, wantCode: http.StatusForbidden})
	e.do(t, httpTest{method: http.MethodPatch, path: "/v1/notifications/nope/read", token: bobToken, wantCode: http.StatusNotFound})
	e.do(t, httpTest{method: http.MethodPatch, path: "/v1/notifications/" + ns[0].ID + "/read", token: bobToken, wantCode: http.StatusOK})
	e.do(t, httpTest{method: http.MethodPatch, path: "/v1/notifications/read-all", token: bobToken, wantCode: http.StatusOK, wantData: marshalObj(t, CountResponse{Count: 0})})
	e.do(t, httpTest{method: http.MethodDelete, path: "/v1/notifications/" + ns[0].ID, token: eveToken, wantCode: http.StatusForbidden})
	e.do(t, httpTest{method: http.MethodDelete, path: "/v1/notifications/" + ns[0].ID, token: bobToken, wantCode: http.StatusNoContent})

	// messages
	e.do(t, httpTest{method: http.MethodPatch, path: "/v1/messages/" + msg.ID + "/read", token: adaToken, wantCode: http.StatusForbidden})
	e.do(t, httpTest{method: http.MethodPatch, path: "/v1/messages/" + msg.ID + "/read", token: bobToken, wantCode: http.StatusOK})
	e.do(t, httpTest{method: http.MethodDelete, path: "/v1/messages/" + msg.ID, token: eveToken, wantCode: http.StatusForbidden})
	e.do(t, httpTest{method: http.MethodDelete, path: "/v1/messages/" + msg.ID, token: adaToken, wantCode: http.StatusNoContent})
	e.do(t, httpTest{method: http.MethodDelete, path: "/v1/messages/" + msg.ID, token: adaToken, wantCode: http.StatusNotFound})
}
