package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/ahmedramy514/khadamli-darasi/apps/api/echo"
	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/activity"
	"github.com/ahmedramy514/khadamli-darasi/core/message"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
	"github.com/ahmedramy514/khadamli-darasi/core/presence"
	dummydb "github.com/ahmedramy514/khadamli-darasi/storage/database/dummy"
	testutil "github.com/ahmedramy514/khadamli-darasi/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// env is a running API backed by in-memory storage.
type env struct {
	conf          *core.Config
	app           *Server
	accounts      *account.Service
	activity      *activity.Service
	notifications *notification.Service
	messages      *message.Service
	presence      *presence.Registry
}

func setup(t *testing.T) *env {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Server.RateLimit = 0

	logger := testutil.NewLogger()
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)

	db := dummydb.Open()
	e := &env{conf: conf, presence: presence.NewRegistry(logger)}
	e.accounts = account.NewService(dummydb.NewAccountRepository(db), nil, logger)
	e.notifications = notification.NewService(dummydb.NewNotificationRepository(db), e.presence, logger)
	e.activity = activity.NewService(dummydb.NewActivityRepository(db), e.accounts, e.notifications, activity.RatingsUnique, logger)
	e.messages = message.NewService(dummydb.NewMessageRepository(db), e.accounts, e.notifications, e.presence, logger)

	e.app = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		Accounts:      e.accounts,
		Activity:      e.activity,
		Notifications: e.notifications,
		Messages:      e.messages,
		Presence:      e.presence,
	})
	return e
}

func (e *env) createAccount(t *testing.T, name, email, role string) account.Account {
	return testutil.CreateAccount(t, e.accounts, name, email, role)
}

func (e *env) token(t *testing.T, acc account.Account) string {
	t.Helper()
	token, err := GenerateToken(e.conf, NewClaims(e.conf, acc))
	if err != nil {
		t.Fatalf("token(): %v", err)
	}
	return token
}

// do runs tt against the server and checks the response code and, when set, its body.
func (e *env) do(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	e.app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte // not checked when nil
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal(): %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
