package account

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_MarshalJSON(t *testing.T) {
	acc := Account{ID: "a1", Name: "Awe", Email: "awe@test.cd", Role: RoleHelper, Points: 155, PasswordHash: []byte("secret")}

	data, err := json.Marshal(acc)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, string(RankGold), got["rank"])
	assert.Equal(t, []interface{}{}, got["badges"])
	assert.NotContains(t, got, "PasswordHash")
	assert.NotContains(t, string(data), "secret")
}

func TestNewAccount_Validate(t *testing.T) {
	na := NewAccount{Name: " Awe ", Email: " AWE@Test.cd", Role: "", Password: "password", PasswordConfirm: "password"}
	validate := newValidator()

	require.NoError(t, na.Validate(validate))
	assert.Equal(t, "Awe", na.Name)
	assert.Equal(t, "awe@test.cd", na.Email)
	assert.Equal(t, RoleStudent, na.Role)

	na.Role = "admin"
	assert.Error(t, na.Validate(validate))
}
