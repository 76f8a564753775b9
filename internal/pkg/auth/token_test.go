package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestIssueAndVerifyToken(t *testing.T) {
	token, err := IssueToken(42, true, time.Hour, testSecret)
	require.NoError(t, err)

	p, err := VerifyToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(42), p.UserID)
	assert.True(t, p.IsAdmin)
}

func TestVerifyToken_Invalid(t *testing.T) {
	valid, err := IssueToken(7, false, time.Hour, testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "missing signature", token: "just-one-part"},
		{name: "bad payload encoding", token: "%%%.abc"},
		{name: "bad signature encoding", token: "abc.%%%"},
		{name: "tampered payload", token: base64.RawURLEncoding.EncodeToString([]byte(`{"user_id":1,"is_admin":true,"exp":9999999999}`)) + "." + valid[len(valid)-10:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := VerifyToken(tt.token, testSecret)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	token, err := IssueToken(7, false, time.Hour, testSecret)
	require.NoError(t, err)

	p, err := VerifyToken(token, "other-secret")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyToken_Expired(t *testing.T) {
	token, err := IssueToken(7, false, -time.Minute, testSecret)
	require.NoError(t, err)

	p, err := VerifyToken(token, testSecret)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyToken_AdminFlagComesFromSignedClaims(t *testing.T) {
	// A forged payload claiming admin must fail without a matching signature.
	claims := Claims{UserID: 7, IsAdmin: true, ExpiresAt: time.Now().Add(time.Hour).Unix()}
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("attacker-secret"))
	mac.Write(payload)
	forged := base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	p, err := VerifyToken(forged, testSecret)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
