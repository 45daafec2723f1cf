package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-with-enough-length-32b"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims *CustomClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestParseAccessToken(t *testing.T) {
	v, err := NewTokenVerifier(secret)
	require.NoError(t, err)

	valid := &CustomClaims{
		UserID:   7,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	claims, err := v.ParseAccessToken(sign(t, jwt.SigningMethodHS256, []byte(secret), valid))
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.False(t, claims.Admin)

	tests := []struct {
		name  string
		token string
	}{
		{"错误的密钥", sign(t, jwt.SigningMethodHS256, []byte("other"), valid)},
		{"已过期", sign(t, jwt.SigningMethodHS256, []byte(secret), &CustomClaims{
			UserID:           7,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		})},
		{"不允许的算法", sign(t, jwt.SigningMethodHS384, []byte(secret), valid)},
		{"缺少用户ID", sign(t, jwt.SigningMethodHS256, []byte(secret), &CustomClaims{Username: "bob"})},
		{"格式错误", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ParseAccessToken(tt.token)
			assert.Error(t, err)
		})
	}

	_, err = NewTokenVerifier("")
	assert.Error(t, err)
}
