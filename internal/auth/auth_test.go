package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	a := NewJWTAuth([]byte("secret"))

	token, err := a.CreateJWTString("user-42")
	require.NoError(t, err)

	sub, err := a.ParseJWTString(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", sub)

	_, err = NewJWTAuth([]byte("other")).ParseJWTString(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTExpired(t *testing.T) {
	a := NewJWTAuth([]byte("secret"), WithTokenTTL(time.Minute))
	a.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := a.CreateJWTString("user-42")
	require.NoError(t, err)

	_, err = a.ParseJWTString(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	require.NoError(t, ComparePassword(hash, "correct horse"))
	assert.ErrorIs(t, ComparePassword(hash, "battery staple"), ErrPasswordMismatch)
}
