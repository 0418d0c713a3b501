package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	usr, err := CreateUser(" Alice@Example.com ", "alice_1", "hash")
	require.NoError(t, err)

	assert.NotEmpty(t, usr.ID())
	assert.Equal(t, "alice@example.com", usr.Email())
	assert.True(t, usr.WalletBalance().IsZero())
	assert.False(t, usr.IsAdmin())
	assert.False(t, usr.EmailVerified())
}

func TestCreateUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		username string
		hash     string
		want     error
	}{
		{name: "empty email", email: "", username: "alice", hash: "h", want: ErrUserEmailEmpty},
		{name: "bad email", email: "not-an-email", username: "alice", hash: "h", want: ErrUserEmailInvalid},
		{name: "empty username", email: "a@b.io", username: "", hash: "h", want: ErrUserNameEmpty},
		{name: "short username", email: "a@b.io", username: "al", hash: "h", want: ErrUserNameInvalid},
		{name: "bad username", email: "a@b.io", username: "al ice", hash: "h", want: ErrUserNameInvalid},
		{name: "empty hash", email: "a@b.io", username: "alice", hash: "", want: ErrUserPasswdEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateUser(tt.email, tt.username, tt.hash)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword(""), ErrUserPasswdEmpty)
	assert.ErrorIs(t, ValidatePassword("short"), ErrUserPasswdTooWeak)
	assert.NoError(t, ValidatePassword("long-enough"))
}

func TestClone(t *testing.T) {
	usr, err := CreateUser("a@b.io", "alice", "hash")
	require.NoError(t, err)

	c := usr.Clone()
	c.SetAdmin(true)

	assert.False(t, usr.IsAdmin())
	assert.True(t, c.IsAdmin())
}
