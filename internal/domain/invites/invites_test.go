package invites

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInviteCode(t *testing.T) {
	code, err := GenerateInviteCode("admin", 2)
	require.NoError(t, err)

	assert.Len(t, code.Code(), 12)
	assert.Equal(t, NormalizeCode(code.Code()), code.Code())
	assert.True(t, code.Active())

	_, err = GenerateInviteCode("admin", 0)
	assert.ErrorIs(t, err, ErrInviteMaxUsesRange)
}

func TestRedeem(t *testing.T) {
	code := NewInviteCode("ABC", 2, 0, true, "admin", time.Now())

	require.NoError(t, code.Redeem())
	require.NoError(t, code.Redeem())
	assert.ErrorIs(t, code.Redeem(), ErrInviteExhausted)
	assert.Equal(t, 2, code.UsedCount())

	inactive := NewInviteCode("DEF", 5, 0, false, "admin", time.Now())
	assert.ErrorIs(t, inactive.CheckUsable(), ErrInviteInactive)
}
