package inmemory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/andymarkow/botmarket/internal/domain/deposits"
	"github.com/andymarkow/botmarket/internal/domain/invites"
	"github.com/andymarkow/botmarket/internal/domain/settings"
	"github.com/andymarkow/botmarket/internal/domain/users"
	"github.com/andymarkow/botmarket/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, s *Storage, email, username string) *users.User {
	t.Helper()

	usr, err := users.CreateUser(email, username, "hash")
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(context.Background(), usr))

	return usr
}

func newDeposit(t *testing.T, userID, amount string, now time.Time) *deposits.Deposit {
	t.Helper()

	dep, err := deposits.NewDeposit(deposits.NewParams{
		UserID:   userID,
		Amount:   decimal.RequireFromString(amount),
		Currency: "BTC",
		Timeout:  time.Hour,
		Now:      now,
	})
	require.NoError(t, err)

	return dep
}

func TestCreateUserUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	newUser(t, s, "alice@example.com", "alice")

	dup, err := users.CreateUser("ALICE@example.com", "other", "hash")
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateUser(ctx, dup), storage.ErrUserAlreadyExists)

	dup, err = users.CreateUser("other@example.com", "Alice", "hash")
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateUser(ctx, dup), storage.ErrUserAlreadyExists)

	byName, err := s.GetUserByLogin(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byName.Email())

	_, err = s.GetUserByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestCreateUserWithInvite(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	require.NoError(t, s.CreateInviteCode(ctx, invites.NewInviteCode("CODE1", 1, 0, true, "admin", time.Now())))

	first, err := users.CreateUser("a@example.com", "first", "hash")
	require.NoError(t, err)
	require.NoError(t, s.CreateUserWithInvite(ctx, first, "code1"))

	second, err := users.CreateUser("b@example.com", "second", "hash")
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateUserWithInvite(ctx, second, "CODE1"), storage.ErrInviteUnusable)
	assert.ErrorIs(t, s.CreateUserWithInvite(ctx, second, "missing"), storage.ErrInviteNotFound)

	code, err := s.GetInviteCode(ctx, "CODE1")
	require.NoError(t, err)
	assert.Equal(t, 1, code.UsedCount())

	_, err = s.GetUser(ctx, second.ID())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestOnePendingDepositPerUser(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	usr := newUser(t, s, "a@example.com", "alice")
	now := time.Now()

	require.NoError(t, s.CreateDeposit(ctx, newDeposit(t, usr.ID(), "60", now)))
	assert.ErrorIs(t, s.CreateDeposit(ctx, newDeposit(t, usr.ID(), "70", now)), storage.ErrActiveDepositExists)
}

func TestConcurrentCreateDepositLeavesOnePending(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	usr := newUser(t, s, "a@example.com", "alice")
	now := time.Now()

	deps := make([]*deposits.Deposit, 8)
	for i := range deps {
		deps[i] = newDeposit(t, usr.ID(), "60", now)
	}

	var wg sync.WaitGroup

	for _, dep := range deps {
		wg.Add(1)

		go func(dep *deposits.Deposit) {
			defer wg.Done()

			_ = s.CreateDeposit(ctx, dep)
		}(dep)
	}

	wg.Wait()

	_, total, err := s.ListDeposits(ctx, storage.DepositFilter{UserID: usr.ID(), Statuses: []deposits.Status{deposits.StatusPending}}, storage.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestConfirmDepositCreditsOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	usr := newUser(t, s, "a@example.com", "alice")
	dep := newDeposit(t, usr.ID(), "75.50", time.Now())
	require.NoError(t, s.CreateDeposit(ctx, dep))

	confirmed, err := s.ConfirmDeposit(ctx, dep.ID(), "admin-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, deposits.StatusConfirmed, confirmed.Status())

	_, err = s.ConfirmDeposit(ctx, dep.ID(), "admin-1", time.Now())
	assert.ErrorIs(t, err, storage.ErrDepositNotPending)

	_, err = s.ConfirmDeposit(ctx, "missing", "admin-1", time.Now())
	assert.ErrorIs(t, err, storage.ErrDepositNotFound)

	got, err := s.GetUser(ctx, usr.ID())
	require.NoError(t, err)
	assert.Equal(t, "75.50", got.WalletBalance().StringFixed(2))
}

func TestExpireDeposits(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	alice := newUser(t, s, "a@example.com", "alice")
	bob := newUser(t, s, "b@example.com", "bob")
	past := time.Now().Add(-2 * time.Hour)

	require.NoError(t, s.CreateDeposit(ctx, newDeposit(t, alice.ID(), "60", past)))
	require.NoError(t, s.CreateDeposit(ctx, newDeposit(t, bob.ID(), "60", past)))

	n, err := s.ExpireDeposits(ctx, alice.ID(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.ExpireDeposits(ctx, "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.CreateDeposit(ctx, newDeposit(t, alice.ID(), "60", time.Now())))
}

func TestSyncUserBalance(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	usr := newUser(t, s, "a@example.com", "alice")

	for _, amount := range []string{"10.00", "75.50"} {
		dep := newDeposit(t, usr.ID(), amount, time.Now())
		require.NoError(t, s.CreateDeposit(ctx, dep))
		_, err := s.ConfirmDeposit(ctx, dep.ID(), "admin", time.Now())
		require.NoError(t, err)
	}

	require.NoError(t, s.CreateDeposit(ctx, newDeposit(t, usr.ID(), "999", time.Now())))

	total, err := s.SyncUserBalance(ctx, usr.ID())
	require.NoError(t, err)
	assert.Equal(t, "85.50", total.StringFixed(2))

	_, err = s.SyncUserBalance(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestListDepositsPagination(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	usr := newUser(t, s, "a@example.com", "alice")
	base := time.Now().Add(-time.Hour)

	ids := make([]string, 0, 5)

	for i := 0; i < 5; i++ {
		dep := newDeposit(t, usr.ID(), "60", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.CreateDeposit(ctx, dep))
		_, err := s.ConfirmDeposit(ctx, dep.ID(), "admin", time.Now())
		require.NoError(t, err)
		ids = append(ids, dep.ID())
	}

	page, total, err := s.ListDeposits(ctx, storage.DepositFilter{UserID: usr.ID()}, storage.Page{Number: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID())
	assert.Equal(t, ids[1], page[1].ID())

	page, _, err = s.ListDeposits(ctx, storage.DepositFilter{UserID: usr.ID()}, storage.Page{Number: 4, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestListPendingDepositsJoinsOwner(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	usr := newUser(t, s, "a@example.com", "alice")
	require.NoError(t, s.CreateDeposit(ctx, newDeposit(t, usr.ID(), "60", time.Now())))

	pending, total, err := s.ListPendingDeposits(ctx, storage.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].Username)
	assert.Equal(t, "a@example.com", pending[0].Email)
}

func TestWalletSettings(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	_, err := s.GetWalletSettings(ctx)
	assert.ErrorIs(t, err, storage.ErrSettingsNotFound)

	ws, err := settings.New(decimal.NewFromInt(20), []string{"BTC"})
	require.NoError(t, err)
	require.NoError(t, s.SaveWalletSettings(ctx, ws))

	got, err := s.GetWalletSettings(ctx)
	require.NoError(t, err)
	assert.True(t, got.MinimumDeposit.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, []string{"BTC"}, got.SupportedCurrencies)
}
