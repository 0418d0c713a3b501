package pgstorage

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/andymarkow/botmarket/internal/domain/deposits"
	"github.com/andymarkow/botmarket/internal/domain/invites"
	"github.com/andymarkow/botmarket/internal/domain/settings"
	"github.com/andymarkow/botmarket/internal/domain/users"
	"github.com/andymarkow/botmarket/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "connection refused", err: syscall.ECONNREFUSED, want: true},
		{name: "connection exception", err: &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, want: true},
		{name: "serialization failure", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: onePendingIndex}

	assert.True(t, isUniqueViolation(err, ""))
	assert.True(t, isUniqueViolation(err, onePendingIndex))
	assert.False(t, isUniqueViolation(err, "users_email_key"))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, ""))
}

func TestValidID(t *testing.T) {
	assert.True(t, validID(uuid.NewString()))
	assert.False(t, validID("42"))
	assert.False(t, validID(""))
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("permanent")

	err := WithRetry(func() error {
		calls++

		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

// newTestStorage connects to DATABASE_URI and applies migrations. Each test works with
// fresh uuids, so runs against a shared database do not collide.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dsn := os.Getenv("DATABASE_URI")
	if dsn == "" {
		t.Skip("DATABASE_URI is not set")
	}

	s, err := NewStorage(dsn)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Bootstrap(context.Background())
	require.NoError(t, err)

	return s
}

func createTestUser(t *testing.T, s *Storage) *users.User {
	t.Helper()

	suffix := uuid.NewString()[:8]

	usr, err := users.CreateUser(suffix+"@example.com", "user_"+suffix, "hash")
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(context.Background(), usr))

	return usr
}

func newPendingDeposit(t *testing.T, userID, amount string, now time.Time) *deposits.Deposit {
	t.Helper()

	dep, err := deposits.NewDeposit(deposits.NewParams{
		UserID:   userID,
		Amount:   decimal.RequireFromString(amount),
		Currency: "ETH",
		Timeout:  time.Hour,
		Now:      now,
	})
	require.NoError(t, err)

	return dep
}

func TestDepositLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	usr := createTestUser(t, s)
	admin := createTestUser(t, s)
	now := time.Now().UTC().Truncate(time.Microsecond)

	dep := newPendingDeposit(t, usr.ID(), "75.50", now)
	require.NoError(t, s.CreateDeposit(ctx, dep))

	second := newPendingDeposit(t, usr.ID(), "60", now)
	assert.ErrorIs(t, s.CreateDeposit(ctx, second), storage.ErrActiveDepositExists)

	got, err := s.GetDeposit(ctx, dep.ID())
	require.NoError(t, err)
	assert.True(t, dep.Amount().Equal(got.Amount()))
	assert.Equal(t, deposits.StatusPending, got.Status())

	confirmed, err := s.ConfirmDeposit(ctx, dep.ID(), admin.ID(), now)
	require.NoError(t, err)
	assert.Equal(t, deposits.StatusConfirmed, confirmed.Status())
	assert.Equal(t, admin.ID(), confirmed.ConfirmedBy())

	_, err = s.ConfirmDeposit(ctx, dep.ID(), admin.ID(), now)
	assert.ErrorIs(t, err, storage.ErrDepositNotPending)

	owner, err := s.GetUser(ctx, usr.ID())
	require.NoError(t, err)
	assert.Equal(t, "75.5", owner.WalletBalance().String())

	balance, err := s.SyncUserBalance(ctx, usr.ID())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("75.50").Equal(balance))

	list, total, err := s.ListDeposits(ctx, storage.DepositFilter{
		UserID:   usr.ID(),
		Statuses: []deposits.Status{deposits.StatusConfirmed},
	}, storage.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, dep.ID(), list[0].ID())
}

func TestConcurrentConfirmCreditsOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	usr := createTestUser(t, s)
	admin := createTestUser(t, s)

	dep := newPendingDeposit(t, usr.ID(), "100", time.Now().UTC())
	require.NoError(t, s.CreateDeposit(ctx, dep))

	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _ = s.ConfirmDeposit(ctx, dep.ID(), admin.ID(), time.Now().UTC())
		}()
	}

	wg.Wait()

	owner, err := s.GetUser(ctx, usr.ID())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(owner.WalletBalance()))
}

func TestExpireDeposits(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	usr := createTestUser(t, s)
	past := time.Now().UTC().Add(-2 * time.Hour)

	dep := newPendingDeposit(t, usr.ID(), "60", past)
	require.NoError(t, s.CreateDeposit(ctx, dep))

	n, err := s.ExpireDeposits(ctx, usr.ID(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetDeposit(ctx, dep.ID())
	require.NoError(t, err)
	assert.Equal(t, deposits.StatusExpired, got.Status())

	require.NoError(t, s.CreateDeposit(ctx, newPendingDeposit(t, usr.ID(), "60", time.Now().UTC())))
}

func TestInviteRegistration(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	code, err := invites.GenerateInviteCode("", 1)
	require.NoError(t, err)
	require.NoError(t, s.CreateInviteCode(ctx, code))

	suffix := uuid.NewString()[:8]

	usr, err := users.CreateUser(suffix+"@example.com", "inv_"+suffix, "hash")
	require.NoError(t, err)
	require.NoError(t, s.CreateUserWithInvite(ctx, usr, code.Code()))

	stored, err := s.GetInviteCode(ctx, code.Code())
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount())

	other, err := users.CreateUser("x"+suffix+"@example.com", "inx_"+suffix, "hash")
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateUserWithInvite(ctx, other, code.Code()), storage.ErrInviteUnusable)
}

func TestWalletSettingsUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	ws, err := settings.New(decimal.NewFromInt(25), []string{"btc", "usdt"})
	require.NoError(t, err)
	require.NoError(t, s.SaveWalletSettings(ctx, ws))

	got, err := s.GetWalletSettings(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(got.MinimumDeposit))
	assert.Equal(t, []string{"BTC", "USDT"}, got.SupportedCurrencies)
}
