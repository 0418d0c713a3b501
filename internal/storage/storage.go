package storage

import (
	"context"
	"errors"
	"time"

	"github.com/andymarkow/botmarket/internal/domain/deposits"
	"github.com/andymarkow/botmarket/internal/domain/invites"
	"github.com/andymarkow/botmarket/internal/domain/settings"
	"github.com/andymarkow/botmarket/internal/domain/users"
	"github.com/shopspring/decimal"
)

var (
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrDepositNotFound      = errors.New("deposit not found")
	ErrDepositNotPending    = errors.New("deposit is not pending")
	ErrActiveDepositExists  = errors.New("user already has an active deposit")
	ErrInviteNotFound       = errors.New("invite code not found")
	ErrInviteAlreadyExists  = errors.New("invite code already exists")
	ErrInviteUnusable       = errors.New("invite code is not usable")
	ErrSettingsNotFound     = errors.New("wallet settings not found")
	ErrStorageNotConfigured = errors.New("storage is not configured")
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}

	return (p.Number - 1) * p.Limit
}

// DepositFilter narrows deposit listings. Zero values mean "any".
type DepositFilter struct {
	UserID   string
	Statuses []deposits.Status
}

// HasStatus reports whether status passes the filter.
func (f DepositFilter) HasStatus(status deposits.Status) bool {
	if len(f.Statuses) == 0 {
		return true
	}

	for _, st := range f.Statuses {
		if st == status {
			return true
		}
	}

	return false
}

// PendingDeposit is a pending deposit joined with its owner for admin listings.
type PendingDeposit struct {
	Deposit  *deposits.Deposit
	UserID   string
	Username string
	Email    string
}

type UserStorage interface {
	CreateUser(ctx context.Context, usr *users.User) error
	// CreateUserWithInvite registers the user and redeems the invite code atomically.
	CreateUserWithInvite(ctx context.Context, usr *users.User, inviteCode string) error
	GetUser(ctx context.Context, id string) (*users.User, error)
	GetUserByLogin(ctx context.Context, login string) (*users.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	SetUserEmailVerified(ctx context.Context, id string) error
	SetUserAdmin(ctx context.Context, id string, isAdmin bool) error
}

type DepositStorage interface {
	// CreateDeposit fails with ErrActiveDepositExists when the user already has a pending deposit.
	CreateDeposit(ctx context.Context, dep *deposits.Deposit) error
	GetDeposit(ctx context.Context, id string) (*deposits.Deposit, error)
	ListDeposits(ctx context.Context, filter DepositFilter, page Page) ([]*deposits.Deposit, int, error)
	ListPendingDeposits(ctx context.Context, page Page) ([]PendingDeposit, int, error)
	// ConfirmDeposit flips a pending deposit to confirmed and credits the owner's wallet
	// in one atomic step. Returns ErrDepositNotPending for non-pending deposits.
	ConfirmDeposit(ctx context.Context, id, adminID string, at time.Time) (*deposits.Deposit, error)
	// ExpireDeposits flips pending deposits with timeout_at <= now to expired. When userID is
	// non-empty only that user's deposits are touched.
	ExpireDeposits(ctx context.Context, userID string, now time.Time) (int, error)
	// SyncUserBalance overwrites wallet_balance with the sum of confirmed deposits.
	SyncUserBalance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type InviteStorage interface {
	CreateInviteCode(ctx context.Context, code *invites.InviteCode) error
	GetInviteCode(ctx context.Context, code string) (*invites.InviteCode, error)
}

type SettingsStorage interface {
	GetWalletSettings(ctx context.Context) (settings.WalletSettings, error)
	SaveWalletSettings(ctx context.Context, s settings.WalletSettings) error
}

type Storage interface {
	UserStorage
	DepositStorage
	InviteStorage
	SettingsStorage
	Close() error
	Ping(ctx context.Context) error
}

func NewStorage(store Storage) Storage {
	return store
}
