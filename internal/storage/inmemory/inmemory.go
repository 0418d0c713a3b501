package inmemory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andymarkow/botmarket/internal/domain/deposits"
	"github.com/andymarkow/botmarket/internal/domain/invites"
	"github.com/andymarkow/botmarket/internal/domain/settings"
	"github.com/andymarkow/botmarket/internal/domain/users"
	"github.com/andymarkow/botmarket/internal/storage"
	"github.com/shopspring/decimal"
)

var _ storage.Storage = (*Storage)(nil)

// Storage keeps everything in process memory. A single mutex serializes all operations, which
// gives the same one-pending-deposit and confirm-and-credit atomicity as the Postgres store.
type Storage struct {
	mu       sync.Mutex
	users    map[string]*users.User
	deposits map[string]*deposits.Deposit
	invites  map[string]*invites.InviteCode
	settings *settings.WalletSettings
}

func NewStorage() *Storage {
	return &Storage{
		users:    make(map[string]*users.User),
		deposits: make(map[string]*deposits.Deposit),
		invites:  make(map[string]*invites.InviteCode),
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) CreateUser(_ context.Context, usr *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertUser(usr)
}

func (s *Storage) CreateUserWithInvite(_ context.Context, usr *users.User, inviteCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.invites[invites.NormalizeCode(inviteCode)]
	if !ok {
		return storage.ErrInviteNotFound
	}

	if err := code.CheckUsable(); err != nil {
		return errors.Join(storage.ErrInviteUnusable, err)
	}

	if err := s.insertUser(usr); err != nil {
		return err
	}

	return code.Redeem()
}

func (s *Storage) insertUser(usr *users.User) error {
	for _, u := range s.users {
		if u.ID() == usr.ID() || u.Email() == usr.Email() || strings.EqualFold(u.Username(), usr.Username()) {
			return storage.ErrUserAlreadyExists
		}
	}

	s.users[usr.ID()] = usr.Clone()

	return nil
}

func (s *Storage) GetUser(_ context.Context, id string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	return usr.Clone(), nil
}

func (s *Storage) GetUserByLogin(_ context.Context, login string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := users.NormalizeEmail(login)

	for _, u := range s.users {
		if u.Email() == email || strings.EqualFold(u.Username(), strings.TrimSpace(login)) {
			return u.Clone(), nil
		}
	}

	return nil, storage.ErrUserNotFound
}

func (s *Storage) UpdateUserPassword(_ context.Context, id, passwordHash string) error {
	return s.mutateUser(id, func(u *users.User) { u.SetPasswordHash(passwordHash) })
}

func (s *Storage) SetUserEmailVerified(_ context.Context, id string) error {
	return s.mutateUser(id, func(u *users.User) { u.SetEmailVerified(true) })
}

func (s *Storage) SetUserAdmin(_ context.Context, id string, isAdmin bool) error {
	return s.mutateUser(id, func(u *users.User) { u.SetAdmin(isAdmin) })
}

func (s *Storage) mutateUser(id string, fn func(u *users.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	fn(usr)

	return nil
}

func (s *Storage) CreateDeposit(_ context.Context, dep *deposits.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[dep.UserID()]; !ok {
		return storage.ErrUserNotFound
	}

	for _, d := range s.deposits {
		if d.UserID() == dep.UserID() && d.Status() == deposits.StatusPending {
			return storage.ErrActiveDepositExists
		}
	}

	s.deposits[dep.ID()] = dep.Clone()

	return nil
}

func (s *Storage) GetDeposit(_ context.Context, id string) (*deposits.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dep, ok := s.deposits[id]
	if !ok {
		return nil, storage.ErrDepositNotFound
	}

	return dep.Clone(), nil
}

func (s *Storage) ListDeposits(
	_ context.Context, filter storage.DepositFilter, page storage.Page,
) ([]*deposits.Deposit, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.filterDeposits(filter)
	total := len(matched)

	out := make([]*deposits.Deposit, 0, page.Limit)
	for _, d := range paginate(matched, page) {
		out = append(out, d.Clone())
	}

	return out, total, nil
}

func (s *Storage) ListPendingDeposits(_ context.Context, page storage.Page) ([]storage.PendingDeposit, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.filterDeposits(storage.DepositFilter{Statuses: []deposits.Status{deposits.StatusPending}})
	total := len(matched)

	out := make([]storage.PendingDeposit, 0, page.Limit)

	for _, d := range paginate(matched, page) {
		pd := storage.PendingDeposit{
			Deposit: d.Clone(),
			UserID:  d.UserID(),
		}

		if usr, ok := s.users[d.UserID()]; ok {
			pd.Username = usr.Username()
			pd.Email = usr.Email()
		}

		out = append(out, pd)
	}

	return out, total, nil
}

// filterDeposits returns matching deposits newest first. Caller must hold the lock.
func (s *Storage) filterDeposits(filter storage.DepositFilter) []*deposits.Deposit {
	matched := make([]*deposits.Deposit, 0)

	for _, d := range s.deposits {
		if filter.UserID != "" && d.UserID() != filter.UserID {
			continue
		}

		if !filter.HasStatus(d.Status()) {
			continue
		}

		matched = append(matched, d)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt().Equal(matched[j].CreatedAt()) {
			return matched[i].ID() > matched[j].ID()
		}

		return matched[i].CreatedAt().After(matched[j].CreatedAt())
	})

	return matched
}

func paginate(deps []*deposits.Deposit, page storage.Page) []*deposits.Deposit {
	offset := page.Offset()
	if offset >= len(deps) {
		return nil
	}

	end := offset + page.Limit
	if page.Limit <= 0 || end > len(deps) {
		end = len(deps)
	}

	return deps[offset:end]
}

func (s *Storage) ConfirmDeposit(_ context.Context, id, adminID string, at time.Time) (*deposits.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dep, ok := s.deposits[id]
	if !ok {
		return nil, storage.ErrDepositNotFound
	}

	usr, ok := s.users[dep.UserID()]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	if err := dep.Confirm(adminID, at); err != nil {
		if errors.Is(err, deposits.ErrDepositNotPending) {
			return nil, storage.ErrDepositNotPending
		}

		return nil, err
	}

	usr.SetWalletBalance(usr.WalletBalance().Add(dep.Amount()))

	return dep.Clone(), nil
}

func (s *Storage) ExpireDeposits(_ context.Context, userID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired int

	for _, d := range s.deposits {
		if userID != "" && d.UserID() != userID {
			continue
		}

		if !d.Overdue(now) {
			continue
		}

		if err := d.Expire(); err != nil {
			return expired, err
		}

		expired++
	}

	return expired, nil
}

func (s *Storage) SyncUserBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[userID]
	if !ok {
		return decimal.Zero, storage.ErrUserNotFound
	}

	owned := make([]*deposits.Deposit, 0)

	for _, d := range s.deposits {
		if d.UserID() == userID {
			owned = append(owned, d)
		}
	}

	total := deposits.SumConfirmed(owned)
	usr.SetWalletBalance(total)

	return total, nil
}

func (s *Storage) CreateInviteCode(_ context.Context, code *invites.InviteCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invites[code.Code()]; ok {
		return storage.ErrInviteAlreadyExists
	}

	c := *code
	s.invites[code.Code()] = &c

	return nil
}

func (s *Storage) GetInviteCode(_ context.Context, code string) (*invites.InviteCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.invites[invites.NormalizeCode(code)]
	if !ok {
		return nil, storage.ErrInviteNotFound
	}

	cp := *c

	return &cp, nil
}

func (s *Storage) GetWalletSettings(_ context.Context) (settings.WalletSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		return settings.WalletSettings{}, storage.ErrSettingsNotFound
	}

	cp := *s.settings
	cp.SupportedCurrencies = append([]string(nil), s.settings.SupportedCurrencies...)

	return cp, nil
}

func (s *Storage) SaveWalletSettings(_ context.Context, ws settings.WalletSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := ws
	cp.SupportedCurrencies = append([]string(nil), ws.SupportedCurrencies...)
	s.settings = &cp

	return nil
}
