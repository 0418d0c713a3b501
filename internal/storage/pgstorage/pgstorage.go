package pgstorage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
	"time"

	"github.com/andymarkow/botmarket/internal/domain/deposits"
	"github.com/andymarkow/botmarket/internal/domain/invites"
	"github.com/andymarkow/botmarket/internal/domain/settings"
	"github.com/andymarkow/botmarket/internal/domain/users"
	"github.com/andymarkow/botmarket/internal/storage"
	"github.com/andymarkow/botmarket/internal/storage/dbmodels"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	// Postgres driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const onePendingIndex = "deposits_one_pending_per_user"

const depositColumns = `id, user_id, amount, currency, status, payment_processor, crypto_amount,` +
	` exchange_rate, network_fee, wallet_address, created_at, timeout_at, confirmed_at, confirmed_by`

const userColumns = `id, email, username, password_hash, is_admin, wallet_balance, email_verified, created_at`

var _ storage.Storage = (*Storage)(nil)

// validID rejects ids that Postgres would fail to cast to uuid.
func validID(id string) bool {
	_, err := uuid.Parse(id)

	return err == nil
}

type Storage struct {
	db *sql.DB
}

type Config struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
}

type Option func(s *Config)

func WithMaxOpenConns(conns int) Option {
	return func(c *Config) {
		c.maxOpenConns = conns
	}
}

func WithMaxIdleConns(conns int) Option {
	return func(c *Config) {
		c.maxIdleConns = conns
	}
}

func WithConnMaxIdleTime(idleTime time.Duration) Option {
	return func(c *Config) {
		c.connMaxIdleTime = idleTime
	}
}

func WithConnMaxLifetime(lifetime time.Duration) Option {
	return func(c *Config) {
		c.connMaxLifetime = lifetime
	}
}

func NewStorage(connStr string, opts ...Option) (*Storage, error) {
	cfg := &Config{
		maxOpenConns:    10,
		maxIdleConns:    5,
		connMaxIdleTime: 180 * time.Second,
		connMaxLifetime: 3600 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetConnMaxIdleTime(cfg.connMaxIdleTime)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)

	return &Storage{
		db: db,
	}, nil
}

// Bootstrap applies the embedded goose migrations and returns the number of applied versions.
func (s *Storage) Bootstrap(ctx context.Context) (int, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("fs.Sub: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, s.db, fsys)
	if err != nil {
		return 0, fmt.Errorf("goose.NewProvider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("provider.Up: %w", err)
	}

	return len(results), nil
}

func (s *Storage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("db.Close: %w", err)
	}

	return nil
}

// isRetryableError checks if error is retryable.
func isRetryableError(err error) bool {
	// Connection refused error
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Serialization failures come back from concurrent FOR UPDATE transactions.
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected
	}

	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}

	return constraint == "" || pgErr.ConstraintName == constraint
}

// WithRetry retries operations in case of retryable errors.
func WithRetry(operation func() error) error {
	retryCount := 3

	var retryWaitTime time.Duration

	// Define the interval between retries
	retryWaitInterval := 2

	var err error

	for i := 0; i < retryCount; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if !isRetryableError(err) {
			return err
		}

		retryWaitTime = time.Duration((i*retryWaitInterval + 1)) * time.Second // 1s, 3s, 5s, etc.

		time.Sleep(retryWaitTime)
	}

	return fmt.Errorf("retry attempts exceeded: %w", err)
}

func (s *Storage) Ping(ctx context.Context) error {
	return WithRetry(func() error {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("db.PingContext: %w", err)
		}

		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*users.User, error) {
	u := new(dbmodels.User)

	if err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.WalletBalance, &u.EmailVerified, &u.CreatedAt,
	); err != nil {
		return nil, err
	}

	return users.NewUser(
		u.ID, u.Email, u.Username, u.PasswordHash, u.IsAdmin, u.WalletBalance, u.EmailVerified, u.CreatedAt.UTC(),
	), nil
}

func scanDeposit(row rowScanner, extra ...any) (*deposits.Deposit, error) {
	d := new(dbmodels.Deposit)

	dest := []any{
		&d.ID, &d.UserID, &d.Amount, &d.Currency, &d.Status, &d.PaymentProcessor, &d.CryptoAmount,
		&d.ExchangeRate, &d.NetworkFee, &d.WalletAddress, &d.CreatedAt, &d.TimeoutAt, &d.ConfirmedAt, &d.ConfirmedBy,
	}

	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	status, err := deposits.ParseStatus(d.Status)
	if err != nil {
		return nil, fmt.Errorf("deposits.ParseStatus: %w", err)
	}

	rec := deposits.Record{
		ID:            d.ID,
		UserID:        d.UserID,
		Amount:        d.Amount,
		Currency:      d.Currency,
		Status:        status,
		Processor:     deposits.Processor(d.PaymentProcessor),
		CryptoAmount:  d.CryptoAmount,
		ExchangeRate:  d.ExchangeRate,
		NetworkFee:    d.NetworkFee,
		WalletAddress: d.WalletAddress,
		CreatedAt:     d.CreatedAt.UTC(),
		TimeoutAt:     d.TimeoutAt.UTC(),
		ConfirmedBy:   d.ConfirmedBy.String,
	}

	if d.ConfirmedAt.Valid {
		at := d.ConfirmedAt.Time.UTC()
		rec.ConfirmedAt = &at
	}

	return deposits.Restore(rec), nil
}

func (s *Storage) CreateUser(ctx context.Context, usr *users.User) error {
	return WithRetry(func() error {
		return insertUser(ctx, s.db, usr)
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertUser(ctx context.Context, db execer, usr *users.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := db.ExecContext(ctx, query,
		usr.ID(), usr.Email(), usr.Username(), usr.PasswordHash(), usr.IsAdmin(),
		usr.WalletBalance(), usr.EmailVerified(), usr.CreatedAt(),
	); err != nil {
		if isUniqueViolation(err, "") {
			return storage.ErrUserAlreadyExists
		}

		return fmt.Errorf("db.ExecContext: %w", err)
	}

	return nil
}

func (s *Storage) CreateUserWithInvite(ctx context.Context, usr *users.User, inviteCode string) error {
	return WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		dbCode := new(dbmodels.InviteCode)

		var createdBy sql.NullString

		row := tx.QueryRowContext(ctx,
			`SELECT code, max_uses, used_count, active, created_by, created_at FROM invite_codes`+
				` WHERE code = $1 FOR UPDATE`,
			invites.NormalizeCode(inviteCode),
		)
		if err := row.Scan(
			&dbCode.Code, &dbCode.MaxUses, &dbCode.UsedCount, &dbCode.Active, &createdBy, &dbCode.CreatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrInviteNotFound
			}

			return fmt.Errorf("tx.QueryRowContext: %w", err)
		}

		code := invites.NewInviteCode(
			dbCode.Code, dbCode.MaxUses, dbCode.UsedCount, dbCode.Active, createdBy.String, dbCode.CreatedAt,
		)
		if err := code.CheckUsable(); err != nil {
			return errors.Join(storage.ErrInviteUnusable, err)
		}

		if err := insertUser(ctx, tx, usr); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE invite_codes SET used_count = used_count + 1 WHERE code = $1`, code.Code(),
		); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
}

func (s *Storage) GetUser(ctx context.Context, id string) (*users.User, error) {
	if !validID(id) {
		return nil, storage.ErrUserNotFound
	}

	var usr *users.User

	err := WithRetry(func() error {
		row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

		u, err := scanUser(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("row.Scan: %w", err)
		}

		usr = u

		return nil
	})
	if err != nil {
		return nil, err
	}

	return usr, nil
}

func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*users.User, error) {
	var usr *users.User

	err := WithRetry(func() error {
		query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR lower(username) = lower($2) LIMIT 1`

		row := s.db.QueryRowContext(ctx, query, users.NormalizeEmail(login), strings.TrimSpace(login))

		u, err := scanUser(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("row.Scan: %w", err)
		}

		usr = u

		return nil
	})
	if err != nil {
		return nil, err
	}

	return usr, nil
}

func (s *Storage) updateUser(ctx context.Context, query string, args ...any) error {
	return WithRetry(func() error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if n == 0 {
			return storage.ErrUserNotFound
		}

		return nil
	})
}

func (s *Storage) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	if !validID(id) {
		return storage.ErrUserNotFound
	}

	return s.updateUser(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
}

func (s *Storage) SetUserEmailVerified(ctx context.Context, id string) error {
	if !validID(id) {
		return storage.ErrUserNotFound
	}

	return s.updateUser(ctx, `UPDATE users SET email_verified = TRUE WHERE id = $1`, id)
}

func (s *Storage) SetUserAdmin(ctx context.Context, id string, isAdmin bool) error {
	if !validID(id) {
		return storage.ErrUserNotFound
	}

	return s.updateUser(ctx, `UPDATE users SET is_admin = $1 WHERE id = $2`, isAdmin, id)
}

func (s *Storage) CreateDeposit(ctx context.Context, dep *deposits.Deposit) error {
	return WithRetry(func() error {
		query := `INSERT INTO deposits (` + depositColumns + `)` +
			` VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

		var confirmedBy sql.NullString
		if dep.ConfirmedBy() != "" {
			confirmedBy = sql.NullString{String: dep.ConfirmedBy(), Valid: true}
		}

		var confirmedAt sql.NullTime
		if at := dep.ConfirmedAt(); at != nil {
			confirmedAt = sql.NullTime{Time: *at, Valid: true}
		}

		if _, err := s.db.ExecContext(ctx, query,
			dep.ID(), dep.UserID(), dep.Amount(), dep.Currency(), dep.Status().String(), dep.Processor().String(),
			dep.CryptoAmount(), dep.ExchangeRate(), dep.NetworkFee(), dep.WalletAddress(),
			dep.CreatedAt(), dep.TimeoutAt(), confirmedAt, confirmedBy,
		); err != nil {
			if isUniqueViolation(err, onePendingIndex) {
				return storage.ErrActiveDepositExists
			}

			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
}

func (s *Storage) GetDeposit(ctx context.Context, id string) (*deposits.Deposit, error) {
	if !validID(id) {
		return nil, storage.ErrDepositNotFound
	}

	var dep *deposits.Deposit

	err := WithRetry(func() error {
		row := s.db.QueryRowContext(ctx, `SELECT `+depositColumns+` FROM deposits WHERE id = $1`, id)

		d, err := scanDeposit(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrDepositNotFound
			}

			return fmt.Errorf("scanDeposit: %w", err)
		}

		dep = d

		return nil
	})
	if err != nil {
		return nil, err
	}

	return dep, nil
}

func statusStrings(statuses []deposits.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, st.String())
	}

	return out
}

func (s *Storage) ListDeposits(
	ctx context.Context, filter storage.DepositFilter, page storage.Page,
) ([]*deposits.Deposit, int, error) {
	var (
		result []*deposits.Deposit
		total  int
	)

	where := ` WHERE ($1 = '' OR user_id::text = $1)`
	args := []any{filter.UserID}

	if len(filter.Statuses) > 0 {
		where += ` AND status = ANY($2)`
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
	}

	err := WithRetry(func() error {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deposits`+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		n := len(args)
		query := `SELECT ` + depositColumns + ` FROM deposits` + where +
			fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, n+1, n+2)

		rows, err := s.db.QueryContext(ctx, query, append(args, page.Limit, page.Offset())...)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		result = make([]*deposits.Deposit, 0)

		for rows.Next() {
			dep, err := scanDeposit(rows)
			if err != nil {
				return fmt.Errorf("scanDeposit: %w", err)
			}

			result = append(result, dep)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (s *Storage) ListPendingDeposits(ctx context.Context, page storage.Page) ([]storage.PendingDeposit, int, error) {
	var (
		result []storage.PendingDeposit
		total  int
	)

	err := WithRetry(func() error {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM deposits WHERE status = $1`, deposits.StatusPending.String(),
		).Scan(&total); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		cols := `d.` + strings.ReplaceAll(depositColumns, `, `, `, d.`)
		query := `SELECT ` + cols + `, u.username, u.email FROM deposits d JOIN users u ON u.id = d.user_id` +
			` WHERE d.status = $1 ORDER BY d.created_at DESC, d.id DESC LIMIT $2 OFFSET $3`

		rows, err := s.db.QueryContext(ctx, query, deposits.StatusPending.String(), page.Limit, page.Offset())
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		result = make([]storage.PendingDeposit, 0)

		for rows.Next() {
			var username, email string

			dep, err := scanDeposit(rows, &username, &email)
			if err != nil {
				return fmt.Errorf("scanDeposit: %w", err)
			}

			result = append(result, storage.PendingDeposit{
				Deposit:  dep,
				UserID:   dep.UserID(),
				Username: username,
				Email:    email,
			})
		}

		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (s *Storage) ConfirmDeposit(ctx context.Context, id, adminID string, at time.Time) (*deposits.Deposit, error) {
	if !validID(id) {
		return nil, storage.ErrDepositNotFound
	}

	var dep *deposits.Deposit

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		// Lock the deposit row so concurrent confirmations serialize on it.
		row := tx.QueryRowContext(ctx, `SELECT `+depositColumns+` FROM deposits WHERE id = $1 FOR UPDATE`, id)

		d, err := scanDeposit(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrDepositNotFound
			}

			return fmt.Errorf("scanDeposit: %w", err)
		}

		if err := d.Confirm(adminID, at); err != nil {
			if errors.Is(err, deposits.ErrDepositNotPending) {
				return storage.ErrDepositNotPending
			}

			return fmt.Errorf("deposit.Confirm: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE deposits SET status = $1, confirmed_at = $2, confirmed_by = $3 WHERE id = $4`,
			d.Status().String(), at, adminID, d.ID(),
		); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE users SET wallet_balance = wallet_balance + $1 WHERE id = $2`, d.Amount(), d.UserID(),
		)
		if err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		} else if n == 0 {
			return storage.ErrUserNotFound
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		dep = d

		return nil
	})
	if err != nil {
		return nil, err
	}

	return dep, nil
}

func (s *Storage) ExpireDeposits(ctx context.Context, userID string, now time.Time) (int, error) {
	var expired int

	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE deposits SET status = $1 WHERE status = $2 AND timeout_at <= $3`+
				` AND ($4 = '' OR user_id::text = $4)`,
			deposits.StatusExpired.String(), deposits.StatusPending.String(), now, userID,
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		expired = int(n)

		return nil
	})
	if err != nil {
		return 0, err
	}

	return expired, nil
}

func (s *Storage) SyncUserBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if !validID(userID) {
		return decimal.Zero, storage.ErrUserNotFound
	}

	var balance decimal.Decimal

	err := WithRetry(func() error {
		query := `UPDATE users SET wallet_balance = (` +
			`SELECT COALESCE(SUM(amount), 0) FROM deposits WHERE user_id = users.id AND status = $1` +
			`) WHERE id = $2 RETURNING wallet_balance`

		if err := s.db.QueryRowContext(ctx, query, deposits.StatusConfirmed.String(), userID).Scan(&balance); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return balance, nil
}

func (s *Storage) CreateInviteCode(ctx context.Context, code *invites.InviteCode) error {
	return WithRetry(func() error {
		var createdBy sql.NullString
		if code.CreatedBy() != "" {
			createdBy = sql.NullString{String: code.CreatedBy(), Valid: true}
		}

		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO invite_codes (code, max_uses, used_count, active, created_by, created_at)`+
				` VALUES ($1, $2, $3, $4, $5, $6)`,
			code.Code(), code.MaxUses(), code.UsedCount(), code.Active(), createdBy, code.CreatedAt(),
		); err != nil {
			if isUniqueViolation(err, "") {
				return storage.ErrInviteAlreadyExists
			}

			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
}

func (s *Storage) GetInviteCode(ctx context.Context, code string) (*invites.InviteCode, error) {
	var result *invites.InviteCode

	err := WithRetry(func() error {
		dbCode := new(dbmodels.InviteCode)

		var createdBy sql.NullString

		row := s.db.QueryRowContext(ctx,
			`SELECT code, max_uses, used_count, active, created_by, created_at FROM invite_codes WHERE code = $1`,
			invites.NormalizeCode(code),
		)
		if err := row.Scan(
			&dbCode.Code, &dbCode.MaxUses, &dbCode.UsedCount, &dbCode.Active, &createdBy, &dbCode.CreatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrInviteNotFound
			}

			return fmt.Errorf("row.Scan: %w", err)
		}

		result = invites.NewInviteCode(
			dbCode.Code, dbCode.MaxUses, dbCode.UsedCount, dbCode.Active, createdBy.String, dbCode.CreatedAt.UTC(),
		)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Storage) GetWalletSettings(ctx context.Context) (settings.WalletSettings, error) {
	var ws settings.WalletSettings

	err := WithRetry(func() error {
		dbSettings := new(dbmodels.WalletSettings)

		var currencies string

		row := s.db.QueryRowContext(ctx,
			`SELECT minimum_deposit, supported_currencies, updated_at, updated_by FROM wallet_settings WHERE id = 1`,
		)
		if err := row.Scan(
			&dbSettings.MinimumDeposit, &currencies, &dbSettings.UpdatedAt, &dbSettings.UpdatedBy,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrSettingsNotFound
			}

			return fmt.Errorf("row.Scan: %w", err)
		}

		ws = settings.WalletSettings{
			MinimumDeposit:      dbSettings.MinimumDeposit,
			SupportedCurrencies: settings.NormalizeCurrencies(strings.Split(currencies, ",")),
			UpdatedAt:           dbSettings.UpdatedAt.UTC(),
			UpdatedBy:           dbSettings.UpdatedBy.String,
		}

		return nil
	})
	if err != nil {
		return settings.WalletSettings{}, err
	}

	return ws, nil
}

func (s *Storage) SaveWalletSettings(ctx context.Context, ws settings.WalletSettings) error {
	return WithRetry(func() error {
		var updatedBy sql.NullString
		if ws.UpdatedBy != "" {
			updatedBy = sql.NullString{String: ws.UpdatedBy, Valid: true}
		}

		updatedAt := ws.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}

		query := `INSERT INTO wallet_settings (id, minimum_deposit, supported_currencies, updated_at, updated_by)` +
			` VALUES (1, $1, $2, $3, $4) ON CONFLICT (id) DO UPDATE SET` +
			` minimum_deposit = EXCLUDED.minimum_deposit,` +
			` supported_currencies = EXCLUDED.supported_currencies,` +
			` updated_at = EXCLUDED.updated_at,` +
			` updated_by = EXCLUDED.updated_by`

		if _, err := s.db.ExecContext(ctx, query,
			ws.MinimumDeposit, strings.Join(ws.SupportedCurrencies, ","), updatedAt, updatedBy,
		); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
}
