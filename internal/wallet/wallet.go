// Package wallet implements the deposit lifecycle: creation, admin confirmation, expiry and
// wallet balance reconciliation.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/andymarkow/botmarket/internal/domain/deposits"
	"github.com/andymarkow/botmarket/internal/domain/settings"
	"github.com/andymarkow/botmarket/internal/logger"
	"github.com/andymarkow/botmarket/internal/metrics"
	"github.com/andymarkow/botmarket/internal/payments"
	"github.com/andymarkow/botmarket/internal/rates"
	"github.com/andymarkow/botmarket/internal/storage"
	"github.com/shopspring/decimal"
)

// Validation errors.
var (
	ErrMissingFields          = errors.New("amount and currency are required")
	ErrAmountNotPositive      = errors.New("amount must be greater than zero")
	ErrAmountPrecision        = errors.New("amount must have at most two decimal places")
	ErrAmountTooLarge         = errors.New("amount exceeds the maximum deposit")
	ErrBelowMinimum           = errors.New("amount is below the minimum deposit")
	ErrCurrencyUnsupported    = errors.New("currency is not supported")
	ErrProcessorUnsupported   = errors.New("payment processor is not supported")
	ErrStatusInvalid          = errors.New("deposit status filter is invalid")
	ErrDepositIDRequired      = errors.New("deposit id is required")
	ErrSettingsInvalid        = errors.New("wallet settings are invalid")
	ErrQuoteCurrencyRequired  = errors.New("currency is required")
	ErrQuoteAmountNotPositive = errors.New("amount must be greater than zero")
)

var (
	ErrActiveDepositExists = errors.New("you already have an active deposit")
	ErrDepositNotPending   = errors.New("deposit is not pending")
	ErrDepositNotFound     = errors.New("deposit not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrForbidden           = errors.New("admin access required")
	ErrRateUnavailable     = errors.New("exchange rate is unavailable")
)

const (
	DefaultMinimumDeposit = "50.00"
	MaximumDeposit        = "9999999999999999.99"
	DefaultQuoteCurrency  = "USD"
	DefaultDepositTimeout = time.Hour
)

// maximumDeposit matches the NUMERIC(18, 2) amount column.
var maximumDeposit = decimal.RequireFromString(MaximumDeposit)

// DefaultCurrencies is used when neither storage nor configuration provides a list.
func DefaultCurrencies() []string {
	return []string{"BTC", "ETH", "USDT"}
}

type Manager struct {
	log        *slog.Logger
	storage    storage.Storage
	rates      rates.Provider
	processors *payments.Registry
	metrics    *metrics.Metrics
	defaults   settings.WalletSettings
	timeout    time.Duration
	now        func() time.Time
}

type Option func(m *Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.log = logger
	}
}

func WithRates(p rates.Provider) Option {
	return func(m *Manager) {
		m.rates = p
	}
}

func WithProcessors(r *payments.Registry) Option {
	return func(m *Manager) {
		m.processors = r
	}
}

func WithMetrics(mtr *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mtr
	}
}

// WithDefaults sets the settings used while none are persisted.
func WithDefaults(minimum decimal.Decimal, currencies []string) Option {
	return func(m *Manager) {
		m.defaults = settings.WalletSettings{
			MinimumDeposit:      minimum,
			SupportedCurrencies: settings.NormalizeCurrencies(currencies),
		}
	}
}

func WithDepositTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store storage.Storage, opts ...Option) *Manager {
	m := &Manager{
		log:        logger.Nop(),
		storage:    store,
		rates:      rates.NewStatic(nil),
		processors: payments.NewRegistry(payments.NewManual(nil), payments.NewNowPayments()),
		defaults: settings.WalletSettings{
			MinimumDeposit:      decimal.RequireFromString(DefaultMinimumDeposit),
			SupportedCurrencies: DefaultCurrencies(),
		},
		timeout: DefaultDepositTimeout,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.log = m.log.With(slog.String("module", "wallet"))

	return m
}

// CreateDepositRequest carries the caller-supplied deposit fields. Amount is invalid when absent.
type CreateDepositRequest struct {
	Amount           decimal.NullDecimal
	Currency         string
	PaymentProcessor string
}

// CreateDeposit validates the request and opens a pending deposit for userID. Checks run in a
// fixed order: presence, positivity, minimum, currency, then the one-pending-deposit rule.
func (m *Manager) CreateDeposit(ctx context.Context, userID string, req CreateDepositRequest) (*deposits.Deposit, error) {
	currency := deposits.NormalizeCurrency(req.Currency)

	if !req.Amount.Valid || currency == "" {
		return nil, ErrMissingFields
	}

	amount := req.Amount.Decimal

	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	// Amounts are whole cents.
	if !amount.Equal(amount.Truncate(2)) {
		return nil, ErrAmountPrecision
	}

	if amount.GreaterThan(maximumDeposit) {
		return nil, fmt.Errorf("%w: maximum is %s", ErrAmountTooLarge, MaximumDeposit)
	}

	cfg, err := m.EffectiveSettings(ctx)
	if err != nil {
		return nil, err
	}

	if amount.LessThan(cfg.MinimumDeposit) {
		return nil, fmt.Errorf("%w: minimum is %s", ErrBelowMinimum, cfg.MinimumDeposit.StringFixed(2))
	}

	if !cfg.Supports(currency) {
		return nil, fmt.Errorf("%w: %s", ErrCurrencyUnsupported, currency)
	}

	processorName, err := deposits.ParseProcessor(req.PaymentProcessor)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProcessorUnsupported, req.PaymentProcessor)
	}

	processor, err := m.processors.Get(processorName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProcessorUnsupported, processorName)
	}

	now := m.now().UTC()

	// Overdue deposits no longer block a new one.
	expired, err := m.storage.ExpireDeposits(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("storage.ExpireDeposits: %w", err)
	}

	m.metrics.DepositsExpired(expired)

	_, pending, err := m.storage.ListDeposits(ctx, storage.DepositFilter{
		UserID:   userID,
		Statuses: []deposits.Status{deposits.StatusPending},
	}, storage.Page{Number: 1, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("storage.ListDeposits: %w", err)
	}

	if pending > 0 {
		return nil, ErrActiveDepositExists
	}

	quote, err := rates.Lock(ctx, m.rates, amount, currency)
	if err != nil {
		if errors.Is(err, rates.ErrCurrencyUnsupported) {
			return nil, fmt.Errorf("%w: no exchange rate for %s", ErrCurrencyUnsupported, currency)
		}

		m.log.Error("rates.Lock", slog.String("currency", currency), slog.Any("error", err))

		return nil, errors.Join(ErrRateUnavailable, err)
	}

	dep, err := deposits.NewDeposit(deposits.NewParams{
		UserID:       userID,
		Amount:       amount,
		Currency:     currency,
		Processor:    processorName,
		ExchangeRate: quote.Rate,
		CryptoAmount: quote.CryptoAmount,
		Timeout:      m.timeout,
		Now:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("deposits.NewDeposit: %w", err)
	}

	instructions, err := processor.Prepare(ctx, dep)
	if err != nil {
		return nil, fmt.Errorf("processor.Prepare: %w", err)
	}

	if err := dep.SetPaymentInstructions(instructions.WalletAddress, instructions.NetworkFee); err != nil {
		return nil, fmt.Errorf("deposit.SetPaymentInstructions: %w", err)
	}

	if err := m.storage.CreateDeposit(ctx, dep); err != nil {
		switch {
		case errors.Is(err, storage.ErrActiveDepositExists):
			return nil, ErrActiveDepositExists
		case errors.Is(err, storage.ErrUserNotFound):
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("storage.CreateDeposit: %w", err)
	}

	m.metrics.DepositCreated(currency)

	m.log.Info("Deposit created",
		slog.String("deposit_id", dep.ID()),
		slog.String("user_id", userID),
		slog.String("amount", dep.Amount().StringFixed(2)),
		slog.String("currency", currency),
	)

	return dep, nil
}

// ListQuery is a raw page request; zero and out-of-range values are normalized.
type ListQuery struct {
	Page   int
	Limit  int
	Status string
}

type DepositPage struct {
	Deposits   []*deposits.Deposit
	Pagination Pagination
}

// ListDeposits returns the user's deposits newest first. Status may hold several
// comma-separated values.
func (m *Manager) ListDeposits(ctx context.Context, userID string, q ListQuery) (DepositPage, error) {
	statuses, err := parseStatuses(q.Status)
	if err != nil {
		return DepositPage{}, err
	}

	page := NormalizePage(q.Page, q.Limit)

	deps, total, err := m.storage.ListDeposits(ctx, storage.DepositFilter{
		UserID:   userID,
		Statuses: statuses,
	}, page)
	if err != nil {
		return DepositPage{}, fmt.Errorf("storage.ListDeposits: %w", err)
	}

	return DepositPage{
		Deposits:   deps,
		Pagination: NewPagination(page, total),
	}, nil
}

func parseStatuses(raw string) ([]deposits.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	out := make([]deposits.Status, 0, len(parts))

	for _, p := range parts {
		st, err := deposits.ParseStatus(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrStatusInvalid, strings.TrimSpace(p))
		}

		out = append(out, st)
	}

	return out, nil
}

// GetDeposit returns the deposit only when userID owns it.
func (m *Manager) GetDeposit(ctx context.Context, userID, depositID string) (*deposits.Deposit, error) {
	if strings.TrimSpace(depositID) == "" {
		return nil, ErrDepositNotFound
	}

	dep, err := m.storage.GetDeposit(ctx, depositID)
	if err != nil {
		if errors.Is(err, storage.ErrDepositNotFound) {
			return nil, ErrDepositNotFound
		}

		return nil, fmt.Errorf("storage.GetDeposit: %w", err)
	}

	if dep.UserID() != userID {
		return nil, ErrDepositNotFound
	}

	return dep, nil
}

type MinimumDeposit struct {
	Amount   decimal.Decimal
	Currency string
}

// GetMinimumDeposit echoes currency upper-cased, or USD when empty.
func (m *Manager) GetMinimumDeposit(ctx context.Context, currency string) (MinimumDeposit, error) {
	cfg, err := m.EffectiveSettings(ctx)
	if err != nil {
		return MinimumDeposit{}, err
	}

	label := deposits.NormalizeCurrency(currency)
	if label == "" {
		label = DefaultQuoteCurrency
	}

	return MinimumDeposit{Amount: cfg.MinimumDeposit, Currency: label}, nil
}

type PendingPage struct {
	Deposits   []storage.PendingDeposit
	Pagination Pagination
}

func (m *Manager) ListPendingDeposits(ctx context.Context, adminID string, q ListQuery) (PendingPage, error) {
	if err := m.requireAdmin(ctx, adminID); err != nil {
		return PendingPage{}, err
	}

	page := NormalizePage(q.Page, q.Limit)

	pending, total, err := m.storage.ListPendingDeposits(ctx, page)
	if err != nil {
		return PendingPage{}, fmt.Errorf("storage.ListPendingDeposits: %w", err)
	}

	return PendingPage{
		Deposits:   pending,
		Pagination: NewPagination(page, total),
	}, nil
}

// ConfirmDeposit marks a pending deposit confirmed and credits the owner's wallet in one
// storage transaction. A second call fails with ErrDepositNotPending.
func (m *Manager) ConfirmDeposit(ctx context.Context, adminID, depositID string) (*deposits.Deposit, error) {
	if err := m.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	depositID = strings.TrimSpace(depositID)
	if depositID == "" {
		return nil, ErrDepositIDRequired
	}

	dep, err := m.storage.ConfirmDeposit(ctx, depositID, adminID, m.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDepositNotFound):
			return nil, ErrDepositNotFound
		case errors.Is(err, storage.ErrDepositNotPending):
			return nil, ErrDepositNotPending
		case errors.Is(err, storage.ErrUserNotFound):
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("storage.ConfirmDeposit: %w", err)
	}

	m.metrics.DepositConfirmed()

	m.log.Info("Deposit confirmed",
		slog.String("deposit_id", dep.ID()),
		slog.String("user_id", dep.UserID()),
		slog.String("admin_id", adminID),
		slog.String("amount", dep.Amount().StringFixed(2)),
	)

	return dep, nil
}

// SyncWalletBalance recomputes the wallet balance from confirmed deposits. Only admins may
// target another user; an empty target means the requester.
func (m *Manager) SyncWalletBalance(ctx context.Context, requesterID, targetUserID string) (decimal.Decimal, error) {
	target := strings.TrimSpace(targetUserID)
	if target == "" {
		target = requesterID
	}

	if target != requesterID {
		if err := m.requireAdmin(ctx, requesterID); err != nil {
			return decimal.Zero, err
		}
	}

	balance, err := m.storage.SyncUserBalance(ctx, target)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return decimal.Zero, ErrUserNotFound
		}

		return decimal.Zero, fmt.Errorf("storage.SyncUserBalance: %w", err)
	}

	m.log.Info("Wallet balance synced", slog.String("user_id", target), slog.String("balance", balance.StringFixed(2)))

	return balance, nil
}

// ExpireOverdue flips every overdue pending deposit to expired.
func (m *Manager) ExpireOverdue(ctx context.Context) (int, error) {
	n, err := m.storage.ExpireDeposits(ctx, "", m.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("storage.ExpireDeposits: %w", err)
	}

	m.metrics.DepositsExpired(n)

	return n, nil
}

// Quote converts a USD amount into currency at the current rate.
func (m *Manager) Quote(ctx context.Context, currency string, usd decimal.Decimal) (rates.Quote, error) {
	currency = deposits.NormalizeCurrency(currency)
	if currency == "" {
		return rates.Quote{}, ErrQuoteCurrencyRequired
	}

	if !usd.IsPositive() {
		return rates.Quote{}, ErrQuoteAmountNotPositive
	}

	q, err := rates.Lock(ctx, m.rates, usd, currency)
	if err != nil {
		if errors.Is(err, rates.ErrCurrencyUnsupported) {
			return rates.Quote{}, fmt.Errorf("%w: %s", ErrCurrencyUnsupported, currency)
		}

		return rates.Quote{}, errors.Join(ErrRateUnavailable, err)
	}

	return q, nil
}

func (m *Manager) requireAdmin(ctx context.Context, userID string) error {
	usr, err := m.storage.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrForbidden
		}

		return fmt.Errorf("storage.GetUser: %w", err)
	}

	if !usr.IsAdmin() {
		return ErrForbidden
	}

	return nil
}
