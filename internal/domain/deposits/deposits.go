package deposits

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDepositNotPending     = errors.New("deposit is not pending")
	ErrDepositStatusInvalid  = errors.New("deposit status is invalid")
	ErrProcessorUnsupported  = errors.New("payment processor is not supported")
	ErrDepositUserEmpty      = errors.New("deposit user id is empty")
	ErrDepositAmountInvalid  = errors.New("deposit amount must be positive")
	ErrDepositCurrencyEmpty  = errors.New("deposit currency is empty")
	ErrDepositTimeoutInvalid = errors.New("deposit timeout must be positive")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

func ParseStatus(status string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(status))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusFailed:
		return StatusFailed, nil
	case StatusExpired:
		return StatusExpired, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrDepositStatusInvalid, status)
	}
}

type Processor string

const (
	ProcessorManual      Processor = "manual"
	ProcessorNowPayments Processor = "nowpayments"
)

func (p Processor) String() string {
	return string(p)
}

// ParseProcessor defaults an empty name to the manual processor.
func ParseProcessor(name string) (Processor, error) {
	switch Processor(strings.ToLower(strings.TrimSpace(name))) {
	case "", ProcessorManual:
		return ProcessorManual, nil
	case ProcessorNowPayments:
		return ProcessorNowPayments, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrProcessorUnsupported, name)
	}
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// Record is the flat persisted form of a deposit.
type Record struct {
	ID            string
	UserID        string
	Amount        decimal.Decimal
	Currency      string
	Status        Status
	Processor     Processor
	CryptoAmount  decimal.Decimal
	ExchangeRate  decimal.Decimal
	NetworkFee    decimal.Decimal
	WalletAddress string
	CreatedAt     time.Time
	TimeoutAt     time.Time
	ConfirmedAt   *time.Time
	ConfirmedBy   string
}

type Deposit struct {
	rec Record
}

// NewParams holds the values a deposit is created from.
type NewParams struct {
	UserID       string
	Amount       decimal.Decimal
	Currency     string
	Processor    Processor
	ExchangeRate decimal.Decimal
	CryptoAmount decimal.Decimal
	Timeout      time.Duration
	Now          time.Time
}

// NewDeposit creates a pending deposit whose timeout is Now+Timeout.
func NewDeposit(p NewParams) (*Deposit, error) {
	if p.UserID == "" {
		return nil, ErrDepositUserEmpty
	}

	if !p.Amount.IsPositive() {
		return nil, ErrDepositAmountInvalid
	}

	currency := NormalizeCurrency(p.Currency)
	if currency == "" {
		return nil, ErrDepositCurrencyEmpty
	}

	if p.Timeout <= 0 {
		return nil, ErrDepositTimeoutInvalid
	}

	processor := p.Processor
	if processor == "" {
		processor = ProcessorManual
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	now = now.UTC()

	return &Deposit{rec: Record{
		ID:           uuid.NewString(),
		UserID:       p.UserID,
		Amount:       p.Amount,
		Currency:     currency,
		Status:       StatusPending,
		Processor:    processor,
		CryptoAmount: p.CryptoAmount,
		ExchangeRate: p.ExchangeRate,
		NetworkFee:   decimal.Zero,
		CreatedAt:    now,
		TimeoutAt:    now.Add(p.Timeout),
	}}, nil
}

// Restore rebuilds a deposit from its persisted form.
func Restore(rec Record) *Deposit {
	return &Deposit{rec: rec}
}

func (d *Deposit) Record() Record {
	return d.rec
}

func (d *Deposit) ID() string {
	return d.rec.ID
}

func (d *Deposit) UserID() string {
	return d.rec.UserID
}

func (d *Deposit) Amount() decimal.Decimal {
	return d.rec.Amount
}

func (d *Deposit) Currency() string {
	return d.rec.Currency
}

func (d *Deposit) Status() Status {
	return d.rec.Status
}

func (d *Deposit) Processor() Processor {
	return d.rec.Processor
}

func (d *Deposit) CryptoAmount() decimal.Decimal {
	return d.rec.CryptoAmount
}

func (d *Deposit) ExchangeRate() decimal.Decimal {
	return d.rec.ExchangeRate
}

func (d *Deposit) NetworkFee() decimal.Decimal {
	return d.rec.NetworkFee
}

func (d *Deposit) WalletAddress() string {
	return d.rec.WalletAddress
}

func (d *Deposit) CreatedAt() time.Time {
	return d.rec.CreatedAt
}

func (d *Deposit) TimeoutAt() time.Time {
	return d.rec.TimeoutAt
}

func (d *Deposit) ConfirmedAt() *time.Time {
	return d.rec.ConfirmedAt
}

func (d *Deposit) ConfirmedBy() string {
	return d.rec.ConfirmedBy
}

// SetPaymentInstructions records where and with what fee the user has to pay.
// Only allowed while the deposit is pending.
func (d *Deposit) SetPaymentInstructions(walletAddress string, networkFee decimal.Decimal) error {
	if d.rec.Status != StatusPending {
		return ErrDepositNotPending
	}

	d.rec.WalletAddress = walletAddress
	d.rec.NetworkFee = networkFee

	return nil
}

// Overdue reports whether a pending deposit has passed its timeout.
func (d *Deposit) Overdue(now time.Time) bool {
	return d.rec.Status == StatusPending && !now.Before(d.rec.TimeoutAt)
}

// ExpiresIn is the remaining time before timeout, zero once reached or when not pending.
func (d *Deposit) ExpiresIn(now time.Time) time.Duration {
	if d.rec.Status != StatusPending {
		return 0
	}

	left := d.rec.TimeoutAt.Sub(now)
	if left < 0 {
		return 0
	}

	return left
}

// Confirm moves a pending deposit to confirmed.
func (d *Deposit) Confirm(adminID string, at time.Time) error {
	if d.rec.Status != StatusPending {
		return ErrDepositNotPending
	}

	at = at.UTC()

	d.rec.Status = StatusConfirmed
	d.rec.ConfirmedAt = &at
	d.rec.ConfirmedBy = adminID

	return nil
}

// Expire moves a pending deposit to expired.
func (d *Deposit) Expire() error {
	if d.rec.Status != StatusPending {
		return ErrDepositNotPending
	}

	d.rec.Status = StatusExpired

	return nil
}

// Clone returns an independent copy.
func (d *Deposit) Clone() *Deposit {
	rec := d.rec
	if rec.ConfirmedAt != nil {
		at := *rec.ConfirmedAt
		rec.ConfirmedAt = &at
	}

	return &Deposit{rec: rec}
}

// SumConfirmed adds up the amounts of confirmed deposits.
func SumConfirmed(deps []*Deposit) decimal.Decimal {
	total := decimal.Zero

	for _, d := range deps {
		if d.Status() == StatusConfirmed {
			total = total.Add(d.Amount())
		}
	}

	return total
}
