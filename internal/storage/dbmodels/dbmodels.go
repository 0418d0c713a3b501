package dbmodels

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            string
	Email         string
	Username      string
	PasswordHash  string
	IsAdmin       bool
	WalletBalance decimal.Decimal
	EmailVerified bool
	CreatedAt     time.Time
}

type Deposit struct {
	ID               string
	UserID           string
	Amount           decimal.Decimal
	Currency         string
	Status           string
	PaymentProcessor string
	CryptoAmount     decimal.Decimal
	ExchangeRate     decimal.Decimal
	NetworkFee       decimal.Decimal
	WalletAddress    string
	CreatedAt        time.Time
	TimeoutAt        time.Time
	ConfirmedAt      sql.NullTime
	ConfirmedBy      sql.NullString
}

type InviteCode struct {
	Code      string
	MaxUses   int
	UsedCount int
	Active    bool
	CreatedBy string
	CreatedAt time.Time
}

type WalletSettings struct {
	MinimumDeposit      decimal.Decimal
	SupportedCurrencies []string
	UpdatedAt           time.Time
	UpdatedBy           sql.NullString
}
