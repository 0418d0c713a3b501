package models

import (
	"time"

	"github.com/andymarkow/botmarket/internal/domain/deposits"
	"github.com/andymarkow/botmarket/internal/domain/invites"
	"github.com/andymarkow/botmarket/internal/domain/settings"
	"github.com/andymarkow/botmarket/internal/domain/users"
	"github.com/andymarkow/botmarket/internal/storage"
	"github.com/shopspring/decimal"
)

type RegisterRequest struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	InviteCode string `json:"inviteCode"`
}

// LoginRequest accepts the login under any of the three keys.
type LoginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Identifier() string {
	switch {
	case r.Login != "":
		return r.Login
	case r.Email != "":
		return r.Email
	default:
		return r.Username
	}
}

type VerifyEmailRequest struct {
	Code string `json:"code"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type CreateDepositRequest struct {
	Amount           decimal.NullDecimal `json:"amount"`
	Currency         string              `json:"currency"`
	PaymentProcessor string              `json:"payment_processor"`
}

type ConfirmDepositRequest struct {
	DepositID string `json:"depositId"`
}

type SyncWalletRequest struct {
	UserID string `json:"userId"`
}

type UpdateSettingsRequest struct {
	MinimumDeposit      decimal.NullDecimal `json:"minimumDepositAmount"`
	SupportedCurrencies []string            `json:"supportedCurrencies"`
}

type CreateInviteCodeRequest struct {
	MaxUses int `json:"maxUses"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Username      string  `json:"username"`
	IsAdmin       bool    `json:"is_admin"`
	WalletBalance float64 `json:"wallet_balance"`
	EmailVerified bool    `json:"email_verified"`
	CreatedAt     string  `json:"created_at"`
}

func NewUserResponse(u *users.User) UserResponse {
	return UserResponse{
		ID:            u.ID(),
		Email:         u.Email(),
		Username:      u.Username(),
		IsAdmin:       u.IsAdmin(),
		WalletBalance: u.WalletBalance().Round(2).InexactFloat64(),
		EmailVerified: u.EmailVerified(),
		CreatedAt:     u.CreatedAt().Format(time.RFC3339),
	}
}

type DepositResponse struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	Status           string  `json:"status"`
	PaymentProcessor string  `json:"payment_processor"`
	CryptoAmount     float64 `json:"crypto_amount"`
	ExchangeRate     float64 `json:"exchange_rate"`
	NetworkFee       float64 `json:"network_fee"`
	WalletAddress    string  `json:"wallet_address"`
	CreatedAt        string  `json:"created_at"`
	TimeoutAt        string  `json:"timeout_at"`
	ConfirmedAt      *string `json:"confirmed_at"`
	ConfirmedBy      *string `json:"confirmed_by"`
	ExpiresInSeconds int64   `json:"expires_in_seconds"`
}

// NewDepositResponse renders dep; ExpiresInSeconds counts down from now for pending deposits.
func NewDepositResponse(dep *deposits.Deposit, now time.Time) DepositResponse {
	resp := DepositResponse{
		ID:               dep.ID(),
		UserID:           dep.UserID(),
		Amount:           dep.Amount().InexactFloat64(),
		Currency:         dep.Currency(),
		Status:           dep.Status().String(),
		PaymentProcessor: dep.Processor().String(),
		CryptoAmount:     dep.CryptoAmount().InexactFloat64(),
		ExchangeRate:     dep.ExchangeRate().InexactFloat64(),
		NetworkFee:       dep.NetworkFee().InexactFloat64(),
		WalletAddress:    dep.WalletAddress(),
		CreatedAt:        dep.CreatedAt().Format(time.RFC3339),
		TimeoutAt:        dep.TimeoutAt().Format(time.RFC3339),
		ExpiresInSeconds: int64(dep.ExpiresIn(now).Seconds()),
	}

	if at := dep.ConfirmedAt(); at != nil {
		s := at.Format(time.RFC3339)
		resp.ConfirmedAt = &s
	}

	if by := dep.ConfirmedBy(); by != "" {
		resp.ConfirmedBy = &by
	}

	return resp
}

type DepositOwner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type PendingDepositResponse struct {
	DepositResponse
	User DepositOwner `json:"user"`
}

func NewPendingDepositResponse(pd storage.PendingDeposit, now time.Time) PendingDepositResponse {
	return PendingDepositResponse{
		DepositResponse: NewDepositResponse(pd.Deposit, now),
		User: DepositOwner{
			ID:       pd.UserID,
			Username: pd.Username,
			Email:    pd.Email,
		},
	}
}

type MinimumDepositResponse struct {
	MinimumDepositAmount float64 `json:"minimumDepositAmount"`
	Currency             string  `json:"currency"`
}

type WalletBalanceResponse struct {
	UserID        string  `json:"userId"`
	WalletBalance float64 `json:"walletBalance"`
}

type SettingsResponse struct {
	MinimumDepositAmount float64  `json:"minimumDepositAmount"`
	SupportedCurrencies  []string `json:"supportedCurrencies"`
	UpdatedAt            string   `json:"updatedAt,omitempty"`
	UpdatedBy            string   `json:"updatedBy,omitempty"`
}

func NewSettingsResponse(ws settings.WalletSettings) SettingsResponse {
	resp := SettingsResponse{
		MinimumDepositAmount: ws.MinimumDeposit.InexactFloat64(),
		SupportedCurrencies:  ws.SupportedCurrencies,
		UpdatedBy:            ws.UpdatedBy,
	}

	if !ws.UpdatedAt.IsZero() {
		resp.UpdatedAt = ws.UpdatedAt.Format(time.RFC3339)
	}

	return resp
}

type ExchangeRateResponse struct {
	Currency     string  `json:"currency"`
	Rate         float64 `json:"rate"`
	USDAmount    float64 `json:"usdAmount"`
	CryptoAmount string  `json:"cryptoAmount"`
}

type InviteCodeResponse struct {
	Code      string `json:"code"`
	MaxUses   int    `json:"maxUses"`
	UsedCount int    `json:"usedCount"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"createdAt"`
}

func NewInviteCodeResponse(c *invites.InviteCode) InviteCodeResponse {
	return InviteCodeResponse{
		Code:      c.Code(),
		MaxUses:   c.MaxUses(),
		UsedCount: c.UsedCount(),
		Active:    c.Active(),
		CreatedAt: c.CreatedAt().Format(time.RFC3339),
	}
}

type PaginationResponse struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
