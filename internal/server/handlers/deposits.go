package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/andymarkow/botmarket/internal/errmsg"
	"github.com/andymarkow/botmarket/internal/server/models"
	"github.com/andymarkow/botmarket/internal/wallet"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func (h *Handlers) GetMinimumDeposit(w http.ResponseWriter, r *http.Request) {
	minimum, err := h.wallet.GetMinimumDeposit(r.Context(), r.URL.Query().Get("currency"))
	if err != nil {
		h.handleServiceError(w, "wallet.GetMinimumDeposit()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Data: models.MinimumDepositResponse{
			MinimumDepositAmount: minimum.Amount.InexactFloat64(),
			Currency:             minimum.Currency,
		},
	})
}

func (h *Handlers) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var payload models.CreateDepositRequest

	if !h.decodeJSON(w, r, &payload) {
		return
	}

	dep, err := h.wallet.CreateDeposit(r.Context(), userID, wallet.CreateDepositRequest{
		Amount:           payload.Amount,
		Currency:         payload.Currency,
		PaymentProcessor: payload.PaymentProcessor,
	})
	if err != nil {
		h.handleServiceError(w, "wallet.CreateDeposit()", err)

		return
	}

	handleJSONResponse(w, http.StatusCreated, &JSONResponse{
		Success: true,
		Message: "Deposit created successfully",
		Deposit: models.NewDepositResponse(dep, h.now()),
	})
}

func (h *Handlers) GetUserDeposits(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	q, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	page, err := h.wallet.ListDeposits(r.Context(), userID, q)
	if err != nil {
		h.handleServiceError(w, "wallet.ListDeposits()", err)

		return
	}

	now := h.now()

	resp := make([]models.DepositResponse, 0, len(page.Deposits))
	for _, dep := range page.Deposits {
		resp = append(resp, models.NewDepositResponse(dep, now))
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success:    true,
		Data:       resp,
		Pagination: paginationResponse(page.Pagination),
	})
}

func (h *Handlers) GetUserDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	dep, err := h.wallet.GetDeposit(r.Context(), userID, chi.URLParam(r, "depositId"))
	if err != nil {
		h.handleServiceError(w, "wallet.GetDeposit()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Deposit: models.NewDepositResponse(dep, h.now()),
	})
}

// SyncWallet accepts an empty body, which targets the caller.
func (h *Handlers) SyncWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var payload models.SyncWalletRequest

	if !h.decodeOptionalJSON(w, r, &payload) {
		return
	}

	target := payload.UserID
	if target == "" {
		target = userID
	}

	balance, err := h.wallet.SyncWalletBalance(r.Context(), userID, target)
	if err != nil {
		h.handleServiceError(w, "wallet.SyncWalletBalance()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Message: "Wallet balance synchronized",
		Data: models.WalletBalanceResponse{
			UserID:        target,
			WalletBalance: balance.Round(2).InexactFloat64(),
		},
	})
}

// GetExchangeRate quotes amount USD in currency; amount defaults to 1.
func (h *Handlers) GetExchangeRate(w http.ResponseWriter, r *http.Request) {
	amount := decimal.NewFromInt(1)

	if raw := r.URL.Query().Get("amount"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			h.log.Error("decimal.NewFromString()", slog.Any("error", err))
			handleError(w, errmsg.Validation(errors.New("amount must be a number")))

			return
		}

		amount = parsed
	}

	quote, err := h.wallet.Quote(r.Context(), r.URL.Query().Get("currency"), amount)
	if err != nil {
		h.handleServiceError(w, "wallet.Quote()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Data: models.ExchangeRateResponse{
			Currency:     quote.Currency,
			Rate:         quote.Rate.InexactFloat64(),
			USDAmount:    quote.USDAmount.InexactFloat64(),
			CryptoAmount: quote.CryptoAmount.String(),
		},
	})
}
