package handlers

import (
	"net/http"

	"github.com/andymarkow/botmarket/internal/server/models"
	"github.com/andymarkow/botmarket/internal/wallet"
)

func (h *Handlers) GetPendingDeposits(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.userID(w, r)
	if !ok {
		return
	}

	q, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	page, err := h.wallet.ListPendingDeposits(r.Context(), adminID, q)
	if err != nil {
		h.handleServiceError(w, "wallet.ListPendingDeposits()", err)

		return
	}

	now := h.now()

	resp := make([]models.PendingDepositResponse, 0, len(page.Deposits))
	for _, pd := range page.Deposits {
		resp = append(resp, models.NewPendingDepositResponse(pd, now))
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success:    true,
		Data:       resp,
		Pagination: paginationResponse(page.Pagination),
	})
}

func (h *Handlers) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var payload models.ConfirmDepositRequest

	if !h.decodeJSON(w, r, &payload) {
		return
	}

	dep, err := h.wallet.ConfirmDeposit(r.Context(), adminID, payload.DepositID)
	if err != nil {
		h.handleServiceError(w, "wallet.ConfirmDeposit()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Message: "Deposit confirmed successfully",
		Deposit: models.NewDepositResponse(dep, h.now()),
	})
}

func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.userID(w, r)
	if !ok {
		return
	}

	ws, err := h.wallet.GetSettings(r.Context(), adminID)
	if err != nil {
		h.handleServiceError(w, "wallet.GetSettings()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Data:    models.NewSettingsResponse(ws),
	})
}

func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var payload models.UpdateSettingsRequest

	if !h.decodeJSON(w, r, &payload) {
		return
	}

	ws, err := h.wallet.UpdateSettings(r.Context(), adminID, wallet.UpdateSettingsRequest{
		MinimumDeposit:      payload.MinimumDeposit,
		SupportedCurrencies: payload.SupportedCurrencies,
	})
	if err != nil {
		h.handleServiceError(w, "wallet.UpdateSettings()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Message: "Settings updated successfully",
		Data:    models.NewSettingsResponse(ws),
	})
}

func (h *Handlers) CreateInviteCode(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var payload models.CreateInviteCodeRequest

	if !h.decodeOptionalJSON(w, r, &payload) {
		return
	}

	code, err := h.accounts.CreateInviteCode(r.Context(), adminID, payload.MaxUses)
	if err != nil {
		h.handleServiceError(w, "accounts.CreateInviteCode()", err)

		return
	}

	handleJSONResponse(w, http.StatusCreated, &JSONResponse{
		Success: true,
		Data:    models.NewInviteCodeResponse(code),
	})
}
