package handlers

import (
	"net/http"

	"github.com/andymarkow/botmarket/internal/accounts"
	"github.com/andymarkow/botmarket/internal/server/models"
)

func (h *Handlers) UserRegister(w http.ResponseWriter, r *http.Request) {
	var payload models.RegisterRequest

	if !h.decodeJSON(w, r, &payload) {
		return
	}

	usr, token, err := h.accounts.Register(r.Context(), accounts.RegisterRequest{
		Email:      payload.Email,
		Username:   payload.Username,
		Password:   payload.Password,
		InviteCode: payload.InviteCode,
	})
	if err != nil {
		h.handleServiceError(w, "accounts.Register()", err)

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)

	handleJSONResponse(w, http.StatusCreated, &JSONResponse{
		Success: true,
		Message: "User registered successfully",
		Data:    models.AuthResponse{Token: token, User: models.NewUserResponse(usr)},
	})
}

func (h *Handlers) UserLogin(w http.ResponseWriter, r *http.Request) {
	var payload models.LoginRequest

	if !h.decodeJSON(w, r, &payload) {
		return
	}

	usr, token, err := h.accounts.Login(r.Context(), payload.Identifier(), payload.Password)
	if err != nil {
		h.handleServiceError(w, "accounts.Login()", err)

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Data:    models.AuthResponse{Token: token, User: models.NewUserResponse(usr)},
	})
}

func (h *Handlers) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	usr, err := h.accounts.Me(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, "accounts.Me()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Data:    models.NewUserResponse(usr),
	})
}

func (h *Handlers) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.accounts.SendVerificationCode(r.Context(), userID); err != nil {
		h.handleServiceError(w, "accounts.SendVerificationCode()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Message: "Verification code sent",
	})
}

func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var payload models.VerifyEmailRequest

	if !h.decodeJSON(w, r, &payload) {
		return
	}

	if err := h.accounts.VerifyEmail(r.Context(), userID, payload.Code); err != nil {
		h.handleServiceError(w, "accounts.VerifyEmail()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Message: "Email verified successfully",
	})
}

// ForgotPassword answers the same way whether or not the email is registered.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload models.ForgotPasswordRequest

	if !h.decodeJSON(w, r, &payload) {
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), payload.Email); err != nil {
		h.handleServiceError(w, "accounts.RequestPasswordReset()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Message: "If the email is registered, a reset link has been sent",
	})
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload models.ResetPasswordRequest

	if !h.decodeJSON(w, r, &payload) {
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), payload.Token, payload.Password); err != nil {
		h.handleServiceError(w, "accounts.ResetPassword()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{
		Success: true,
		Message: "Password has been reset",
	})
}
