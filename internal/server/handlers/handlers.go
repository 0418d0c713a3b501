package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andymarkow/botmarket/internal/accounts"
	"github.com/andymarkow/botmarket/internal/errmsg"
	"github.com/andymarkow/botmarket/internal/logger"
	"github.com/andymarkow/botmarket/internal/server/models"
	"github.com/andymarkow/botmarket/internal/storage"
	"github.com/andymarkow/botmarket/internal/wallet"
	"github.com/go-chi/jwtauth/v5"
)

type Handlers struct {
	storage  storage.Storage
	wallet   *wallet.Manager
	accounts *accounts.Service
	log      *slog.Logger
	now      func() time.Time
}

// NewHandlers returns a new Handlers instance.
func NewHandlers(store storage.Storage, manager *wallet.Manager, svc *accounts.Service, opts ...Option) *Handlers {
	handlers := &Handlers{
		storage:  store,
		wallet:   manager,
		accounts: svc,
		log:      logger.Nop(),
		now:      time.Now,
	}

	// Apply options
	for _, opt := range opts {
		opt(handlers)
	}

	return handlers
}

// Option is a functional option for Handlers.
type Option func(h *Handlers)

// WithLogger is a option for Handlers that sets logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		h.log = logger.With(slog.String("module", "handlers"))
	}
}

// WithClock sets the time source used for deposit countdowns.
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) {
		h.now = now
	}
}

// JSONResponse is the envelope of every API response.
type JSONResponse struct {
	Success    bool                       `json:"success"`
	Message    string                     `json:"message,omitempty"`
	Error      string                     `json:"error,omitempty"`
	Data       any                        `json:"data,omitempty"`
	Deposit    any                        `json:"deposit,omitempty"`
	Pagination *models.PaginationResponse `json:"pagination,omitempty"`
}

func handleJSONResponse(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func handleError(w http.ResponseWriter, err errmsg.HTTPError) {
	resp := &JSONResponse{
		Success: false,
		Error:   strings.ReplaceAll(err.Error(), "\n", ": "),
	}

	handleJSONResponse(w, err.Code, resp)
}

// AuthenticationError writes the 401 envelope; used by the router for rejected tokens.
func AuthenticationError(w http.ResponseWriter, err errmsg.HTTPError) {
	handleError(w, err)
}

// serviceError maps wallet and accounts errors to their HTTP category. Anything unknown is a
// dependency failure and its cause stays in the logs.
func serviceError(err error) errmsg.HTTPError {
	switch {
	case errors.Is(err, wallet.ErrMissingFields),
		errors.Is(err, wallet.ErrAmountNotPositive),
		errors.Is(err, wallet.ErrAmountPrecision),
		errors.Is(err, wallet.ErrAmountTooLarge),
		errors.Is(err, wallet.ErrBelowMinimum),
		errors.Is(err, wallet.ErrCurrencyUnsupported),
		errors.Is(err, wallet.ErrProcessorUnsupported),
		errors.Is(err, wallet.ErrStatusInvalid),
		errors.Is(err, wallet.ErrDepositIDRequired),
		errors.Is(err, wallet.ErrSettingsInvalid),
		errors.Is(err, wallet.ErrQuoteCurrencyRequired),
		errors.Is(err, wallet.ErrQuoteAmountNotPositive),
		errors.Is(err, accounts.ErrInvalidInput),
		errors.Is(err, accounts.ErrInviteInvalid),
		errors.Is(err, accounts.ErrCodeInvalid),
		errors.Is(err, accounts.ErrResetTokenInvalid):
		return errmsg.Validation(err)

	case errors.Is(err, wallet.ErrActiveDepositExists),
		errors.Is(err, wallet.ErrDepositNotPending),
		errors.Is(err, accounts.ErrUserAlreadyExists):
		return errmsg.Conflict(err)

	case errors.Is(err, wallet.ErrDepositNotFound),
		errors.Is(err, wallet.ErrUserNotFound),
		errors.Is(err, accounts.ErrUserNotFound):
		return errmsg.NotFound(err)

	case errors.Is(err, wallet.ErrForbidden),
		errors.Is(err, accounts.ErrForbidden):
		return errmsg.ErrAdminRequired

	case errors.Is(err, accounts.ErrCredentialsInvalid):
		return errmsg.Unauthorized(err)

	case errors.Is(err, accounts.ErrTooManyRequests):
		return errmsg.ErrTooManyRequests
	}

	return errmsg.ErrInternal
}

func (h *Handlers) handleServiceError(w http.ResponseWriter, call string, err error) {
	h.log.Error(call, slog.Any("error", err))
	handleError(w, serviceError(err))
}

// decodeJSON reports whether the payload was decoded; on failure the error response is written.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return h.decode(w, r, dst, false)
}

// decodeOptionalJSON is decodeJSON for endpoints where an empty body means defaults. Chunked
// requests carry no Content-Length, so emptiness is only known once the decoder hits EOF.
func (h *Handlers) decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return h.decode(w, r, dst, true)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))

		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return false
		}

		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return false
	}

	return true
}

// userID returns the token subject, which is the user id.
func (h *Handlers) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.ErrTokenInvalid)

		return "", false
	}

	sub := token.Subject()
	if sub == "" {
		handleError(w, errmsg.ErrTokenInvalid)

		return "", false
	}

	return sub, true
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}

	return strconv.Atoi(raw)
}

func (h *Handlers) listQuery(w http.ResponseWriter, r *http.Request) (wallet.ListQuery, bool) {
	page, err := queryInt(r, "page")
	if err != nil {
		handleError(w, errmsg.Validation(errors.New("page must be an integer")))

		return wallet.ListQuery{}, false
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(w, errmsg.Validation(errors.New("limit must be an integer")))

		return wallet.ListQuery{}, false
	}

	return wallet.ListQuery{
		Page:   page,
		Limit:  limit,
		Status: r.URL.Query().Get("status"),
	}, true
}

func paginationResponse(p wallet.Pagination) *models.PaginationResponse {
	return &models.PaginationResponse{
		Page:  p.Page,
		Limit: p.Limit,
		Total: p.Total,
		Pages: p.Pages,
	}
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Error("storage.Ping()", slog.Any("error", err))
		handleError(w, errmsg.ErrStorageUnavailable)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Success: true, Message: "ok"})
}
