package router

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/andymarkow/botmarket/internal/accounts"
	"github.com/andymarkow/botmarket/internal/errmsg"
	"github.com/andymarkow/botmarket/internal/logger"
	"github.com/andymarkow/botmarket/internal/metrics"
	"github.com/andymarkow/botmarket/internal/server/handlers"
	"github.com/andymarkow/botmarket/internal/storage"
	"github.com/andymarkow/botmarket/internal/wallet"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

type Options struct {
	log        *slog.Logger
	secret     []byte
	metrics    *metrics.Metrics
	accessLogs bool
}

func NewRouter(store storage.Storage, manager *wallet.Manager, svc *accounts.Service, opts ...Option) chi.Router {
	r := chi.NewRouter()

	rOpts := Options{
		log:        logger.Nop(),
		secret:     []byte(""),
		accessLogs: true,
	}

	for _, opt := range opts {
		opt(&rOpts)
	}

	tokenAuth := jwtauth.New("HS256", rOpts.secret, nil)

	r.Use(
		middleware.Recoverer,
		middleware.StripSlashes,
	)

	if rOpts.accessLogs {
		r.Use(middleware.Logger)
	}

	if rOpts.metrics != nil {
		r.Use(rOpts.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", rOpts.metrics.Handler())
	}

	h := handlers.NewHandlers(store, manager, svc,
		handlers.WithLogger(rOpts.log),
	)

	r.Get("/ping", h.Ping)

	r.Group(func(r chi.Router) {
		r.Post("/api/register", h.UserRegister)
		r.Post("/api/login", h.UserLogin)
		r.Post("/api/forgot-password", h.ForgotPassword)
		r.Post("/api/reset-password", h.ResetPassword)
		r.Get("/api/get-minimum-deposit", h.GetMinimumDeposit)
		r.Get("/api/exchange-rate", h.GetExchangeRate)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			authenticator,
		)

		r.Get("/api/me", h.GetMe)
		r.Post("/api/send-verification-code", h.SendVerificationCode)
		r.Post("/api/verify-email", h.VerifyEmail)

		r.Get("/api/deposits", h.GetUserDeposits)
		r.Get("/api/deposits/{depositId}", h.GetUserDeposit)
		r.Post("/api/create-deposit", h.CreateDeposit)
		r.Post("/api/sync-wallet", h.SyncWallet)

		r.Get("/api/admin-pending-deposits", h.GetPendingDeposits)
		r.Post("/api/admin-confirm-deposit", h.ConfirmDeposit)
		r.Get("/api/admin-settings", h.GetSettings)
		r.Put("/api/admin-settings", h.UpdateSettings)
		r.Post("/api/admin-invite-codes", h.CreateInviteCode)
	})

	return r
}

// authenticator rejects requests whose token the verifier could not accept, answering with the
// JSON envelope instead of jwtauth's plain text body.
func authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())

		switch {
		case errors.Is(err, jwtauth.ErrNoTokenFound):
			handlers.AuthenticationError(w, errmsg.ErrAuthenticationRequired)

			return

		case err != nil, token == nil:
			handlers.AuthenticationError(w, errmsg.ErrTokenInvalid)

			return
		}

		next.ServeHTTP(w, r)
	})
}

type Option func(r *Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.log = logger
	}
}

func WithSecret(secret []byte) Option {
	return func(o *Options) {
		o.secret = secret
	}
}

// WithMetrics enables request counting and mounts /metrics.
func WithMetrics(mtr *metrics.Metrics) Option {
	return func(o *Options) {
		o.metrics = mtr
	}
}

// WithAccessLogs toggles chi's request logger.
func WithAccessLogs(enabled bool) Option {
	return func(o *Options) {
		o.accessLogs = enabled
	}
}
