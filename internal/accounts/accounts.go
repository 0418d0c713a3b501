// Package accounts handles registration, login, email verification and password recovery.
package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/andymarkow/botmarket/internal/auth"
	"github.com/andymarkow/botmarket/internal/codestore"
	"github.com/andymarkow/botmarket/internal/codestore/memstore"
	"github.com/andymarkow/botmarket/internal/domain/invites"
	"github.com/andymarkow/botmarket/internal/domain/users"
	"github.com/andymarkow/botmarket/internal/logger"
	"github.com/andymarkow/botmarket/internal/mailer"
	"github.com/andymarkow/botmarket/internal/storage"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserAlreadyExists  = errors.New("user with this email or username already exists")
	ErrCredentialsInvalid = errors.New("invalid login or password")
	ErrInviteInvalid      = errors.New("invite code is invalid or exhausted")
	ErrCodeInvalid        = errors.New("verification code is invalid or expired")
	ErrResetTokenInvalid  = errors.New("reset token is invalid or expired")
	ErrTooManyRequests    = errors.New("too many requests, try again later")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("admin access required")
)

const (
	verificationTTL  = 15 * time.Minute
	resetTTL         = time.Hour
	sendWindow       = 15 * time.Minute
	maxSendsInWindow = 5

	// Wrong guesses allowed per verification code before it is revoked.
	maxVerifyAttempts = 5
)

type Service struct {
	log         *slog.Logger
	storage     storage.Storage
	auth        *auth.JWTAuth
	codes       codestore.Store
	mailer      mailer.Mailer
	adminEmails map[string]struct{}
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.log = logger
	}
}

func WithCodeStore(store codestore.Store) Option {
	return func(s *Service) {
		s.codes = store
	}
}

func WithMailer(m mailer.Mailer) Option {
	return func(s *Service) {
		s.mailer = m
	}
}

// WithAdminEmails promotes accounts registered with these emails to administrators.
func WithAdminEmails(emails []string) Option {
	return func(s *Service) {
		for _, e := range emails {
			if e = users.NormalizeEmail(e); e != "" {
				s.adminEmails[e] = struct{}{}
			}
		}
	}
}

func NewService(store storage.Storage, jwtAuth *auth.JWTAuth, opts ...Option) *Service {
	s := &Service{
		log:         logger.Nop(),
		storage:     store,
		auth:        jwtAuth,
		codes:       memstore.New(),
		adminEmails: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With(slog.String("module", "accounts"))

	if s.mailer == nil {
		s.mailer = mailer.NewLog(s.log)
	}

	return s
}

type RegisterRequest struct {
	Email      string
	Username   string
	Password   string
	InviteCode string
}

// Register creates the account and returns it with a signed token. When an invite code is given
// it must be usable and is redeemed in the same storage operation.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*users.User, string, error) {
	if err := users.ValidatePassword(req.Password); err != nil {
		return nil, "", errors.Join(ErrInvalidInput, err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("auth.HashPassword: %w", err)
	}

	usr, err := users.CreateUser(req.Email, strings.TrimSpace(req.Username), hash)
	if err != nil {
		return nil, "", errors.Join(ErrInvalidInput, err)
	}

	if _, ok := s.adminEmails[usr.Email()]; ok {
		usr.SetAdmin(true)
	}

	if code := strings.TrimSpace(req.InviteCode); code != "" {
		err = s.storage.CreateUserWithInvite(ctx, usr, code)
	} else {
		err = s.storage.CreateUser(ctx, usr)
	}

	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserAlreadyExists):
			return nil, "", ErrUserAlreadyExists
		case errors.Is(err, storage.ErrInviteNotFound), errors.Is(err, storage.ErrInviteUnusable):
			return nil, "", ErrInviteInvalid
		}

		return nil, "", fmt.Errorf("storage.CreateUser: %w", err)
	}

	token, err := s.auth.CreateJWTString(usr.ID())
	if err != nil {
		return nil, "", fmt.Errorf("auth.CreateJWTString: %w", err)
	}

	s.log.Info("User registered", slog.String("user_id", usr.ID()), slog.Bool("is_admin", usr.IsAdmin()))

	return usr, token, nil
}

// Login accepts either the email or the username.
func (s *Service) Login(ctx context.Context, login, password string) (*users.User, string, error) {
	if strings.TrimSpace(login) == "" || password == "" {
		return nil, "", errors.Join(ErrInvalidInput, errors.New("login and password are required"))
	}

	usr, err := s.storage.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, "", ErrCredentialsInvalid
		}

		return nil, "", fmt.Errorf("storage.GetUserByLogin: %w", err)
	}

	if err := auth.ComparePassword(usr.PasswordHash(), password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, "", ErrCredentialsInvalid
		}

		return nil, "", err
	}

	token, err := s.auth.CreateJWTString(usr.ID())
	if err != nil {
		return nil, "", fmt.Errorf("auth.CreateJWTString: %w", err)
	}

	return usr, token, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*users.User, error) {
	usr, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("storage.GetUser: %w", err)
	}

	return usr, nil
}

// SendVerificationCode mails a fresh 6-digit code, replacing any previous one.
func (s *Service) SendVerificationCode(ctx context.Context, userID string) error {
	usr, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.throttle(ctx, "verify:"+usr.ID()); err != nil {
		return err
	}

	code, err := verificationCode()
	if err != nil {
		return err
	}

	if err := s.codes.Put(ctx, codestore.VerificationPrefix+usr.ID(), code, verificationTTL); err != nil {
		return fmt.Errorf("codes.Put: %w", err)
	}

	if err := s.codes.Delete(ctx, verifyAttemptsKey(usr.ID())); err != nil {
		return fmt.Errorf("codes.Delete: %w", err)
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(verificationTTL.Minutes()))

	if err := s.mailer.Send(ctx, usr.Email(), "Verify your email", body); err != nil {
		return fmt.Errorf("mailer.Send: %w", err)
	}

	return nil
}

func (s *Service) VerifyEmail(ctx context.Context, userID, code string) error {
	key := codestore.VerificationPrefix + userID

	want, err := s.codes.Get(ctx, key)
	if err != nil {
		if errors.Is(err, codestore.ErrNotFound) {
			return ErrCodeInvalid
		}

		return fmt.Errorf("codes.Get: %w", err)
	}

	if strings.TrimSpace(code) != want {
		return s.failVerifyAttempt(ctx, userID)
	}

	if err := s.storage.SetUserEmailVerified(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrUserNotFound
		}

		return fmt.Errorf("storage.SetUserEmailVerified: %w", err)
	}

	for _, k := range []string{key, verifyAttemptsKey(userID)} {
		if err := s.codes.Delete(ctx, k); err != nil {
			s.log.Warn("codes.Delete", slog.Any("error", err))
		}
	}

	return nil
}

// failVerifyAttempt counts a wrong guess and revokes the code once maxVerifyAttempts is reached,
// so a new code has to be requested.
func (s *Service) failVerifyAttempt(ctx context.Context, userID string) error {
	n, err := s.codes.Incr(ctx, verifyAttemptsKey(userID), verificationTTL)
	if err != nil {
		return fmt.Errorf("codes.Incr: %w", err)
	}

	if n < maxVerifyAttempts {
		return ErrCodeInvalid
	}

	if err := s.codes.Delete(ctx, codestore.VerificationPrefix+userID); err != nil {
		return fmt.Errorf("codes.Delete: %w", err)
	}

	s.log.Warn("Verification code revoked after repeated failures", slog.String("user_id", userID))

	return ErrTooManyRequests
}

func verifyAttemptsKey(userID string) string {
	return codestore.ThrottlePrefix + "verify-attempt:" + userID
}

// RequestPasswordReset mails a reset token. Unknown emails succeed silently so callers cannot
// probe which addresses are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = users.NormalizeEmail(email)
	if err := users.ValidateEmail(email); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}

	if err := s.throttle(ctx, "reset:"+email); err != nil {
		return err
	}

	usr, err := s.storage.GetUserByLogin(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil
		}

		return fmt.Errorf("storage.GetUserByLogin: %w", err)
	}

	if usr.Email() != email {
		return nil
	}

	token, err := resetToken()
	if err != nil {
		return err
	}

	if err := s.codes.Put(ctx, codestore.ResetPrefix+token, usr.ID(), resetTTL); err != nil {
		return fmt.Errorf("codes.Put: %w", err)
	}

	body := fmt.Sprintf("Use this token to reset your password: %s\nIt expires in 1 hour.", token)

	if err := s.mailer.Send(ctx, usr.Email(), "Password reset", body); err != nil {
		return fmt.Errorf("mailer.Send: %w", err)
	}

	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := users.ValidatePassword(newPassword); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}

	key := codestore.ResetPrefix + strings.TrimSpace(token)

	userID, err := s.codes.Get(ctx, key)
	if err != nil {
		if errors.Is(err, codestore.ErrNotFound) {
			return ErrResetTokenInvalid
		}

		return fmt.Errorf("codes.Get: %w", err)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth.HashPassword: %w", err)
	}

	if err := s.storage.UpdateUserPassword(ctx, userID, hash); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrResetTokenInvalid
		}

		return fmt.Errorf("storage.UpdateUserPassword: %w", err)
	}

	// Tokens are single use.
	if err := s.codes.Delete(ctx, key); err != nil {
		s.log.Warn("codes.Delete", slog.Any("error", err))
	}

	s.log.Info("Password reset", slog.String("user_id", userID))

	return nil
}

func (s *Service) CreateInviteCode(ctx context.Context, adminID string, maxUses int) (*invites.InviteCode, error) {
	admin, err := s.Me(ctx, adminID)
	if err != nil {
		return nil, ErrForbidden
	}

	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}

	if maxUses == 0 {
		maxUses = 1
	}

	code, err := invites.GenerateInviteCode(admin.ID(), maxUses)
	if err != nil {
		if errors.Is(err, invites.ErrInviteMaxUsesRange) {
			return nil, errors.Join(ErrInvalidInput, err)
		}

		return nil, fmt.Errorf("invites.GenerateInviteCode: %w", err)
	}

	if err := s.storage.CreateInviteCode(ctx, code); err != nil {
		return nil, fmt.Errorf("storage.CreateInviteCode: %w", err)
	}

	return code, nil
}

// PromoteAdmin grants the admin flag to the account registered with email.
func (s *Service) PromoteAdmin(ctx context.Context, email string) (*users.User, error) {
	email = users.NormalizeEmail(email)

	usr, err := s.storage.GetUserByLogin(ctx, email)
	if err != nil || usr.Email() != email {
		if err == nil || errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("storage.GetUserByLogin: %w", err)
	}

	if err := s.storage.SetUserAdmin(ctx, usr.ID(), true); err != nil {
		return nil, fmt.Errorf("storage.SetUserAdmin: %w", err)
	}

	usr.SetAdmin(true)

	return usr, nil
}

func (s *Service) throttle(ctx context.Context, key string) error {
	n, err := s.codes.Incr(ctx, codestore.ThrottlePrefix+key, sendWindow)
	if err != nil {
		return fmt.Errorf("codes.Incr: %w", err)
	}

	if n > maxSendsInWindow {
		return ErrTooManyRequests
	}

	return nil
}

func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("rand.Int: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}

func resetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
