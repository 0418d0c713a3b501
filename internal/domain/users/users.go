package users

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUserEmailEmpty    = errors.New("user email is empty")
	ErrUserEmailInvalid  = errors.New("user email is invalid")
	ErrUserNameEmpty     = errors.New("username is empty")
	ErrUserNameInvalid   = errors.New("username must be 3-32 characters of letters, digits, '_' or '-'")
	ErrUserPasswdEmpty   = errors.New("user password is empty")
	ErrUserPasswdTooWeak = errors.New("user password must be at least 8 characters")
)

const minPasswordLen = 8

// User is an account together with its wallet balance projection.
type User struct {
	id            string
	email         string
	username      string
	passwordHash  string
	isAdmin       bool
	walletBalance decimal.Decimal
	emailVerified bool
	createdAt     time.Time
}

// CreateUser builds a new account with a zero wallet balance. The password must already be hashed.
func CreateUser(email, username, passwordHash string) (*User, error) {
	email = NormalizeEmail(email)

	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	if passwordHash == "" {
		return nil, ErrUserPasswdEmpty
	}

	return &User{
		id:            uuid.NewString(),
		email:         email,
		username:      username,
		passwordHash:  passwordHash,
		walletBalance: decimal.Zero,
		createdAt:     time.Now().UTC(),
	}, nil
}

// NewUser restores a user from persisted fields.
func NewUser(
	id, email, username, passwordHash string,
	isAdmin bool, walletBalance decimal.Decimal, emailVerified bool, createdAt time.Time,
) *User {
	return &User{
		id:            id,
		email:         email,
		username:      username,
		passwordHash:  passwordHash,
		isAdmin:       isAdmin,
		walletBalance: walletBalance,
		emailVerified: emailVerified,
		createdAt:     createdAt,
	}
}

func (u *User) ID() string {
	return u.id
}

func (u *User) Email() string {
	return u.email
}

func (u *User) Username() string {
	return u.username
}

func (u *User) PasswordHash() string {
	return u.passwordHash
}

func (u *User) IsAdmin() bool {
	return u.isAdmin
}

func (u *User) WalletBalance() decimal.Decimal {
	return u.walletBalance
}

func (u *User) EmailVerified() bool {
	return u.emailVerified
}

func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

func (u *User) SetAdmin(isAdmin bool) {
	u.isAdmin = isAdmin
}

func (u *User) SetPasswordHash(hash string) {
	u.passwordHash = hash
}

func (u *User) SetEmailVerified(verified bool) {
	u.emailVerified = verified
}

func (u *User) SetWalletBalance(balance decimal.Decimal) {
	u.walletBalance = balance
}

// Clone returns a copy that can be mutated without affecting the receiver.
func (u *User) Clone() *User {
	c := *u

	return &c
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if email == "" {
		return ErrUserEmailEmpty
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrUserEmailInvalid
	}

	return nil
}

func ValidateUsername(username string) error {
	if username == "" {
		return ErrUserNameEmpty
	}

	if len(username) < 3 || len(username) > 32 {
		return ErrUserNameInvalid
	}

	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return ErrUserNameInvalid
		}
	}

	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return ErrUserPasswdEmpty
	}

	if len(password) < minPasswordLen {
		return ErrUserPasswdTooWeak
	}

	return nil
}
