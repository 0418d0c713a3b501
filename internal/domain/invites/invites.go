package invites

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInviteCodeEmpty    = errors.New("invite code is empty")
	ErrInviteInactive     = errors.New("invite code is inactive")
	ErrInviteExhausted    = errors.New("invite code has no uses left")
	ErrInviteMaxUsesRange = errors.New("invite code max uses must be positive")
)

// InviteCode gates registration: usable while active and used less than maxUses times.
type InviteCode struct {
	code      string
	maxUses   int
	usedCount int
	active    bool
	createdBy string
	createdAt time.Time
}

// GenerateInviteCode creates a new active random code.
func GenerateInviteCode(createdBy string, maxUses int) (*InviteCode, error) {
	if maxUses <= 0 {
		return nil, ErrInviteMaxUsesRange
	}

	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("rand.Read: %w", err)
	}

	return &InviteCode{
		code:      strings.ToUpper(hex.EncodeToString(buf)),
		maxUses:   maxUses,
		active:    true,
		createdBy: createdBy,
		createdAt: time.Now().UTC(),
	}, nil
}

func NewInviteCode(code string, maxUses, usedCount int, active bool, createdBy string, createdAt time.Time) *InviteCode {
	return &InviteCode{
		code:      code,
		maxUses:   maxUses,
		usedCount: usedCount,
		active:    active,
		createdBy: createdBy,
		createdAt: createdAt,
	}
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *InviteCode) Code() string {
	return c.code
}

func (c *InviteCode) MaxUses() int {
	return c.maxUses
}

func (c *InviteCode) UsedCount() int {
	return c.usedCount
}

func (c *InviteCode) Active() bool {
	return c.active
}

func (c *InviteCode) CreatedBy() string {
	return c.createdBy
}

func (c *InviteCode) CreatedAt() time.Time {
	return c.createdAt
}

// CheckUsable returns nil when the code may be redeemed once more.
func (c *InviteCode) CheckUsable() error {
	if !c.active {
		return ErrInviteInactive
	}

	if c.usedCount >= c.maxUses {
		return ErrInviteExhausted
	}

	return nil
}

// Redeem consumes one use.
func (c *InviteCode) Redeem() error {
	if err := c.CheckUsable(); err != nil {
		return err
	}

	c.usedCount++

	return nil
}
