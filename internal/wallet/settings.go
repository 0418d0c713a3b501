package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/andymarkow/botmarket/internal/domain/settings"
	"github.com/andymarkow/botmarket/internal/storage"
	"github.com/shopspring/decimal"
)

// EffectiveSettings returns persisted settings, or the configured defaults when none were saved.
func (m *Manager) EffectiveSettings(ctx context.Context) (settings.WalletSettings, error) {
	ws, err := m.storage.GetWalletSettings(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSettingsNotFound) {
			return m.defaults, nil
		}

		return settings.WalletSettings{}, fmt.Errorf("storage.GetWalletSettings: %w", err)
	}

	return ws, nil
}

func (m *Manager) GetSettings(ctx context.Context, adminID string) (settings.WalletSettings, error) {
	if err := m.requireAdmin(ctx, adminID); err != nil {
		return settings.WalletSettings{}, err
	}

	return m.EffectiveSettings(ctx)
}

// UpdateSettingsRequest leaves a field unchanged when it is absent.
type UpdateSettingsRequest struct {
	MinimumDeposit      decimal.NullDecimal
	SupportedCurrencies []string
}

func (m *Manager) UpdateSettings(
	ctx context.Context, adminID string, req UpdateSettingsRequest,
) (settings.WalletSettings, error) {
	if err := m.requireAdmin(ctx, adminID); err != nil {
		return settings.WalletSettings{}, err
	}

	current, err := m.EffectiveSettings(ctx)
	if err != nil {
		return settings.WalletSettings{}, err
	}

	minimum := current.MinimumDeposit
	if req.MinimumDeposit.Valid {
		minimum = req.MinimumDeposit.Decimal
	}

	currencies := current.SupportedCurrencies
	if req.SupportedCurrencies != nil {
		currencies = req.SupportedCurrencies
	}

	ws, err := settings.New(minimum, currencies)
	if err != nil {
		return settings.WalletSettings{}, errors.Join(ErrSettingsInvalid, err)
	}

	ws.UpdatedAt = m.now().UTC()
	ws.UpdatedBy = adminID

	if err := m.storage.SaveWalletSettings(ctx, ws); err != nil {
		return settings.WalletSettings{}, fmt.Errorf("storage.SaveWalletSettings: %w", err)
	}

	m.log.Info("Wallet settings updated",
		slog.String("admin_id", adminID),
		slog.String("minimum_deposit", ws.MinimumDeposit.StringFixed(2)),
		slog.Any("currencies", ws.SupportedCurrencies),
	)

	return ws, nil
}
