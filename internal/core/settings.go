package core

import (
	"context"

	"coffeeroaster/internal/config"
	"coffeeroaster/internal/costing"
	"coffeeroaster/pkg/domain"
)

// Warehouses used by green bean QC when settings leave them empty.
const (
	DefaultQCPendingWarehouse  = "QC Pending - CR"
	DefaultQCAcceptedWarehouse = "Green Beans - CR"
	DefaultQCRejectedWarehouse = "Rejected Beans - CR"
)

// SettingsFromConfig maps the [roaster] section onto a settings document.
func SettingsFromConfig(cfg config.Roaster) domain.Settings {
	return domain.Settings{
		Base:                     domain.Base{ID: domain.SettingsID},
		DefaultCompany:           cfg.DefaultCompany,
		DefaultCurrency:          cfg.DefaultCurrency,
		VATRate:                  cfg.VATRate,
		StandardSellingPriceList: cfg.StandardSellingPriceList,
		AutoCreateRoastLog:       cfg.AutoCreateRoastLog,
		MachineWebhookToken:      cfg.MachineWebhookToken,
	}
}

// settingsIn returns the stored settings, or the seeded defaults, with
// empty QC warehouses and VAT rate filled in.
func (s *Service) settingsIn(view domain.TransactionView) domain.Settings {
	st, ok := domain.Find[domain.Settings](view, domain.SettingsID)
	if !ok {
		st = s.defaults
		st.ID = domain.SettingsID
	}
	if st.QCPendingWarehouse == "" {
		st.QCPendingWarehouse = DefaultQCPendingWarehouse
	}
	if st.QCAcceptedWarehouse == "" {
		st.QCAcceptedWarehouse = DefaultQCAcceptedWarehouse
	}
	if st.QCRejectedWarehouse == "" {
		st.QCRejectedWarehouse = DefaultQCRejectedWarehouse
	}
	if st.VATRate <= 0 {
		st.VATRate = costing.DefaultVATRate
	}
	return st
}

// Settings returns the effective settings.
func (s *Service) Settings(ctx context.Context) (domain.Settings, error) {
	var st domain.Settings
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		st = s.settingsIn(v)
		return nil
	})
	return st, err
}

// SaveSettings stores the settings document.
func (s *Service) SaveSettings(ctx context.Context, st domain.Settings) (domain.Settings, Result, error) {
	st.ID = domain.SettingsID
	var saved domain.Settings
	res, err := s.run(ctx, "save_settings", domain.EntitySettings, domain.ActionUpdate, func(tx domain.Transaction) error {
		var err error
		if _, exists := tx.Lookup(domain.EntitySettings, domain.SettingsID); exists {
			saved, err = domain.Update[domain.Settings](tx, domain.SettingsID, func(cur *domain.Settings) error {
				*cur = st
				return nil
			})
			return err
		}
		saved, err = domain.Create(tx, st)
		return err
	}, constID(domain.SettingsID))
	return saved, res, err
}

// EnsureSettings stores the seeded defaults when no settings document
// exists yet and returns the effective settings.
func (s *Service) EnsureSettings(ctx context.Context) (domain.Settings, error) {
	exists := false
	if err := s.store.View(ctx, func(v domain.TransactionView) error {
		_, exists = v.Lookup(domain.EntitySettings, domain.SettingsID)
		return nil
	}); err != nil {
		return domain.Settings{}, err
	}
	if !exists {
		seed := s.defaults
		if _, _, err := s.SaveSettings(ctx, seed); err != nil {
			return domain.Settings{}, err
		}
		s.logger.Info("settings initialised", "default_company", seed.DefaultCompany)
	}
	return s.Settings(ctx)
}
