package service

import (
	"github.com/MKhiriev/go-otp-vault/internal/config"
	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/internal/store"
)

// Services aggregates every server-side service behind one constructor.
type Services struct {
	AuthService     AuthService
	VaultService    VaultService
	RecoveryService RecoveryService
	AppInfoService  AppInfoService
}

func NewServices(storages *store.Storages, cfg *config.ServerConfig, logger *logger.Logger) (*Services, error) {
	appInfoService, err := NewAppInfoService(cfg.App, logger)
	if err != nil {
		return nil, err
	}

	return &Services{
		AuthService:     NewAuthService(storages.UserRepository, cfg.App, logger),
		VaultService:    NewVaultService(storages.VaultRepository, logger),
		RecoveryService: NewRecoveryService(storages.UserRepository, storages.VaultRepository, cfg.App, logger),
		AppInfoService:  appInfoService,
	}, nil
}
