package store

import "github.com/MKhiriev/go-otp-vault/internal/logger"

// Storages bundles every repository the service layer depends on.
type Storages struct {
	UserRepository  UserRepository
	VaultRepository VaultRepository
}

// NewStorages wires all repositories to the given database connection.
func NewStorages(db *DB, log *logger.Logger) *Storages {
	return &Storages{
		UserRepository:  NewUserRepository(db, log),
		VaultRepository: NewVaultRepository(db, log),
	}
}
