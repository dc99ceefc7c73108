package cache

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/models"
)

func newTestCache(t *testing.T) (*vaultCache, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.NewLogger("test")
	c := &vaultCache{db: db, logger: l}
	return c, mock, db
}

func TestSaveVault_Success(t *testing.T) {
	c, mock, db := newTestCache(t)
	defer db.Close()

	state := models.VaultState{
		Blob:               "v=1;iv=abc;ct=def",
		Version:            3,
		UpdatedAt:          time.Now(),
		WrappedRecoveryKey: "wrapped",
	}

	mock.ExpectExec("INSERT INTO vault_state").
		WithArgs("alice@example.com", state.Blob, state.Version, state.UpdatedAt, state.WrappedRecoveryKey).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := c.SaveVault(context.Background(), "alice@example.com", state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveVault_DBError(t *testing.T) {
	c, mock, db := newTestCache(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO vault_state").
		WillReturnError(errors.New("disk i/o error"))

	err := c.SaveVault(context.Background(), "alice@example.com", models.VaultState{Blob: "v=1;iv=a;ct=b", Version: 1})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLoadVault_Success(t *testing.T) {
	c, mock, db := newTestCache(t)
	defer db.Close()

	updatedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.
		NewRows([]string{"blob", "version", "updated_at", "wrapped_recovery_key"}).
		AddRow("v=1;iv=abc;ct=def", int64(7), updatedAt, "wrapped")

	mock.ExpectQuery("SELECT").
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	state, err := c.LoadVault(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Blob != "v=1;iv=abc;ct=def" {
		t.Errorf("unexpected blob: %s", state.Blob)
	}
	if state.Version != 7 {
		t.Errorf("expected version 7, got %d", state.Version)
	}
	if !state.UpdatedAt.Equal(updatedAt) {
		t.Errorf("unexpected updated_at: %v", state.UpdatedAt)
	}
	if state.WrappedRecoveryKey != "wrapped" {
		t.Errorf("unexpected wrapped recovery key: %s", state.WrappedRecoveryKey)
	}
}

func TestLoadVault_Miss(t *testing.T) {
	c, mock, db := newTestCache(t)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := c.LoadVault(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestSaveAuthParams_Success(t *testing.T) {
	c, mock, db := newTestCache(t)
	defer db.Close()

	params := models.AuthParams{
		LoginSalt:     "bG9naW4tc2FsdA==",
		DataSalt:      "ZGF0YS1zYWx0",
		KDFIterations: 600_000,
	}

	mock.ExpectExec("INSERT INTO auth_params").
		WithArgs("alice@example.com", params.LoginSalt, params.DataSalt, params.KDFIterations).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := c.SaveAuthParams(context.Background(), "alice@example.com", params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLoadAuthParams_Success(t *testing.T) {
	c, mock, db := newTestCache(t)
	defer db.Close()

	rows := sqlmock.
		NewRows([]string{"login_salt", "data_salt", "kdf_iterations"}).
		AddRow("bG9naW4tc2FsdA==", "ZGF0YS1zYWx0", 600_000)

	mock.ExpectQuery("SELECT").
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	params, err := c.LoadAuthParams(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.LoginSalt != "bG9naW4tc2FsdA==" {
		t.Errorf("unexpected login salt: %s", params.LoginSalt)
	}
	if params.KDFIterations != 600_000 {
		t.Errorf("expected 600000 iterations, got %d", params.KDFIterations)
	}
}

func TestLoadAuthParams_Miss(t *testing.T) {
	c, mock, db := newTestCache(t)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := c.LoadAuthParams(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestEraseAll_Success(t *testing.T) {
	c, mock, db := newTestCache(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM vault_state").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM auth_params").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := c.EraseAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEraseAll_SecondDeleteFails_RollsBack(t *testing.T) {
	c, mock, db := newTestCache(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM vault_state").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM auth_params").
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	err := c.EraseAll(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEraseAll_BeginFails(t *testing.T) {
	c, mock, db := newTestCache(t)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection closed"))

	err := c.EraseAll(context.Background())
	if !errors.Is(err, ErrBeginningTransaction) {
		t.Fatalf("expected ErrBeginningTransaction, got %v", err)
	}
}
