package client

import (
	"context"
	"io"
	"os"

	"github.com/MKhiriev/go-otp-vault/internal/adapter"
	"github.com/MKhiriev/go-otp-vault/internal/cache"
	"github.com/MKhiriev/go-otp-vault/internal/config"
	"github.com/MKhiriev/go-otp-vault/internal/crypto"
	"github.com/MKhiriev/go-otp-vault/internal/engine"
	"github.com/MKhiriev/go-otp-vault/internal/escrow"
	"github.com/MKhiriev/go-otp-vault/internal/logger"
)

// App is the interactive client process: shared transport and storage,
// the terminal prompter, and a per-session engine lifecycle.
type App struct {
	cfg    *config.ClientConfig
	logger *logger.Logger

	server adapter.ServerAdapter
	cache  cache.VaultCache
	keys   crypto.KeyChainService
	quick  *escrow.QuickUnlock

	prompt *prompter
	out    io.Writer
}

// NewApp wires the client runtime over an already-constructed transport
// and cache. The key chain, quick unlock and terminal prompter are
// created here; the engine is created per session inside Run.
func NewApp(server adapter.ServerAdapter, vaultCache cache.VaultCache, cfg *config.ClientConfig, log *logger.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: log,
		server: server,
		cache:  vaultCache,
		keys:   crypto.NewKeyChainService(),
		quick:  escrow.NewQuickUnlock(escrow.NewWrapKeyProvider(), cfg.Storage.Escrow.StatePath, log),
		prompt: newPrompter(os.Stdin, os.Stdout),
		out:    os.Stdout,
	}
}

// Run drives one full client lifecycle: authenticate, serve commands,
// and on logout start over with a fresh engine for the next account.
func (a *App) Run() error {
	ctx := context.Background()

	eng := engine.NewEngine(a.server, a.cache, engine.Options{
		Debounce:   a.cfg.Workers.DebounceWindow,
		IdlePeriod: a.cfg.Workers.IdleLockAfter,
	}, a.logger)
	defer eng.Close()

	sess := NewSession(a.server, a.cache, a.keys, a.quick, eng, a.cfg.App.KDFIterations, a.logger)

	proceed, err := a.authFlow(ctx, sess)
	if err != nil || !proceed {
		return err
	}

	go a.logEvents(eng.Subscribe())

	job := newSyncJob(eng)
	job.Start(ctx, a.cfg.Workers.SyncInterval)
	defer job.Stop()

	logout, err := a.mainLoop(ctx, sess, eng)
	if err != nil {
		return err
	}
	if logout {
		job.Stop()
		eng.Close()
		return a.Run()
	}
	return nil
}

// logEvents mirrors engine transitions into the debug log. The prompt
// re-reads authoritative state on every line, so nothing user-facing
// depends on this stream.
func (a *App) logEvents(events <-chan engine.Event) {
	for event := range events {
		a.logger.Debug().
			Str("status", event.Status.String()).
			Int64("version", event.Version).
			Bool("locked", event.Locked).
			Str("func", "App.logEvents").
			Msg("engine state changed")
	}
}
