// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-otp-vault/internal/adapter"
	"github.com/MKhiriev/go-otp-vault/internal/cache"
	"github.com/MKhiriev/go-otp-vault/internal/crypto"
	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/internal/merge"
	"github.com/MKhiriev/go-otp-vault/internal/utils"
	"github.com/MKhiriev/go-otp-vault/internal/validators"
	"github.com/MKhiriev/go-otp-vault/internal/vault"
	"github.com/MKhiriev/go-otp-vault/internal/workers"
	"github.com/MKhiriev/go-otp-vault/models"
)

const (
	defaultDebounce   = 3 * time.Second
	defaultIdlePeriod = 5 * time.Minute
	defaultRetryCap   = 3
	defaultRetryDelay = 500 * time.Millisecond

	eventBuffer = 8
)

// Options tunes the engine's background behavior. Zero values select
// the defaults.
type Options struct {

	// Debounce is the quiet period after the last mutation before the
	// engine pushes on its own.
	Debounce time.Duration

	// IdlePeriod is how long the vault may sit untouched before the
	// engine wipes the data key and locks itself.
	IdlePeriod time.Duration

	// RetryCap bounds consecutive conflict rounds within one sync cycle.
	RetryCap int

	// RetryDelay is the base delay between conflict rounds: round n
	// waits n times this before trying again.
	RetryDelay time.Duration
}

type vaultEngine struct {
	server    adapter.ServerAdapter
	cache     cache.VaultCache
	merger    merge.Merger
	validator validators.Validator
	ids       *utils.UUIDGenerator
	logger    *logger.Logger

	debounce *workers.Debouncer
	idle     *workers.IdleTimer

	retryCap   int
	retryDelay time.Duration

	mu       sync.Mutex
	identity string
	key      *crypto.DataKey
	records  models.RecordSet // nil until the first Unlock
	base     models.RecordSet // last state both sides agreed on
	version  int64
	wrapped  string // recovery-wrapped data key, echoed on every push
	status   models.SyncStatus
	mutSeq   uint64 // bumped on every local mutation
	syncing  bool   // one cycle in flight
	closed   bool

	subsMu    sync.Mutex
	subs      []chan Event
	subsDone  bool
	lastEvent Event
}

// NewEngine wires a locked engine over the given server adapter and
// local cache. It does nothing until Unlock.
func NewEngine(server adapter.ServerAdapter, vaultCache cache.VaultCache, opts Options, log *logger.Logger) Engine {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.IdlePeriod <= 0 {
		opts.IdlePeriod = defaultIdlePeriod
	}
	if opts.RetryCap <= 0 {
		opts.RetryCap = defaultRetryCap
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}

	e := &vaultEngine{
		server:     server,
		cache:      vaultCache,
		merger:     merge.NewMerger(),
		validator:  validators.NewRecordValidator(),
		ids:        utils.NewUUIDGenerator(),
		logger:     log,
		retryCap:   opts.RetryCap,
		retryDelay: opts.RetryDelay,
		status:     models.StatusIdle,
		lastEvent:  Event{Status: models.StatusIdle, Locked: true},
	}
	e.debounce = workers.NewDebouncer(opts.Debounce, e.backgroundSync)
	e.idle = workers.NewIdleTimer(opts.IdlePeriod, e.Lock)

	return e
}

func (e *vaultEngine) Unlock(ctx context.Context, identity string, key *crypto.DataKey) error {
	if identity == "" || key == nil || key.Wiped() {
		return errors.New("unlock: missing identity or key")
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errors.New("unlock: engine is closed")
	}
	if e.key != nil && e.identity == identity {
		e.mu.Unlock()
		e.idle.Touch()
		return nil
	}
	resume := e.records != nil && e.identity == identity
	e.mu.Unlock()

	if resume {
		return e.resumeSession(ctx, identity, key)
	}

	return e.openSession(ctx, identity, key)
}

// resumeSession re-arms a session that was locked with its record set
// still in memory: only the key was wiped, so unpushed changes are
// intact. The supplied key is proven against cached ciphertext before
// it is trusted with those records.
func (e *vaultEngine) resumeSession(ctx context.Context, identity string, key *crypto.DataKey) error {
	state, err := e.cache.LoadVault(ctx, identity)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return fmt.Errorf("load cached vault: %w", err)
	}
	if err == nil && state.Exists() {
		if _, decErr := vault.DecryptRecords(state.Blob, key); decErr != nil {
			key.Wipe()
			return fmt.Errorf("unlock: %w", decErr)
		}
	}

	e.mu.Lock()
	if e.records == nil || e.identity != identity {
		e.mu.Unlock()
		return e.openSession(ctx, identity, key)
	}
	e.key = key
	dirty := e.status == models.StatusDirty || e.status == models.StatusConflict
	e.emitLocked()
	e.mu.Unlock()

	e.idle.Touch()
	if dirty {
		e.debounce.Reset()
	}
	e.logger.Debug().Msg("vault unlocked, session resumed")

	return nil
}

// openSession starts a session from scratch: decrypt whatever the local
// cache holds, then refresh against the server. A missing cache row is
// the new-device case and starts from an empty set at version zero.
func (e *vaultEngine) openSession(ctx context.Context, identity string, key *crypto.DataKey) error {
	set := models.NewRecordSet()
	var version int64
	var wrapped string

	state, err := e.cache.LoadVault(ctx, identity)
	switch {
	case err == nil && state.Exists():
		set, err = vault.DecryptRecords(state.Blob, key)
		if err != nil {
			key.Wipe()
			return fmt.Errorf("unlock: %w", err)
		}
		version = state.Version
		wrapped = state.WrappedRecoveryKey
	case err == nil || errors.Is(err, cache.ErrCacheMiss):
		// nothing cached on this device yet
	default:
		return fmt.Errorf("load cached vault: %w", err)
	}

	e.mu.Lock()
	e.identity = identity
	e.key = key
	e.records = set
	e.base = set.Clone()
	e.version = version
	e.wrapped = wrapped
	e.mutSeq++
	e.setStatusLocked(models.StatusIdle)
	e.mu.Unlock()
	e.idle.Touch()
	e.logger.Debug().Int64("version", version).Msg("vault unlocked")

	if err := e.Sync(ctx); err != nil {
		if errors.Is(err, ErrReauthRequired) {
			return fmt.Errorf("unlock: %w", err)
		}
		if errors.Is(err, adapter.ErrNetworkUnavailable) && version == 0 {
			// no local copy and no server: start empty, flagged so the
			// first reachable sync reconciles against whatever exists
			e.setStatus(models.StatusDirty)
		}
		e.logger.Debug().Err(err).Msg("unlock refresh skipped")
	}

	return nil
}

// Lock wipes the data key and disarms the timers. The record set stays
// in memory so a resumed session keeps unpushed changes.
func (e *vaultEngine) Lock() {
	e.debounce.Stop()
	e.idle.Stop()

	e.mu.Lock()
	if e.key != nil {
		e.key.Wipe()
		e.key = nil
		e.logger.Debug().Msg("vault locked")
	}
	e.emitLocked()
	e.mu.Unlock()
}

func (e *vaultEngine) Locked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.key == nil
}

func (e *vaultEngine) Status() models.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.status
}

func (e *vaultEngine) Version() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.version
}

func (e *vaultEngine) Subscribe() <-chan Event {
	ch := make(chan Event, eventBuffer)

	e.subsMu.Lock()
	if e.subsDone {
		close(ch)
	} else {
		e.subs = append(e.subs, ch)
	}
	e.subsMu.Unlock()

	return ch
}

func (e *vaultEngine) Close() {
	e.Lock()

	e.mu.Lock()
	e.closed = true
	e.records = nil
	e.base = nil
	e.identity = ""
	e.mu.Unlock()

	e.subsMu.Lock()
	for _, ch := range e.subs {
		close(ch)
	}
	e.subs = nil
	e.subsDone = true
	e.subsMu.Unlock()
}

// backgroundSync runs on the debounce timer goroutine, which carries no
// caller context.
func (e *vaultEngine) backgroundSync() {
	if err := e.Sync(context.Background()); err != nil {
		e.logger.Debug().Err(err).Msg("background sync postponed")
	}
}

// setStatusLocked records a status change and notifies subscribers.
// Callers hold e.mu.
func (e *vaultEngine) setStatusLocked(status models.SyncStatus) {
	e.status = status
	e.emitLocked()
}

func (e *vaultEngine) setStatus(status models.SyncStatus) {
	e.mu.Lock()
	e.setStatusLocked(status)
	e.mu.Unlock()
}

// emitLocked publishes the current observable state if it changed since
// the last event. Sends never block: a slow subscriber loses events,
// not the engine. Callers hold e.mu.
func (e *vaultEngine) emitLocked() {
	event := Event{Status: e.status, Version: e.version, Locked: e.key == nil}
	if event == e.lastEvent {
		return
	}
	e.lastEvent = event

	e.subsMu.Lock()
	for _, ch := range e.subs {
		select {
		case ch <- event:
		default:
		}
	}
	e.subsMu.Unlock()
}
