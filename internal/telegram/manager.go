// Package telegram wraps the MTProto client: session lifecycle, group
// directory and message history retrieval.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gotd/td/session"
	tgclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"github.com/blockedby/grouppulse/internal/config"
	"github.com/blockedby/grouppulse/internal/logger"
)

// Status represents the Telegram session status.
type Status string

// Status constants define the possible states of the session.
const (
	StatusInitializing   Status = "INITIALIZING"
	StatusAuthenticating Status = "AUTHENTICATING"
	StatusReady          Status = "READY"
	StatusError          Status = "ERROR"
)

// connectRetryBudget is how many connection attempts are made before
// startup fails.
const connectRetryBudget = 5

// RunFunc dials the platform, authenticates, and blocks for the lifetime
// of the connection. It must call onReady exactly once when the session
// is authenticated and usable.
type RunFunc func(ctx context.Context, creds CredentialsProvider, onReady func()) error

// Manager owns the single authenticated connection shared by all
// requests. It is created unauthenticated; Connect transitions it to
// StatusReady or StatusError.
type Manager struct {
	cfg   *config.Config
	store session.Storage
	log   *logger.Logger

	status Status
	api    *tg.Client
	mu     sync.RWMutex

	run         RunFunc
	retryBudget int
	ready       chan struct{}
	readyOnce   sync.Once
}

// NewManager creates a session manager in the unauthenticated state.
func NewManager(cfg *config.Config, store session.Storage) *Manager {
	m := &Manager{
		cfg:         cfg,
		store:       store,
		log:         logger.Get(),
		status:      StatusInitializing,
		retryBudget: connectRetryBudget,
		ready:       make(chan struct{}),
	}
	m.run = m.runClient
	return m
}

// SetRunFunc overrides the connection logic (e.g. for testing).
func (m *Manager) SetRunFunc(f RunFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run = f
}

// Status returns the current session status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// API returns the raw tg.Client, or ErrNotAuthorized before the session
// is ready.
func (m *Manager) API() (*tg.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status != StatusReady || m.api == nil {
		return nil, ErrNotAuthorized
	}
	return m.api, nil
}

// Connect establishes the authenticated connection, running the
// interactive login flow when no stored session is valid. It blocks
// until the session is ready, the retry budget is exhausted, or ctx is
// canceled. The connection itself keeps running in the background until
// ctx is canceled.
func (m *Manager) Connect(ctx context.Context, creds CredentialsProvider) error {
	m.setStatus(StatusAuthenticating)

	errc := make(chan error, 1)
	go func() { errc <- m.connectLoop(ctx, creds) }()

	select {
	case <-m.ready:
		m.setStatus(StatusReady)
		m.emitSessionToken(ctx)
		return nil
	case err := <-errc:
		m.setStatus(StatusError)
		if err == nil {
			err = errors.New("connection closed before authentication")
		}
		return fmt.Errorf("%w: %v", ErrNotAuthorized, err)
	case <-ctx.Done():
		m.setStatus(StatusError)
		return ctx.Err()
	}
}

func (m *Manager) connectLoop(ctx context.Context, creds CredentialsProvider) error {
	m.mu.RLock()
	run := m.run
	budget := m.retryBudget
	m.mu.RUnlock()

	var lastErr error
	for attempt := 1; attempt <= budget; attempt++ {
		err := run(ctx, creds, m.signalReady)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if m.isReady() {
			// the connection dropped after a successful login; requests
			// will be rejected until the process is restarted
			m.setStatus(StatusError)
			m.log.Error().Err(err).Msg("telegram: connection lost after authentication")
			return err
		}
		lastErr = err
		m.log.Warn().Err(err).
			Int("attempt", attempt).
			Int("budget", budget).
			Msg("telegram: connection attempt failed")
	}
	if lastErr == nil {
		// run returned without an error and without reaching ready
		lastErr = errors.New("connection closed before authentication")
	}
	return fmt.Errorf("retry budget exhausted after %d attempts: %w", budget, lastErr)
}

func (m *Manager) signalReady() {
	m.readyOnce.Do(func() { close(m.ready) })
}

func (m *Manager) isReady() bool {
	select {
	case <-m.ready:
		return true
	default:
		return false
	}
}

// emitSessionToken logs the reusable session token so an operator can
// capture it and skip the interactive login on the next start.
func (m *Manager) emitSessionToken(ctx context.Context) {
	token, err := ExportSessionToken(ctx, m.store)
	if err != nil {
		m.log.Warn().Err(err).Msg("telegram: failed to export session token")
		return
	}
	m.log.Info().
		Str("session_token", token).
		Msg("telegram: session established, reuse via TG_SESSION_STRING")
}

// runClient is the default RunFunc backed by gotd.
func (m *Manager) runClient(ctx context.Context, creds CredentialsProvider, onReady func()) error {
	client := tgclient.NewClient(m.cfg.TGApiID, m.cfg.TGApiHash, tgclient.Options{
		SessionStorage: m.store,
	})

	return client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(flowAuthenticator{creds: creds, log: m.log}, auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("auth flow: %w", err)
		}

		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("fetch self: %w", err)
		}
		m.log.Info().
			Str("username", self.Username).
			Int64("user_id", self.ID).
			Msg("telegram: logged in")

		m.mu.Lock()
		m.api = client.API()
		m.mu.Unlock()
		onReady()

		// hold the connection for the process lifetime
		<-ctx.Done()
		return ctx.Err()
	})
}
