package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/fbx-agent/internal/constants"
	"github.com/benmeehan/fbx-agent/pkg/credentials"
	"github.com/benmeehan/fbx-agent/pkg/identity"
	"github.com/benmeehan/fbx-agent/pkg/transport"
)

// ErrNotConnected is returned by WithSession before Connect succeeded.
var ErrNotConnected = errors.New("not connected to the appliance")

// Resolver discovers the appliance API endpoint.
type Resolver interface {
	Resolve(ctx context.Context) (credentials.ConnectionInfo, error)
}

// ClientFactory builds the trusted transport bound to baseURL.
type ClientFactory func(baseURL string) (*transport.Client, error)

// BootstrapOptions tunes the startup sequence.
type BootstrapOptions struct {
	AppIdentity     identity.ApplicationIdentity
	PairingTimeout  time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
	LoginRetries    int
	// OnPending is forwarded to the pairing service.
	OnPending func(trackID int)
}

// BootstrapService turns persisted state (or its absence) into a live session:
// load, otherwise resolve, pair and persist, then log in.
type BootstrapService struct {
	opts      BootstrapOptions
	store     credentials.CredentialStoreInterface
	resolver  Resolver
	newClient ClientFactory
	sessions  *SessionService
	wait      WaitFunc
	logger    zerolog.Logger

	mu         sync.Mutex
	credential credentials.PairingCredential
	client     *transport.Client
	session    *Session
}

// NewBootstrapService initializes a BootstrapService.
func NewBootstrapService(
	opts BootstrapOptions,
	store credentials.CredentialStoreInterface,
	resolver Resolver,
	newClient ClientFactory,
	logger zerolog.Logger,
) *BootstrapService {
	if opts.LoginRetries < 1 {
		opts.LoginRetries = 1
	}
	return &BootstrapService{
		opts:      opts,
		store:     store,
		resolver:  resolver,
		newClient: newClient,
		sessions:  NewSessionService(opts.AppIdentity, logger),
		wait:      sleep,
		logger:    logger,
	}
}

// SetWaitFunc replaces the wait used between polls and login retries.
func (b *BootstrapService) SetWaitFunc(wait WaitFunc) {
	b.wait = wait
}

// Connect establishes the session. A persisted credential is trusted until a
// login proves it revoked; only then is it discarded and a new pairing run.
func (b *BootstrapService) Connect(ctx context.Context) (*Session, error) {
	auth, paired := b.store.Load()
	pairedThisRun := false
	if !paired {
		b.logger.Info().Msg("Not paired with the appliance yet, starting pairing")
		fresh, err := b.pairAndPersist(ctx)
		if err != nil {
			return nil, err
		}
		auth = fresh
		pairedThisRun = true
	} else {
		b.logger.Info().Str("base_url", auth.Infos.BaseURL).Msg("Using persisted pairing")
	}

	client, err := b.newClient(auth.Infos.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build transport: %w", err)
	}

	session, err := b.login(ctx, client, auth.Auth)
	if err != nil {
		var loginErr *LoginError
		if pairedThisRun || !errors.As(err, &loginErr) || !loginErr.TokenRevoked() {
			return nil, err
		}

		b.logger.Warn().Str("code", loginErr.Code).Msg("Application token was revoked, pairing again")
		if err := b.store.Clear(); err != nil {
			return nil, err
		}
		auth, err = b.pairAndPersist(ctx)
		if err != nil {
			return nil, err
		}
		client, err = b.newClient(auth.Infos.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to build transport: %w", err)
		}
		session, err = b.login(ctx, client, auth.Auth)
		if err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	b.credential = auth.Auth
	b.client = client
	b.session = session
	b.mu.Unlock()

	return session, nil
}

// Session returns the current session, or nil before Connect.
func (b *BootstrapService) Session() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// WithSession runs fn with the authenticated transport. If the appliance reports
// the session expired, it logs in again with the same credential and retries once.
func (b *BootstrapService) WithSession(ctx context.Context, fn func(ctx context.Context, r transport.Requester) error) error {
	session := b.Session()
	if session == nil {
		return ErrNotConnected
	}

	err := fn(ctx, session.Client)
	code, isAPIErr := transport.ErrorCode(err)
	if !isAPIErr || !constants.IsSessionExpiredCode(code) {
		return err
	}

	b.logger.Info().Str("code", code).Msg("Session expired, logging in again")
	fresh, err := b.relogin(ctx, session)
	if err != nil {
		return err
	}
	return fn(ctx, fresh.Client)
}

// Close logs the current session out.
func (b *BootstrapService) Close(ctx context.Context) error {
	b.mu.Lock()
	session := b.session
	b.session = nil
	b.mu.Unlock()

	return b.sessions.Logout(ctx, session)
}

// relogin replaces stale with a fresh session unless another caller already did.
func (b *BootstrapService) relogin(ctx context.Context, stale *Session) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session != nil && b.session != stale {
		return b.session, nil
	}

	session, err := b.sessions.Login(ctx, b.client, b.credential)
	if err != nil {
		return nil, err
	}
	b.session = session
	return session, nil
}

// login tries up to LoginRetries times. Retries never re-pair.
func (b *BootstrapService) login(ctx context.Context, client *transport.Client, cred credentials.PairingCredential) (*Session, error) {
	var lastErr error
	for attempt := 1; attempt <= b.opts.LoginRetries; attempt++ {
		session, err := b.sessions.Login(ctx, client, cred)
		if err == nil {
			return session, nil
		}
		lastErr = err

		b.logger.Warn().Err(err).Int("attempt", attempt).Msg("Login failed")
		if attempt == b.opts.LoginRetries {
			break
		}
		if err := b.wait(ctx, b.opts.PollInterval); err != nil {
			return nil, fmt.Errorf("login aborted: %w", err)
		}
	}
	return nil, lastErr
}

// pairAndPersist resolves the endpoint, pairs, and saves the result.
func (b *BootstrapService) pairAndPersist(ctx context.Context) (*credentials.PersistedAuth, error) {
	info, err := b.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	client, err := b.newClient(info.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build transport: %w", err)
	}

	pairCtx := ctx
	if b.opts.PairingTimeout > 0 {
		var cancel context.CancelFunc
		pairCtx, cancel = context.WithTimeout(ctx, b.opts.PairingTimeout)
		defer cancel()
	}

	pairing := NewPairingService(client, b.opts.AppIdentity, b.opts.PollInterval, b.opts.MaxPollAttempts, b.logger)
	pairing.SetWaitFunc(b.wait)
	pairing.OnPending = b.opts.OnPending

	cred, err := pairing.Pair(pairCtx)
	if err != nil {
		return nil, err
	}

	auth := credentials.PersistedAuth{Infos: info, Auth: cred}
	if err := b.store.Save(auth); err != nil {
		return nil, fmt.Errorf("pairing succeeded but could not be persisted: %w", err)
	}
	b.logger.Info().Msg("Pairing persisted")

	return &auth, nil
}
