package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/fbx-agent/internal/constants"
	"github.com/benmeehan/fbx-agent/internal/models"
	"github.com/benmeehan/fbx-agent/pkg/credentials"
	"github.com/benmeehan/fbx-agent/pkg/identity"
	"github.com/benmeehan/fbx-agent/pkg/transport"
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// PairingService drives the one-time registration and the manual confirmation
// handshake. It owns the pairing status for the duration of a Pair call.
type PairingService struct {
	client      transport.Requester
	appIdentity identity.ApplicationIdentity
	interval    time.Duration
	maxAttempts int
	wait        WaitFunc
	logger      zerolog.Logger

	// OnPending, if set, is called once the appliance is waiting for the user.
	OnPending func(trackID int)
}

// NewPairingService initializes a PairingService. maxAttempts of 0 polls until
// the status changes or ctx is done.
func NewPairingService(
	client transport.Requester,
	appIdentity identity.ApplicationIdentity,
	interval time.Duration,
	maxAttempts int,
	logger zerolog.Logger,
) *PairingService {
	return &PairingService{
		client:      client,
		appIdentity: appIdentity,
		interval:    interval,
		maxAttempts: maxAttempts,
		wait:        sleep,
		logger:      logger,
	}
}

// SetWaitFunc replaces the inter-poll wait.
func (ps *PairingService) SetWaitFunc(wait WaitFunc) {
	ps.wait = wait
}

// Pair registers the application and blocks until the user answers on the appliance.
func (ps *PairingService) Pair(ctx context.Context) (credentials.PairingCredential, error) {
	var authz models.AuthorizeResponse
	if err := ps.client.Post(ctx, constants.PathAuthorize, ps.appIdentity, &authz); err != nil {
		return credentials.PairingCredential{}, &AuthorizeError{Err: err}
	}
	if authz.AppToken == "" {
		return credentials.PairingCredential{}, &AuthorizeError{Err: errors.New("response has no app_token")}
	}

	ps.logger.Info().
		Int("track_id", authz.TrackID).
		Str("app_id", ps.appIdentity.AppID).
		Msg("Waiting for manual confirmation on the appliance")
	if ps.OnPending != nil {
		ps.OnPending(authz.TrackID)
	}

	status, err := ps.poll(ctx, authz.TrackID)
	if err != nil {
		return credentials.PairingCredential{}, err
	}

	if constants.ParsePairingStatus(status.Status) != constants.PairingStatusGranted {
		rejected := &PairingRejected{Status: constants.ParsePairingStatus(status.Status)}
		ps.logger.Warn().Str("status", string(rejected.Status)).Int("track_id", authz.TrackID).Msg("Pairing was not granted")
		return credentials.PairingCredential{}, rejected
	}

	ps.logger.Info().Int("track_id", authz.TrackID).Msg("Pairing granted")
	return credentials.PairingCredential{
		AppToken:     authz.AppToken,
		PasswordSalt: status.PasswordSalt,
	}, nil
}

// poll queries the tracked request until its status leaves pending and returns
// the last response.
func (ps *PairingService) poll(ctx context.Context, trackID int) (models.AuthorizeStatusResponse, error) {
	path := fmt.Sprintf(constants.PathAuthorizeStatus, trackID)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.AuthorizeStatusResponse{}, fmt.Errorf("%w: %w", ErrPairingAborted, err)
		}

		var status models.AuthorizeStatusResponse
		if err := ps.client.Get(ctx, path, &status); err != nil {
			if ctx.Err() != nil {
				return models.AuthorizeStatusResponse{}, fmt.Errorf("%w: %w", ErrPairingAborted, ctx.Err())
			}
			return models.AuthorizeStatusResponse{}, &AuthorizeCheckError{TrackID: trackID, Err: err}
		}

		if constants.ParsePairingStatus(status.Status) != constants.PairingStatusPending {
			return status, nil
		}

		ps.logger.Debug().Int("track_id", trackID).Int("attempt", attempt).Msg("Authorization still pending")

		if ps.maxAttempts > 0 && attempt >= ps.maxAttempts {
			return models.AuthorizeStatusResponse{Status: string(constants.PairingStatusTimeout)}, nil
		}

		if err := ps.wait(ctx, ps.interval); err != nil {
			return models.AuthorizeStatusResponse{}, fmt.Errorf("%w: %w", ErrPairingAborted, err)
		}
	}
}

// sleep waits for d unless ctx is done first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
