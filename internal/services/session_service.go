package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/benmeehan/fbx-agent/internal/constants"
	"github.com/benmeehan/fbx-agent/internal/models"
	"github.com/benmeehan/fbx-agent/pkg/credentials"
	"github.com/benmeehan/fbx-agent/pkg/encryption"
	"github.com/benmeehan/fbx-agent/pkg/identity"
	"github.com/benmeehan/fbx-agent/pkg/transport"
)

// Session is the result of a login: the session token and the client that
// carries it on every call.
type Session struct {
	Token       string
	Permissions map[string]bool
	Client      *transport.Client
}

// SessionService performs the challenge/response login.
type SessionService struct {
	appIdentity identity.ApplicationIdentity
	logger      zerolog.Logger
}

// NewSessionService initializes a SessionService.
func NewSessionService(appIdentity identity.ApplicationIdentity, logger zerolog.Logger) *SessionService {
	return &SessionService{
		appIdentity: appIdentity,
		logger:      logger,
	}
}

// Login answers the appliance challenge with HMAC-SHA1(app_token, challenge) and
// returns a Session whose client sends the issued token on every request.
// client itself is left untouched.
func (ss *SessionService) Login(ctx context.Context, client *transport.Client, cred credentials.PairingCredential) (*Session, error) {
	var challenge models.ChallengeResponse
	if err := client.Get(ctx, constants.PathLogin, &challenge); err != nil {
		return nil, &LoginChallengeError{Err: err}
	}
	if challenge.Challenge == "" {
		return nil, &LoginChallengeError{Err: errors.New("response has no challenge")}
	}

	req := models.SessionRequest{
		AppID:      ss.appIdentity.AppID,
		AppVersion: ss.appIdentity.AppVersion,
		Password:   encryption.ChallengePassword(cred.AppToken, challenge.Challenge),
	}

	var session models.SessionResponse
	if err := client.Post(ctx, constants.PathSession, req, &session); err != nil {
		loginErr := &LoginError{Err: err}
		var apiErr *transport.APIError
		if errors.As(err, &apiErr) {
			loginErr.Code = apiErr.Code
			loginErr.Message = apiErr.Message
		}
		return nil, loginErr
	}
	if session.SessionToken == "" {
		return nil, &LoginError{Err: errors.New("response has no session_token")}
	}

	ss.logger.Info().Str("app_id", req.AppID).Msg("Logged in")

	return &Session{
		Token:       session.SessionToken,
		Permissions: session.Permissions,
		Client:      client.WithHeader(constants.AppAuthHeader, session.SessionToken),
	}, nil
}

// Logout closes the session on the appliance.
func (ss *SessionService) Logout(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}
	if err := session.Client.Post(ctx, constants.PathLogout, nil, nil); err != nil {
		return err
	}
	ss.logger.Info().Msg("Logged out")
	return nil
}
