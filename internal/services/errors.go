package services

import (
	"errors"
	"fmt"

	"github.com/benmeehan/fbx-agent/internal/constants"
)

// ErrPairingAborted is returned when the caller's context ends while waiting
// for the manual confirmation.
var ErrPairingAborted = errors.New("pairing aborted while waiting for confirmation")

// ResolutionError means the API endpoint could not be discovered.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string { return fmt.Sprintf("endpoint resolution failed: %v", e.Err) }
func (e *ResolutionError) Unwrap() error { return e.Err }

// AuthorizeError means the appliance refused the registration request.
type AuthorizeError struct {
	Err error
}

func (e *AuthorizeError) Error() string { return fmt.Sprintf("authorize request failed: %v", e.Err) }
func (e *AuthorizeError) Unwrap() error { return e.Err }

// AuthorizeCheckError means a poll of the registration status failed.
type AuthorizeCheckError struct {
	TrackID int
	Err     error
}

func (e *AuthorizeCheckError) Error() string {
	return fmt.Sprintf("authorize check for track %d failed: %v", e.TrackID, e.Err)
}
func (e *AuthorizeCheckError) Unwrap() error { return e.Err }

// PairingRejected means the registration reached a terminal status other than granted.
type PairingRejected struct {
	Status constants.PairingStatus
}

func (e *PairingRejected) Error() string {
	return fmt.Sprintf("pairing rejected: authorize status = %s", e.Status)
}

// LoginChallengeError means the login challenge could not be fetched.
type LoginChallengeError struct {
	Err error
}

func (e *LoginChallengeError) Error() string { return fmt.Sprintf("login challenge failed: %v", e.Err) }
func (e *LoginChallengeError) Unwrap() error { return e.Err }

// LoginError means the session could not be opened. Code and Message are the
// appliance's error_code and msg when it answered.
type LoginError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("login failed: %s - %s", e.Code, e.Message)
	}
	return fmt.Sprintf("login failed: %v", e.Err)
}
func (e *LoginError) Unwrap() error { return e.Err }

// TokenRevoked reports whether the failure means the application token must be
// replaced by a new pairing.
func (e *LoginError) TokenRevoked() bool {
	return constants.IsRevokedTokenCode(e.Code)
}
