package constants

// AppAuthHeader carries the session token on every authenticated call.
const AppAuthHeader = "X-Fbx-App-Auth"

// Appliance API paths, relative to the versioned base URL.
const (
	PathAuthorize       = "login/authorize/"
	PathAuthorizeStatus = "login/authorize/%d"
	PathLogin           = "login/"
	PathSession         = "login/session/"
	PathLogout          = "login/logout/"
	PathLanBrowser      = "lan/browser/%s/"
	PathPlayers         = "player/"
	PathPlayerStatus    = "player/%d/api/v6/status/"
	PathPlayerOpen      = "player/%d/api/v6/control/open/"
)

// PairingStatus is the state of a pending authorization request.
type PairingStatus string

// Pairing statuses reported by the appliance while a request is tracked.
const (
	// PairingStatusPending means the user has not yet answered on the appliance
	PairingStatusPending PairingStatus = "pending"
	// PairingStatusGranted means the user accepted the application
	PairingStatusGranted PairingStatus = "granted"
	// PairingStatusDenied means the user refused the application
	PairingStatusDenied PairingStatus = "denied"
	// PairingStatusTimeout means the user did not answer in time
	PairingStatusTimeout PairingStatus = "timeout"
	// PairingStatusUnknown means the track id is invalid or expired
	PairingStatusUnknown PairingStatus = "unknown"
)

// ParsePairingStatus maps an appliance status string, folding anything unexpected into unknown.
func ParsePairingStatus(s string) PairingStatus {
	switch PairingStatus(s) {
	case PairingStatusPending, PairingStatusGranted, PairingStatusDenied, PairingStatusTimeout:
		return PairingStatus(s)
	default:
		return PairingStatusUnknown
	}
}

// Appliance error codes relevant to authentication.
const (
	ErrCodeAuthRequired     = "auth_required"
	ErrCodeInvalidToken     = "invalid_token"
	ErrCodePendingToken     = "pending_token"
	ErrCodeInsufficient     = "insufficient_rights"
	ErrCodeDeniedExternalIP = "denied_from_external_ip"
	ErrCodeInvalidSession   = "invalid_session"
	ErrCodeRateLimited      = "ratelimited"
	ErrCodeAppsDenied       = "apps_denied"
	ErrCodeNewAppsDenied    = "new_apps_denied"
)

// IsRevokedTokenCode reports whether a login failure code means the application
// token itself is no longer usable and a new pairing is required.
func IsRevokedTokenCode(code string) bool {
	switch code {
	case ErrCodeInvalidToken, ErrCodePendingToken:
		return true
	default:
		return false
	}
}

// IsSessionExpiredCode reports whether a resource call failed because the session
// token expired, which a fresh login fixes.
func IsSessionExpiredCode(code string) bool {
	switch code {
	case ErrCodeAuthRequired, ErrCodeInvalidSession:
		return true
	default:
		return false
	}
}
