package models

// DiscoveryResponse is the bare (non-enveloped) answer of the discovery endpoint.
type DiscoveryResponse struct {
	APIBaseURL     string `json:"api_base_url"`
	APIVersion     string `json:"api_version"`
	DeviceName     string `json:"device_name,omitempty"`
	DeviceType     string `json:"device_type,omitempty"`
	UID            string `json:"uid,omitempty"`
	HTTPSAvailable bool   `json:"https_available,omitempty"`
}

// AuthorizeResponse is returned when an application registration is accepted for review.
type AuthorizeResponse struct {
	AppToken string `json:"app_token"`
	TrackID  int    `json:"track_id"`
}

// AuthorizeStatusResponse is returned by each poll of a tracked registration.
type AuthorizeStatusResponse struct {
	Status       string `json:"status"`
	Challenge    string `json:"challenge,omitempty"`
	PasswordSalt string `json:"password_salt,omitempty"`
}

// ChallengeResponse is returned by the login endpoint.
type ChallengeResponse struct {
	LoggedIn     bool   `json:"logged_in"`
	Challenge    string `json:"challenge"`
	PasswordSalt string `json:"password_salt,omitempty"`
}

// SessionRequest opens a session by answering the challenge.
type SessionRequest struct {
	AppID      string `json:"app_id"`
	AppVersion string `json:"app_version,omitempty"`
	Password   string `json:"password"`
}

// SessionResponse carries the issued session token.
type SessionResponse struct {
	SessionToken string          `json:"session_token"`
	Challenge    string          `json:"challenge,omitempty"`
	Permissions  map[string]bool `json:"permissions,omitempty"`
}
