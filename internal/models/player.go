package models

// Player is a companion player unit attached to the appliance.
type Player struct {
	ID           int    `json:"id"`
	DeviceName   string `json:"device_name"`
	DeviceModel  string `json:"device_model,omitempty"`
	Reachable    bool   `json:"reachable"`
	APIAvailable bool   `json:"api_available"`
	APIVersion   string `json:"api_version,omitempty"`
	MAC          string `json:"mac,omitempty"`
	UID          string `json:"uid,omitempty"`
}

// PlayerStatus is the power and foreground state of a player.
type PlayerStatus struct {
	PowerState    string         `json:"power_state"`
	ForegroundApp *ForegroundApp `json:"foreground_app,omitempty"`
}

// ForegroundApp describes the application shown on a player.
type ForegroundApp struct {
	PackageID int    `json:"package_id,omitempty"`
	Package   string `json:"package,omitempty"`
	CurURL    string `json:"cur_url,omitempty"`
}

// OpenRequest asks a player to open a media or application URL.
type OpenRequest struct {
	URL string `json:"url"`
}

// PlayerSnapshot pairs a player with its last read status.
type PlayerSnapshot struct {
	Player Player        `json:"player"`
	Status *PlayerStatus `json:"status,omitempty"`
	Error  string        `json:"error,omitempty"`
}
