package identity

import "fmt"

// Default application identity presented to the appliance during pairing.
const (
	DefaultAppID      = "fr.niico.gladys"
	DefaultAppName    = "Gladys"
	DefaultAppVersion = "0.0.7"
	DefaultDeviceName = "gladys"
)

// ApplicationIdentity identifies this client to the appliance. It is sent on
// every authorize call and is never persisted on its own.
type ApplicationIdentity struct {
	AppID      string `json:"app_id" yaml:"id"`
	AppName    string `json:"app_name" yaml:"name"`
	AppVersion string `json:"app_version" yaml:"version"`
	DeviceName string `json:"device_name" yaml:"device_name"`
}

// Default returns the built-in application identity.
func Default() ApplicationIdentity {
	return ApplicationIdentity{
		AppID:      DefaultAppID,
		AppName:    DefaultAppName,
		AppVersion: DefaultAppVersion,
		DeviceName: DefaultDeviceName,
	}
}

// WithDefaults fills every empty field from Default.
func (a ApplicationIdentity) WithDefaults() ApplicationIdentity {
	def := Default()
	if a.AppID == "" {
		a.AppID = def.AppID
	}
	if a.AppName == "" {
		a.AppName = def.AppName
	}
	if a.AppVersion == "" {
		a.AppVersion = def.AppVersion
	}
	if a.DeviceName == "" {
		a.DeviceName = def.DeviceName
	}
	return a
}

// UserAgent renders the identity as an HTTP User-Agent value.
func (a ApplicationIdentity) UserAgent() string {
	return fmt.Sprintf("%s/%s (%s)", a.AppName, a.AppVersion, a.DeviceName)
}
