package models

// LanHost is one device seen by the appliance's LAN browser.
type LanHost struct {
	ID               string           `json:"id"`
	PrimaryName      string           `json:"primary_name"`
	HostType         string           `json:"host_type"`
	Vendor           string           `json:"vendor_name,omitempty"`
	Active           bool             `json:"active"`
	Reachable        bool             `json:"reachable"`
	LastReachable    int64            `json:"last_time_reachable,omitempty"`
	L2Ident          *L2Ident         `json:"l2ident,omitempty"`
	L3Connectivities []L3Connectivity `json:"l3connectivities,omitempty"`
}

// L2Ident is the link-layer identity of a LAN host.
type L2Ident struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// L3Connectivity is one network-layer address of a LAN host.
type L3Connectivity struct {
	Addr      string `json:"addr"`
	Af        string `json:"af"`
	Active    bool   `json:"active"`
	Reachable bool   `json:"reachable"`
}

// LanSummary counts the hosts of a browse.
type LanSummary struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}
