package models

import "time"

// LanSnapshot is the message published for the LAN browser.
type LanSnapshot struct {
	Timestamp time.Time  `json:"timestamp"`
	Summary   LanSummary `json:"summary"`
	Hosts     []LanHost  `json:"hosts"`
}

// PlayersSnapshot is the message published for players.
type PlayersSnapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Players   []PlayerSnapshot `json:"players"`
}
