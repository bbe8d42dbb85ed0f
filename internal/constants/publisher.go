package constants

import "time"

const (
	// DefaultPublishInterval is used when the publisher interval is not configured.
	DefaultPublishInterval = 60 * time.Second

	// DefaultStatusWorkers bounds concurrent player status reads.
	DefaultStatusWorkers = 4

	// TopicLan and TopicPlayers are appended to the publisher base topic.
	TopicLan     = "lan"
	TopicPlayers = "players"
	// TopicAvailability receives "online" on start and "offline" as last will.
	TopicAvailability = "availability"
)
