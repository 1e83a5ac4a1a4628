package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub.
type EventType string

const (
	EventMatchSettled  EventType = "match-settled"
	EventMatchReverted EventType = "match-reverted"
	EventDraftCreated  EventType = "draft-created"
	EventDraftExpired  EventType = "draft-expired"
)

// MatchSettledEvent is published after a match has been settled and all
// rating changes are durable.
type MatchSettledEvent struct {
	Token     string `msgpack:"token"`
	Winner    int    `msgpack:"winner"`
	SettledBy string `msgpack:"settled_by"`
	SettledAt int64  `msgpack:"settled_at"`
}

// MatchRevertedEvent is published after a settled match has been rolled
// back to its pre-settlement ratings.
type MatchRevertedEvent struct {
	Token      string `msgpack:"token"`
	RevertedBy string `msgpack:"reverted_by"`
	RevertedAt int64  `msgpack:"reverted_at"`
}
