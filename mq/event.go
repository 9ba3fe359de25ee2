package mq

// VoteEvent is published after a ballot is recorded. Consumers fan it out to
// live-results subscribers and invalidate cached aggregates; delivery is best
// effort and never blocks the vote itself.
type VoteEvent struct {
	PollID     string `json:"poll_id"`
	InstanceID string `json:"instance_id"`
	OptionID   string `json:"option_id"`
	VoterName  string `json:"voter_name,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// Handler processes a consumed vote event.
type Handler func(ev VoteEvent) error
