package models

import "time"

// Suggestion status values. Pending suggestions are approved or rejected by
// an admin; approved ones become Used once the rollover engine folds them
// into a new instance. Used suggestions are never reused.
const (
	SuggestionPending  = "Pending"
	SuggestionApproved = "Approved"
	SuggestionRejected = "Rejected"
	SuggestionUsed     = "Used"
)

// Target week tags for a suggestion, informational only.
const (
	TargetWeekCurrent = "current"
	TargetWeekNext    = "next"
)

// Suggestion is a voter-submitted option candidate for a poll.
type Suggestion struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	PollID     string     `gorm:"size:36;not null;index" json:"poll_id"`
	Text       string     `gorm:"not null" json:"text"`
	Status     string     `gorm:"size:16;not null;index" json:"status"`
	TargetWeek string     `gorm:"size:16" json:"target_week"`
	CreatedAt  time.Time  `json:"created_at"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
}
