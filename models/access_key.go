package models

import "time"

// AccessKey is a capability token permitting a bounded number of votes on a
// specific poll.
type AccessKey struct {
	ID          string    `gorm:"primaryKey;size:36" json:"key_id"`
	PollID      string    `gorm:"size:36;not null;index" json:"poll_id"`
	MaxUses     int       `gorm:"not null;default:1" json:"max_uses"`
	CurrentUses int       `gorm:"not null;default:0" json:"current_uses"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Expired reports whether the key can no longer be used at the given time.
func (k *AccessKey) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && k.ExpiresAt.Before(now)
}

// UsesRemaining returns how many votes the key still permits.
func (k *AccessKey) UsesRemaining() int {
	if k.CurrentUses >= k.MaxUses {
		return 0
	}
	return k.MaxUses - k.CurrentUses
}

// Vote records a single ballot cast in a poll instance. The (InstanceID,
// KeyID) primary key makes a second vote with the same key a constraint
// violation, which is the double-voting guard.
type Vote struct {
	InstanceID string    `gorm:"primaryKey;size:36" json:"instance_id"`
	KeyID      string    `gorm:"primaryKey;size:36" json:"key_id"`
	OptionID   string    `gorm:"size:36;not null" json:"option_id"`
	VoterName  string    `json:"voter_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
