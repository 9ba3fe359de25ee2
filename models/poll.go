package models

import (
	"time"
)

// Recurrence type labels. Informational only: the actual cadence of a
// recurring poll is driven by DurationDays.
const (
	RecurrenceWeekly   = "WEEKLY"
	RecurrenceBiweekly = "BIWEEKLY"
	RecurrenceMonthly  = "MONTHLY"
	RecurrenceCustom   = "CUSTOM"
)

// PollInstance status values. An instance passes through
// Scheduled -> Active -> Closed and never skips Active.
const (
	InstanceScheduled = "Scheduled"
	InstanceActive    = "Active"
	InstanceClosed    = "Closed"
)

// Poll represents a poll definition created by an administrator. A recurring
// poll spawns a new PollInstance every DurationDays until EndDate.
type Poll struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	Title            string     `gorm:"not null" json:"title"`
	Description      string     `gorm:"type:text" json:"description"`
	IsRecurring      bool       `gorm:"not null;default:false;index" json:"is_recurring"`
	RecurrenceType   string     `gorm:"size:16" json:"recurrence_type"`
	DurationDays     int        `gorm:"not null" json:"duration_days"`
	AllowSuggestions bool       `gorm:"not null;default:false" json:"allow_suggestions"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DefaultDurationDays returns the instance length implied by a recurrence
// type when the admin did not specify one.
func DefaultDurationDays(recurrenceType string) int {
	switch recurrenceType {
	case RecurrenceBiweekly:
		return 14
	case RecurrenceMonthly:
		return 30
	default:
		return 7
	}
}

// OptionSnapshot is one entry of an instance's frozen option list.
type OptionSnapshot struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int64  `json:"votes"`
}

// OptionList is the ordered option snapshot stored on a PollInstance.
type OptionList []OptionSnapshot

// PollInstance is one time-boxed voting round of a poll. The option list is
// frozen at instance-creation time; later instances of a recurring poll may
// append approved suggestions.
type PollInstance struct {
	ID              string     `gorm:"primaryKey;size:36" json:"instance_id"`
	PollID          string     `gorm:"size:36;not null;index" json:"poll_id"`
	Status          string     `gorm:"size:16;not null;index" json:"status"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	ActivatedAt     *time.Time `json:"activated_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	OptionsSnapshot OptionList `gorm:"serializer:json" json:"options"`
	CreatedAt       time.Time  `json:"created_at"`
}
