package models

import "time"

const (
	WebhookOutcomeApplied         = "applied"
	WebhookOutcomeIgnored         = "ignored"
	WebhookOutcomeDuplicate       = "duplicate"
	WebhookOutcomeSkippedTerminal = "skipped_terminal"
)

// WebhookEvent is an audit row written for every acknowledged webhook
// delivery, including the ones that did not change the intent. PayMongo
// retries aggressively, so the same (source, event) pair can show up here
// more than once.
type WebhookEvent struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SourceID    string    `json:"sourceId" gorm:"type:varchar(64);index"`
	PaymentType string    `json:"paymentType" gorm:"type:varchar(32)"`
	EventType   string    `json:"eventType" gorm:"type:varchar(64)"`
	Outcome     string    `json:"outcome" gorm:"type:varchar(24);index"`
	CreatedAt   time.Time `json:"createdAt"`
}
