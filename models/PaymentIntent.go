package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// PaymentIntent is the durable record of an initiated payment, keyed by the
// source id PayMongo hands back on creation. The intent route writes it once
// in the pending state; after that only the webhook path touches the status
// columns.
//
// Amount and Billing are stored exactly as the client sent them, not as the
// provider normalized them. AmountMinor is what actually went over the wire.
type PaymentIntent struct {
	SourceID    string         `json:"sourceId" gorm:"primaryKey;type:varchar(64)"`
	Amount      string         `json:"amount"`
	AmountMinor int64          `json:"amountMinor"`
	PaymentType string         `json:"paymentType" gorm:"type:varchar(32);index"`
	Billing     datatypes.JSON `json:"billing"`
	Status      string         `json:"status" gorm:"type:varchar(16);default:pending;index"`
	CheckoutURL string         `json:"checkoutUrl"`
	UID         string         `json:"uid,omitempty" gorm:"type:varchar(128);index"`

	// Provisional marks rows created by a webhook that arrived before the
	// intent write; they carry no amount or billing until reconciled manually.
	Provisional bool `json:"provisional,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
	FailedAt  *time.Time `json:"failedAt,omitempty"`
}

// Terminal reports whether the intent has reached a state that must not be
// overwritten by later webhook deliveries.
func (p *PaymentIntent) Terminal() bool {
	return p.Status == PaymentStatusPaid || p.Status == PaymentStatusFailed
}
