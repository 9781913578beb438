package model

import "time"

const (
	ActionPaymentInitiated = "payment.initiated"
	ActionPaymentCompleted = "payment.completed"
)

type AttemptStatus string

const (
	AttemptStatusSuccess   AttemptStatus = "success"   // gateway handed out a token
	AttemptStatusFailed    AttemptStatus = "failed"    // gateway or validation rejected the attempt
	AttemptStatusError     AttemptStatus = "error"     // transport/parse failure, or swept as stale
	AttemptStatusCompleted AttemptStatus = "completed" // reconciled into a purchase exactly once
)

// PaymentAttempt is one audit row per checkout interaction with the gateway.
// MerchantOid correlates the row with the gateway redirect; Payload carries
// the package id, amount and token as loose JSON.
type PaymentAttempt struct {
	ID          string // UUID
	Action      string // payment.initiated | payment.completed
	Status      AttemptStatus
	MerchantOid string
	UserID      string
	Payload     map[string]interface{} // JSONB in the database
	ErrorDetail *string
	CreatedAt   time.Time
}
