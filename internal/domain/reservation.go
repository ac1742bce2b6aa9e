package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
// A failed payment may still be retried before the hold expires.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSucceeded, PaymentStatusExpired, PaymentStatusCancelled:
		return true
	}
	return false
}

// Active reports whether the reservation still claims its interval.
func (s PaymentStatus) Active() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusFailed, PaymentStatusSucceeded:
		return true
	}
	return false
}

// Reservation is a booking record. TotalCostCents is computed from the
// room's nightly price at hold creation and never re-read afterwards.
type Reservation struct {
	ID             string
	RoomID         string
	RequesterID    string
	Range          DateRange
	TotalCostCents int64
	PaymentStatus  PaymentStatus
	Offline        bool
	CreatedAt      time.Time
	ExpiresAt      time.Time
}
