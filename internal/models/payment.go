package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment records money spent by a member on behalf of the group. Payments
// are immutable once created; there is no update or delete.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string

	// MembershipID ties the payment to a (user, group) pair.
	MembershipID string

	// Title is a short description of what was paid for.
	Title string

	// Amount is the payment amount. Always > 0.
	Amount float64

	// CreatedAt is the Unix timestamp when the payment was recorded.
	CreatedAt int64
}

// NewPayment creates a payment with a fresh ID and timestamp.
func NewPayment(membershipID, title string, amount float64) *Payment {
	return &Payment{
		ID:           uuid.New().String(),
		MembershipID: membershipID,
		Title:        title,
		Amount:       amount,
		CreatedAt:    time.Now().Unix(),
	}
}
