package models

import "github.com/google/uuid"

// SettlementRecord tracks one member's approval to finalize a group's
// expenses. A group has either no settlement records (open) or exactly one
// per current membership (settling).
type SettlementRecord struct {
	ID           string
	MembershipID string

	// Approved is set when the member signs off on settling.
	Approved bool

	// ApprovedAt is the Unix timestamp of the approval, 0 while unapproved.
	ApprovedAt int64
}

// NewSettlementRecord creates an unapproved record for a membership.
func NewSettlementRecord(membershipID string) *SettlementRecord {
	return &SettlementRecord{
		ID:           uuid.New().String(),
		MembershipID: membershipID,
	}
}

// Receipt is the computed net position of a membership once every
// settlement record is approved. A negative amount means the member owes
// money; a positive amount means the member is owed money.
type Receipt struct {
	ID           string
	MembershipID string

	// Amount is paid minus fair share. Sign-aware: fulfilling the receipt
	// applies Amount to the member's wallet balance.
	Amount float64

	// Fulfilled is terminal once true.
	Fulfilled bool

	// FulfilledAt is the Unix timestamp of fulfillment, 0 until then.
	FulfilledAt int64
}

// NewReceipt creates an unfulfilled receipt for a membership.
func NewReceipt(membershipID string, amount float64) *Receipt {
	return &Receipt{
		ID:           uuid.New().String(),
		MembershipID: membershipID,
		Amount:       amount,
	}
}
