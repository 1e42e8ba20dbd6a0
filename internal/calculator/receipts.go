// Package calculator holds the pure settlement math, kept free of storage
// and transport concerns so it can be tested exhaustively.
package calculator

import "fmt"

// MemberPayments is the input for receipt computation: one entry per
// current membership of the group, with the sum of that membership's
// payments. Members with no payments appear with Paid = 0.
type MemberPayments struct {
	MembershipID string
	IsOwner      bool
	Paid         float64
}

// ReceiptAmount is one member's computed net position.
type ReceiptAmount struct {
	MembershipID string
	// Amount = paid - fair share. Negative means the member owes money.
	Amount float64
}

// SumTolerance bounds how far the amounts of a receipt set may sum from
// zero. Equal-share division in floating point leaves a residue many
// orders of magnitude below a cent; summing the set in any order stays
// within this bound.
const SumTolerance = 1e-9

// ComputeReceipts calculates the net position of every membership: each
// member's total paid minus the equal share of the group total.
//
// Equal-share division in floating point does not always sum back to the
// total, so the owner's receipt absorbs the remainder. The returned set
// sums to zero within SumTolerance.
func ComputeReceipts(members []MemberPayments) ([]ReceiptAmount, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("group has no members to settle")
	}

	var total float64
	for _, m := range members {
		total += m.Paid
	}
	share := total / float64(len(members))

	receipts := make([]ReceiptAmount, len(members))
	ownerIdx := -1
	var sum float64
	for i, m := range members {
		receipts[i] = ReceiptAmount{
			MembershipID: m.MembershipID,
			Amount:       m.Paid - share,
		}
		sum += receipts[i].Amount
		if m.IsOwner {
			ownerIdx = i
		}
	}

	// Rounding remainder goes to the owner; without one, to the first
	// member. Keeps cents from silently disappearing. Cancellation in the
	// subtraction leaves a residue below SumTolerance, never an exact zero
	// sum.
	if ownerIdx < 0 {
		ownerIdx = 0
	}
	receipts[ownerIdx].Amount -= sum

	return receipts, nil
}

// FairShare returns the equal split of the group total.
func FairShare(total float64, memberCount int) (float64, error) {
	if memberCount == 0 {
		return 0, fmt.Errorf("group has no members")
	}
	return total / float64(memberCount), nil
}
