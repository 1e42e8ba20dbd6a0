package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/WinterWeShare/weshare/internal/apperr"
	"github.com/WinterWeShare/weshare/internal/calculator"
	"github.com/WinterWeShare/weshare/internal/models"
	"github.com/WinterWeShare/weshare/internal/storage"
)

// SettlementService drives a group through the settlement state machine:
// open, settling (one record per membership awaiting approval), receipts
// computed on the last approval, closed when every receipt is fulfilled.
type SettlementService struct {
	store storage.Store
	locks *groupLocks
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(store storage.Store, locks *groupLocks) *SettlementService {
	return &SettlementService{store: store, locks: locks}
}

// Initiate starts settlement of the group: one unapproved record per
// current membership, including the owner's. Pending invites are swept so
// the member set is frozen. Fails when settlement is already in progress.
func (s *SettlementService) Initiate(ctx context.Context, ownerID, groupID string) ([]*models.SettlementRecord, error) {
	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	group, err := getGroup(ctx, s.store, groupID)
	if err != nil {
		return nil, err
	}
	if group.Closed {
		return nil, apperr.Precondition("group %s is closed", groupID)
	}
	if _, err := requireOwner(ctx, s.store, ownerID, groupID); err != nil {
		return nil, err
	}
	settling, err := isSettling(ctx, s.store, groupID)
	if err != nil {
		return nil, err
	}
	if settling {
		return nil, apperr.Precondition("group %s is already settling", groupID)
	}

	memberships, err := s.store.ListMemberships(ctx, groupID)
	if err != nil {
		return nil, err
	}

	records := make([]*models.SettlementRecord, 0, len(memberships))
	for _, m := range memberships {
		records = append(records, models.NewSettlementRecord(m.ID))
	}
	if err := s.store.CreateSettlementRecords(ctx, groupID, records); err != nil {
		return nil, err
	}
	slog.Info("settlement initiated", "group_id", groupID, "records", len(records))
	return records, nil
}

// Approve signs off the caller's settlement record. When it was the last
// unapproved record, the group's receipts are computed and stored.
func (s *SettlementService) Approve(ctx context.Context, userID, groupID string) error {
	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	membership, err := requireMembership(ctx, s.store, userID, groupID)
	if err != nil {
		return err
	}
	record, err := s.store.GetSettlementRecord(ctx, membership.ID)
	if err != nil {
		return err
	}
	if record == nil {
		return apperr.NotFound("settlement record for user %s in group %s", userID, groupID)
	}

	now := time.Now().Unix()
	if err := s.store.ApproveSettlementRecord(ctx, record.ID, now); err != nil {
		return err
	}
	slog.Info("settlement approved", "group_id", groupID, "user_id", userID)

	records, err := s.store.ListSettlementRecords(ctx, groupID)
	if err != nil {
		return err
	}
	return s.generateReceiptsIfComplete(ctx, groupID, records)
}

// generateReceiptsIfComplete computes and stores the group's receipts when
// every settlement record is approved. Callers hold the group lock; the
// receipt batch insert makes a second generation impossible even so, since
// each membership carries at most one receipt.
func (s *SettlementService) generateReceiptsIfComplete(ctx context.Context, groupID string, records []*models.SettlementRecord) error {
	for _, r := range records {
		if !r.Approved {
			return nil
		}
	}
	existing, err := s.store.ListReceipts(ctx, groupID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	memberships, err := s.store.ListMemberships(ctx, groupID)
	if err != nil {
		return err
	}
	members := make([]calculator.MemberPayments, 0, len(memberships))
	for _, m := range memberships {
		payments, err := s.store.ListMembershipPayments(ctx, m.ID)
		if err != nil {
			return err
		}
		var paid float64
		for _, p := range payments {
			paid += p.Amount
		}
		members = append(members, calculator.MemberPayments{
			MembershipID: m.ID,
			IsOwner:      m.IsOwner,
			Paid:         paid,
		})
	}

	amounts, err := calculator.ComputeReceipts(members)
	if err != nil {
		return err
	}
	receipts := make([]*models.Receipt, 0, len(amounts))
	for _, a := range amounts {
		receipts = append(receipts, models.NewReceipt(a.MembershipID, a.Amount))
	}
	if err := s.store.CreateReceipts(ctx, receipts); err != nil {
		return err
	}
	slog.Info("receipts generated", "group_id", groupID, "receipts", len(receipts))
	return nil
}

// Cancel aborts an in-progress settlement by the owner, deleting its
// records. Once receipts exist the settlement is finalized and cannot be
// cancelled.
func (s *SettlementService) Cancel(ctx context.Context, ownerID, groupID string) error {
	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	if _, err := requireOwner(ctx, s.store, ownerID, groupID); err != nil {
		return err
	}
	settling, err := isSettling(ctx, s.store, groupID)
	if err != nil {
		return err
	}
	if !settling {
		return apperr.Precondition("group %s is not settling", groupID)
	}
	receipts, err := s.store.ListReceipts(ctx, groupID)
	if err != nil {
		return err
	}
	if len(receipts) > 0 {
		return apperr.Precondition("settlement of group %s is already finalized", groupID)
	}

	if err := s.store.DeleteSettlementRecords(ctx, groupID); err != nil {
		return err
	}
	slog.Info("settlement cancelled", "group_id", groupID)
	return nil
}

// Fulfill applies the caller's receipt to their wallet. Positive amounts
// are paid out, negative amounts are collected; a debtor whose balance
// cannot cover the debt is rejected. Fulfilling the last open receipt
// closes the group.
func (s *SettlementService) Fulfill(ctx context.Context, userID, groupID string) (closed bool, err error) {
	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	membership, err := requireMembership(ctx, s.store, userID, groupID)
	if err != nil {
		return false, err
	}
	receipt, err := s.store.GetReceipt(ctx, membership.ID)
	if err != nil {
		return false, err
	}
	if receipt == nil {
		return false, apperr.NotFound("receipt for user %s in group %s", userID, groupID)
	}
	if receipt.Fulfilled {
		return false, apperr.Precondition("receipt %s is already fulfilled", receipt.ID)
	}

	closed, err = s.store.FulfillReceipt(ctx, receipt.ID, userID, groupID, time.Now().Unix())
	if err != nil {
		return false, err
	}
	slog.Info("receipt fulfilled", "group_id", groupID, "user_id", userID, "group_closed", closed)
	return closed, nil
}

// ListRecords returns the group's settlement records, visible to members.
func (s *SettlementService) ListRecords(ctx context.Context, userID, groupID string) ([]*models.SettlementRecord, error) {
	if _, err := requireMembership(ctx, s.store, userID, groupID); err != nil {
		return nil, err
	}
	return s.store.ListSettlementRecords(ctx, groupID)
}

// ListReceipts returns the group's receipts, visible to members.
func (s *SettlementService) ListReceipts(ctx context.Context, userID, groupID string) ([]*models.Receipt, error) {
	if _, err := requireMembership(ctx, s.store, userID, groupID); err != nil {
		return nil, err
	}
	return s.store.ListReceipts(ctx, groupID)
}
