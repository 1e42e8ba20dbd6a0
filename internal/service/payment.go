package service

import (
	"context"
	"log/slog"

	"github.com/WinterWeShare/weshare/internal/apperr"
	"github.com/WinterWeShare/weshare/internal/calculator"
	"github.com/WinterWeShare/weshare/internal/models"
	"github.com/WinterWeShare/weshare/internal/storage"
)

// PaymentService records expenses and builds the spending projections.
type PaymentService struct {
	store storage.Store
	locks *groupLocks
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(store storage.Store, locks *groupLocks) *PaymentService {
	return &PaymentService{store: store, locks: locks}
}

// InvoiceEntry is one payment line of a group invoice.
type InvoiceEntry struct {
	UserID    string  `json:"userId"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Title     string  `json:"title"`
	Amount    float64 `json:"amount"`
	CreatedAt int64   `json:"createdAt"`
}

// Invoice is the read-only summary of a group's spending, addressed to the
// requesting member: their balance and their receipt (once one exists)
// alongside every payment in the group.
type Invoice struct {
	GroupID   string          `json:"groupId"`
	GroupName string          `json:"groupName"`
	UserID    string          `json:"userId"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Balance   float64         `json:"balance"`
	Receipt   *models.Receipt `json:"receipt,omitempty"`
	Total     float64         `json:"total"`
	FairShare float64         `json:"fairShare"`
	Entries   []InvoiceEntry  `json:"entries"`
}

// RecordPayment records an expense paid by a member and debits their
// wallet. The amount must be positive and the group open and not
// mid-settlement.
func (s *PaymentService) RecordPayment(ctx context.Context, userID, groupID, title string, amount float64) (*models.Payment, error) {
	if amount <= 0 {
		return nil, apperr.InvalidArgument("payment amount must be positive, got %v", amount)
	}
	if title == "" {
		return nil, apperr.InvalidArgument("payment title is required")
	}

	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	group, err := getGroup(ctx, s.store, groupID)
	if err != nil {
		return nil, err
	}
	if group.Closed {
		return nil, apperr.Precondition("group %s is closed", groupID)
	}
	settling, err := isSettling(ctx, s.store, groupID)
	if err != nil {
		return nil, err
	}
	if settling {
		return nil, apperr.Precondition("group %s is mid-settlement", groupID)
	}

	membership, err := requireMembership(ctx, s.store, userID, groupID)
	if err != nil {
		return nil, err
	}

	payment := models.NewPayment(membership.ID, title, amount)
	if err := s.store.RecordPayment(ctx, payment, userID); err != nil {
		return nil, err
	}
	slog.Info("payment recorded", "group_id", groupID, "user_id", userID, "amount", amount)
	return payment, nil
}

// GetGroupPayments returns every payment in the group, visible to its
// members.
func (s *PaymentService) GetGroupPayments(ctx context.Context, userID, groupID string) ([]*models.Payment, error) {
	if _, err := requireMembership(ctx, s.store, userID, groupID); err != nil {
		return nil, err
	}
	return s.store.ListGroupPayments(ctx, groupID)
}

// GetUserPayments returns the caller's own payments in the group.
func (s *PaymentService) GetUserPayments(ctx context.Context, userID, groupID string) ([]*models.Payment, error) {
	membership, err := requireMembership(ctx, s.store, userID, groupID)
	if err != nil {
		return nil, err
	}
	return s.store.ListMembershipPayments(ctx, membership.ID)
}

// GetTotalSpent returns the sum of all payments in the group.
func (s *PaymentService) GetTotalSpent(ctx context.Context, userID, groupID string) (float64, error) {
	if _, err := requireMembership(ctx, s.store, userID, groupID); err != nil {
		return 0, err
	}
	return s.store.SumGroupPayments(ctx, groupID)
}

// GetFairShare returns the equal split of the group total over the current
// members.
func (s *PaymentService) GetFairShare(ctx context.Context, userID, groupID string) (float64, error) {
	if _, err := requireMembership(ctx, s.store, userID, groupID); err != nil {
		return 0, err
	}
	total, err := s.store.SumGroupPayments(ctx, groupID)
	if err != nil {
		return 0, err
	}
	memberships, err := s.store.ListMemberships(ctx, groupID)
	if err != nil {
		return 0, err
	}
	return calculator.FairShare(total, len(memberships))
}

// GetInvoice builds the group's spending summary: every payment with the
// payer's name, the total, and the fair share.
func (s *PaymentService) GetInvoice(ctx context.Context, userID, groupID string) (*Invoice, error) {
	group, err := getGroup(ctx, s.store, groupID)
	if err != nil {
		return nil, err
	}
	caller, err := requireMembership(ctx, s.store, userID, groupID)
	if err != nil {
		return nil, err
	}
	user, err := getUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	receipt, err := s.store.GetReceipt(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.store.ListMemberships(ctx, groupID)
	if err != nil {
		return nil, err
	}
	users := make(map[string]*models.User, len(memberships))
	byMembership := make(map[string]*models.Membership, len(memberships))
	for _, m := range memberships {
		byMembership[m.ID] = m
		u, err := s.store.GetUser(ctx, m.UserID)
		if err != nil {
			return nil, err
		}
		if u != nil {
			users[m.UserID] = u
		}
	}

	payments, err := s.store.ListGroupPayments(ctx, groupID)
	if err != nil {
		return nil, err
	}

	invoice := &Invoice{
		GroupID:   group.ID,
		GroupName: group.Name,
		UserID:    user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Receipt:   receipt,
		Entries:   make([]InvoiceEntry, 0, len(payments)),
	}
	if wallet != nil {
		invoice.Balance = wallet.Balance
	}
	for _, p := range payments {
		entry := InvoiceEntry{
			Title:     p.Title,
			Amount:    p.Amount,
			CreatedAt: p.CreatedAt,
		}
		if m, ok := byMembership[p.MembershipID]; ok {
			entry.UserID = m.UserID
			if u, ok := users[m.UserID]; ok {
				entry.FirstName = u.FirstName
				entry.LastName = u.LastName
			}
		}
		invoice.Total += p.Amount
		invoice.Entries = append(invoice.Entries, entry)
	}
	if len(memberships) > 0 {
		invoice.FairShare, _ = calculator.FairShare(invoice.Total, len(memberships))
	}
	return invoice, nil
}
