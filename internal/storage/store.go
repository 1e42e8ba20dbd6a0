// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/WinterWeShare/weshare/internal/models"
)

// Store defines the persistence interface for the ledger. The abstraction
// allows swapping storage backends without changing the service layer.
//
// Lookup methods for single entities return (nil, nil) when the entity is
// absent; callers decide whether absence is an error. Multi-step writes
// (payment + wallet debit, invite accept, receipt batch, group closure)
// are transactional inside the implementation: they either fully apply or
// leave state unchanged.
type Store interface {
	// Users and wallets. CreateUser also creates the user's wallet with
	// the given starting balance in the same transaction.
	CreateUser(ctx context.Context, user *models.User, startingBalance float64) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUserEmails(ctx context.Context) ([]string, error)
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)

	// Deactivations.
	CreateDeactivation(ctx context.Context, d *models.Deactivation) error
	GetDeactivation(ctx context.Context, userID string) (*models.Deactivation, error)
	DeleteDeactivation(ctx context.Context, userID string) error

	// Friendships.
	CreateFriendship(ctx context.Context, userID, friendID string) error
	DeleteFriendship(ctx context.Context, userID, friendID string) error
	ListFriendIDs(ctx context.Context, userID string) ([]string, error)

	// Login sessions. ReplaceSession removes any previous session for the
	// user before inserting the new one.
	ReplaceSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, userID string) (*models.Session, error)
	DeleteSession(ctx context.Context, userID string) error

	// Groups and memberships. CreateGroup inserts the group and its owner
	// membership together.
	CreateGroup(ctx context.Context, group *models.Group, owner *models.Membership) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListGroupsByUser(ctx context.Context, userID string) ([]*models.Group, error)
	GetMembership(ctx context.Context, userID, groupID string) (*models.Membership, error)
	ListMemberships(ctx context.Context, groupID string) ([]*models.Membership, error)
	DeleteMembership(ctx context.Context, membershipID string) error
	ListGroupUsers(ctx context.Context, groupID string) ([]*models.User, error)

	// Invites. AcceptInvite deletes the invite and inserts the membership
	// in one transaction, so a failing accept never consumes the invite.
	CreateInvite(ctx context.Context, invite *models.Invite) error
	GetInvite(ctx context.Context, receiverID, groupID string) (*models.Invite, error)
	ListInvitesByReceiver(ctx context.Context, receiverID string) ([]*models.Invite, error)
	DeleteInvite(ctx context.Context, receiverID, groupID string) error
	AcceptInvite(ctx context.Context, receiverID, groupID string, membership *models.Membership) error

	// Payments. RecordPayment inserts the payment and debits the payer's
	// wallet in one transaction; it fails with apperr.ErrInsufficientFunds
	// when the balance cannot cover the amount.
	RecordPayment(ctx context.Context, payment *models.Payment, payerUserID string) error
	ListGroupPayments(ctx context.Context, groupID string) ([]*models.Payment, error)
	ListMembershipPayments(ctx context.Context, membershipID string) ([]*models.Payment, error)
	SumGroupPayments(ctx context.Context, groupID string) (float64, error)
	MembershipHasActivity(ctx context.Context, membershipID string) (bool, error)

	// Settlement records. CreateSettlementRecords inserts the batch and
	// sweeps the group's pending invites in one transaction.
	CreateSettlementRecords(ctx context.Context, groupID string, records []*models.SettlementRecord) error
	ListSettlementRecords(ctx context.Context, groupID string) ([]*models.SettlementRecord, error)
	GetSettlementRecord(ctx context.Context, membershipID string) (*models.SettlementRecord, error)
	ApproveSettlementRecord(ctx context.Context, recordID string, approvedAt int64) error
	DeleteSettlementRecords(ctx context.Context, groupID string) error

	// Receipts. CreateReceipts inserts the whole batch in one transaction.
	// FulfillReceipt applies the receipt amount to the wallet, marks the
	// receipt fulfilled, and closes the group when it was the last open
	// receipt; it reports whether the group was closed.
	CreateReceipts(ctx context.Context, receipts []*models.Receipt) error
	ListReceipts(ctx context.Context, groupID string) ([]*models.Receipt, error)
	GetReceipt(ctx context.Context, membershipID string) (*models.Receipt, error)
	FulfillReceipt(ctx context.Context, receiptID, userID, groupID string, fulfilledAt int64) (closed bool, err error)

	// Close releases any resources held by the store.
	Close() error
}
