package service

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/WinterWeShare/weshare/internal/apperr"
	"github.com/WinterWeShare/weshare/internal/auth"
	"github.com/WinterWeShare/weshare/internal/calculator"
	"github.com/WinterWeShare/weshare/internal/models"
	"github.com/WinterWeShare/weshare/internal/storage"
	"github.com/WinterWeShare/weshare/internal/storage/sqlite"
)

// captureMailer records the last code instead of sending mail.
type captureMailer struct {
	to   string
	code string
}

func (m *captureMailer) SendCode(to, code string) error {
	m.to = to
	m.code = code
	return nil
}

type testEnv struct {
	store       storage.Store
	mailer      *captureMailer
	users       *UserService
	memberships *MembershipService
	payments    *PaymentService
	settlements *SettlementService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "weshare-service-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mailer := &captureMailer{}
	jwt := auth.NewJWTManager("test-secret")
	locks := NewGroupLocks()

	return &testEnv{
		store:       store,
		mailer:      mailer,
		users:       NewUserService(store, mailer, jwt, 1000),
		memberships: NewMembershipService(store, locks),
		payments:    NewPaymentService(store, locks),
		settlements: NewSettlementService(store, locks),
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := e.users.CreateUser(context.Background(), email, "Test", "User", "+3611234567")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

// createGroupWith creates a group owned by the first user and joins the
// rest through the invite flow.
func (e *testEnv) createGroupWith(t *testing.T, users ...*models.User) *models.Group {
	t.Helper()
	ctx := context.Background()
	owner := users[0]

	group, err := e.memberships.CreateGroup(ctx, owner.ID, "Ski Trip")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	for _, u := range users[1:] {
		if err := e.users.AddFriend(ctx, owner.ID, u.ID); err != nil {
			t.Fatalf("AddFriend failed: %v", err)
		}
		if _, err := e.memberships.Invite(ctx, owner.ID, u.ID, group.ID); err != nil {
			t.Fatalf("Invite failed: %v", err)
		}
		if _, err := e.memberships.AcceptInvite(ctx, u.ID, group.ID); err != nil {
			t.Fatalf("AcceptInvite failed: %v", err)
		}
	}
	return group
}

func TestSettlementLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "owner@example.com")
	bob := env.createUser(t, "bob@example.com")
	carol := env.createUser(t, "carol@example.com")
	group := env.createGroupWith(t, owner, bob, carol)

	// Owner pays 100, carol pays 50, bob pays nothing.
	if _, err := env.payments.RecordPayment(ctx, owner.ID, group.ID, "Cabin", 100); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if _, err := env.payments.RecordPayment(ctx, carol.ID, group.ID, "Groceries", 50); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	records, err := env.settlements.Initiate(ctx, owner.ID, group.ID)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 settlement records, got %d", len(records))
	}

	// Every record starts unapproved, the owner's included.
	for _, r := range records {
		if r.Approved {
			t.Errorf("Record %s approved at initiation", r.ID)
		}
	}

	// No receipts until the last member approves.
	receipts, err := env.settlements.ListReceipts(ctx, owner.ID, group.ID)
	if err != nil {
		t.Fatalf("ListReceipts failed: %v", err)
	}
	if len(receipts) != 0 {
		t.Fatalf("Receipts generated before all approvals: %d", len(receipts))
	}

	if err := env.settlements.Approve(ctx, bob.ID, group.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := env.settlements.Approve(ctx, carol.ID, group.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	receipts, _ = env.settlements.ListReceipts(ctx, owner.ID, group.ID)
	if len(receipts) != 0 {
		t.Fatalf("Receipts generated with one approval outstanding: %d", len(receipts))
	}

	if err := env.settlements.Approve(ctx, owner.ID, group.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	// One receipt per member, summing to zero: +50, -50, 0.
	receipts, err = env.settlements.ListReceipts(ctx, owner.ID, group.ID)
	if err != nil {
		t.Fatalf("ListReceipts failed: %v", err)
	}
	if len(receipts) != 3 {
		t.Fatalf("Expected 3 receipts, got %d", len(receipts))
	}
	var sum float64
	for _, r := range receipts {
		sum += r.Amount
	}
	if math.Abs(sum) > calculator.SumTolerance {
		t.Errorf("Receipts sum to %v, want within %v of 0", sum, calculator.SumTolerance)
	}

	amounts := map[string]float64{}
	for _, r := range receipts {
		amounts[r.MembershipID] = r.Amount
	}
	ownerM, _ := env.store.GetMembership(ctx, owner.ID, group.ID)
	bobM, _ := env.store.GetMembership(ctx, bob.ID, group.ID)
	carolM, _ := env.store.GetMembership(ctx, carol.ID, group.ID)
	if math.Abs(amounts[ownerM.ID]-50) > 1e-9 {
		t.Errorf("Owner receipt: got %v, want 50", amounts[ownerM.ID])
	}
	if math.Abs(amounts[bobM.ID]+50) > 1e-9 {
		t.Errorf("Bob receipt: got %v, want -50", amounts[bobM.ID])
	}
	if math.Abs(amounts[carolM.ID]) > 1e-9 {
		t.Errorf("Carol receipt: got %v, want 0", amounts[carolM.ID])
	}

	// Payments are frozen while receipts are open.
	if _, err := env.payments.RecordPayment(ctx, owner.ID, group.ID, "Late", 10); !errors.Is(err, apperr.ErrPreconditionFailed) {
		t.Errorf("Expected PreconditionFailed for payment mid-settlement, got %v", err)
	}

	// Fulfilling the last receipt closes the group.
	closed, err := env.settlements.Fulfill(ctx, owner.ID, group.ID)
	if err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}
	if closed {
		t.Error("Group closed with receipts still open")
	}
	if closed, err = env.settlements.Fulfill(ctx, bob.ID, group.ID); err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}
	if closed {
		t.Error("Group closed with a receipt still open")
	}
	if closed, err = env.settlements.Fulfill(ctx, carol.ID, group.ID); err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}
	if !closed {
		t.Error("Expected group to close on last fulfillment")
	}

	g, err := env.store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if !g.Closed {
		t.Error("Expected group marked closed")
	}

	// Everyone ends where they started: paid 100+50, got back 50-50+0.
	for _, u := range []*models.User{owner, bob, carol} {
		balance, err := env.users.GetBalance(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetBalance failed: %v", err)
		}
		want := 1000.0 - 50 // everyone's fair share of the 150 total
		if math.Abs(balance-want) > 1e-9 {
			t.Errorf("Balance of %s: got %v, want %v", u.Email, balance, want)
		}
	}

	// A closed group accepts nothing further.
	if _, err := env.payments.RecordPayment(ctx, owner.ID, group.ID, "Postmortem", 10); !errors.Is(err, apperr.ErrPreconditionFailed) {
		t.Errorf("Expected PreconditionFailed for payment in closed group, got %v", err)
	}
	if _, err := env.settlements.Initiate(ctx, owner.ID, group.ID); !errors.Is(err, apperr.ErrPreconditionFailed) {
		t.Errorf("Expected PreconditionFailed for settling closed group, got %v", err)
	}
}

func TestSettlementGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("double initiate rejected", func(t *testing.T) {
		owner := env.createUser(t, "double@example.com")
		member := env.createUser(t, "double-member@example.com")
		group := env.createGroupWith(t, owner, member)

		if _, err := env.settlements.Initiate(ctx, owner.ID, group.ID); err != nil {
			t.Fatalf("Initiate failed: %v", err)
		}
		_, err := env.settlements.Initiate(ctx, owner.ID, group.ID)
		if !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}

		// The second call must not touch the record set.
		records, listErr := env.settlements.ListRecords(ctx, owner.ID, group.ID)
		if listErr != nil {
			t.Fatalf("ListRecords failed: %v", listErr)
		}
		if len(records) != 2 {
			t.Errorf("Expected 2 records, got %d", len(records))
		}
	})

	t.Run("only the owner initiates", func(t *testing.T) {
		owner := env.createUser(t, "owner-only@example.com")
		member := env.createUser(t, "member-only@example.com")
		group := env.createGroupWith(t, owner, member)

		_, err := env.settlements.Initiate(ctx, member.ID, group.ID)
		if !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}
	})

	t.Run("single-member group settles on the owner's approval", func(t *testing.T) {
		owner := env.createUser(t, "solo@example.com")
		group := env.createGroupWith(t, owner)

		if _, err := env.payments.RecordPayment(ctx, owner.ID, group.ID, "Solo dinner", 30); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
		if _, err := env.settlements.Initiate(ctx, owner.ID, group.ID); err != nil {
			t.Fatalf("Initiate failed: %v", err)
		}
		if err := env.settlements.Approve(ctx, owner.ID, group.ID); err != nil {
			t.Fatalf("Approve failed: %v", err)
		}

		receipts, err := env.settlements.ListReceipts(ctx, owner.ID, group.ID)
		if err != nil {
			t.Fatalf("ListReceipts failed: %v", err)
		}
		if len(receipts) != 1 || receipts[0].Amount != 0 {
			t.Errorf("Expected one zero receipt, got %+v", receipts)
		}
	})

	t.Run("cancel before finalization", func(t *testing.T) {
		owner := env.createUser(t, "cancel@example.com")
		member := env.createUser(t, "cancel-member@example.com")
		group := env.createGroupWith(t, owner, member)

		if _, err := env.settlements.Initiate(ctx, owner.ID, group.ID); err != nil {
			t.Fatalf("Initiate failed: %v", err)
		}
		if err := env.settlements.Cancel(ctx, owner.ID, group.ID); err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}

		// The group is open again.
		if _, err := env.payments.RecordPayment(ctx, owner.ID, group.ID, "Reopened", 10); err != nil {
			t.Fatalf("RecordPayment after cancel failed: %v", err)
		}
	})

	t.Run("cancel after finalization fails", func(t *testing.T) {
		owner := env.createUser(t, "final@example.com")
		member := env.createUser(t, "final-member@example.com")
		group := env.createGroupWith(t, owner, member)

		if _, err := env.settlements.Initiate(ctx, owner.ID, group.ID); err != nil {
			t.Fatalf("Initiate failed: %v", err)
		}
		if err := env.settlements.Approve(ctx, member.ID, group.ID); err != nil {
			t.Fatalf("Approve failed: %v", err)
		}
		if err := env.settlements.Approve(ctx, owner.ID, group.ID); err != nil {
			t.Fatalf("Approve failed: %v", err)
		}

		err := env.settlements.Cancel(ctx, owner.ID, group.ID)
		if !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}
	})

	t.Run("double approve fails", func(t *testing.T) {
		owner := env.createUser(t, "reapprove@example.com")
		member := env.createUser(t, "reapprove-member@example.com")
		other := env.createUser(t, "reapprove-other@example.com")
		group := env.createGroupWith(t, owner, member, other)

		if _, err := env.settlements.Initiate(ctx, owner.ID, group.ID); err != nil {
			t.Fatalf("Initiate failed: %v", err)
		}
		if err := env.settlements.Approve(ctx, member.ID, group.ID); err != nil {
			t.Fatalf("Approve failed: %v", err)
		}
		err := env.settlements.Approve(ctx, member.ID, group.ID)
		if !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}
	})
}

func TestPaymentGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "payer@example.com")
	group := env.createGroupWith(t, owner)

	t.Run("non-positive amount rejected", func(t *testing.T) {
		for _, amount := range []float64{0, -10} {
			_, err := env.payments.RecordPayment(ctx, owner.ID, group.ID, "Bad", amount)
			if !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Errorf("Amount %v: expected InvalidArgument, got %v", amount, err)
			}
		}
	})

	t.Run("non-member rejected", func(t *testing.T) {
		stranger := env.createUser(t, "stranger@example.com")
		_, err := env.payments.RecordPayment(ctx, stranger.ID, group.ID, "Sneaky", 10)
		if !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}
	})

	t.Run("insufficient wallet balance rejected", func(t *testing.T) {
		_, err := env.payments.RecordPayment(ctx, owner.ID, group.ID, "Yacht", 100000)
		if !errors.Is(err, apperr.ErrInsufficientFunds) {
			t.Errorf("Expected ErrInsufficientFunds, got %v", err)
		}
	})

	t.Run("fair share and total", func(t *testing.T) {
		if _, err := env.payments.RecordPayment(ctx, owner.ID, group.ID, "Dinner", 90); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
		total, err := env.payments.GetTotalSpent(ctx, owner.ID, group.ID)
		if err != nil {
			t.Fatalf("GetTotalSpent failed: %v", err)
		}
		if total != 90 {
			t.Errorf("Total: got %v, want 90", total)
		}
		share, err := env.payments.GetFairShare(ctx, owner.ID, group.ID)
		if err != nil {
			t.Fatalf("GetFairShare failed: %v", err)
		}
		if share != 90 {
			t.Errorf("Fair share: got %v, want 90", share)
		}

		invoice, err := env.payments.GetInvoice(ctx, owner.ID, group.ID)
		if err != nil {
			t.Fatalf("GetInvoice failed: %v", err)
		}
		if invoice.Total != 90 || len(invoice.Entries) != 1 {
			t.Errorf("Invoice mismatch: %+v", invoice)
		}
		if invoice.Entries[0].UserID != owner.ID {
			t.Errorf("Invoice entry user: got %s, want %s", invoice.Entries[0].UserID, owner.ID)
		}
	})
}

func TestInviteGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "host@example.com")
	friend := env.createUser(t, "guest@example.com")
	group := env.createGroupWith(t, owner)

	t.Run("non-friend cannot be invited", func(t *testing.T) {
		_, err := env.memberships.Invite(ctx, owner.ID, friend.ID, group.ID)
		if !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}
	})

	t.Run("duplicate invite conflicts", func(t *testing.T) {
		if err := env.users.AddFriend(ctx, owner.ID, friend.ID); err != nil {
			t.Fatalf("AddFriend failed: %v", err)
		}
		if _, err := env.memberships.Invite(ctx, owner.ID, friend.ID, group.ID); err != nil {
			t.Fatalf("Invite failed: %v", err)
		}
		_, err := env.memberships.Invite(ctx, owner.ID, friend.ID, group.ID)
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("Expected Conflict, got %v", err)
		}
	})

	t.Run("member cannot be invited again", func(t *testing.T) {
		if _, err := env.memberships.AcceptInvite(ctx, friend.ID, group.ID); err != nil {
			t.Fatalf("AcceptInvite failed: %v", err)
		}
		_, err := env.memberships.Invite(ctx, owner.ID, friend.ID, group.ID)
		if !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}
	})

	t.Run("deactivated friend cannot be invited", func(t *testing.T) {
		sleeper := env.createUser(t, "sleeper@example.com")
		if err := env.users.AddFriend(ctx, owner.ID, sleeper.ID); err != nil {
			t.Fatalf("AddFriend failed: %v", err)
		}
		if err := env.users.Deactivate(ctx, sleeper.ID); err != nil {
			t.Fatalf("Deactivate failed: %v", err)
		}
		_, err := env.memberships.Invite(ctx, owner.ID, sleeper.ID, group.ID)
		if !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}
	})

	t.Run("invite swept by settlement cannot be accepted", func(t *testing.T) {
		late := env.createUser(t, "late@example.com")
		if err := env.users.AddFriend(ctx, owner.ID, late.ID); err != nil {
			t.Fatalf("AddFriend failed: %v", err)
		}
		if _, err := env.memberships.Invite(ctx, owner.ID, late.ID, group.ID); err != nil {
			t.Fatalf("Invite failed: %v", err)
		}
		if _, err := env.settlements.Initiate(ctx, owner.ID, group.ID); err != nil {
			t.Fatalf("Initiate failed: %v", err)
		}

		_, err := env.memberships.AcceptInvite(ctx, late.ID, group.ID)
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Expected NotFound, got %v", err)
		}
	})
}

func TestMemberRemoval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "remover@example.com")
	member := env.createUser(t, "removee@example.com")
	group := env.createGroupWith(t, owner, member)

	t.Run("owner cannot remove themselves", func(t *testing.T) {
		err := env.memberships.RemoveMember(ctx, owner.ID, owner.ID, group.ID)
		if !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}
	})

	t.Run("member without activity is removed", func(t *testing.T) {
		if err := env.memberships.RemoveMember(ctx, owner.ID, member.ID, group.ID); err != nil {
			t.Fatalf("RemoveMember failed: %v", err)
		}
		m, err := env.store.GetMembership(ctx, member.ID, group.ID)
		if err != nil {
			t.Fatalf("GetMembership failed: %v", err)
		}
		if m != nil {
			t.Error("Expected membership removed")
		}
	})

	t.Run("member with payments cannot be removed", func(t *testing.T) {
		spender := env.createUser(t, "spender@example.com")
		g := env.createGroupWith(t, owner, spender)
		if _, err := env.payments.RecordPayment(ctx, spender.ID, g.ID, "Snacks", 5); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}

		err := env.memberships.RemoveMember(ctx, owner.ID, spender.ID, g.ID)
		if !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}
	})
}

func TestUserLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("duplicate email conflicts", func(t *testing.T) {
		env.createUser(t, "dup@example.com")
		_, err := env.users.CreateUser(ctx, "dup@example.com", "Other", "User", "")
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("Expected Conflict, got %v", err)
		}
	})

	t.Run("update to a taken email conflicts", func(t *testing.T) {
		a := env.createUser(t, "taken@example.com")
		b := env.createUser(t, "mover@example.com")
		err := env.users.UpdateUser(ctx, b.ID, a.Email, b.FirstName, b.LastName, b.PhoneNumber)
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("Expected Conflict, got %v", err)
		}
	})

	t.Run("new user gets starting balance", func(t *testing.T) {
		user := env.createUser(t, "fresh@example.com")
		balance, err := env.users.GetBalance(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetBalance failed: %v", err)
		}
		if balance != 1000 {
			t.Errorf("Balance: got %v, want 1000", balance)
		}
	})

	t.Run("login with mailed code", func(t *testing.T) {
		user := env.createUser(t, "login@example.com")
		if err := env.users.StartSession(ctx, user.Email); err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
		if env.mailer.to != user.Email || env.mailer.code == "" {
			t.Fatalf("Expected code mailed to %s, got %+v", user.Email, env.mailer)
		}

		token, err := env.users.Login(ctx, user.Email, env.mailer.code)
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if token == "" {
			t.Error("Expected non-empty token")
		}

		// The session is consumed; the same code does not work twice.
		if _, err := env.users.Login(ctx, user.Email, env.mailer.code); !errors.Is(err, apperr.ErrUnauthenticated) {
			t.Errorf("Expected Unauthenticated on reuse, got %v", err)
		}
	})

	t.Run("wrong code rejected", func(t *testing.T) {
		user := env.createUser(t, "wrongcode@example.com")
		if err := env.users.StartSession(ctx, user.Email); err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
		_, err := env.users.Login(ctx, user.Email, "000000")
		if !errors.Is(err, apperr.ErrUnauthenticated) {
			t.Errorf("Expected Unauthenticated, got %v", err)
		}
	})

	t.Run("admin deactivation is not self-reversible", func(t *testing.T) {
		admin := env.createUser(t, "admin@example.com")
		admin.IsAdmin = true
		if err := env.store.UpdateUser(ctx, admin); err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}
		victim := env.createUser(t, "victim@example.com")

		if err := env.users.AdminDeactivate(ctx, admin.ID, victim.ID); err != nil {
			t.Fatalf("AdminDeactivate failed: %v", err)
		}
		if err := env.users.Activate(ctx, victim.ID); !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}
		if err := env.users.AdminActivate(ctx, admin.ID, victim.ID); err != nil {
			t.Fatalf("AdminActivate failed: %v", err)
		}
	})

	t.Run("self deactivation blocks group creation", func(t *testing.T) {
		user := env.createUser(t, "inactive@example.com")
		if err := env.users.Deactivate(ctx, user.ID); err != nil {
			t.Fatalf("Deactivate failed: %v", err)
		}
		if _, err := env.memberships.CreateGroup(ctx, user.ID, "Nope"); !errors.Is(err, apperr.ErrPreconditionFailed) {
			t.Errorf("Expected PreconditionFailed, got %v", err)
		}

		if err := env.users.Activate(ctx, user.ID); err != nil {
			t.Fatalf("Activate failed: %v", err)
		}
		if _, err := env.memberships.CreateGroup(ctx, user.ID, "Yep"); err != nil {
			t.Fatalf("CreateGroup after reactivation failed: %v", err)
		}
	})

	t.Run("friendship round trip", func(t *testing.T) {
		a := env.createUser(t, "friend-a@example.com")
		b := env.createUser(t, "friend-b@example.com")

		if err := env.users.AddFriend(ctx, a.ID, b.ID); err != nil {
			t.Fatalf("AddFriend failed: %v", err)
		}
		if err := env.users.AddFriend(ctx, a.ID, b.ID); !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("Expected Conflict on duplicate friendship, got %v", err)
		}

		friends, err := env.users.ListFriends(ctx, a.ID)
		if err != nil {
			t.Fatalf("ListFriends failed: %v", err)
		}
		if len(friends) != 1 || friends[0].ID != b.ID {
			t.Errorf("Expected [%s], got %+v", b.ID, friends)
		}

		if err := env.users.RemoveFriend(ctx, a.ID, b.ID); err != nil {
			t.Fatalf("RemoveFriend failed: %v", err)
		}
	})
}

func TestConcurrentApprovals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "race-owner@example.com")
	members := []*models.User{owner}
	for _, email := range []string{"race-1@example.com", "race-2@example.com", "race-3@example.com", "race-4@example.com"} {
		members = append(members, env.createUser(t, email))
	}
	group := env.createGroupWith(t, members...)

	if _, err := env.payments.RecordPayment(ctx, owner.ID, group.ID, "Shared", 100); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if _, err := env.settlements.Initiate(ctx, owner.ID, group.ID); err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	// Every member approves at once; whoever lands last triggers receipt
	// generation, and it must fire once no matter who that is.
	var wg sync.WaitGroup
	errs := make(chan error, len(members))
	for _, m := range members {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			errs <- env.settlements.Approve(ctx, userID, group.ID)
		}(m.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Approve failed: %v", err)
		}
	}

	receipts, err := env.settlements.ListReceipts(ctx, owner.ID, group.ID)
	if err != nil {
		t.Fatalf("ListReceipts failed: %v", err)
	}
	if len(receipts) != len(members) {
		t.Fatalf("Expected %d receipts, got %d", len(members), len(receipts))
	}
	seen := map[string]bool{}
	for _, r := range receipts {
		if seen[r.MembershipID] {
			t.Errorf("Membership %s has more than one receipt", r.MembershipID)
		}
		seen[r.MembershipID] = true
	}
}

func TestConcurrentPayments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "wallet-race@example.com")
	group := env.createGroupWith(t, owner)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.payments.RecordPayment(ctx, owner.ID, group.ID, "Round", 10)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("RecordPayment failed: %v", err)
		}
	}

	// No lost updates: the wallet reflects every debit.
	balance, err := env.users.GetBalance(ctx, owner.ID)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 1000-n*10 {
		t.Errorf("Balance: got %v, want %v", balance, 1000-n*10)
	}

	total, err := env.payments.GetTotalSpent(ctx, owner.ID, group.ID)
	if err != nil {
		t.Fatalf("GetTotalSpent failed: %v", err)
	}
	if total != n*10 {
		t.Errorf("Total: got %v, want %v", total, n*10)
	}
}
