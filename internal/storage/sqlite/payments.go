package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/WinterWeShare/weshare/internal/apperr"
	"github.com/WinterWeShare/weshare/internal/models"
)

// RecordPayment inserts the payment and debits the payer's wallet in one
// transaction. The debit is a conditional update so concurrent payments
// for the same wallet cannot overdraw it.
func (s *SQLiteStore) RecordPayment(ctx context.Context, payment *models.Payment, payerUserID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE wallets SET balance = balance - ? WHERE user_id = ? AND balance >= ?",
			payment.Amount, payerUserID, payment.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to debit wallet: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check debit result: %w", err)
		}
		if n == 0 {
			var balance float64
			err := tx.QueryRowContext(ctx,
				"SELECT balance FROM wallets WHERE user_id = ?", payerUserID,
			).Scan(&balance)
			if err == sql.ErrNoRows {
				return apperr.NotFound("wallet for user %s", payerUserID)
			}
			if err != nil {
				return fmt.Errorf("failed to check wallet: %w", err)
			}
			return fmt.Errorf("balance %.2f cannot cover %.2f: %w", balance, payment.Amount, apperr.ErrInsufficientFunds)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO payments (id, membership_id, title, amount, created_at) VALUES (?, ?, ?, ?, ?)",
			payment.ID, payment.MembershipID, payment.Title, payment.Amount, payment.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		return nil
	})
}

func scanPayments(rows *sql.Rows) ([]*models.Payment, error) {
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		if err := rows.Scan(&p.ID, &p.MembershipID, &p.Title, &p.Amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

// ListGroupPayments returns every payment recorded against the group.
func (s *SQLiteStore) ListGroupPayments(ctx context.Context, groupID string) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.membership_id, p.title, p.amount, p.created_at
		 FROM payments p
		 JOIN memberships m ON m.id = p.membership_id
		 WHERE m.group_id = ?
		 ORDER BY p.created_at DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group payments: %w", err)
	}
	return scanPayments(rows)
}

// ListMembershipPayments returns the payments of one membership.
func (s *SQLiteStore) ListMembershipPayments(ctx context.Context, membershipID string) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, membership_id, title, amount, created_at
		 FROM payments WHERE membership_id = ?
		 ORDER BY created_at DESC`, membershipID)
	if err != nil {
		return nil, fmt.Errorf("failed to list membership payments: %w", err)
	}
	return scanPayments(rows)
}

// SumGroupPayments returns the total spent by a group.
func (s *SQLiteStore) SumGroupPayments(ctx context.Context, groupID string) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(p.amount), 0)
		 FROM payments p
		 JOIN memberships m ON m.id = p.membership_id
		 WHERE m.group_id = ?`, groupID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum group payments: %w", err)
	}
	return total, nil
}

// MembershipHasActivity reports whether any payment, settlement record or
// receipt references the membership. Memberships with activity cannot be
// removed from their group.
func (s *SQLiteStore) MembershipHasActivity(ctx context.Context, membershipID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM payments WHERE membership_id = ?)
		      + (SELECT COUNT(*) FROM settlement_records WHERE membership_id = ?)
		      + (SELECT COUNT(*) FROM receipts WHERE membership_id = ?)`,
		membershipID, membershipID, membershipID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check membership activity: %w", err)
	}
	return n > 0, nil
}
