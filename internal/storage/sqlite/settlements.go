package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/WinterWeShare/weshare/internal/apperr"
	"github.com/WinterWeShare/weshare/internal/models"
)

// CreateSettlementRecords inserts the batch and sweeps the group's pending
// invites in one transaction. Settlement freezes membership, so invites
// that are still open would otherwise dangle.
func (s *SQLiteStore) CreateSettlementRecords(ctx context.Context, groupID string, records []*models.SettlementRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range records {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO settlement_records (id, membership_id, approved, approved_at) VALUES (?, ?, ?, ?)",
				r.ID, r.MembershipID, r.Approved, r.ApprovedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert settlement record: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM invites WHERE group_id = ?", groupID); err != nil {
			return fmt.Errorf("failed to sweep invites: %w", err)
		}
		return nil
	})
}

// ListSettlementRecords returns all settlement records of a group.
func (s *SQLiteStore) ListSettlementRecords(ctx context.Context, groupID string) ([]*models.SettlementRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sr.id, sr.membership_id, sr.approved, sr.approved_at
		 FROM settlement_records sr
		 JOIN memberships m ON m.id = sr.membership_id
		 WHERE m.group_id = ?
		 ORDER BY sr.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement records: %w", err)
	}
	defer rows.Close()

	var records []*models.SettlementRecord
	for rows.Next() {
		r := &models.SettlementRecord{}
		if err := rows.Scan(&r.ID, &r.MembershipID, &r.Approved, &r.ApprovedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement records: %w", err)
	}
	return records, nil
}

// GetSettlementRecord retrieves the settlement record of a membership, if any.
func (s *SQLiteStore) GetSettlementRecord(ctx context.Context, membershipID string) (*models.SettlementRecord, error) {
	r := &models.SettlementRecord{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, membership_id, approved, approved_at FROM settlement_records WHERE membership_id = ?",
		membershipID,
	).Scan(&r.ID, &r.MembershipID, &r.Approved, &r.ApprovedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement record: %w", err)
	}
	return r, nil
}

// ApproveSettlementRecord marks a record approved with the given timestamp.
func (s *SQLiteStore) ApproveSettlementRecord(ctx context.Context, recordID string, approvedAt int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE settlement_records SET approved = 1, approved_at = ? WHERE id = ? AND approved = 0",
		approvedAt, recordID,
	)
	if err != nil {
		return fmt.Errorf("failed to approve settlement record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check approve result: %w", err)
	}
	if n == 0 {
		return apperr.Precondition("settlement record %s is already approved or missing", recordID)
	}
	return nil
}

// DeleteSettlementRecords removes all settlement records of a group,
// returning it to the open state.
func (s *SQLiteStore) DeleteSettlementRecords(ctx context.Context, groupID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM settlement_records
		 WHERE membership_id IN (SELECT id FROM memberships WHERE group_id = ?)`, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete settlement records: %w", err)
	}
	return nil
}

// CreateReceipts inserts the whole batch in one transaction so the group
// either gets its complete receipt set or none of it.
func (s *SQLiteStore) CreateReceipts(ctx context.Context, receipts []*models.Receipt) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range receipts {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO receipts (id, membership_id, amount, fulfilled, fulfilled_at) VALUES (?, ?, ?, ?, ?)",
				r.ID, r.MembershipID, r.Amount, r.Fulfilled, r.FulfilledAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert receipt: %w", err)
			}
		}
		return nil
	})
}

// ListReceipts returns all receipts of a group.
func (s *SQLiteStore) ListReceipts(ctx context.Context, groupID string) ([]*models.Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.membership_id, r.amount, r.fulfilled, r.fulfilled_at
		 FROM receipts r
		 JOIN memberships m ON m.id = r.membership_id
		 WHERE m.group_id = ?
		 ORDER BY r.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*models.Receipt
	for rows.Next() {
		r := &models.Receipt{}
		if err := rows.Scan(&r.ID, &r.MembershipID, &r.Amount, &r.Fulfilled, &r.FulfilledAt); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	return receipts, nil
}

// GetReceipt retrieves the receipt of a membership, if any.
func (s *SQLiteStore) GetReceipt(ctx context.Context, membershipID string) (*models.Receipt, error) {
	r := &models.Receipt{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, membership_id, amount, fulfilled, fulfilled_at FROM receipts WHERE membership_id = ?",
		membershipID,
	).Scan(&r.ID, &r.MembershipID, &r.Amount, &r.Fulfilled, &r.FulfilledAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return r, nil
}

// FulfillReceipt applies the receipt amount to the user's wallet, marks the
// receipt fulfilled and closes the group when it was the last open receipt,
// all in one transaction. The wallet update is conditional on the resulting
// balance staying non-negative; a debtor without cover fails with
// apperr.ErrInsufficientFunds and nothing is written, while a creditor is
// always credited.
func (s *SQLiteStore) FulfillReceipt(ctx context.Context, receiptID, userID, groupID string, fulfilledAt int64) (bool, error) {
	var closed bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var amount float64
		var fulfilled bool
		err := tx.QueryRowContext(ctx,
			"SELECT amount, fulfilled FROM receipts WHERE id = ?", receiptID,
		).Scan(&amount, &fulfilled)
		if err == sql.ErrNoRows {
			return apperr.NotFound("receipt %s", receiptID)
		}
		if err != nil {
			return fmt.Errorf("failed to get receipt: %w", err)
		}
		if fulfilled {
			return apperr.Precondition("receipt %s is already fulfilled", receiptID)
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE wallets SET balance = balance + ? WHERE user_id = ? AND balance + ? >= 0",
			amount, userID, amount,
		)
		if err != nil {
			return fmt.Errorf("failed to apply receipt to wallet: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check wallet result: %w", err)
		}
		if n == 0 {
			var balance float64
			err := tx.QueryRowContext(ctx,
				"SELECT balance FROM wallets WHERE user_id = ?", userID,
			).Scan(&balance)
			if err == sql.ErrNoRows {
				return apperr.NotFound("wallet for user %s", userID)
			}
			if err != nil {
				return fmt.Errorf("failed to check wallet: %w", err)
			}
			return fmt.Errorf("balance %.2f cannot cover receipt %.2f: %w", balance, amount, apperr.ErrInsufficientFunds)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE receipts SET fulfilled = 1, fulfilled_at = ? WHERE id = ?",
			fulfilledAt, receiptID,
		); err != nil {
			return fmt.Errorf("failed to mark receipt fulfilled: %w", err)
		}

		var open int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*)
			 FROM receipts r
			 JOIN memberships m ON m.id = r.membership_id
			 WHERE m.group_id = ? AND r.fulfilled = 0`, groupID,
		).Scan(&open)
		if err != nil {
			return fmt.Errorf("failed to count open receipts: %w", err)
		}
		if open == 0 {
			if _, err := tx.ExecContext(ctx, "UPDATE groups SET closed = 1 WHERE id = ?", groupID); err != nil {
				return fmt.Errorf("failed to close group: %w", err)
			}
			closed = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return closed, nil
}
