package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/WinterWeShare/weshare/internal/apperr"
	"github.com/WinterWeShare/weshare/internal/models"
)

// CreateUser inserts a new user and their wallet in one transaction.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User, startingBalance float64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email, first_name, last_name, phone_number, is_admin, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.ID, user.Email, user.FirstName, user.LastName, user.PhoneNumber, user.IsAdmin, user.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO wallets (id, user_id, balance) VALUES (?, ?, ?)",
			uuid.New().String(), user.ID, startingBalance,
		)
		if err != nil {
			return fmt.Errorf("failed to insert wallet: %w", err)
		}
		return nil
	})
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PhoneNumber, &user.IsAdmin, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // User not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by their ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, phone_number, is_admin, created_at
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by their email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, phone_number, is_admin, created_at
		 FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// UpdateUser updates a user's contact details and admin flag.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, first_name = ?, last_name = ?, phone_number = ?, is_admin = ?
		 WHERE id = ?`,
		user.Email, user.FirstName, user.LastName, user.PhoneNumber, user.IsAdmin, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("user %s", user.ID)
	}
	return nil
}

// ListUserEmails returns the email addresses of all users.
func (s *SQLiteStore) ListUserEmails(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT email FROM users ORDER BY email")
	if err != nil {
		return nil, fmt.Errorf("failed to list user emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate emails: %w", err)
	}
	return emails, nil
}

// GetWallet retrieves a user's wallet.
func (s *SQLiteStore) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, balance FROM wallets WHERE user_id = ?", userID,
	).Scan(&wallet.ID, &wallet.UserID, &wallet.Balance)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

// CreateDeactivation marks a user as deactivated.
func (s *SQLiteStore) CreateDeactivation(ctx context.Context, d *models.Deactivation) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO deactivations (user_id, by_admin, created_at) VALUES (?, ?, ?)",
		d.UserID, d.ByAdmin, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deactivation: %w", err)
	}
	return nil
}

// GetDeactivation retrieves a user's deactivation, if any.
func (s *SQLiteStore) GetDeactivation(ctx context.Context, userID string) (*models.Deactivation, error) {
	d := &models.Deactivation{}
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, by_admin, created_at FROM deactivations WHERE user_id = ?", userID,
	).Scan(&d.UserID, &d.ByAdmin, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deactivation: %w", err)
	}
	return d, nil
}

// DeleteDeactivation reactivates a user.
func (s *SQLiteStore) DeleteDeactivation(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM deactivations WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete deactivation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("deactivation for user %s", userID)
	}
	return nil
}

// CreateFriendship inserts a friendship link. The link is stored once but
// read in both directions.
func (s *SQLiteStore) CreateFriendship(ctx context.Context, userID, friendID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO friendships (user_id, friend_id) VALUES (?, ?)",
		userID, friendID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert friendship: %w", err)
	}
	return nil
}

// DeleteFriendship removes a friendship link, whichever way it was stored.
func (s *SQLiteStore) DeleteFriendship(ctx context.Context, userID, friendID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM friendships
		 WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)`,
		userID, friendID, friendID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("friendship between %s and %s", userID, friendID)
	}
	return nil
}

// ListFriendIDs returns the IDs of a user's friends, regardless of which
// side created the link.
func (s *SQLiteStore) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT friend_id FROM friendships WHERE user_id = ?
		 UNION
		 SELECT user_id FROM friendships WHERE friend_id = ?`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}
	return ids, nil
}

// ReplaceSession removes any previous login session for the user and
// inserts the new one in a single transaction.
func (s *SQLiteStore) ReplaceSession(ctx context.Context, sess *models.Session) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", sess.UserID); err != nil {
			return fmt.Errorf("failed to clear previous session: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO sessions (user_id, code_hash, created_at) VALUES (?, ?, ?)",
			sess.UserID, sess.CodeHash, sess.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		return nil
	})
}

// GetSession retrieves a user's login session, if any.
func (s *SQLiteStore) GetSession(ctx context.Context, userID string) (*models.Session, error) {
	sess := &models.Session{}
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, code_hash, created_at FROM sessions WHERE user_id = ?", userID,
	).Scan(&sess.UserID, &sess.CodeHash, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// DeleteSession removes a user's login session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
