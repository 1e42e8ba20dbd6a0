package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/WinterWeShare/weshare/internal/apperr"
	"github.com/WinterWeShare/weshare/internal/models"
)

// CreateGroup inserts the group and its owner membership together.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group, owner *models.Membership) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO groups (id, name, closed, created_at) VALUES (?, ?, ?, ?)",
			group.ID, group.Name, group.Closed, group.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO memberships (id, user_id, group_id, is_owner) VALUES (?, ?, ?, ?)",
			owner.ID, owner.UserID, owner.GroupID, owner.IsOwner,
		)
		if err != nil {
			return fmt.Errorf("failed to insert owner membership: %w", err)
		}
		return nil
	})
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, closed, created_at FROM groups WHERE id = ?", id,
	).Scan(&group.ID, &group.Name, &group.Closed, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListGroupsByUser returns all groups the user is a member of.
func (s *SQLiteStore) ListGroupsByUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.closed, g.created_at
		 FROM groups g
		 JOIN memberships m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY g.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.Name, &group.Closed, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// GetMembership retrieves the membership linking a user to a group.
func (s *SQLiteStore) GetMembership(ctx context.Context, userID, groupID string) (*models.Membership, error) {
	m := &models.Membership{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, group_id, is_owner FROM memberships WHERE user_id = ? AND group_id = ?",
		userID, groupID,
	).Scan(&m.ID, &m.UserID, &m.GroupID, &m.IsOwner)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// ListMemberships returns all memberships of a group.
func (s *SQLiteStore) ListMemberships(ctx context.Context, groupID string) ([]*models.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, group_id, is_owner FROM memberships WHERE group_id = ? ORDER BY id",
		groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m := &models.Membership{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.GroupID, &m.IsOwner); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}
	return memberships, nil
}

// DeleteMembership removes a membership by ID.
func (s *SQLiteStore) DeleteMembership(ctx context.Context, membershipID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM memberships WHERE id = ?", membershipID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("membership %s", membershipID)
	}
	return nil
}

// ListGroupUsers returns the users of a group.
func (s *SQLiteStore) ListGroupUsers(ctx context.Context, groupID string) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.first_name, u.last_name, u.phone_number, u.is_admin, u.created_at
		 FROM users u
		 JOIN memberships m ON m.user_id = u.id
		 WHERE m.group_id = ?
		 ORDER BY u.email`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName,
			&user.PhoneNumber, &user.IsAdmin, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// CreateInvite inserts a pending invite.
func (s *SQLiteStore) CreateInvite(ctx context.Context, invite *models.Invite) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO invites (id, sender_id, receiver_id, group_id, created_at) VALUES (?, ?, ?, ?, ?)",
		invite.ID, invite.SenderID, invite.ReceiverID, invite.GroupID, invite.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invite: %w", err)
	}
	return nil
}

// GetInvite retrieves the pending invite for a receiver and group, if any.
func (s *SQLiteStore) GetInvite(ctx context.Context, receiverID, groupID string) (*models.Invite, error) {
	invite := &models.Invite{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, sender_id, receiver_id, group_id, created_at
		 FROM invites WHERE receiver_id = ? AND group_id = ?`,
		receiverID, groupID,
	).Scan(&invite.ID, &invite.SenderID, &invite.ReceiverID, &invite.GroupID, &invite.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return invite, nil
}

// ListInvitesByReceiver returns all pending invites for a user.
func (s *SQLiteStore) ListInvitesByReceiver(ctx context.Context, receiverID string) ([]*models.Invite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender_id, receiver_id, group_id, created_at
		 FROM invites WHERE receiver_id = ? ORDER BY created_at DESC`, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []*models.Invite
	for rows.Next() {
		invite := &models.Invite{}
		if err := rows.Scan(&invite.ID, &invite.SenderID, &invite.ReceiverID,
			&invite.GroupID, &invite.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invites: %w", err)
	}
	return invites, nil
}

// DeleteInvite removes the pending invite for a receiver and group.
func (s *SQLiteStore) DeleteInvite(ctx context.Context, receiverID, groupID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM invites WHERE receiver_id = ? AND group_id = ?",
		receiverID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("invite for user %s to group %s", receiverID, groupID)
	}
	return nil
}

// AcceptInvite removes the invite and inserts the membership in one
// transaction, so a failing accept never consumes the invite.
func (s *SQLiteStore) AcceptInvite(ctx context.Context, receiverID, groupID string, membership *models.Membership) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM invites WHERE receiver_id = ? AND group_id = ?",
			receiverID, groupID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete invite: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check delete result: %w", err)
		}
		if n == 0 {
			return apperr.NotFound("invite for user %s to group %s", receiverID, groupID)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO memberships (id, user_id, group_id, is_owner) VALUES (?, ?, ?, ?)",
			membership.ID, membership.UserID, membership.GroupID, membership.IsOwner,
		)
		if err != nil {
			return fmt.Errorf("failed to insert membership: %w", err)
		}
		return nil
	})
}
