// Package service implements the business operations on top of the
// storage layer: user accounts and sessions, group membership, payments,
// and the settlement state machine.
package service

import (
	"context"

	"github.com/WinterWeShare/weshare/internal/apperr"
	"github.com/WinterWeShare/weshare/internal/models"
	"github.com/WinterWeShare/weshare/internal/storage"
)

// groupLocks serializes state-changing operations per group across all
// services, so the membership, payment and settlement services share one
// instance.
type groupLocks = keyedMutex

// NewGroupLocks creates the lock table shared by the services.
func NewGroupLocks() *keyedMutex {
	return newKeyedMutex()
}

// getGroup fetches a group or fails with NotFound.
func getGroup(ctx context.Context, store storage.Store, groupID string) (*models.Group, error) {
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, apperr.NotFound("group %s", groupID)
	}
	return group, nil
}

// getUser fetches a user or fails with NotFound.
func getUser(ctx context.Context, store storage.Store, userID string) (*models.User, error) {
	user, err := store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user %s", userID)
	}
	return user, nil
}

// requireMembership fetches the membership of a user in a group or fails
// with PreconditionFailed.
func requireMembership(ctx context.Context, store storage.Store, userID, groupID string) (*models.Membership, error) {
	m, err := store.GetMembership(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.Precondition("user %s is not in group %s", userID, groupID)
	}
	return m, nil
}

// requireOwner fetches the membership and fails with PreconditionFailed
// unless it carries ownership.
func requireOwner(ctx context.Context, store storage.Store, userID, groupID string) (*models.Membership, error) {
	m, err := requireMembership(ctx, store, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !m.IsOwner {
		return nil, apperr.Precondition("user %s is not the owner of group %s", userID, groupID)
	}
	return m, nil
}

// isSettling reports whether the group has settlement records.
func isSettling(ctx context.Context, store storage.Store, groupID string) (bool, error) {
	records, err := store.ListSettlementRecords(ctx, groupID)
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}
