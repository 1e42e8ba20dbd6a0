package service

import (
	"context"
	"log/slog"

	"github.com/WinterWeShare/weshare/internal/apperr"
	"github.com/WinterWeShare/weshare/internal/models"
	"github.com/WinterWeShare/weshare/internal/storage"
)

// MembershipService manages groups, invites and memberships.
type MembershipService struct {
	store storage.Store
	locks *groupLocks
}

// NewMembershipService creates a MembershipService sharing the per-group
// lock table with the other services.
func NewMembershipService(store storage.Store, locks *groupLocks) *MembershipService {
	return &MembershipService{store: store, locks: locks}
}

// CreateGroup creates a group with the caller as its owner. Deactivated
// users cannot create groups.
func (s *MembershipService) CreateGroup(ctx context.Context, userID, name string) (*models.Group, error) {
	if name == "" {
		return nil, apperr.InvalidArgument("group name is required")
	}
	if _, err := getUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	if err := s.requireActive(ctx, userID); err != nil {
		return nil, err
	}

	group := models.NewGroup(name)
	owner := models.NewMembership(userID, group.ID, true)
	if err := s.store.CreateGroup(ctx, group, owner); err != nil {
		return nil, err
	}
	slog.Info("group created", "group_id", group.ID, "owner_id", userID)
	return group, nil
}

// GetGroup retrieves a group visible to one of its members.
func (s *MembershipService) GetGroup(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := getGroup(ctx, s.store, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMembership(ctx, s.store, userID, groupID); err != nil {
		return nil, err
	}
	return group, nil
}

// ListGroups returns the groups the user belongs to.
func (s *MembershipService) ListGroups(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.store.ListGroupsByUser(ctx, userID)
}

// ListMembers returns the users of a group, visible to its members.
func (s *MembershipService) ListMembers(ctx context.Context, userID, groupID string) ([]*models.User, error) {
	if _, err := requireMembership(ctx, s.store, userID, groupID); err != nil {
		return nil, err
	}
	return s.store.ListGroupUsers(ctx, groupID)
}

// Invite sends a group invite from the owner to one of their friends.
// The receiver must not already be a member, already invited, or
// deactivated, and the group must be open and not mid-settlement.
func (s *MembershipService) Invite(ctx context.Context, senderID, receiverID, groupID string) (*models.Invite, error) {
	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	group, err := getGroup(ctx, s.store, groupID)
	if err != nil {
		return nil, err
	}
	if group.Closed {
		return nil, apperr.Precondition("group %s is closed", groupID)
	}
	if _, err := requireOwner(ctx, s.store, senderID, groupID); err != nil {
		return nil, err
	}
	settling, err := isSettling(ctx, s.store, groupID)
	if err != nil {
		return nil, err
	}
	if settling {
		return nil, apperr.Precondition("group %s is mid-settlement", groupID)
	}

	if _, err := getUser(ctx, s.store, receiverID); err != nil {
		return nil, err
	}
	if err := s.requireActive(ctx, receiverID); err != nil {
		return nil, err
	}
	if err := s.requireFriends(ctx, senderID, receiverID); err != nil {
		return nil, err
	}

	existing, err := s.store.GetMembership(ctx, receiverID, groupID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Precondition("user %s is already in group %s", receiverID, groupID)
	}
	pending, err := s.store.GetInvite(ctx, receiverID, groupID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, apperr.Conflict("user %s is already invited to group %s", receiverID, groupID)
	}

	invite := models.NewInvite(senderID, receiverID, groupID)
	if err := s.store.CreateInvite(ctx, invite); err != nil {
		return nil, err
	}
	slog.Info("invite sent", "group_id", groupID, "receiver_id", receiverID)
	return invite, nil
}

// AcceptInvite turns a pending invite into a membership. The invite
// survives when any check fails, so a rejected accept can be retried once
// the state allows it.
func (s *MembershipService) AcceptInvite(ctx context.Context, userID, groupID string) (*models.Membership, error) {
	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	invite, err := s.store.GetInvite(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return nil, apperr.NotFound("invite for user %s to group %s", userID, groupID)
	}

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
	if err := s.requireActive(ctx, userID); err != nil {
		return nil, err
	}

	membership := models.NewMembership(userID, groupID, false)
	if err := s.store.AcceptInvite(ctx, userID, groupID, membership); err != nil {
		return nil, err
	}
	slog.Info("invite accepted", "group_id", groupID, "user_id", userID)
	return membership, nil
}

// RejectInvite discards a pending invite.
func (s *MembershipService) RejectInvite(ctx context.Context, userID, groupID string) error {
	return s.store.DeleteInvite(ctx, userID, groupID)
}

// ListInvites returns the user's pending invites.
func (s *MembershipService) ListInvites(ctx context.Context, userID string) ([]*models.Invite, error) {
	return s.store.ListInvitesByReceiver(ctx, userID)
}

// ListInvitableFriends returns the owner's friends who are neither members
// of the group nor already invited to it.
func (s *MembershipService) ListInvitableFriends(ctx context.Context, ownerID, groupID string) ([]*models.User, error) {
	if _, err := requireOwner(ctx, s.store, ownerID, groupID); err != nil {
		return nil, err
	}
	friendIDs, err := s.store.ListFriendIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	invitable := make([]*models.User, 0, len(friendIDs))
	for _, friendID := range friendIDs {
		m, err := s.store.GetMembership(ctx, friendID, groupID)
		if err != nil {
			return nil, err
		}
		if m != nil {
			continue
		}
		invite, err := s.store.GetInvite(ctx, friendID, groupID)
		if err != nil {
			return nil, err
		}
		if invite != nil {
			continue
		}
		d, err := s.store.GetDeactivation(ctx, friendID)
		if err != nil {
			return nil, err
		}
		if d != nil {
			continue
		}
		friend, err := s.store.GetUser(ctx, friendID)
		if err != nil {
			return nil, err
		}
		if friend != nil {
			invitable = append(invitable, friend)
		}
	}
	return invitable, nil
}

// RemoveMember removes a member from the group, by the owner. Members who
// have recorded payments or entered a settlement cannot be removed, and
// the owner cannot remove themselves.
func (s *MembershipService) RemoveMember(ctx context.Context, ownerID, memberID, groupID string) error {
	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	group, err := getGroup(ctx, s.store, groupID)
	if err != nil {
		return err
	}
	if group.Closed {
		return apperr.Precondition("group %s is closed", groupID)
	}
	if _, err := requireOwner(ctx, s.store, ownerID, groupID); err != nil {
		return err
	}
	if ownerID == memberID {
		return apperr.Precondition("the owner cannot leave group %s", groupID)
	}

	membership, err := requireMembership(ctx, s.store, memberID, groupID)
	if err != nil {
		return err
	}
	active, err := s.store.MembershipHasActivity(ctx, membership.ID)
	if err != nil {
		return err
	}
	if active {
		return apperr.Precondition("user %s has activity in group %s", memberID, groupID)
	}

	if err := s.store.DeleteMembership(ctx, membership.ID); err != nil {
		return err
	}
	slog.Info("member removed", "group_id", groupID, "user_id", memberID)
	return nil
}

func (s *MembershipService) requireActive(ctx context.Context, userID string) error {
	d, err := s.store.GetDeactivation(ctx, userID)
	if err != nil {
		return err
	}
	if d != nil {
		return apperr.Precondition("user %s is deactivated", userID)
	}
	return nil
}

func (s *MembershipService) requireFriends(ctx context.Context, userID, friendID string) error {
	friends, err := s.store.ListFriendIDs(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range friends {
		if id == friendID {
			return nil
		}
	}
	return apperr.Precondition("user %s is not a friend of %s", friendID, userID)
}
