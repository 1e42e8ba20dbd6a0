package models

import (
	"time"

	"github.com/google/uuid"
)

// Group represents a shared expense pool.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Ski Trip").
	Name string

	// Closed is set once every receipt of the group has been fulfilled.
	// It never transitions back to false.
	Closed bool

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// NewGroup creates an open group with a fresh ID.
func NewGroup(name string) *Group {
	return &Group{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().Unix(),
	}
}

// Membership links one user to one group. Exactly one membership per group
// carries IsOwner.
type Membership struct {
	ID      string
	UserID  string
	GroupID string
	IsOwner bool
}

// NewMembership creates a membership with a fresh ID.
func NewMembership(userID, groupID string, isOwner bool) *Membership {
	return &Membership{
		ID:      uuid.New().String(),
		UserID:  userID,
		GroupID: groupID,
		IsOwner: isOwner,
	}
}

// Invite is a pending request from a group owner to a friend. It is removed
// on accept or reject, and swept when settlement starts.
type Invite struct {
	ID         string
	SenderID   string
	ReceiverID string
	GroupID    string
	CreatedAt  int64
}

// NewInvite creates an invite with a fresh ID.
func NewInvite(senderID, receiverID, groupID string) *Invite {
	return &Invite{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		GroupID:    groupID,
		CreatedAt:  time.Now().Unix(),
	}
}
