package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Login codes are sent here.
	Email string

	FirstName   string
	LastName    string
	PhoneNumber string

	// IsAdmin grants access to the admin endpoints (deactivation of other
	// users, user listings).
	IsAdmin bool

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// NewUser creates a user with a fresh ID and creation timestamp.
func NewUser(email, firstName, lastName, phoneNumber string) *User {
	return &User{
		ID:          uuid.New().String(),
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		PhoneNumber: phoneNumber,
		CreatedAt:   time.Now().Unix(),
	}
}

// Wallet holds a user's signed currency balance. It is debited by payments
// and credited or debited once when the user's receipt is fulfilled.
type Wallet struct {
	ID      string
	UserID  string
	Balance float64
}

// Deactivation bars a user from group actions. A user may deactivate
// themselves and undo it; a deactivation placed by an admin can only be
// lifted by an admin.
type Deactivation struct {
	UserID    string
	ByAdmin   bool
	CreatedAt int64
}

// Friendship is a mutual link between two users, stored once in either
// orientation. Invitations to groups are restricted to friends.
type Friendship struct {
	UserID   string
	FriendID string
}

// Session stores the bcrypt hash of the one-time login code emailed to a
// user. A session is only valid on the calendar day it was created.
type Session struct {
	UserID    string
	CodeHash  string
	CreatedAt int64
}
