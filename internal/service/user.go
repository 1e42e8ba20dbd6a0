package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/WinterWeShare/weshare/internal/apperr"
	"github.com/WinterWeShare/weshare/internal/auth"
	"github.com/WinterWeShare/weshare/internal/models"
	"github.com/WinterWeShare/weshare/internal/storage"
)

// UserService manages accounts, wallets, friendships, deactivation and the
// login-code session flow.
type UserService struct {
	store           storage.Store
	mailer          auth.Mailer
	jwt             *auth.JWTManager
	startingBalance float64
}

// NewUserService creates a UserService. New users receive a wallet with
// the given starting balance.
func NewUserService(store storage.Store, mailer auth.Mailer, jwt *auth.JWTManager, startingBalance float64) *UserService {
	return &UserService{
		store:           store,
		mailer:          mailer,
		jwt:             jwt,
		startingBalance: startingBalance,
	}
}

// CreateUser registers a new user and creates their wallet. Fails with
// Conflict when the email is already registered.
func (s *UserService) CreateUser(ctx context.Context, email, firstName, lastName, phoneNumber string) (*models.User, error) {
	if email == "" || firstName == "" || lastName == "" {
		return nil, apperr.InvalidArgument("email, first name and last name are required")
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("user with email %s already exists", email)
	}

	user := models.NewUser(email, firstName, lastName, phoneNumber)
	if err := s.store.CreateUser(ctx, user, s.startingBalance); err != nil {
		return nil, err
	}
	slog.Info("user created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return getUser(ctx, s.store, userID)
}

// UpdateUser updates a user's contact details. Fails with Conflict when
// the new email belongs to another user.
func (s *UserService) UpdateUser(ctx context.Context, userID, email, firstName, lastName, phoneNumber string) error {
	user, err := getUser(ctx, s.store, userID)
	if err != nil {
		return err
	}
	if email != user.Email {
		taken, err := s.store.GetUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if taken != nil {
			return apperr.Conflict("user with email %s already exists", email)
		}
	}
	user.Email = email
	user.FirstName = firstName
	user.LastName = lastName
	user.PhoneNumber = phoneNumber
	return s.store.UpdateUser(ctx, user)
}

// GetBalance returns the user's wallet balance.
func (s *UserService) GetBalance(ctx context.Context, userID string) (float64, error) {
	wallet, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	if wallet == nil {
		return 0, apperr.NotFound("wallet for user %s", userID)
	}
	return wallet.Balance, nil
}

// ListUserEmails returns all registered email addresses. Admin only.
func (s *UserService) ListUserEmails(ctx context.Context, adminID string) ([]string, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.store.ListUserEmails(ctx)
}

// Deactivate bars the user from group actions, by their own request.
// Fails with Conflict when already deactivated.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	return s.deactivate(ctx, userID, false)
}

// AdminDeactivate bars a user from group actions by admin decision. The
// user cannot lift it themselves.
func (s *UserService) AdminDeactivate(ctx context.Context, adminID, userID string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	return s.deactivate(ctx, userID, true)
}

func (s *UserService) deactivate(ctx context.Context, userID string, byAdmin bool) error {
	if _, err := getUser(ctx, s.store, userID); err != nil {
		return err
	}
	existing, err := s.store.GetDeactivation(ctx, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperr.Conflict("user %s is already deactivated", userID)
	}
	d := &models.Deactivation{UserID: userID, ByAdmin: byAdmin, CreatedAt: time.Now().Unix()}
	if err := s.store.CreateDeactivation(ctx, d); err != nil {
		return err
	}
	slog.Info("user deactivated", "user_id", userID, "by_admin", byAdmin)
	return nil
}

// Activate lifts a self-deactivation. Fails with PreconditionFailed when
// the deactivation was placed by an admin.
func (s *UserService) Activate(ctx context.Context, userID string) error {
	d, err := s.store.GetDeactivation(ctx, userID)
	if err != nil {
		return err
	}
	if d == nil {
		return apperr.NotFound("deactivation for user %s", userID)
	}
	if d.ByAdmin {
		return apperr.Precondition("user %s was deactivated by an admin", userID)
	}
	return s.store.DeleteDeactivation(ctx, userID)
}

// AdminActivate lifts any deactivation.
func (s *UserService) AdminActivate(ctx context.Context, adminID, userID string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	return s.store.DeleteDeactivation(ctx, userID)
}

func (s *UserService) requireAdmin(ctx context.Context, adminID string) error {
	admin, err := getUser(ctx, s.store, adminID)
	if err != nil {
		return err
	}
	if !admin.IsAdmin {
		return apperr.Precondition("user %s is not an admin", adminID)
	}
	return nil
}

// AddFriend creates a friendship link. Fails with Conflict when it exists.
func (s *UserService) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return apperr.InvalidArgument("cannot befriend yourself")
	}
	if _, err := getUser(ctx, s.store, friendID); err != nil {
		return err
	}
	friends, err := s.store.ListFriendIDs(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range friends {
		if id == friendID {
			return apperr.Conflict("friendship between %s and %s already exists", userID, friendID)
		}
	}
	return s.store.CreateFriendship(ctx, userID, friendID)
}

// RemoveFriend deletes a friendship link. Fails with NotFound when absent.
func (s *UserService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return s.store.DeleteFriendship(ctx, userID, friendID)
}

// ListFriends returns the user's friends.
func (s *UserService) ListFriends(ctx context.Context, userID string) ([]*models.User, error) {
	ids, err := s.store.ListFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	friends := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		friend, err := s.store.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		if friend != nil {
			friends = append(friends, friend)
		}
	}
	return friends, nil
}

// StartSession generates a one-time login code, emails it to the user and
// stores its hash, replacing any earlier session.
func (s *UserService) StartSession(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.NotFound("user with email %s", email)
	}

	code, err := auth.GenerateCode()
	if err != nil {
		return err
	}
	hash, err := auth.HashCode(code)
	if err != nil {
		return err
	}

	if err := s.store.ReplaceSession(ctx, &models.Session{
		UserID:    user.ID,
		CodeHash:  hash,
		CreatedAt: time.Now().Unix(),
	}); err != nil {
		return err
	}

	if err := s.mailer.SendCode(user.Email, code); err != nil {
		return err
	}
	slog.Info("login code sent", "user_id", user.ID)
	return nil
}

// Login verifies the code against today's session and returns a token
// valid until midnight. The session is consumed on success.
func (s *UserService) Login(ctx context.Context, email, code string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", apperr.NotFound("user with email %s", email)
	}

	sess, err := s.store.GetSession(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", fmt.Errorf("no pending login for %s: %w", email, apperr.ErrUnauthenticated)
	}

	if err := auth.VerifyCode(code, sess.CodeHash, sess.CreatedAt, time.Now()); err != nil {
		return "", fmt.Errorf("%v: %w", err, apperr.ErrUnauthenticated)
	}

	if err := s.store.DeleteSession(ctx, user.ID); err != nil {
		return "", err
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		return "", err
	}
	slog.Info("user logged in", "user_id", user.ID)
	return token, nil
}
