package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WinterWeShare/weshare/internal/middleware"
	"github.com/WinterWeShare/weshare/internal/service"
)

// UserHandler serves the account, friendship and login endpoints.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

// Register handles POST /users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	user, err := h.users.CreateUser(r.Context(), req.Email, req.FirstName, req.LastName, req.PhoneNumber)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

type requestCodeRequest struct {
	Email string `json:"email"`
}

// RequestCode handles POST /auth/code: it generates and mails a one-time
// login code.
func (h *UserHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.users.StartSession(r.Context(), req.Email); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type loginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /auth/login: it exchanges a valid code for a session
// token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	token, err := h.users.Login(r.Context(), req.Email, req.Code)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token})
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateMe handles PUT /users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	userID := middleware.UserID(r.Context())
	if err := h.users.UpdateUser(r.Context(), userID, req.Email, req.FirstName, req.LastName, req.PhoneNumber); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

// Balance handles GET /users/me/balance.
func (h *UserHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.users.GetBalance(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

// Deactivate handles POST /users/me/deactivate.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Deactivate(r.Context(), middleware.UserID(r.Context())); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Activate handles POST /users/me/activate.
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Activate(r.Context(), middleware.UserID(r.Context())); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type addFriendRequest struct {
	FriendID string `json:"friendId"`
}

// AddFriend handles POST /friends.
func (h *UserHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	var req addFriendRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.users.AddFriend(r.Context(), middleware.UserID(r.Context()), req.FriendID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, nil)
}

// RemoveFriend handles DELETE /friends/{friendId}.
func (h *UserHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	friendID := mux.Vars(r)["friendId"]
	if err := h.users.RemoveFriend(r.Context(), middleware.UserID(r.Context()), friendID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ListFriends handles GET /friends.
func (h *UserHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.users.ListFriends(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, friends)
}

// AdminListEmails handles GET /admin/users/emails.
func (h *UserHandler) AdminListEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.users.ListUserEmails(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, emails)
}

// AdminDeactivate handles POST /admin/users/{userId}/deactivate.
func (h *UserHandler) AdminDeactivate(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := h.users.AdminDeactivate(r.Context(), middleware.UserID(r.Context()), userID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// AdminActivate handles POST /admin/users/{userId}/activate.
func (h *UserHandler) AdminActivate(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := h.users.AdminActivate(r.Context(), middleware.UserID(r.Context()), userID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
