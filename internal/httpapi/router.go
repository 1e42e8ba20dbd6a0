package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/WinterWeShare/weshare/internal/auth"
	"github.com/WinterWeShare/weshare/internal/middleware"
	"github.com/WinterWeShare/weshare/internal/service"
)

// NewRouter wires the handlers onto /api/v1. Registration and the login
// flow are open; everything else requires a valid session token, and the
// /admin subtree additionally requires the admin flag. /metrics and
// /healthz sit outside the API prefix.
func NewRouter(
	users *service.UserService,
	memberships *service.MembershipService,
	payments *service.PaymentService,
	settlements *service.SettlementService,
	jwt *auth.JWTManager,
) *mux.Router {
	userH := NewUserHandler(users)
	groupH := NewGroupHandler(memberships)
	paymentH := NewPaymentHandler(payments)
	settlementH := NewSettlementHandler(settlements)

	r := mux.NewRouter()
	r.Use(middleware.LogRequests, middleware.Metrics)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Open endpoints.
	api.HandleFunc("/users", userH.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/code", userH.RequestCode).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", userH.Login).Methods(http.MethodPost)

	// Session-protected endpoints.
	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.Authenticate(jwt))

	authed.HandleFunc("/users/me", userH.Me).Methods(http.MethodGet)
	authed.HandleFunc("/users/me", userH.UpdateMe).Methods(http.MethodPut)
	authed.HandleFunc("/users/me/balance", userH.Balance).Methods(http.MethodGet)
	authed.HandleFunc("/users/me/deactivate", userH.Deactivate).Methods(http.MethodPost)
	authed.HandleFunc("/users/me/activate", userH.Activate).Methods(http.MethodPost)

	authed.HandleFunc("/friends", userH.ListFriends).Methods(http.MethodGet)
	authed.HandleFunc("/friends", userH.AddFriend).Methods(http.MethodPost)
	authed.HandleFunc("/friends/{friendId}", userH.RemoveFriend).Methods(http.MethodDelete)

	authed.HandleFunc("/groups", groupH.Create).Methods(http.MethodPost)
	authed.HandleFunc("/groups", groupH.List).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{groupId}", groupH.Get).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{groupId}/members", groupH.Members).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{groupId}/members/{userId}", groupH.RemoveMember).Methods(http.MethodDelete)
	authed.HandleFunc("/groups/{groupId}/invites", groupH.Invite).Methods(http.MethodPost)
	authed.HandleFunc("/groups/{groupId}/invitable-friends", groupH.InvitableFriends).Methods(http.MethodGet)
	authed.HandleFunc("/invites", groupH.ListInvites).Methods(http.MethodGet)
	authed.HandleFunc("/invites/{groupId}/accept", groupH.AcceptInvite).Methods(http.MethodPost)
	authed.HandleFunc("/invites/{groupId}/reject", groupH.RejectInvite).Methods(http.MethodPost)

	authed.HandleFunc("/groups/{groupId}/payments", paymentH.Record).Methods(http.MethodPost)
	authed.HandleFunc("/groups/{groupId}/payments", paymentH.ListGroup).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{groupId}/payments/mine", paymentH.ListMine).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{groupId}/total", paymentH.Total).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{groupId}/fair-share", paymentH.FairShare).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{groupId}/invoice", paymentH.Invoice).Methods(http.MethodGet)

	authed.HandleFunc("/groups/{groupId}/settlement", settlementH.Initiate).Methods(http.MethodPost)
	authed.HandleFunc("/groups/{groupId}/settlement/approve", settlementH.Approve).Methods(http.MethodPost)
	authed.HandleFunc("/groups/{groupId}/settlement/cancel", settlementH.Cancel).Methods(http.MethodPost)
	authed.HandleFunc("/groups/{groupId}/settlement/fulfill", settlementH.Fulfill).Methods(http.MethodPost)
	authed.HandleFunc("/groups/{groupId}/settlement/records", settlementH.Records).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{groupId}/settlement/receipts", settlementH.Receipts).Methods(http.MethodGet)

	// Admin endpoints.
	admin := authed.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/users/emails", userH.AdminListEmails).Methods(http.MethodGet)
	admin.HandleFunc("/users/{userId}/deactivate", userH.AdminDeactivate).Methods(http.MethodPost)
	admin.HandleFunc("/users/{userId}/activate", userH.AdminActivate).Methods(http.MethodPost)

	return r
}
