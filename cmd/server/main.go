package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/WinterWeShare/weshare/internal/auth"
	"github.com/WinterWeShare/weshare/internal/config"
	"github.com/WinterWeShare/weshare/internal/httpapi"
	"github.com/WinterWeShare/weshare/internal/service"
	"github.com/WinterWeShare/weshare/internal/storage/sqlite"
	"github.com/WinterWeShare/weshare/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	var mailer auth.Mailer
	if cfg.SMTPHost != "" {
		mailer = auth.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	} else {
		slog.Warn("SMTP not configured, login codes will be logged")
		mailer = auth.LogMailer{}
	}
	jwtManager := auth.NewJWTManager(cfg.JWTSecret)

	locks := service.NewGroupLocks()
	users := service.NewUserService(store, mailer, jwtManager, cfg.StartingBalance)
	memberships := service.NewMembershipService(store, locks)
	payments := service.NewPaymentService(store, locks)
	settlements := service.NewSettlementService(store, locks)

	router := httpapi.NewRouter(users, memberships, payments, settlements, jwtManager)
	handler := corsMiddleware(router)

	slog.Info("Server starting", "address", cfg.Addr())
	if err := http.ListenAndServe(cfg.Addr(), handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
