package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/s112213021-sketch/midorSys/internal/config"
	"github.com/s112213021-sketch/midorSys/internal/db"
	"github.com/s112213021-sketch/midorSys/internal/httpapi"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/service"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/store/sqlite"
	"github.com/s112213021-sketch/midorSys/internal/notify"
)

func main() {
	logger := log.New(os.Stdout, "midorsys-server ", log.LstdFlags|log.LUTC)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("db open: %v", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			logger.Fatalf("db seed: %v", err)
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	// Stores
	identityStore := sqlite.NewIdentityStore(conn, writer)
	bindingStore := sqlite.NewCardBindingStore(conn, writer)
	sessionStore := sqlite.NewSessionStore(conn, writer)
	auditStore := sqlite.NewAuditStore(conn, writer)

	// Outbound collaborators (no-ops when unconfigured)
	var notifier service.Notifier = service.NopNotifier{}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifier = notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
	}
	var activator service.ReaderActivator = service.NopActivator{}
	if cfg.ReaderAPIURL != "" {
		activator = notify.NewReaderClient(cfg.ReaderAPIURL, cfg.ReaderAPIKey)
	}

	// Services
	enrollmentSvc := service.NewEnrollmentService(service.EnrollmentDeps{
		Identities: identityStore,
		Bindings:   bindingStore,
		Sessions:   sessionStore,
		Audit:      auditStore,
		Notifier:   notifier,
		Activator:  activator,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	})
	gateSvc := service.NewGateService(identityStore, bindingStore, auditStore, notifier)
	router := service.NewScanRouter(enrollmentSvc, gateSvc)

	sweeper := service.NewSessionSweeper(enrollmentSvc, cfg.SweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       cfg.HTTPAddr,
		Router:     router,
		Enrollment: enrollmentSvc,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
