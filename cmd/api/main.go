package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"eagleeye/api/internal/app"
	"eagleeye/api/internal/capture"
	"eagleeye/api/internal/config"
	"eagleeye/api/internal/email"
	"eagleeye/api/internal/export"
	"eagleeye/api/internal/metrics"
	"eagleeye/api/internal/search"
	"eagleeye/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	deps := app.Dependencies{Metrics: metrics.New()}

	if strings.TrimSpace(cfg.MeiliURL) != "" {
		deps.Meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		feed, err := capture.NewRedisFeed(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer feed.Close()
		log.Printf("Using Redis for the lead capture feed")
		deps.Capture = feed
	}

	if strings.TrimSpace(cfg.ObjectStoreEndpoint) != "" {
		sink, err := export.NewMinioSink(ctx, export.MinioConfig{
			Endpoint:  cfg.ObjectStoreEndpoint,
			AccessKey: cfg.ObjectStoreAccessKey,
			SecretKey: cfg.ObjectStoreSecretKey,
			Bucket:    cfg.ObjectStoreBucket,
			UseSSL:    cfg.ObjectStoreUseSSL,
		})
		if err != nil {
			log.Fatalf("object store connection failed: %v", err)
		}
		deps.Exports = export.NewService(sink, cfg.ExportURLTTL)
	} else {
		log.Printf("Exports disabled: OBJECT_STORE_ENDPOINT not set")
	}

	notifier := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		NotifyTo: cfg.NotifyTo,
	})
	if notifier.IsConfigured() {
		deps.Notifier = notifier
	}

	var (
		db      *sql.DB
		service *app.Service
		err     error
	)
	if store.IsSQLiteURL(cfg.DatabaseURL) {
		db, err = store.OpenSQLite(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		sqliteStore := store.NewSQLiteStore(db)
		if err := sqliteStore.CreateSchema(ctx); err != nil {
			log.Fatalf("schema setup failed: %v", err)
		}
		log.Printf("Using SQLite database")
		service = app.New(cfg, sqliteStore, deps)
	} else {
		db, err = store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
		service = app.New(cfg, store.NewPostgresStore(db), deps)
	}
	defer db.Close()
	defer service.Close()

	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Eagle Eye API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
