package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/classwork/internal/access"
	api "github.com/mind-engage/classwork/internal/api/http"
	auth "github.com/mind-engage/classwork/internal/auth/middleware"
	"github.com/mind-engage/classwork/internal/classwork"
	"github.com/mind-engage/classwork/internal/config"
	"github.com/mind-engage/classwork/internal/db"
	"github.com/mind-engage/classwork/internal/learning"
	"github.com/mind-engage/classwork/internal/logger"
	"github.com/mind-engage/classwork/internal/storage"
	syncx "github.com/mind-engage/classwork/internal/sync"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatal("bad DB_DRIVER", "error", err)
	}
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		log.Fatal("db open failed", "error", err)
	}
	defer dbh.Close()

	store := classwork.NewSQLStore(dbh)
	svc := learning.NewService(store,
		learning.WithLogger(log.With("component", "learning")),
		learning.WithRecorder(syncx.NewEventRepo(dbh, string(cfg.Mode))),
		learning.WithPolicy(access.Policy{PreviewCompletion: cfg.PreviewCompletion}),
		learning.WithDefaultPassingScore(cfg.DefaultPassingScore),
	)
	if err := svc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassHash); err != nil {
		log.Fatal("bootstrap admin failed", "error", err)
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath, cfg.PublicURL+"/api/uploads")
	if err != nil {
		log.Fatal("blob store", "error", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, api.RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		Service: svc,
		Auth:    auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL),
		Blobs:   bs,
		DB:      dbh,
		Log:     log.With("component", "http"),
	})

	s := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
