// Copyright 2026 The DealerDesk Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/dealerdesk/dealerdesk/internal/access"
	"github.com/dealerdesk/dealerdesk/internal/audit"
	"github.com/dealerdesk/dealerdesk/internal/config"
	"github.com/dealerdesk/dealerdesk/internal/dealer"
	"github.com/dealerdesk/dealerdesk/internal/guard"
	"github.com/dealerdesk/dealerdesk/internal/identity"
	"github.com/dealerdesk/dealerdesk/internal/intake"
	"github.com/dealerdesk/dealerdesk/internal/lead"
	"github.com/dealerdesk/dealerdesk/internal/observability/logger"
	"github.com/dealerdesk/dealerdesk/internal/observability/metrics"
	"github.com/dealerdesk/dealerdesk/internal/observability/tracing"
	"github.com/dealerdesk/dealerdesk/internal/platform/auth"
	"github.com/dealerdesk/dealerdesk/internal/platform/realtime"
	"github.com/dealerdesk/dealerdesk/internal/platform/storage"
	"github.com/dealerdesk/dealerdesk/internal/store/postgres"
	transportHTTP "github.com/dealerdesk/dealerdesk/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting dealerdesk tenant service")

	// Phase: CLI Commands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Initialize context
	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	_, err = metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Initialize repositories
	groupRepo := postgres.NewDealerGroupRepository(db)
	dealershipRepo := postgres.NewDealershipRepository(db)
	userRepo := postgres.NewUserRepository(db)
	departmentRepo := postgres.NewDepartmentRepository(db)
	leadRepo := postgres.NewLeadRepository(db)
	intakeSessionRepo := postgres.NewIntakeSessionRepository(db)
	banListRepo := postgres.NewBanListRepository(db)
	licenseRepo := postgres.NewLicenseRepository(db)

	// Initialize helpers
	auditLogger := audit.NewSlogLogger()
	parser := identity.NewTokenParser([]byte(cfg.Platform.JWTSecret))
	resolver := access.NewResolver(groupRepo)
	routeGuard := guard.New(cfg.Guard.ExceptionPaths...)

	// Auth platform client (session refresh, sign-out)
	provider := auth.NewClient(cfg.Platform.URL, cfg.Platform.ServiceKey, 10*time.Second)

	// Realtime alert feed, optional
	var feed *realtime.Feed
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("failed to connect to redis", logger.Error(err))
			os.Exit(1)
		}
		defer rdb.Close()
		feed = realtime.NewFeed(rdb)
		slog.Info("connected to redis")
	}

	// License image storage, optional
	var signer transportHTTP.ObjectSigner
	if cfg.Storage.Bucket != "" {
		s, err := storage.NewSigner(ctx, storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			URLExpiry: cfg.Storage.URLExpiry,
		})
		if err != nil {
			slog.Error("failed to initialize object storage", logger.Error(err))
			os.Exit(1)
		}
		signer = s
	}

	// Initialize services
	dealerService := dealer.NewService(groupRepo, dealershipRepo, userRepo, departmentRepo, auditLogger)

	var alertPublisher lead.AlertPublisher
	if feed != nil {
		alertPublisher = feed
	}
	leadService := lead.NewService(leadRepo, alertPublisher, auditLogger)

	hasher, err := intake.NewHasher(cfg.Intake.DigestPepper)
	if err != nil {
		slog.Error("failed to initialize license hasher", logger.Error(err))
		os.Exit(1)
	}
	var decoder intake.Decoder
	if cfg.Intake.OCREndpoint != "" {
		decoder = intake.NewEdgeDecoder(cfg.Intake.OCREndpoint, cfg.Platform.ServiceKey, 15*time.Second)
	}
	intakeService := intake.NewService(
		intakeSessionRepo,
		banListRepo,
		licenseRepo,
		leadService,
		decoder,
		hasher,
		auditLogger,
		cfg.Intake.SessionTTL,
	)

	// Expired intake sessions are swept on a schedule so abandoned license
	// data never outlives its TTL by much.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Intake.SweepSchedule, func() {
		intakeService.SweepExpired(ctx)
	}); err != nil {
		slog.Error("invalid intake sweep schedule", logger.Error(err))
		os.Exit(1)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		parser,
		provider,
		resolver,
		routeGuard,
		dealerService,
		leadService,
		intakeService,
		signer,
		feed,
		transportHTTP.Collections{
			Dealerships: dealershipRepo,
			Users:       userRepo,
			Departments: departmentRepo,
			Leads:       leadRepo,
		},
		auditLogger,
		cfg.Guard.PendingTimeout,
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Applying initial schema...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}
	fmt.Println("Migration successful.")
	return nil
}
