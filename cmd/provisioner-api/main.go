package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marit/provisioner/internal/api"
	"github.com/marit/provisioner/internal/config"
	"github.com/marit/provisioner/internal/db"
	"github.com/marit/provisioner/internal/invite"
	"github.com/marit/provisioner/internal/logging"
	"github.com/marit/provisioner/internal/model"
	"github.com/marit/provisioner/internal/platform"
	"github.com/marit/provisioner/internal/provision"
	"github.com/marit/provisioner/internal/registry"
	"github.com/marit/provisioner/internal/sitebuilder"
	"github.com/marit/provisioner/internal/storage"
	"github.com/marit/provisioner/internal/tenantapp"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store provision.JobStore
	if cfg.JobStore == "postgres" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		store = provision.NewPostgresStore(pool)
	} else {
		store = provision.NewMemoryStore()
	}

	builder := sitebuilder.NewClient(cfg.ProvisionerBaseURL, cfg.ProvisionerAPIKey, cfg.ProvisionerTimeout)
	reg := registry.NewClient(cfg.RegistryBaseURL, cfg.RegistryAPIKey)
	tenants := tenantapp.NewFactory(reg, cfg.SystemUserID, cfg.TenantAppURLTemplate, model.AttrSecretPrefix)
	containers := storage.NewS3Store(logger, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey)
	aliases := platform.NewAliasGenerator(cfg.ExtraLegalSuffixes)

	svc := provision.NewService(cfg, store, builder, reg, tenants, containers, aliases, logger)
	poller := provision.NewPoller(svc, store, builder,
		cfg.PollInterval, cfg.FailureBackoff, cfg.JobTimeout, logger)
	invites := invite.NewLog(reg, cfg.SystemUserID, logger)

	srv := api.NewServer(logger, svc, invites)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting provisioner API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := poller.Run(gctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			logger.Info().Msg("shutting down")
		case <-gctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
