package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solana-clockin/oracle/backend/internal/checkin"
	"github.com/solana-clockin/oracle/backend/internal/config"
	"github.com/solana-clockin/oracle/backend/internal/keys"
	"github.com/solana-clockin/oracle/backend/internal/ledger"
	"github.com/solana-clockin/oracle/backend/internal/logging"
	"github.com/solana-clockin/oracle/backend/internal/metrics"
	"github.com/solana-clockin/oracle/backend/internal/progress"
	"github.com/solana-clockin/oracle/backend/internal/server"
)

const flagEnvFile = "env-file"

func newServeCmd() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the check-in oracle HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString(flagEnvFile)
			if err := loadEnvFile(v, envFile, cmd.Flags().Changed(flagEnvFile)); err != nil {
				return err
			}

			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String(flagEnvFile, config.DefaultEnvFile, "dotenv file read before the environment")
	flags.Int("port", 3001, "HTTP listen port")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	_ = v.BindPFlag(config.Key(config.EnvServerPort), flags.Lookup("port"))
	_ = v.BindPFlag(config.Key(config.EnvLogLevel), flags.Lookup("log-level"))

	return cmd
}

// loadEnvFile reads path into v. A missing default file is not an error.
func loadEnvFile(v *viper.Viper, path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := config.ReadEnvFile(v, path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// A bad secret stops startup; the server never runs with a partial keypair.
	keypair, err := keys.LoadVerifierKeypair(cfg.VerifierPrivateKey.Reveal())
	if err != nil {
		return err
	}
	logger.Info("verifier wallet loaded", zap.Stringer("public_key", keypair.PublicKey()))

	programID, ok := cfg.ProgramID()
	if ok {
		logger.Info("check-in program configured", zap.Stringer("program_id", programID))
	} else {
		logger.Warn("CHECKIN_PROGRAM_ID not configured, check-in requests will be refused")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkInMetrics, err := metrics.NewCheckIn(registry)
	if err != nil {
		return err
	}

	svc := checkin.NewService(checkin.Deps{
		Keypair:         keypair,
		ProgramID:       programID,
		Progress:        newProgressChecker(cfg, logger),
		ProgressTimeout: cfg.ProgressTimeout(),
		Metrics:         checkInMetrics,
		Logger:          logger,
	})

	srv := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, svc, registry, logger)

	probe := ledger.NewProbe(cfg.SolanaRPCURL, cfg.RPCTimeout())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		if err := probe.Check(ctx); err != nil {
			logger.Warn("solana RPC not reachable", zap.String("url", cfg.SolanaRPCURL), zap.Error(err))
			return nil
		}
		logger.Info("connected to solana RPC", zap.String("url", cfg.SolanaRPCURL))
		return nil
	})
	return g.Wait()
}

func newProgressChecker(cfg config.Config, logger *zap.Logger) progress.Checker {
	if cfg.Progress.APIURL == "" {
		logger.Warn("PROGRESS_API_URL not configured, every user counts as having completed today's task")
		return progress.Static(true)
	}
	logger.Info("progress API configured", zap.String("url", cfg.Progress.APIURL))
	return progress.NewHTTPChecker(cfg.Progress.APIURL, cfg.Progress.APIKey.Reveal(), cfg.ProgressTimeout())
}
