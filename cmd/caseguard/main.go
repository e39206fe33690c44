package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/httpapi"
	"github.com/MrEthical07/caseguard/internal/config"
	"github.com/MrEthical07/caseguard/jwt"
	"github.com/MrEthical07/caseguard/logging"
	"github.com/MrEthical07/caseguard/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	var (
		configPath  = flag.String("config", os.Getenv(config.PathEnvVar), "path to a YAML config file")
		dev         = flag.Bool("dev", false, "run against an in-process redis and generate a token secret when none is set")
		auditStdout = flag.Bool("audit-stdout", false, "also write every audit record to stdout as JSON lines")
	)
	flag.Parse()

	if err := run(*configPath, *dev, *auditStdout); err != nil {
		fmt.Fprintf(os.Stderr, "caseguard: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, dev, auditStdout bool) error {
	if dev && os.Getenv("CASEGUARD_JWT__SECRET") == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		if err := os.Setenv("CASEGUARD_JWT__SECRET", hex.EncodeToString(secret)); err != nil {
			return err
		}
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging)

	client, closeRedis, err := openRedis(cfg.Redis, dev, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCfg := cfg.EngineConfig()
	store := redisstore.New(client, cfg.Redis.Prefix, engineCfg.Lockout)
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}

	builder := caseguard.New().
		WithConfig(engineCfg).
		WithUserStore(store).
		WithRecordStore(store).
		WithLogger(logger).
		WithAuditSink(auditSink(logger, auditStdout, os.Stdout))
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if cfg.Bootstrap.Enabled() {
		created, err := engine.Bootstrap(ctx, cfg.Bootstrap.Name, cfg.Bootstrap.Email, cfg.Bootstrap.Password)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			logger.Info().Str("email", cfg.Bootstrap.Email).Msg("seeded bootstrap admin")
		}
	}

	tokens, err := jwt.NewManager(cfg.TokenConfig())
	if err != nil {
		return err
	}
	router, err := httpapi.New(engine, tokens, cfg.HTTPConfig(), logger).Router()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Bool("dev", dev).Msg("caseguard listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Uint64("audit_dropped", engine.AuditDropped()).Msg("stopped")
	return nil
}

func openRedis(cfg config.RedisConfig, dev bool, logger zerolog.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.Addr
	var mr *miniredis.Miniredis
	if dev {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		logger.Warn().Str("addr", addr).Msg("using in-process redis; data is lost on exit")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	cleanup := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}
	return client, cleanup, nil
}

// auditSink logs every audit record and, with jsonLines set, also writes it
// as one JSON line to w.
func auditSink(logger zerolog.Logger, jsonLines bool, w io.Writer) caseguard.AuditSink {
	sink := caseguard.MultiSink{caseguard.NewLogSink(logger.With().Str("component", "audit").Logger())}
	if jsonLines {
		sink = append(sink, caseguard.NewJSONWriterSink(w))
	}
	return sink
}
