package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"docnum/internal/core/numerator"
	"docnum/internal/domain/numbering"
	"docnum/internal/infrastructure/config"
	"docnum/internal/infrastructure/storage/memory"
	"docnum/internal/infrastructure/storage/postgres"
	"docnum/internal/infrastructure/storage/redisstore"
	"docnum/pkg/logger"
)

// app holds the wired services of one CLI invocation.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	store numerator.Store
	pool  *postgres.Pool // nil unless the postgres driver is used
	alloc *numbering.Allocator
	admin *numbering.AdminService

	closers []func()
}

func newApp(ctx context.Context, opts options) (context.Context, *app, error) {
	cfg, err := config.Load(opts["config"])
	if err != nil {
		return ctx, nil, err
	}

	// Logs go to stderr so stdout carries only command output.
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return ctx, nil, fmt.Errorf("init logger: %w", err)
	}
	ctx = logger.WithLogger(ctx, log)

	a := &app{cfg: cfg, log: log}
	if err := a.openStore(ctx); err != nil {
		a.Close()
		return ctx, nil, err
	}

	branches, err := cfg.BranchDirectory()
	if err != nil {
		a.Close()
		return ctx, nil, err
	}
	retry := numbering.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
	}
	defaults := numerator.StandardDefaults()

	a.alloc = numbering.NewAllocator(a.store, branches, defaults, numbering.AllocatorConfig{
		Retry:           retry,
		PreferIncrement: cfg.Retry.PreferIncrement,
	})
	a.admin = numbering.NewAdminService(a.store, branches, defaults, retry)

	logger.Debug(ctx, "seqctl initialized", "driver", cfg.Storage.Driver)
	return ctx, a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Storage.Driver {
	case config.DriverPostgres:
		poolCfg := postgres.DefaultPoolConfig(a.cfg.Database.DSN)
		poolCfg.MaxConns = a.cfg.Database.MaxConns
		poolCfg.MinConns = a.cfg.Database.MinConns
		poolCfg.ApplicationName = "seqctl"

		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return err
		}
		a.pool = pool
		a.closers = append(a.closers, pool.Close)
		txOpts := postgres.DefaultTxOptions()
		txOpts.StatementTimeout = a.cfg.Database.StatementTimeout
		txOpts.LockTimeout = a.cfg.Database.LockTimeout
		a.store = postgres.NewSequenceStore(postgres.NewTxManagerWithOptions(pool, txOpts))

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		a.store = redisstore.New(client, a.cfg.Redis.KeyPrefix)

	default:
		logger.Warn(ctx, "memory driver selected, sequences are lost when seqctl exits")
		a.store = memory.New()
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}
