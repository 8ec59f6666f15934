package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Check verifies connectivity to every configured backend, printing one
// diagnostic line per backend. It returns an error when any backend is
// unreachable.
func (a *App) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var g errgroup.Group

	g.Go(func() error {
		if err := a.checkPostgres(ctx); err != nil {
			fmt.Fprintf(os.Stdout, "PostgreSQL failed: %v\n", err)
			return fmt.Errorf("postgres: %w", err)
		}
		fmt.Fprintln(os.Stdout, "PostgreSQL connected")
		return nil
	})

	g.Go(func() error {
		if err := a.checkRedis(ctx); err != nil {
			fmt.Fprintf(os.Stdout, "Redis failed: %v\n", err)
			return fmt.Errorf("redis: %w", err)
		}
		fmt.Fprintln(os.Stdout, "Redis connected")
		return nil
	})

	return g.Wait()
}

func (a *App) checkPostgres(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	return store.Ping(ctx)
}

func (a *App) checkRedis(ctx context.Context) error {
	opts, err := redis.ParseURL(a.Config.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	if a.Config.Redis.DialTimeout > 0 {
		opts.DialTimeout = a.Config.Redis.DialTimeout
	}

	client := redis.NewClient(opts)
	defer client.Close()

	return client.Ping(ctx).Err()
}
