package redisholder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imrulkayessifat/photo-optima-backend/internal/config"
)

// Build connects to redis, preferring a cluster client and falling back to
// a single-node client, and starts the background health loop. The holder
// it returns stays valid across reconnects.
func Build(ctx context.Context, cfg *config.Config) (*Holder, error) {
	client, err := connect(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	h := NewHolder(client)
	go healthLoop(ctx, h, &cfg.Redis)
	return h, nil
}

func connect(cfg *config.RedisConfig) (redis.UniversalClient, error) {
	cluster, clusterErr := newClusterClient(cfg)
	if clusterErr == nil {
		return cluster, nil
	}

	single, err := newSingleClient(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("[redis] cluster client unavailable (%v), using single node", clusterErr)
	return single, nil
}

func healthLoop(ctx context.Context, h *Holder, cfg *config.RedisConfig) {
	interval := cfg.HealthCheckInterval * time.Second
	log.Printf("[redis] health loop started, interval=%v", interval)

	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := h.Get().Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return
		}

		log.Printf("[redis] ping failed (%v), reconnecting", err)
		next, err := connect(cfg)
		if err != nil {
			log.Printf("[redis] reconnect failed: %v", err)
			return
		}
		if old := h.replace(next); old != nil {
			_ = old.Close()
		}
		log.Printf("[redis] reconnected")
	}

	check()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = h.Close()
			log.Printf("[redis] health loop stopped: %v", ctx.Err())
			return
		case <-t.C:
			check()
		}
	}
}

func newClusterClient(cfg *config.RedisConfig) (*redis.ClusterClient, error) {
	if len(cfg.Nodes) < 2 {
		return nil, errors.New("fewer than two nodes configured")
	}

	addrs := make([]string, 0, len(cfg.Nodes))
	for _, node := range cfg.Nodes {
		addrs = append(addrs, node.Addr())
	}

	cl := redis.NewClusterClient(&redis.ClusterOptions{
		RouteByLatency: true,
		Password:       cfg.Password,
		Addrs:          addrs,
		DialTimeout:    cfg.DialTimeout * time.Second,
		ReadTimeout:    cfg.ReadTimeout * time.Second,
		WriteTimeout:   cfg.WriteTimeout * time.Second,
		PoolSize:       cfg.PoolSize,
		PoolTimeout:    30 * time.Second,
	})

	if err := cl.Ping(context.Background()).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("pinging redis cluster: %w", err)
	}
	return cl, nil
}

func newSingleClient(cfg *config.RedisConfig) (*redis.Client, error) {
	err := errors.New("no nodes configured")

	for _, node := range cfg.Nodes {
		cl := redis.NewClient(&redis.Options{
			Addr:         node.Addr(),
			Password:     cfg.Password,
			DB:           cfg.DatabaseID,
			DialTimeout:  cfg.DialTimeout * time.Second,
			ReadTimeout:  cfg.ReadTimeout * time.Second,
			WriteTimeout: cfg.WriteTimeout * time.Second,
			PoolSize:     cfg.PoolSize,
		})

		if pingErr := cl.Ping(context.Background()).Err(); pingErr != nil {
			_ = cl.Close()
			err = fmt.Errorf("pinging %s: %w", node.Addr(), pingErr)
			continue
		}
		return cl, nil
	}
	return nil, err
}
