// Package redis opens the shared Redis connection used for reset codes and
// rate limiting.
package redis

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"sante/internal/platform/config"
)

// Client embeds the go-redis client and reports pool usage to Prometheus.
type Client struct {
	*redis.Client
}

// New dials Redis and pings it. An empty URL returns (nil, nil).
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health pings Redis; it backs the /health check.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

var (
	poolConnsDesc = prometheus.NewDesc("sante_redis_pool_connections",
		"Connections held by the Redis pool.", []string{"state"}, nil)
	poolEventsDesc = prometheus.NewDesc("sante_redis_pool_events_total",
		"Redis pool lookups by outcome.", []string{"outcome"}, nil)
)

// Describe implements prometheus.Collector.
func (c *Client) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolConnsDesc
	ch <- poolEventsDesc
}

// Collect implements prometheus.Collector from the live pool stats.
func (c *Client) Collect(ch chan<- prometheus.Metric) {
	stats := c.PoolStats()
	ch <- prometheus.MustNewConstMetric(poolConnsDesc, prometheus.GaugeValue, float64(stats.TotalConns), "total")
	ch <- prometheus.MustNewConstMetric(poolConnsDesc, prometheus.GaugeValue, float64(stats.IdleConns), "idle")
	ch <- prometheus.MustNewConstMetric(poolEventsDesc, prometheus.CounterValue, float64(stats.Hits), "hit")
	ch <- prometheus.MustNewConstMetric(poolEventsDesc, prometheus.CounterValue, float64(stats.Misses), "miss")
	ch <- prometheus.MustNewConstMetric(poolEventsDesc, prometheus.CounterValue, float64(stats.Timeouts), "timeout")
}
