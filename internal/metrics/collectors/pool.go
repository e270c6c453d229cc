// Package collectors periodically samples pipeline components into the
// Prometheus registry.
package collectors

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rkvision/fpganode/internal/logging"
	"github.com/rkvision/fpganode/internal/pool"
)

var (
	poolSlotsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "pool",
		Name:      "slots_in_use",
		Help:      "Slots currently held by a live ticket",
	})

	poolSlotsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fpganode",
		Subsystem: "pool",
		Name:      "slots_total",
		Help:      "Configured pool capacity",
	})
)

// PoolCollector samples slot occupancy on a fixed interval.
type PoolCollector struct {
	logger   *slog.Logger
	pool     *pool.Pool
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPoolCollector creates a collector for the given pool.
func NewPoolCollector(p *pool.Pool) *PoolCollector {
	return &PoolCollector{
		logger:   logging.GetLogger("pool"),
		pool:     p,
		interval: 5 * time.Second,
	}
}

// Start begins sampling.
func (c *PoolCollector) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	go c.run()
	return nil
}

// Stop stops the collector.
func (c *PoolCollector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *PoolCollector) run() {
	c.logger.Info("Starting pool occupancy collection", "interval", c.interval)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *PoolCollector) collect() {
	poolSlotsInUse.Set(float64(c.pool.InUse()))
	poolSlotsTotal.Set(float64(c.pool.Capacity()))
}
