package server

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"snowdash/internal/observability"
)

// Warmer re-fetches each page on its TTL cadence so interactive requests
// always hit warm cache when auto-refresh is on.
type Warmer struct {
	server *Server
	cron   *cron.Cron
	logger *observability.Logger
}

// NewWarmer schedules one warm job per page store
func NewWarmer(s *Server) *Warmer {
	return &Warmer{
		server: s,
		cron:   cron.New(),
		logger: observability.Default().WithFields(map[string]interface{}{"component": "warmer"}),
	}
}

// Start registers and runs the warm schedules
func (w *Warmer) Start() {
	ttl := w.server.config.Dashboard

	// Refresh, not FetchAll: a warm pass landing inside the entry's TTL
	// would otherwise be a no-op and leave the next request cold.
	w.schedule("quality", ttl.QualityTTL, func(ctx context.Context) {
		w.server.quality.Refresh(ctx)
	})
	w.schedule("brokers", ttl.BrokerTTL, func(ctx context.Context) {
		w.server.brokers.Refresh(ctx)
	})
	w.schedule("risk", ttl.RiskTTL, func(ctx context.Context) {
		w.server.risk.Refresh(ctx)
	})
	w.schedule("governance", ttl.GovernanceTTL, func(ctx context.Context) {
		w.server.governance.Refresh(ctx)
	})

	w.cron.Start()
	w.logger.Info("cache warmer started")
}

func (w *Warmer) schedule(page string, ttl time.Duration, warm func(context.Context)) {
	if ttl <= 0 {
		return
	}

	spec := fmt.Sprintf("@every %s", ttl)
	_, err := w.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), ttl)
		defer cancel()
		warm(ctx)
	})
	if err != nil {
		w.logger.ErrorWithFields("failed to schedule warm job", map[string]interface{}{
			"page": page,
			"spec": spec,
		})
	}
}

// Stop halts the schedules, waiting for running jobs
func (w *Warmer) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.logger.Info("cache warmer stopped")
}
