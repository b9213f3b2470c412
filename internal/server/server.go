// Package server exposes the dashboard pages as a JSON API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"snowdash/internal/cache"
	"snowdash/internal/dashboard"
	"snowdash/internal/drilldown"
	"snowdash/internal/observability"
	"snowdash/internal/snowflake"
	"snowdash/pkg/models"
)

// Server hosts the dashboard API over the shared store set
type Server struct {
	svc        *snowflake.Service
	cache      *cache.Cache
	quality    *dashboard.QualityStore
	brokers    *dashboard.BrokerStore
	risk       *dashboard.RiskStore
	governance *dashboard.GovernanceStore
	resolver   *drilldown.Resolver
	config     models.Config
	logger     *observability.Logger
	warmer     *Warmer
}

// New wires the stores and resolver over one warehouse session
func New(svc *snowflake.Service, config models.Config) *Server {
	c := cache.New(time.Minute)
	registerCacheMetrics(c)

	wh := config.Warehouse
	ttl := config.Dashboard

	s := &Server{
		svc:        svc,
		cache:      c,
		quality:    dashboard.NewQualityStore(svc, c, wh, ttl.QualityTTL),
		brokers:    dashboard.NewBrokerStore(svc, c, wh, ttl.BrokerTTL, ttl.DetailTTL),
		risk:       dashboard.NewRiskStore(svc, c, wh, ttl.RiskTTL),
		governance: dashboard.NewGovernanceStore(svc, c, wh, ttl.GovernanceTTL, ttl.DetailTTL),
		resolver:   drilldown.NewResolver(svc, wh),
		config:     config,
		logger:     observability.Default().WithFields(map[string]interface{}{"component": "server"}),
	}
	s.warmer = NewWarmer(s)
	return s
}

// Router builds the chi route tree
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleSession)
		r.Post("/refresh", s.handleRefresh)

		r.Route("/quality", func(r chi.Router) {
			r.Get("/", s.handleQuality)
			r.Get("/entities", s.handleQualityEntities)
			r.Get("/summary", s.handleQualitySummary)
			r.Get("/relationships", s.handleQualityRelationships)
			r.Get("/issues", s.handleQualityIssues)
			r.Get("/dmf-status", s.handleQualityDMFStatus)
			r.Get("/row-counts", s.handleQualityRowCounts)
			r.Get("/drilldown", s.handleDrilldown)
			r.Get("/drilldown/export", s.handleDrilldownExport)
		})

		r.Route("/brokers", func(r chi.Router) {
			r.Get("/", s.handleBrokers)
			r.Get("/territories", s.handleBrokerTerritories)
			r.Get("/rankings", s.handleBrokerRankings)
			r.Get("/{id}", s.handleBrokerDetail)
		})

		r.Route("/risk", func(r chi.Router) {
			r.Get("/", s.handleRisk)
			r.Get("/profiles", s.handleRiskProfiles)
			r.Get("/geography", s.handleRiskGeography)
			r.Get("/correlation", s.handleRiskCorrelation)
		})

		r.Route("/governance", func(r chi.Router) {
			r.Get("/", s.handleGovernance)
			r.Get("/compliance", s.handleGovernanceCompliance)
			r.Get("/access", s.handleGovernanceAccess)
		})
	})

	return r
}

// ListenAndServe starts the HTTP server and the optional cache warmer
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.config.Server.AutoRefresh {
		s.warmer.Start()
		defer s.warmer.Stop()
	}

	srv := &http.Server{
		Addr:              s.config.Server.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithFields("dashboard API listening", map[string]interface{}{
			"addr": s.config.Server.Listen,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Cache exposes the shared cache, used by the warmer and tests
func (s *Server) Cache() *cache.Cache {
	return s.cache
}
