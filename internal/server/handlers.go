package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"

	"snowdash/internal/dashboard"
	"snowdash/internal/drilldown"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(map[string]string{"service": "snowdash"}))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(r.Context()); err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, Fail(http.StatusServiceUnavailable, "warehouse unreachable"))
		return
	}
	render.JSON(w, r, OK(map[string]string{"warehouse": "reachable"}))
}

// handleSession is the connection probe plus the monitoring-view check
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.SessionInfo(r.Context())
	if err != nil {
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, Fail(http.StatusBadGateway, err.Error()))
		return
	}

	missing, err := s.svc.RequiredViews(r.Context(), s.config.Warehouse.RawSchema, dashboard.QualityViews)
	payload := map[string]interface{}{
		"session":       info,
		"missing_views": missing,
	}
	if err != nil {
		payload["view_check_error"] = err.Error()
	}
	if len(missing) > 0 {
		payload["hint"] = fmt.Sprintf("Run %s to create the monitoring views", dashboard.QualitySetupScript)
	}
	render.JSON(w, r, OK(payload))
}

// handleRefresh drops every cached page and re-fetches synchronously, so
// the caller gets confirmation the warehouse round trip succeeded.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshes.Inc()
	s.cache.Clear()

	started := time.Now()
	quality := s.quality.FetchAll(r.Context())
	brokers := s.brokers.FetchAll(r.Context())
	risk := s.risk.FetchAll(r.Context())
	governance := s.governance.FetchAll(r.Context())

	render.JSON(w, r, OK(map[string]interface{}{
		"refreshed_at": time.Now(),
		"duration_ms":  time.Since(started).Milliseconds(),
		"degraded": map[string]bool{
			"quality":    quality.EntityScores.Degraded() || quality.Summary.Degraded(),
			"brokers":    brokers.Matrix.Degraded(),
			"risk":       risk.Dashboard.Degraded(),
			"governance": governance.PolicyEnforcement.Degraded(),
		},
	}))
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	page := s.quality.FetchAll(r.Context())
	countPage("quality", page.EntityScores.Degraded() || page.Summary.Degraded())
	render.JSON(w, r, OK(page))
}

func (s *Server) handleQualityEntities(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(s.quality.FetchAll(r.Context()).EntityScores))
}

// handleQualitySummary supports the entity/status/recent selectors
func (s *Server) handleQualitySummary(w http.ResponseWriter, r *http.Request) {
	summary := s.quality.FetchAll(r.Context()).Summary

	filter := dashboard.SummaryFilter{
		Entity: r.URL.Query().Get("entity"),
		Status: r.URL.Query().Get("status"),
	}
	if cast.ToBool(r.URL.Query().Get("recent")) {
		filter.Recent = time.Hour
	}

	filtered := summary
	filtered.Rows = filter.Apply(summary.Rows)
	render.JSON(w, r, OK(filtered))
}

func (s *Server) handleQualityRelationships(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(s.quality.FetchAll(r.Context()).Relationships))
}

func (s *Server) handleQualityIssues(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(s.quality.FetchAll(r.Context()).Issues))
}

func (s *Server) handleQualityDMFStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(s.quality.FetchAll(r.Context()).DMFStatus))
}

func (s *Server) handleQualityRowCounts(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(s.quality.FetchAll(r.Context()).RowCounts))
}

// handleDrilldown resolves and runs the problem-record query for a
// (table, metric) pair. The SQL text is part of the payload.
func (s *Server) handleDrilldown(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	metric := r.URL.Query().Get("metric")
	if table == "" || metric == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Fail(http.StatusBadRequest, "table and metric query parameters are required"))
		return
	}

	limit := cast.ToInt(r.URL.Query().Get("limit"))
	drilldownFetches.Inc()

	records, query, warnings := s.resolver.FetchProblemRecords(r.Context(), table, metric, limit)
	render.JSON(w, r, OK(map[string]interface{}{
		"records":  records,
		"query":    strings.TrimSpace(query),
		"warnings": warnings,
	}))
}

// handleDrilldownExport streams the problem records as a CSV attachment
func (s *Server) handleDrilldownExport(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	metric := r.URL.Query().Get("metric")
	if table == "" || metric == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Fail(http.StatusBadRequest, "table and metric query parameters are required"))
		return
	}

	limit := cast.ToInt(r.URL.Query().Get("limit"))
	records, _, warnings := s.resolver.FetchProblemRecords(r.Context(), table, metric, limit)

	data, err := records.CSV()
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, Fail(http.StatusInternalServerError, err.Error()))
		return
	}

	filename := drilldown.ExportFilename(table, metric, time.Now())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	for _, warning := range warnings {
		s.logger.WarnWithFields(warning, map[string]interface{}{"table": table, "metric": metric})
	}
	w.Write(data)
}

func (s *Server) handleBrokers(w http.ResponseWriter, r *http.Request) {
	page := s.brokers.FetchAll(r.Context())
	countPage("brokers", page.Matrix.Degraded())
	render.JSON(w, r, OK(page))
}

func (s *Server) handleBrokerTerritories(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(s.brokers.FetchAll(r.Context()).Territories))
}

func (s *Server) handleBrokerRankings(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(s.brokers.FetchAll(r.Context()).Rankings))
}

// handleBrokerDetail joins the per-broker drill-in with the parsed
// performance analysis from the intelligence query.
func (s *Server) handleBrokerDetail(w http.ResponseWriter, r *http.Request) {
	brokerID := chi.URLParam(r, "id")
	detail := s.brokers.FetchDetail(r.Context(), brokerID)

	var analysis *dashboard.PerformanceAnalysis
	for _, intel := range s.brokers.FetchAll(r.Context()).Intelligence.Rows {
		if intel.BrokerID == brokerID {
			a := intel.Analysis
			analysis = &a
			break
		}
	}

	render.JSON(w, r, OK(map[string]interface{}{
		"detail":               detail,
		"performance_analysis": analysis,
	}))
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	page := s.risk.FetchAll(r.Context())
	countPage("risk", page.Dashboard.Degraded())
	render.JSON(w, r, OK(page))
}

func (s *Server) handleRiskProfiles(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(s.risk.FetchAll(r.Context()).Profiles))
}

func (s *Server) handleRiskGeography(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(s.risk.FetchAll(r.Context()).Geography))
}

func (s *Server) handleRiskCorrelation(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(s.risk.FetchAll(r.Context()).Correlation))
}

func (s *Server) handleGovernance(w http.ResponseWriter, r *http.Request) {
	page := s.governance.FetchAll(r.Context())
	countPage("governance", page.PolicyEnforcement.Degraded())
	render.JSON(w, r, OK(page))
}

func (s *Server) handleGovernanceCompliance(w http.ResponseWriter, r *http.Request) {
	page := s.governance.FetchAll(r.Context())
	render.JSON(w, r, OK(map[string]interface{}{
		"compliance_score": dashboard.ComplianceScore(page.PolicyEnforcement.Rows),
		"policies":         len(page.PolicyEnforcement.Rows),
		"source":           page.PolicyEnforcement.Source,
		"warnings":         page.PolicyEnforcement.Warnings,
	}))
}

func (s *Server) handleGovernanceAccess(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK(s.governance.FetchAccessMonitoring(r.Context())))
}

func countPage(page string, degraded bool) {
	pageFetches.WithLabelValues(page).Inc()
	if degraded {
		degradedFetches.WithLabelValues(page).Inc()
	}
}
