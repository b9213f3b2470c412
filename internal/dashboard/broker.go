package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"snowdash/internal/cache"
	"snowdash/internal/observability"
	"snowdash/internal/snowflake"
	"snowdash/pkg/models"
)

const brokerCacheKey = "page:brokers"

// BrokerPage is the broker-performance payload
type BrokerPage struct {
	Matrix       Result[BrokerPerformanceRow] `json:"broker_matrix"`
	Intelligence Result[BrokerIntelligence]   `json:"broker_intelligence"`
	Territories  Result[TerritoryPerformance] `json:"territory_performance"`
	Rankings     Result[BrokerRanking]        `json:"broker_rankings"`
}

// BrokerDetail is the per-broker drill-in: portfolio composition and risk
// trajectory insights.
type BrokerDetail struct {
	BrokerID   string                   `json:"broker_id"`
	Portfolio  Result[PortfolioSegment] `json:"portfolio"`
	RiskTrends Result[RiskTrend]        `json:"risk_trends"`
}

// BrokerStore fetches and memoizes broker performance analytics
type BrokerStore struct {
	svc       *snowflake.Service
	cache     *cache.Cache
	wh        models.Warehouse
	ttl       time.Duration
	detailTTL time.Duration
	logger    *observability.Logger
}

// NewBrokerStore creates a broker store. Detail fetches use a longer
// memoization window than the page itself.
func NewBrokerStore(svc *snowflake.Service, c *cache.Cache, wh models.Warehouse, ttl, detailTTL time.Duration) *BrokerStore {
	return &BrokerStore{
		svc:       svc,
		cache:     c,
		wh:        wh,
		ttl:       ttl,
		detailTTL: detailTTL,
		logger:    observability.Default().WithFields(map[string]interface{}{"store": "brokers"}),
	}
}

func (s *BrokerStore) analyticsObject(name string) string {
	return fmt.Sprintf("%s.%s.%s", s.wh.Database, s.wh.AnalyticsSchema, name)
}

// FetchAll returns the broker page, reusing a cached copy inside the TTL
func (s *BrokerStore) FetchAll(ctx context.Context) BrokerPage {
	value, _ := s.cache.Do(brokerCacheKey, s.ttl, func() (interface{}, error) {
		return s.fetch(context.WithoutCancel(ctx)), nil
	})
	return value.(BrokerPage)
}

// Refresh discards the cached page and fetches a fresh copy
func (s *BrokerStore) Refresh(ctx context.Context) BrokerPage {
	s.cache.Delete(brokerCacheKey)
	return s.FetchAll(ctx)
}

func (s *BrokerStore) fetch(ctx context.Context) BrokerPage {
	started := time.Now()
	page := BrokerPage{
		Matrix:       s.fetchMatrix(ctx),
		Intelligence: s.fetchIntelligence(ctx),
		Territories:  s.fetchTerritories(ctx),
		Rankings:     s.fetchRankings(ctx),
	}
	s.logger.InfoWithFields("broker page fetched", map[string]interface{}{
		"duration_ms": time.Since(started).Milliseconds(),
		"brokers":     len(page.Matrix.Rows),
	})
	return page
}

func (s *BrokerStore) fetchMatrix(ctx context.Context) Result[BrokerPerformanceRow] {
	query := fmt.Sprintf(`SELECT
		BROKER_ID, BROKER_FIRST_NAME, BROKER_LAST_NAME, BROKER_OFFICE,
		BROKER_SATISFACTION, BROKER_EXPERIENCE, BROKER_TRAINING, BROKER_TIER,
		BROKER_ACTIVE, TOTAL_CUSTOMERS, CUSTOMERS_WITH_CLAIMS,
		AVG_CUSTOMER_PREMIUM, TOTAL_PREMIUM_VOLUME, AVG_CLAIM_AMOUNT,
		TOTAL_CLAIM_AMOUNT, TERRITORY_ADJUSTED_PREMIUM, AVG_CUSTOMER_RISK,
		FRAUD_CASES, CUSTOMER_REGION, CUSTOMERS_IN_REGION
		FROM %s
		WHERE BROKER_ACTIVE = TRUE
		ORDER BY BROKER_TIER DESC, TOTAL_PREMIUM_VOLUME DESC`,
		s.analyticsObject("BROKER_PERFORMANCE_MATRIX"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[BrokerPerformanceRow](fmt.Sprintf("Error fetching broker performance matrix: %v", err))
	}
	defer rows.Close()

	var brokers []BrokerPerformanceRow
	for rows.Next() {
		var (
			id, first, last, office, tier, region       sql.NullString
			satisfaction, training                      sql.NullFloat64
			experience, total, withClaims, fraudCases   sql.NullInt64
			inRegion                                    sql.NullInt64
			avgPremium, volume, avgClaim, totalClaim    sql.NullFloat64
			territoryPremium, avgRisk                   sql.NullFloat64
			active                                      sql.NullBool
		)
		if err := rows.Scan(&id, &first, &last, &office, &satisfaction, &experience,
			&training, &tier, &active, &total, &withClaims, &avgPremium, &volume,
			&avgClaim, &totalClaim, &territoryPremium, &avgRisk, &fraudCases,
			&region, &inRegion); err != nil {
			return Empty[BrokerPerformanceRow](fmt.Sprintf("Broker matrix scan failed: %v", err))
		}
		brokers = append(brokers, BrokerPerformanceRow{
			BrokerID:                 strOf(id),
			FirstName:                strOf(first),
			LastName:                 strOf(last),
			Office:                   strOf(office),
			Satisfaction:             floatOf(satisfaction),
			Experience:               intOf(experience),
			Training:                 floatOf(training),
			Tier:                     strOf(tier),
			Active:                   boolOf(active),
			TotalCustomers:           intOf(total),
			CustomersWithClaims:      intOf(withClaims),
			AvgCustomerPremium:       floatOf(avgPremium),
			TotalPremiumVolume:       floatOf(volume),
			AvgClaimAmount:           floatOf(avgClaim),
			TotalClaimAmount:         floatOf(totalClaim),
			TerritoryAdjustedPremium: floatOf(territoryPremium),
			AvgCustomerRisk:          floatOf(avgRisk),
			FraudCases:               intOf(fraudCases),
			CustomerRegion:           strOf(region),
			CustomersInRegion:        intOf(inRegion),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[BrokerPerformanceRow](fmt.Sprintf("Broker matrix iteration failed: %v", err))
	}
	return Live(brokers)
}

func (s *BrokerStore) fetchIntelligence(ctx context.Context) Result[BrokerIntelligence] {
	query := fmt.Sprintf(`SELECT
		BROKER_ID,
		BROKER_PERFORMANCE_ANALYSIS,
		COUNT(*) as CUSTOMER_COUNT,
		AVG(CUSTOMER_RISK_SCORE) as AVG_CUSTOMER_RISK_SCORE,
		COUNT(CASE WHEN FINAL_RISK_LEVEL = 'HIGH' THEN 1 END) as HIGH_RISK_CUSTOMERS,
		COUNT(CASE WHEN CUSTOMER_SEGMENT LIKE '%%PREMIUM%%' THEN 1 END) as PREMIUM_CUSTOMERS,
		AVG(POLICY_ANNUAL_PREMIUM) as AVG_PREMIUM,
		SUM(CLAIM_AMOUNT_FILLED) as TOTAL_CLAIMS
		FROM %s
		WHERE BROKER_ID IS NOT NULL
		GROUP BY BROKER_ID, BROKER_PERFORMANCE_ANALYSIS`,
		s.analyticsObject("RISK_INTELLIGENCE_DASHBOARD"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[BrokerIntelligence](fmt.Sprintf("Error fetching broker intelligence: %v", err))
	}
	defer rows.Close()

	var intel []BrokerIntelligence
	for rows.Next() {
		var (
			id, analysis               sql.NullString
			count, highRisk, premium   sql.NullInt64
			avgRisk, avgPrem, totalCl  sql.NullFloat64
		)
		if err := rows.Scan(&id, &analysis, &count, &avgRisk, &highRisk,
			&premium, &avgPrem, &totalCl); err != nil {
			return Empty[BrokerIntelligence](fmt.Sprintf("Broker intelligence scan failed: %v", err))
		}
		intel = append(intel, BrokerIntelligence{
			BrokerID:             strOf(id),
			Analysis:             ParsePerformanceAnalysis(strOf(analysis)),
			CustomerCount:        intOf(count),
			AvgCustomerRiskScore: floatOf(avgRisk),
			HighRiskCustomers:    intOf(highRisk),
			PremiumCustomers:     intOf(premium),
			AvgPremium:           floatOf(avgPrem),
			TotalClaims:          floatOf(totalCl),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[BrokerIntelligence](fmt.Sprintf("Broker intelligence iteration failed: %v", err))
	}
	return Live(intel)
}

func (s *BrokerStore) fetchTerritories(ctx context.Context) Result[TerritoryPerformance] {
	query := fmt.Sprintf(`SELECT
		CUSTOMER_REGION,
		COUNT(DISTINCT BROKER_ID) as ACTIVE_BROKERS,
		COUNT(*) as TOTAL_CUSTOMERS,
		AVG(AVG_CUSTOMER_PREMIUM) as REGION_AVG_PREMIUM,
		SUM(TOTAL_PREMIUM_VOLUME) as REGION_PREMIUM_VOLUME,
		AVG(AVG_CUSTOMER_RISK) as REGION_RISK_SCORE,
		SUM(FRAUD_CASES) as REGION_FRAUD_CASES,
		AVG(BROKER_SATISFACTION) as REGION_SATISFACTION
		FROM %s
		WHERE BROKER_ACTIVE = TRUE
		GROUP BY CUSTOMER_REGION
		ORDER BY REGION_PREMIUM_VOLUME DESC`,
		s.analyticsObject("BROKER_PERFORMANCE_MATRIX"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[TerritoryPerformance](fmt.Sprintf("Error fetching territory performance: %v", err))
	}
	defer rows.Close()

	var territories []TerritoryPerformance
	for rows.Next() {
		var (
			region                       sql.NullString
			brokers, customers, fraud    sql.NullInt64
			avgPremium, volume           sql.NullFloat64
			risk, satisfaction           sql.NullFloat64
		)
		if err := rows.Scan(&region, &brokers, &customers, &avgPremium, &volume,
			&risk, &fraud, &satisfaction); err != nil {
			return Empty[TerritoryPerformance](fmt.Sprintf("Territory performance scan failed: %v", err))
		}
		territories = append(territories, TerritoryPerformance{
			Region:         strOf(region),
			ActiveBrokers:  intOf(brokers),
			TotalCustomers: intOf(customers),
			AvgPremium:     floatOf(avgPremium),
			PremiumVolume:  floatOf(volume),
			RiskScore:      floatOf(risk),
			FraudCases:     intOf(fraud),
			Satisfaction:   floatOf(satisfaction),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[TerritoryPerformance](fmt.Sprintf("Territory performance iteration failed: %v", err))
	}
	return Live(territories)
}

func (s *BrokerStore) fetchRankings(ctx context.Context) Result[BrokerRanking] {
	query := fmt.Sprintf(`SELECT
		BROKER_ID,
		BROKER_FIRST_NAME || ' ' || BROKER_LAST_NAME as BROKER_NAME,
		BROKER_TIER,
		TOTAL_PREMIUM_VOLUME,
		AVG_CUSTOMER_RISK,
		BROKER_SATISFACTION,
		CUSTOMERS_WITH_CLAIMS,
		TOTAL_CUSTOMERS,
		ROUND((CUSTOMERS_WITH_CLAIMS * 100.0) / TOTAL_CUSTOMERS, 1) as CLAIMS_RATIO,
		RANK() OVER (ORDER BY TOTAL_PREMIUM_VOLUME DESC) as VOLUME_RANK,
		RANK() OVER (ORDER BY AVG_CUSTOMER_RISK ASC) as RISK_RANK,
		RANK() OVER (ORDER BY BROKER_SATISFACTION DESC) as SATISFACTION_RANK
		FROM %s
		WHERE BROKER_ACTIVE = TRUE AND TOTAL_CUSTOMERS > 0`,
		s.analyticsObject("BROKER_PERFORMANCE_MATRIX"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[BrokerRanking](fmt.Sprintf("Error fetching broker rankings: %v", err))
	}
	defer rows.Close()

	var rankings []BrokerRanking
	for rows.Next() {
		var (
			id, name, tier                   sql.NullString
			volume, avgRisk, satisfaction    sql.NullFloat64
			withClaims, total                sql.NullInt64
			claimsRatio                      sql.NullFloat64
			volumeRank, riskRank, satRank    sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &tier, &volume, &avgRisk, &satisfaction,
			&withClaims, &total, &claimsRatio, &volumeRank, &riskRank, &satRank); err != nil {
			return Empty[BrokerRanking](fmt.Sprintf("Broker ranking scan failed: %v", err))
		}
		rankings = append(rankings, BrokerRanking{
			BrokerID:            strOf(id),
			BrokerName:          strOf(name),
			Tier:                strOf(tier),
			TotalPremiumVolume:  floatOf(volume),
			AvgCustomerRisk:     floatOf(avgRisk),
			Satisfaction:        floatOf(satisfaction),
			CustomersWithClaims: intOf(withClaims),
			TotalCustomers:      intOf(total),
			ClaimsRatio:         floatOf(claimsRatio),
			VolumeRank:          intOf(volumeRank),
			RiskRank:            intOf(riskRank),
			SatisfactionRank:    intOf(satRank),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[BrokerRanking](fmt.Sprintf("Broker ranking iteration failed: %v", err))
	}
	return Live(rankings)
}

// FetchDetail returns the portfolio drill-in for one broker. The broker id
// is bound as a parameter, never interpolated into the statement.
func (s *BrokerStore) FetchDetail(ctx context.Context, brokerID string) BrokerDetail {
	key := "broker:detail:" + brokerID
	value, _ := s.cache.Do(key, s.detailTTL, func() (interface{}, error) {
		fillCtx := context.WithoutCancel(ctx)
		return BrokerDetail{
			BrokerID:   brokerID,
			Portfolio:  s.fetchPortfolio(fillCtx, brokerID),
			RiskTrends: s.fetchRiskTrends(fillCtx, brokerID),
		}, nil
	})
	return value.(BrokerDetail)
}

func (s *BrokerStore) fetchPortfolio(ctx context.Context, brokerID string) Result[PortfolioSegment] {
	query := fmt.Sprintf(`SELECT
		CUSTOMER_SEGMENT,
		COUNT(*) as CUSTOMER_COUNT,
		AVG(CUSTOMER_RISK_SCORE) as AVG_RISK_SCORE,
		AVG(POLICY_ANNUAL_PREMIUM) as AVG_PREMIUM,
		SUM(CLAIM_AMOUNT_FILLED) as TOTAL_CLAIMS,
		COUNT(CASE WHEN FINAL_RISK_LEVEL = 'HIGH' THEN 1 END) as HIGH_RISK_COUNT
		FROM %s
		WHERE BROKER_ID = ?
		GROUP BY CUSTOMER_SEGMENT
		ORDER BY CUSTOMER_COUNT DESC`,
		s.analyticsObject("RISK_INTELLIGENCE_DASHBOARD"))

	rows, err := s.svc.Query(ctx, query, brokerID)
	if err != nil {
		return Empty[PortfolioSegment](fmt.Sprintf("Detailed analytics not available for broker %s: %v", brokerID, err))
	}
	defer rows.Close()

	var segments []PortfolioSegment
	for rows.Next() {
		var (
			segment               sql.NullString
			count, highRisk       sql.NullInt64
			risk, premium, claims sql.NullFloat64
		)
		if err := rows.Scan(&segment, &count, &risk, &premium, &claims, &highRisk); err != nil {
			return Empty[PortfolioSegment](fmt.Sprintf("Portfolio segment scan failed: %v", err))
		}
		segments = append(segments, PortfolioSegment{
			CustomerSegment: strOf(segment),
			CustomerCount:   intOf(count),
			AvgRiskScore:    floatOf(risk),
			AvgPremium:      floatOf(premium),
			TotalClaims:     floatOf(claims),
			HighRiskCount:   intOf(highRisk),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[PortfolioSegment](fmt.Sprintf("Portfolio iteration failed: %v", err))
	}
	return Live(segments)
}

func (s *BrokerStore) fetchRiskTrends(ctx context.Context, brokerID string) Result[RiskTrend] {
	query := fmt.Sprintf(`SELECT
		FINAL_RISK_LEVEL,
		COUNT(*) as CUSTOMER_COUNT,
		AVG(CUSTOMER_RISK_SCORE) as AVG_SCORE,
		RISK_TRAJECTORY_PREDICTION
		FROM %s
		WHERE BROKER_ID = ?
		GROUP BY FINAL_RISK_LEVEL, RISK_TRAJECTORY_PREDICTION`,
		s.analyticsObject("RISK_INTELLIGENCE_DASHBOARD"))

	rows, err := s.svc.Query(ctx, query, brokerID)
	if err != nil {
		return Empty[RiskTrend](fmt.Sprintf("Risk trends not available for broker %s: %v", brokerID, err))
	}
	defer rows.Close()

	var trends []RiskTrend
	for rows.Next() {
		var (
			level, prediction sql.NullString
			count             sql.NullInt64
			score             sql.NullFloat64
		)
		if err := rows.Scan(&level, &count, &score, &prediction); err != nil {
			return Empty[RiskTrend](fmt.Sprintf("Risk trend scan failed: %v", err))
		}
		trends = append(trends, RiskTrend{
			FinalRiskLevel: strOf(level),
			CustomerCount:  intOf(count),
			AvgScore:       floatOf(score),
			Trajectory:     ParseRiskTrajectory(strOf(prediction)),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[RiskTrend](fmt.Sprintf("Risk trend iteration failed: %v", err))
	}
	return Live(trends)
}
