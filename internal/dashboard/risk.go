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

const riskCacheKey = "page:risk"

// RiskBrokerSummary is the reduced broker matrix slice the risk page shows
// alongside the customer-level data.
type RiskBrokerSummary struct {
	BrokerID           string              `json:"broker_id"`
	FirstName          string              `json:"broker_first_name"`
	LastName           string              `json:"broker_last_name"`
	Tier               string              `json:"broker_tier"`
	TotalCustomers     int                 `json:"total_customers"`
	AvgCustomerPremium float64             `json:"avg_customer_premium"`
	AvgCustomerRisk    float64             `json:"avg_customer_risk"`
	TotalPremiumVolume float64             `json:"total_premium_volume"`
	Analysis           PerformanceAnalysis `json:"broker_performance_analysis"`
	Active             bool                `json:"broker_active"`
}

// RiskPage is the risk-intelligence payload
type RiskPage struct {
	Dashboard   Result[RiskDashboardRow]  `json:"risk_dashboard"`
	Profiles    Result[RiskProfile]       `json:"risk_profiles"`
	Correlation Result[BrokerCorrelation] `json:"broker_correlation"`
	Geography   Result[GeographicRisk]    `json:"geographic_risk"`
	Matrix      Result[RiskBrokerSummary] `json:"broker_matrix"`
}

// RiskStore fetches and memoizes the risk analytics page
type RiskStore struct {
	svc    *snowflake.Service
	cache  *cache.Cache
	wh     models.Warehouse
	ttl    time.Duration
	logger *observability.Logger
}

// NewRiskStore creates a risk store with the page memoization window
func NewRiskStore(svc *snowflake.Service, c *cache.Cache, wh models.Warehouse, ttl time.Duration) *RiskStore {
	return &RiskStore{
		svc:    svc,
		cache:  c,
		wh:     wh,
		ttl:    ttl,
		logger: observability.Default().WithFields(map[string]interface{}{"store": "risk"}),
	}
}

func (s *RiskStore) analyticsObject(name string) string {
	return fmt.Sprintf("%s.%s.%s", s.wh.Database, s.wh.AnalyticsSchema, name)
}

// FetchAll returns the risk page, reusing a cached copy inside the TTL
func (s *RiskStore) FetchAll(ctx context.Context) RiskPage {
	value, _ := s.cache.Do(riskCacheKey, s.ttl, func() (interface{}, error) {
		return s.fetch(context.WithoutCancel(ctx)), nil
	})
	return value.(RiskPage)
}

// Refresh discards the cached page and fetches a fresh copy
func (s *RiskStore) Refresh(ctx context.Context) RiskPage {
	s.cache.Delete(riskCacheKey)
	return s.FetchAll(ctx)
}

func (s *RiskStore) fetch(ctx context.Context) RiskPage {
	started := time.Now()
	page := RiskPage{
		Dashboard:   s.fetchDashboard(ctx),
		Profiles:    s.fetchProfiles(ctx),
		Correlation: s.fetchCorrelation(ctx),
		Geography:   s.fetchGeography(ctx),
		Matrix:      s.fetchMatrix(ctx),
	}
	s.logger.InfoWithFields("risk page fetched", map[string]interface{}{
		"duration_ms": time.Since(started).Milliseconds(),
		"customers":   len(page.Dashboard.Rows),
	})
	return page
}

func (s *RiskStore) fetchDashboard(ctx context.Context) Result[RiskDashboardRow] {
	query := fmt.Sprintf(`SELECT
		POLICY_NUMBER, AGE, CUSTOMER_SEGMENT, CUSTOMER_RISK_SCORE,
		POLICY_ANNUAL_PREMIUM, CLAIM_AMOUNT_FILLED, CUSTOMER_REGION,
		BROKER_ID, BROKER_TIER, BROKER_CUSTOMER_COUNT, BROKER_AVG_CLAIM,
		FINAL_RISK_LEVEL, BROKER_PERFORMANCE_ANALYSIS, INSURED_SEX,
		INSURED_OCCUPATION, HAS_CLAIM, FRAUD_REPORTED_FILLED
		FROM %s
		WHERE BROKER_ID IS NOT NULL`,
		s.analyticsObject("RISK_INTELLIGENCE_DASHBOARD"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[RiskDashboardRow](fmt.Sprintf("Error fetching risk analytics data: %v", err))
	}
	defer rows.Close()

	var customers []RiskDashboardRow
	for rows.Next() {
		var (
			policy, segment, region, brokerID sql.NullString
			tier, level, analysis, sex, occ   sql.NullString
			age, brokerCount                  sql.NullInt64
			riskScore, premium, claim         sql.NullFloat64
			brokerAvgClaim                    sql.NullFloat64
			hasClaim, fraud                   sql.NullBool
		)
		if err := rows.Scan(&policy, &age, &segment, &riskScore, &premium, &claim,
			&region, &brokerID, &tier, &brokerCount, &brokerAvgClaim, &level,
			&analysis, &sex, &occ, &hasClaim, &fraud); err != nil {
			return Empty[RiskDashboardRow](fmt.Sprintf("Risk dashboard scan failed: %v", err))
		}
		customers = append(customers, RiskDashboardRow{
			PolicyNumber:        strOf(policy),
			Age:                 intPtrOf(age),
			CustomerSegment:     strOf(segment),
			CustomerRiskScore:   floatOf(riskScore),
			PolicyAnnualPremium: floatOf(premium),
			ClaimAmount:         floatOf(claim),
			CustomerRegion:      strOf(region),
			BrokerID:            strOf(brokerID),
			BrokerTier:          strOf(tier),
			BrokerCustomerCount: intOf(brokerCount),
			BrokerAvgClaim:      floatOf(brokerAvgClaim),
			FinalRiskLevel:      strOf(level),
			Analysis:            ParsePerformanceAnalysis(strOf(analysis)),
			InsuredSex:          strOf(sex),
			InsuredOccupation:   strOf(occ),
			HasClaim:            boolOf(hasClaim),
			FraudReported:       boolOf(fraud),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[RiskDashboardRow](fmt.Sprintf("Risk dashboard iteration failed: %v", err))
	}
	return Live(customers)
}

func (s *RiskStore) fetchProfiles(ctx context.Context) Result[RiskProfile] {
	query := fmt.Sprintf(`SELECT
		CUSTOMER_SEGMENT,
		CUSTOMER_REGION,
		COUNT(*) as CUSTOMER_COUNT,
		AVG(CUSTOMER_RISK_SCORE) as AVG_RISK_SCORE,
		AVG(POLICY_ANNUAL_PREMIUM) as AVG_PREMIUM,
		COUNT(CASE WHEN FINAL_RISK_LEVEL = 'HIGH' THEN 1 END) as HIGH_RISK_COUNT,
		COUNT(CASE WHEN FINAL_RISK_LEVEL = 'MEDIUM' THEN 1 END) as MEDIUM_RISK_COUNT,
		COUNT(CASE WHEN FINAL_RISK_LEVEL = 'LOW' THEN 1 END) as LOW_RISK_COUNT,
		SUM(CLAIM_AMOUNT_FILLED) as TOTAL_CLAIMS
		FROM %s
		GROUP BY CUSTOMER_SEGMENT, CUSTOMER_REGION`,
		s.analyticsObject("RISK_INTELLIGENCE_DASHBOARD"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[RiskProfile](fmt.Sprintf("Error fetching risk profiles: %v", err))
	}
	defer rows.Close()

	var profiles []RiskProfile
	for rows.Next() {
		var (
			segment, region          sql.NullString
			count, high, medium, low sql.NullInt64
			risk, premium, claims    sql.NullFloat64
		)
		if err := rows.Scan(&segment, &region, &count, &risk, &premium,
			&high, &medium, &low, &claims); err != nil {
			return Empty[RiskProfile](fmt.Sprintf("Risk profile scan failed: %v", err))
		}
		profiles = append(profiles, RiskProfile{
			CustomerSegment: strOf(segment),
			CustomerRegion:  strOf(region),
			CustomerCount:   intOf(count),
			AvgRiskScore:    floatOf(risk),
			AvgPremium:      floatOf(premium),
			HighRiskCount:   intOf(high),
			MediumRiskCount: intOf(medium),
			LowRiskCount:    intOf(low),
			TotalClaims:     floatOf(claims),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[RiskProfile](fmt.Sprintf("Risk profile iteration failed: %v", err))
	}
	return Live(profiles)
}

func (s *RiskStore) fetchCorrelation(ctx context.Context) Result[BrokerCorrelation] {
	query := fmt.Sprintf(`SELECT
		BROKER_ID,
		BROKER_TIER,
		BROKER_CUSTOMER_COUNT,
		BROKER_AVG_CLAIM,
		COUNT(*) as MANAGED_CUSTOMERS,
		AVG(CUSTOMER_RISK_SCORE) as PORTFOLIO_RISK_SCORE,
		COUNT(CASE WHEN FINAL_RISK_LEVEL = 'HIGH' THEN 1 END) as HIGH_RISK_CUSTOMERS,
		AVG(POLICY_ANNUAL_PREMIUM) as AVG_PORTFOLIO_PREMIUM,
		SUM(CLAIM_AMOUNT_FILLED) as TOTAL_PORTFOLIO_CLAIMS,
		MAX(CUSTOMER_REGION) as PRIMARY_REGION,
		ANY_VALUE(BROKER_PERFORMANCE_ANALYSIS) as BROKER_PERFORMANCE_ANALYSIS
		FROM %s
		WHERE BROKER_ID IS NOT NULL
		GROUP BY BROKER_ID, BROKER_TIER, BROKER_CUSTOMER_COUNT, BROKER_AVG_CLAIM`,
		s.analyticsObject("RISK_INTELLIGENCE_DASHBOARD"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[BrokerCorrelation](fmt.Sprintf("Error fetching broker correlation: %v", err))
	}
	defer rows.Close()

	var correlations []BrokerCorrelation
	for rows.Next() {
		var (
			id, tier, region, analysis       sql.NullString
			brokerCount, managed, highRisk   sql.NullInt64
			brokerAvgClaim, portfolioRisk    sql.NullFloat64
			avgPremium, totalClaims          sql.NullFloat64
		)
		if err := rows.Scan(&id, &tier, &brokerCount, &brokerAvgClaim, &managed,
			&portfolioRisk, &highRisk, &avgPremium, &totalClaims, &region, &analysis); err != nil {
			return Empty[BrokerCorrelation](fmt.Sprintf("Broker correlation scan failed: %v", err))
		}
		correlations = append(correlations, BrokerCorrelation{
			BrokerID:             strOf(id),
			BrokerTier:           strOf(tier),
			BrokerCustomerCount:  intOf(brokerCount),
			BrokerAvgClaim:       floatOf(brokerAvgClaim),
			ManagedCustomers:     intOf(managed),
			PortfolioRiskScore:   floatOf(portfolioRisk),
			HighRiskCustomers:    intOf(highRisk),
			AvgPortfolioPremium:  floatOf(avgPremium),
			TotalPortfolioClaims: floatOf(totalClaims),
			PrimaryRegion:        strOf(region),
			Analysis:             ParsePerformanceAnalysis(strOf(analysis)),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[BrokerCorrelation](fmt.Sprintf("Broker correlation iteration failed: %v", err))
	}
	return Live(correlations)
}

func (s *RiskStore) fetchGeography(ctx context.Context) Result[GeographicRisk] {
	query := fmt.Sprintf(`SELECT
		CUSTOMER_REGION,
		COUNT(*) as TOTAL_CUSTOMERS,
		AVG(CUSTOMER_RISK_SCORE) as REGION_AVG_RISK,
		COUNT(CASE WHEN FINAL_RISK_LEVEL = 'HIGH' THEN 1 END) as HIGH_RISK_COUNT,
		COUNT(DISTINCT BROKER_ID) as ACTIVE_BROKERS,
		AVG(POLICY_ANNUAL_PREMIUM) as REGION_AVG_PREMIUM,
		SUM(CLAIM_AMOUNT_FILLED) as REGION_TOTAL_CLAIMS
		FROM %s
		GROUP BY CUSTOMER_REGION
		ORDER BY REGION_AVG_RISK DESC`,
		s.analyticsObject("RISK_INTELLIGENCE_DASHBOARD"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[GeographicRisk](fmt.Sprintf("Error fetching geographic risk: %v", err))
	}
	defer rows.Close()

	var regions []GeographicRisk
	for rows.Next() {
		var (
			region                    sql.NullString
			customers, high, brokers  sql.NullInt64
			avgRisk, premium, claims  sql.NullFloat64
		)
		if err := rows.Scan(&region, &customers, &avgRisk, &high, &brokers,
			&premium, &claims); err != nil {
			return Empty[GeographicRisk](fmt.Sprintf("Geographic risk scan failed: %v", err))
		}
		regions = append(regions, GeographicRisk{
			Region:         strOf(region),
			TotalCustomers: intOf(customers),
			AvgRisk:        floatOf(avgRisk),
			HighRiskCount:  intOf(high),
			ActiveBrokers:  intOf(brokers),
			AvgPremium:     floatOf(premium),
			TotalClaims:    floatOf(claims),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[GeographicRisk](fmt.Sprintf("Geographic risk iteration failed: %v", err))
	}
	return Live(regions)
}

func (s *RiskStore) fetchMatrix(ctx context.Context) Result[RiskBrokerSummary] {
	query := fmt.Sprintf(`SELECT
		BROKER_ID, BROKER_FIRST_NAME, BROKER_LAST_NAME, BROKER_TIER,
		TOTAL_CUSTOMERS, AVG_CUSTOMER_PREMIUM, AVG_CUSTOMER_RISK,
		TOTAL_PREMIUM_VOLUME, BROKER_PERFORMANCE_ANALYSIS, BROKER_ACTIVE
		FROM %s
		WHERE BROKER_ACTIVE = TRUE
		ORDER BY TOTAL_PREMIUM_VOLUME DESC`,
		s.analyticsObject("BROKER_PERFORMANCE_MATRIX"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[RiskBrokerSummary](fmt.Sprintf("Error fetching broker matrix: %v", err))
	}
	defer rows.Close()

	var brokers []RiskBrokerSummary
	for rows.Next() {
		var (
			id, first, last, tier, analysis sql.NullString
			total                           sql.NullInt64
			avgPremium, avgRisk, volume     sql.NullFloat64
			active                          sql.NullBool
		)
		if err := rows.Scan(&id, &first, &last, &tier, &total, &avgPremium,
			&avgRisk, &volume, &analysis, &active); err != nil {
			return Empty[RiskBrokerSummary](fmt.Sprintf("Broker matrix scan failed: %v", err))
		}
		brokers = append(brokers, RiskBrokerSummary{
			BrokerID:           strOf(id),
			FirstName:          strOf(first),
			LastName:           strOf(last),
			Tier:               strOf(tier),
			TotalCustomers:     intOf(total),
			AvgCustomerPremium: floatOf(avgPremium),
			AvgCustomerRisk:    floatOf(avgRisk),
			TotalPremiumVolume: floatOf(volume),
			Analysis:           ParsePerformanceAnalysis(strOf(analysis)),
			Active:             boolOf(active),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[RiskBrokerSummary](fmt.Sprintf("Broker matrix iteration failed: %v", err))
	}
	return Live(brokers)
}
