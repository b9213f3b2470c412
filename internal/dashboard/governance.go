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

const (
	governanceCacheKey = "page:governance"
	accessCacheKey     = "page:governance:access"
)

// GovernancePage is the governance and compliance payload
type GovernancePage struct {
	PolicyEnforcement Result[PolicyEnforcement]     `json:"policy_enforcement"`
	MaskingPolicies   Result[GovernancePolicy]      `json:"masking_policies"`
	RowAccessPolicies Result[GovernancePolicy]      `json:"row_access_policies"`
	TagCompliance     Result[TagReference]          `json:"tag_compliance"`
	Classification    Result[ClassificationSummary] `json:"classification_summary"`
	EntityGovernance  Result[EntityGovernance]      `json:"entity_governance"`
}

// GovernanceStore fetches and memoizes governance monitoring data.
// Access monitoring reads ACCOUNT_USAGE, which lags and is expensive, so
// it uses its own longer TTL.
type GovernanceStore struct {
	svc       *snowflake.Service
	cache     *cache.Cache
	wh        models.Warehouse
	ttl       time.Duration
	accessTTL time.Duration
	logger    *observability.Logger
}

// NewGovernanceStore creates a governance store
func NewGovernanceStore(svc *snowflake.Service, c *cache.Cache, wh models.Warehouse, ttl, accessTTL time.Duration) *GovernanceStore {
	return &GovernanceStore{
		svc:       svc,
		cache:     c,
		wh:        wh,
		ttl:       ttl,
		accessTTL: accessTTL,
		logger:    observability.Default().WithFields(map[string]interface{}{"store": "governance"}),
	}
}

// FetchAll returns the governance page, reusing a cached copy inside the TTL
func (s *GovernanceStore) FetchAll(ctx context.Context) GovernancePage {
	value, _ := s.cache.Do(governanceCacheKey, s.ttl, func() (interface{}, error) {
		return s.fetch(context.WithoutCancel(ctx)), nil
	})
	return value.(GovernancePage)
}

// Refresh discards the cached page and fetches a fresh copy
func (s *GovernanceStore) Refresh(ctx context.Context) GovernancePage {
	s.cache.Delete(governanceCacheKey)
	return s.FetchAll(ctx)
}

func (s *GovernanceStore) fetch(ctx context.Context) GovernancePage {
	started := time.Now()
	page := GovernancePage{
		PolicyEnforcement: s.fetchPolicyEnforcement(ctx),
		MaskingPolicies:   s.fetchPolicies(ctx, "MASKING_POLICIES"),
		RowAccessPolicies: s.fetchPolicies(ctx, "ROW_ACCESS_POLICIES"),
		TagCompliance:     s.fetchTagCompliance(ctx),
		Classification:    s.fetchClassification(ctx),
		EntityGovernance:  s.fetchEntityGovernance(ctx),
	}
	s.logger.InfoWithFields("governance page fetched", map[string]interface{}{
		"duration_ms": time.Since(started).Milliseconds(),
		"policies":    len(page.PolicyEnforcement.Rows),
	})
	return page
}

func (s *GovernanceStore) fetchPolicyEnforcement(ctx context.Context) Result[PolicyEnforcement] {
	query := fmt.Sprintf(`SELECT
		POLICY_NAME, ENTITY_TYPE, ENTITY_NAME, ENFORCEMENT_STATUS,
		LAST_EVALUATED, COMPLIANCE_SCORE, VIOLATION_COUNT, POLICY_CATEGORY
		FROM %s.%s.POLICY_ENFORCEMENT_LOG
		WHERE LAST_EVALUATED >= DATEADD('day', -7, CURRENT_TIMESTAMP())
		ORDER BY LAST_EVALUATED DESC`,
		s.wh.Database, s.wh.GovernanceSchema)

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[PolicyEnforcement](fmt.Sprintf("Error fetching policy enforcement log: %v", err))
	}
	defer rows.Close()

	var entries []PolicyEnforcement
	for rows.Next() {
		var (
			policy, entityType, entity     sql.NullString
			status, category               sql.NullString
			evaluated                      sql.NullTime
			score                          sql.NullFloat64
			violations                     sql.NullInt64
		)
		if err := rows.Scan(&policy, &entityType, &entity, &status, &evaluated,
			&score, &violations, &category); err != nil {
			return Empty[PolicyEnforcement](fmt.Sprintf("Policy enforcement scan failed: %v", err))
		}
		entries = append(entries, PolicyEnforcement{
			PolicyName:        strOf(policy),
			EntityType:        strOf(entityType),
			EntityName:        strOf(entity),
			EnforcementStatus: strOf(status),
			LastEvaluated:     timeOf(evaluated),
			ComplianceScore:   floatOf(score),
			ViolationCount:    intOf(violations),
			PolicyCategory:    strOf(category),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[PolicyEnforcement](fmt.Sprintf("Policy enforcement iteration failed: %v", err))
	}
	return Live(entries)
}

// fetchPolicies reads policy definitions from INFORMATION_SCHEMA; the view
// name selects between masking and row access policies.
func (s *GovernanceStore) fetchPolicies(ctx context.Context, view string) Result[GovernancePolicy] {
	query := fmt.Sprintf(`SELECT
		POLICY_NAME, POLICY_KIND, POLICY_BODY, POLICY_SIGNATURE,
		CREATED, LAST_ALTERED, COMMENT
		FROM INFORMATION_SCHEMA.%s
		WHERE POLICY_DATABASE = ?
		ORDER BY CREATED DESC`, view)

	rows, err := s.svc.Query(ctx, query, s.wh.Database)
	if err != nil {
		return Empty[GovernancePolicy](fmt.Sprintf("Error fetching %s: %v", view, err))
	}
	defer rows.Close()

	var policies []GovernancePolicy
	for rows.Next() {
		var (
			name, kind, body, signature, comment sql.NullString
			created, altered                     sql.NullTime
		)
		if err := rows.Scan(&name, &kind, &body, &signature, &created, &altered, &comment); err != nil {
			return Empty[GovernancePolicy](fmt.Sprintf("%s scan failed: %v", view, err))
		}
		policies = append(policies, GovernancePolicy{
			PolicyName:      strOf(name),
			PolicyKind:      strOf(kind),
			PolicyBody:      strOf(body),
			PolicySignature: strOf(signature),
			Created:         timeOf(created),
			LastAltered:     timeOf(altered),
			Comment:         strOf(comment),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[GovernancePolicy](fmt.Sprintf("%s iteration failed: %v", view, err))
	}
	return Live(policies)
}

func (s *GovernanceStore) fetchTagCompliance(ctx context.Context) Result[TagReference] {
	query := `SELECT
		TAG_NAME, TAG_VALUE, OBJECT_TYPE, OBJECT_NAME, DOMAIN, APPLIED_AT
		FROM SNOWFLAKE.ACCOUNT_USAGE.TAG_REFERENCES
		WHERE TAG_DATABASE = ?
			AND DELETED IS NULL
			AND APPLIED_AT >= DATEADD('day', -30, CURRENT_TIMESTAMP())
		ORDER BY APPLIED_AT DESC`

	rows, err := s.svc.Query(ctx, query, s.wh.Database)
	if err != nil {
		return Empty[TagReference](fmt.Sprintf("Error fetching tag compliance: %v", err))
	}
	defer rows.Close()

	var tags []TagReference
	for rows.Next() {
		var (
			name, value, objType, objName, domain sql.NullString
			applied                               sql.NullTime
		)
		if err := rows.Scan(&name, &value, &objType, &objName, &domain, &applied); err != nil {
			return Empty[TagReference](fmt.Sprintf("Tag reference scan failed: %v", err))
		}
		tags = append(tags, TagReference{
			TagName:    strOf(name),
			TagValue:   strOf(value),
			ObjectType: strOf(objType),
			ObjectName: strOf(objName),
			Domain:     strOf(domain),
			AppliedAt:  timeOf(applied),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[TagReference](fmt.Sprintf("Tag reference iteration failed: %v", err))
	}
	return Live(tags)
}

func (s *GovernanceStore) fetchClassification(ctx context.Context) Result[ClassificationSummary] {
	query := `SELECT
		CLASSIFICATION_CATEGORY, CLASSIFICATION_NAME,
		COUNT(*) as OBJECT_COUNT,
		COUNT(DISTINCT OBJECT_DATABASE) as DATABASE_COUNT,
		COUNT(DISTINCT OBJECT_SCHEMA) as SCHEMA_COUNT
		FROM SNOWFLAKE.ACCOUNT_USAGE.TAG_REFERENCES
		WHERE TAG_NAME = 'DATA_CLASSIFICATION'
			AND DELETED IS NULL
			AND APPLIED_AT >= DATEADD('day', -30, CURRENT_TIMESTAMP())
		GROUP BY CLASSIFICATION_CATEGORY, CLASSIFICATION_NAME
		ORDER BY OBJECT_COUNT DESC`

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[ClassificationSummary](fmt.Sprintf("Error fetching classification summary: %v", err))
	}
	defer rows.Close()

	var summaries []ClassificationSummary
	for rows.Next() {
		var (
			category, name             sql.NullString
			objects, databases, schemas sql.NullInt64
		)
		if err := rows.Scan(&category, &name, &objects, &databases, &schemas); err != nil {
			return Empty[ClassificationSummary](fmt.Sprintf("Classification scan failed: %v", err))
		}
		summaries = append(summaries, ClassificationSummary{
			Category:      strOf(category),
			Name:          strOf(name),
			ObjectCount:   intOf(objects),
			DatabaseCount: intOf(databases),
			SchemaCount:   intOf(schemas),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[ClassificationSummary](fmt.Sprintf("Classification iteration failed: %v", err))
	}
	return Live(summaries)
}

func (s *GovernanceStore) fetchEntityGovernance(ctx context.Context) Result[EntityGovernance] {
	sharing := func(name string) string {
		return fmt.Sprintf("%s.%s.%s", s.wh.Database, s.wh.SharingSchema, name)
	}
	query := fmt.Sprintf(`SELECT
		'CUSTOMERS' as ENTITY_NAME,
		COUNT(*) as TOTAL_RECORDS,
		COUNT(CASE WHEN CUSTOMER_FIRST_NAME LIKE 'masked_%%' THEN 1 END) as MASKED_RECORDS,
		COUNT(CASE WHEN CUSTOMER_EMAIL IS NOT NULL THEN 1 END) as REFERENCED_RECORDS,
		'PII_PROTECTED' as GOVERNANCE_STATUS
		FROM %s
		UNION ALL
		SELECT 'CLAIMS', COUNT(*),
		COUNT(CASE WHEN CLAIM_AMOUNT_FILLED > 0 THEN 1 END),
		COUNT(CASE WHEN POLICY_NUMBER IS NOT NULL THEN 1 END),
		'FINANCIAL_PROTECTED'
		FROM %s
		UNION ALL
		SELECT 'BROKERS', COUNT(*),
		COUNT(CASE WHEN BROKER_ACTIVE = TRUE THEN 1 END),
		COUNT(CASE WHEN BROKER_ID IS NOT NULL THEN 1 END),
		'ROLE_PROTECTED'
		FROM %s`,
		sharing("SECURE_CUSTOMER_VIEW"),
		sharing("SECURE_CLAIM_VIEW"),
		sharing("SECURE_BROKER_VIEW"))

	rows, err := s.svc.Query(ctx, query)
	if err != nil {
		return Empty[EntityGovernance](fmt.Sprintf("Error fetching entity governance: %v", err))
	}
	defer rows.Close()

	var entities []EntityGovernance
	for rows.Next() {
		var (
			entity, status             sql.NullString
			total, protected, referenced sql.NullInt64
		)
		if err := rows.Scan(&entity, &total, &protected, &referenced, &status); err != nil {
			return Empty[EntityGovernance](fmt.Sprintf("Entity governance scan failed: %v", err))
		}
		entities = append(entities, EntityGovernance{
			EntityName:        strOf(entity),
			TotalRecords:      intOf(total),
			ProtectedRecords:  intOf(protected),
			ReferencedRecords: intOf(referenced),
			GovernanceStatus:  strOf(status),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[EntityGovernance](fmt.Sprintf("Entity governance iteration failed: %v", err))
	}
	return Live(entities)
}

// FetchAccessMonitoring returns the 7-day ACCOUNT_USAGE access patterns
func (s *GovernanceStore) FetchAccessMonitoring(ctx context.Context) Result[AccessPattern] {
	value, _ := s.cache.Do(accessCacheKey, s.accessTTL, func() (interface{}, error) {
		return s.fetchAccessMonitoring(context.WithoutCancel(ctx)), nil
	})
	return value.(Result[AccessPattern])
}

func (s *GovernanceStore) fetchAccessMonitoring(ctx context.Context) Result[AccessPattern] {
	query := `SELECT
		DATE_TRUNC('hour', START_TIME) as ACCESS_HOUR,
		USER_NAME, ROLE_NAME, WAREHOUSE_NAME, DATABASE_NAME, SCHEMA_NAME, QUERY_TYPE,
		COUNT(*) as QUERY_COUNT,
		SUM(TOTAL_ELAPSED_TIME) as TOTAL_TIME_MS
		FROM SNOWFLAKE.ACCOUNT_USAGE.QUERY_HISTORY
		WHERE START_TIME >= DATEADD('day', -7, CURRENT_TIMESTAMP())
			AND DATABASE_NAME = ?
			AND QUERY_TYPE IN ('SELECT', 'INSERT', 'UPDATE', 'DELETE')
		GROUP BY ACCESS_HOUR, USER_NAME, ROLE_NAME, WAREHOUSE_NAME,
			DATABASE_NAME, SCHEMA_NAME, QUERY_TYPE
		ORDER BY ACCESS_HOUR DESC`

	rows, err := s.svc.Query(ctx, query, s.wh.Database)
	if err != nil {
		return Empty[AccessPattern](fmt.Sprintf("Access monitoring data not available: %v", err))
	}
	defer rows.Close()

	var patterns []AccessPattern
	for rows.Next() {
		var (
			hour                                sql.NullTime
			user, role, warehouse               sql.NullString
			database, schema, queryType         sql.NullString
			count, elapsed                      sql.NullInt64
		)
		if err := rows.Scan(&hour, &user, &role, &warehouse, &database,
			&schema, &queryType, &count, &elapsed); err != nil {
			return Empty[AccessPattern](fmt.Sprintf("Access pattern scan failed: %v", err))
		}
		patterns = append(patterns, AccessPattern{
			AccessHour:    timeOf(hour),
			UserName:      strOf(user),
			RoleName:      strOf(role),
			WarehouseName: strOf(warehouse),
			DatabaseName:  strOf(database),
			SchemaName:    strOf(schema),
			QueryType:     strOf(queryType),
			QueryCount:    intOf(count),
			TotalTimeMS:   int64Of(elapsed),
		})
	}
	if err := rows.Err(); err != nil {
		return Empty[AccessPattern](fmt.Sprintf("Access pattern iteration failed: %v", err))
	}
	return Live(patterns)
}

// ComplianceScore is the percentage of enforcement entries currently in
// ENFORCED state. An empty log scores zero, not a hundred.
func ComplianceScore(entries []PolicyEnforcement) float64 {
	if len(entries) == 0 {
		return 0
	}
	enforced := 0
	for _, entry := range entries {
		if entry.EnforcementStatus == "ENFORCED" {
			enforced++
		}
	}
	return float64(enforced) * 100.0 / float64(len(entries))
}
