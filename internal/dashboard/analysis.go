package dashboard

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// PerformanceAnalysis is the scoring blob the warehouse computes per broker.
// The blob is produced server-side; we only decode it, we never recompute
// the score.
type PerformanceAnalysis struct {
	TotalScore              float64 `json:"total_score"`
	PerformanceTier         string  `json:"performance_tier"`
	SatisfactionComponent   float64 `json:"satisfaction_component"`
	ExperienceComponent     float64 `json:"experience_component"`
	TrainingComponent       float64 `json:"training_component"`
	PortfolioComponent      float64 `json:"portfolio_component"`
	RiskManagementComponent float64 `json:"risk_management_component"`
}

// RiskTrajectory is the predicted risk movement blob attached to each
// customer row.
type RiskTrajectory struct {
	Trajectory         string  `json:"trajectory"`
	Confidence         float64 `json:"confidence"`
	PredictedRiskLevel string  `json:"predicted_risk_level"`
}

// ParsePerformanceAnalysis decodes the raw VARIANT column. Absent or
// malformed fields fall back to zero scores and an UNKNOWN tier rather
// than failing the row.
func ParsePerformanceAnalysis(raw string) PerformanceAnalysis {
	analysis := PerformanceAnalysis{PerformanceTier: "UNKNOWN"}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return analysis
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return analysis
	}

	analysis.TotalScore = cast.ToFloat64(fields["total_score"])
	if tier := cast.ToString(fields["performance_tier"]); tier != "" {
		analysis.PerformanceTier = tier
	}
	analysis.SatisfactionComponent = cast.ToFloat64(fields["satisfaction_component"])
	analysis.ExperienceComponent = cast.ToFloat64(fields["experience_component"])
	analysis.TrainingComponent = cast.ToFloat64(fields["training_component"])
	analysis.PortfolioComponent = cast.ToFloat64(fields["portfolio_component"])
	analysis.RiskManagementComponent = cast.ToFloat64(fields["risk_management_component"])
	return analysis
}

// ParseRiskTrajectory decodes the trajectory prediction blob with UNKNOWN
// defaults for absent fields.
func ParseRiskTrajectory(raw string) RiskTrajectory {
	trajectory := RiskTrajectory{
		Trajectory:         "UNKNOWN",
		PredictedRiskLevel: "UNKNOWN",
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return trajectory
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return trajectory
	}

	if t := cast.ToString(fields["trajectory"]); t != "" {
		trajectory.Trajectory = t
	}
	trajectory.Confidence = cast.ToFloat64(fields["confidence"])
	if level := cast.ToString(fields["predicted_risk_level"]); level != "" {
		trajectory.PredictedRiskLevel = level
	}
	return trajectory
}
