package dashboard

import (
	"database/sql"
	"time"
)

// Warehouse columns are frequently nullable even where the view contract
// says otherwise. Scans go through sql.Null* and collapse to zero values.

func strOf(v sql.NullString) string {
	return v.String
}

func floatOf(v sql.NullFloat64) float64 {
	return v.Float64
}

func intOf(v sql.NullInt64) int {
	return int(v.Int64)
}

func int64Of(v sql.NullInt64) int64 {
	return v.Int64
}

func boolOf(v sql.NullBool) bool {
	return v.Bool
}

func timeOf(v sql.NullTime) time.Time {
	return v.Time
}

func intPtrOf(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
