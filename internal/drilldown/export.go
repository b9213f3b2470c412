package drilldown

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// CSV renders the records with a header row, columns in query order
func (r Records) CSV() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(r.Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(r.Columns))
	for _, row := range r.Rows {
		for i, column := range r.Columns {
			record[i] = formatCell(row[column])
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func formatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
