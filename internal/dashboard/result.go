package dashboard

import "time"

// Source describes where a fetch result came from. Degraded fetches are
// visible in the payload instead of being hidden behind a catch block.
type Source string

const (
	// SourceLive means the rows came from the warehouse query
	SourceLive Source = "live"
	// SourceFallback means the query failed and a hardcoded placeholder
	// dataset was substituted so the page still renders
	SourceFallback Source = "fallback"
	// SourceEmpty means the query succeeded (or failed with no fallback)
	// and there is nothing to show
	SourceEmpty Source = "empty"
)

// Result is the outcome of one fetch: the rows, their provenance, and any
// operator-facing diagnostics collected along the way.
type Result[T any] struct {
	Rows      []T       `json:"rows"`
	Source    Source    `json:"source"`
	Warnings  []string  `json:"warnings,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Live wraps rows fetched from the warehouse
func Live[T any](rows []T) Result[T] {
	source := SourceLive
	if len(rows) == 0 {
		source = SourceEmpty
	}
	return Result[T]{
		Rows:      rows,
		Source:    source,
		FetchedAt: time.Now(),
	}
}

// Fallback wraps a substituted placeholder dataset
func Fallback[T any](rows []T, warnings ...string) Result[T] {
	return Result[T]{
		Rows:      rows,
		Source:    SourceFallback,
		Warnings:  warnings,
		FetchedAt: time.Now(),
	}
}

// Empty is a failed or vacuous fetch with its diagnostics
func Empty[T any](warnings ...string) Result[T] {
	return Result[T]{
		Rows:      []T{},
		Source:    SourceEmpty,
		Warnings:  warnings,
		FetchedAt: time.Now(),
	}
}

// Degraded reports whether the result is anything other than live rows
func (r Result[T]) Degraded() bool {
	return r.Source != SourceLive
}

// WithWarnings returns a copy with extra diagnostics appended
func (r Result[T]) WithWarnings(warnings ...string) Result[T] {
	r.Warnings = append(r.Warnings, warnings...)
	return r
}
