// Package uid generates identifiers: snowflake int64 ids for rows that are
// joined on, and time ordered UUIDs for events and correlation ids.
package uid

// NumberID produces unique int64 ids.
type NumberID interface {
	Generate() int64
}

// StringID produces unique string ids.
type StringID interface {
	Generate() string
}
