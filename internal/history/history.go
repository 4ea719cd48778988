// Package history records completed query invocations.
package history

import "time"

// Entry is one recorded invocation.
type Entry struct {
	ID       string // assigned by the engine, a UUID
	Query    string // query name as looked up in the ledger
	Params   string // raw parameter argument exactly as supplied
	Injected string // final query string after substitution
	Format   string
	ExitCode int
	Duration time.Duration
	Ts       time.Time
}

// Store is the interface for invocation history persistence.
type Store interface {
	// Record appends an entry.
	Record(e Entry) error
	// Recent returns up to limit entries, newest first. A limit of
	// zero or less returns everything.
	Recent(limit int) ([]Entry, error)
	// Get retrieves an entry by ID. Returns nil if not found.
	Get(id string) (*Entry, error)
	// Close releases resources.
	Close() error
}
