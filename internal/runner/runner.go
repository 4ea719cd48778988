// Package runner executes injected queries through the bean-query CLI.
package runner

import (
	"context"
	"time"
)

// Request describes one query execution.
type Request struct {
	Ledger string
	Query  string
	Format string // forwarded as bean-query -f
}

// Result is the outcome of a completed execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner is the interface query executors implement.
type Runner interface {
	// Run executes the query against the ledger.
	Run(ctx context.Context, req Request) (Result, error)
}
