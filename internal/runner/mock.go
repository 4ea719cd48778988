package runner

import (
	"context"
	"sync"
)

// Mock is a canned runner for tests. It records every request it
// serves and is safe for concurrent use.
type Mock struct {
	Result  Result
	Err     error
	Handler func(req Request) (Result, error)

	mu   sync.Mutex
	reqs []Request
}

// NewMock creates a mock runner with a fixed result.
func NewMock(res Result) *Mock {
	return &Mock{Result: res}
}

// Run records the request and returns the canned result or calls the
// handler.
func (m *Mock) Run(_ context.Context, req Request) (Result, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()
	if m.Handler != nil {
		return m.Handler(req)
	}
	return m.Result, m.Err
}

// Requests returns every request this mock has served.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.reqs...)
}
