package clause

import (
	"context"
	"sync"
)

// stubGenerator records requests and replies with a canned answer or error.
type stubGenerator struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []GenerationRequest
	deadline bool
}

func (s *stubGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	_, s.deadline = ctx.Deadline()
	return s.text, s.err
}

func (s *stubGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// blockingGenerator waits until the context expires.
type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ GenerationRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
