/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package strategy

import (
	"context"
	"sync"
)

// StubStrategy provides a recording implementation of RollbackStrategy for
// testing the manager's hook sequencing.
type StubStrategy struct {
	mu sync.Mutex

	StrategyName string
	Healthy      bool
	PreError     error
	PostError    error

	PreCalls    []string
	PostCalls   []string
	VerifyCalls []string
}

var _ RollbackStrategy = (*StubStrategy)(nil)

// NewStubStrategy creates a stub reporting the given health status.
func NewStubStrategy(healthy bool) *StubStrategy {
	return &StubStrategy{StrategyName: "stub", Healthy: healthy}
}

func (s *StubStrategy) Name() string {
	return s.StrategyName
}

func (s *StubStrategy) PreRollback(ctx context.Context, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PreCalls = append(s.PreCalls, service)
	return s.PreError
}

func (s *StubStrategy) Rollback(ctx context.Context, service string, imageRef string) error {
	return nil
}

func (s *StubStrategy) PostRollback(ctx context.Context, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PostCalls = append(s.PostCalls, service)
	return s.PostError
}

func (s *StubStrategy) VerifyHealth(ctx context.Context, service string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.VerifyCalls = append(s.VerifyCalls, service)
	return s.Healthy
}
