package distance

import (
	"context"
	"errors"
	"sync"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/ports"
)

var errMockPair = errors.New("missing pair")

type MockPair struct {
	From, To domain.Coordinates
	Meters   float64
	Seconds  float64
}

// MockDistanceProvider serves fixed pairs and counts calls per pair.
// Pairs listed in Fail return a DistanceUnavailableError.
type MockDistanceProvider struct {
	m    map[string]ports.DistanceResult
	Fail map[string]bool

	mu    sync.Mutex
	calls map[string]int
}

func mockKey(from, to domain.Coordinates) string { return from.Key() + "|" + to.Key() }

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[mockKey(p.From, p.To)] = ports.DistanceResult{DistanceMeters: p.Meters, DurationSeconds: p.Seconds}
	}
	return &MockDistanceProvider{m: m, Fail: map[string]bool{}, calls: map[string]int{}}
}

// FailPair makes every lookup of from -> to fail.
func (p *MockDistanceProvider) FailPair(from, to domain.Coordinates) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Fail[mockKey(from, to)] = true
}

func (p *MockDistanceProvider) GetDistance(_ context.Context, origin, destination domain.Coordinates) (ports.DistanceResult, error) {
	k := mockKey(origin, destination)

	p.mu.Lock()
	p.calls[k]++
	fail := p.Fail[k]
	p.mu.Unlock()

	if fail {
		return ports.DistanceResult{}, &ports.DistanceUnavailableError{Origin: origin, Destination: destination, Err: errMockPair}
	}

	r, ok := p.m[k]
	if !ok {
		return ports.DistanceResult{}, &ports.DistanceUnavailableError{Origin: origin, Destination: destination, Err: errMockPair}
	}

	return r, nil
}

// Calls returns how many times from -> to was requested.
func (p *MockDistanceProvider) Calls(from, to domain.Coordinates) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[mockKey(from, to)]
}

// TotalCalls returns the number of lookups across all pairs.
func (p *MockDistanceProvider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}
