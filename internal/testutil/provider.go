package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"weatherapi/m/domain"
)

// CountingProvider is a weather provider double that records every call.
type CountingProvider struct {
	mu    sync.Mutex
	calls map[string]int
	// Fail, when set, makes every fetch return this error.
	Fail error
}

// NewCountingProvider returns a provider that succeeds for every non-empty city.
func NewCountingProvider() *CountingProvider {
	return &CountingProvider{calls: make(map[string]int)}
}

func (p *CountingProvider) Fetch(_ context.Context, city string) (domain.Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[city]++
	if p.Fail != nil {
		return nil, p.Fail
	}
	if city == "" {
		return nil, errors.New("empty city")
	}
	return domain.Payload(`{"name":` + quote(city) + `,"main":{"temp":281.5}}`), nil
}

// Calls returns how many times city was fetched.
func (p *CountingProvider) Calls(city string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[city]
}

// Total returns the number of fetches for all cities.
func (p *CountingProvider) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
