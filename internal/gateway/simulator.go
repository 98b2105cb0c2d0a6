package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
)

// Simulator is a deterministic in-process stand-in for the mobile-money
// rail, used in tests and local mode. Latency and outcomes are
// configurable; there are no hidden sleeps beyond the configured one.
type Simulator struct {
	latency  time.Duration
	balances map[string]int64

	mu       sync.Mutex
	outcomes map[string][]error // scripted per-account failures, consumed in order
	results  map[string]*Result // idempotency cache keyed by idempotency key
	statuses map[string]string  // terminal status per reference, for Verify
	seq      int64
}

func NewSimulator(latency time.Duration) *Simulator {
	return &Simulator{
		latency:  latency,
		balances: make(map[string]int64),
		outcomes: make(map[string][]error),
		results:  make(map[string]*Result),
		statuses: make(map[string]string),
	}
}

// SetBalance seeds an account balance on the simulated rail.
func (s *Simulator) SetBalance(account string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[account] = amount
}

// ScriptOutcome queues errors that Initiate will return for the given
// sender, one per call, before succeeding.
func (s *Simulator) ScriptOutcome(account string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[account] = append(s.outcomes[account], errs...)
}

func (s *Simulator) sleep(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}
	select {
	case <-time.After(s.latency):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", pkgerrors.ErrGatewayTimeout, ctx.Err())
	}
}

func (s *Simulator) Initiate(ctx context.Context, from, to string, amount int64, service, idempotencyKey string) (*Result, error) {
	if err := s.sleep(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.results[idempotencyKey]; ok {
		slog.Info("simulator replaying cached result", "idempotency_key", idempotencyKey)
		return cached, nil
	}

	if queue := s.outcomes[from]; len(queue) > 0 {
		next := queue[0]
		s.outcomes[from] = queue[1:]
		return nil, next
	}

	if amount <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount", pkgerrors.ErrGatewayRejected)
	}
	if bal, ok := s.balances[from]; ok && bal < amount {
		s.statuses[idempotencyKey] = "failed"
		return nil, fmt.Errorf("%w: insufficient funds", pkgerrors.ErrGatewayRejected)
	}

	if _, ok := s.balances[from]; ok {
		s.balances[from] -= amount
		s.balances[to] += amount
	}

	s.seq++
	res := &Result{
		TransactionID: fmt.Sprintf("SIM%09d", s.seq),
		Status:        "success",
		Timestamp:     time.Now().UTC(),
	}
	s.results[idempotencyKey] = res
	s.statuses[idempotencyKey] = "success"
	return res, nil
}

func (s *Simulator) CheckBalance(ctx context.Context, account string) (*Balance, error) {
	if err := s.sleep(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Balance{Account: account, Amount: s.balances[account]}, nil
}

func (s *Simulator) Verify(ctx context.Context, ref string) (*Verification, error) {
	if err := s.sleep(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[ref]
	if !ok {
		return &Verification{Status: "unknown", Verified: false}, nil
	}
	return &Verification{Status: status, Verified: true}, nil
}
