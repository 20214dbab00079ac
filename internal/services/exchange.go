// Package services – ExchangeTracker
//
// ExchangeTracker enforces the calling discipline around AI exchanges: at most
// one request in flight per chat, and results that arrive after the exchange
// was abandoned are recognised as stale. Each Begin hands out a fresh token;
// only the holder of the current token may apply its result.
package services

import "sync"

// ExchangeTracker tracks the in-flight exchange token per chat id.
type ExchangeTracker struct {
	mu       sync.Mutex
	next     uint64
	inFlight map[string]uint64
}

// NewExchangeTracker returns an empty tracker.
func NewExchangeTracker() *ExchangeTracker {
	return &ExchangeTracker{inFlight: make(map[string]uint64)}
}

// Begin registers a new exchange for chatID and returns its token. A second
// Begin before Finish or Abandon fails with ErrExchangeInFlight.
func (t *ExchangeTracker) Begin(chatID string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, busy := t.inFlight[chatID]; busy {
		return 0, ErrExchangeInFlight
	}
	t.next++
	t.inFlight[chatID] = t.next
	return t.next, nil
}

// Abandon invalidates the pending exchange of chatID, if any, and reports
// whether there was one.
func (t *ExchangeTracker) Abandon(chatID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.inFlight[chatID]
	delete(t.inFlight, chatID)
	return ok
}

// Finish ends the exchange identified by token. It returns true only when
// token is still current for chatID; a false return means the result must be
// discarded.
func (t *ExchangeTracker) Finish(chatID string, token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.inFlight[chatID]; !ok || cur != token {
		return false
	}
	delete(t.inFlight, chatID)
	return true
}

// InFlight reports whether chatID has a pending exchange.
func (t *ExchangeTracker) InFlight(chatID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.inFlight[chatID]
	return ok
}
