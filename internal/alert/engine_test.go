package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"marketwatch-backend/internal/types"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	alerts   []types.Alert
	corrs    []types.CorrelationAlert
	claimErr error
	// ids the store refuses to claim, simulating another process winning.
	refuse map[int64]bool

	claimCalls [][]int64
}

func (s *fakeStore) ActiveSymbols() ([]string, error) {
	seen := map[string]bool{}
	var symbols []string
	for _, a := range s.alerts {
		if !seen[a.Symbol] {
			seen[a.Symbol] = true
			symbols = append(symbols, a.Symbol)
		}
	}
	for _, c := range s.corrs {
		for _, leg := range []string{c.Symbol1, c.Symbol2} {
			if !seen[leg] {
				seen[leg] = true
				symbols = append(symbols, leg)
			}
		}
	}
	return symbols, nil
}

func (s *fakeStore) ActiveAlerts(symbols []string) ([]types.Alert, error) {
	in := map[string]bool{}
	for _, sym := range symbols {
		in[sym] = true
	}
	var out []types.Alert
	for _, a := range s.alerts {
		if in[a.Symbol] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) ActiveCorrelationAlerts() ([]types.CorrelationAlert, error) {
	return s.corrs, nil
}

func (s *fakeStore) ClaimAlerts(ids []int64, _ time.Time) ([]int64, error) {
	s.claimCalls = append(s.claimCalls, ids)
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	var claimed []int64
	for _, id := range ids {
		if !s.refuse[id] {
			claimed = append(claimed, id)
		}
	}
	return claimed, nil
}

func (s *fakeStore) ClaimCorrelationAlert(id int64, _ string, _ time.Time) (bool, error) {
	if s.claimErr != nil {
		return false, s.claimErr
	}
	return !s.refuse[id], nil
}

type fakeQuotes struct {
	quotes map[string]types.Quote
	calls  int
}

func (q *fakeQuotes) BatchQuotes(_ context.Context, _ []string) map[string]types.Quote {
	q.calls++
	return q.quotes
}

type fakeDispatcher struct {
	mu       sync.Mutex
	firings  []types.Firing
	corrs    []types.CorrelationFiring
	notified chan struct{}
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{notified: make(chan struct{}, 16)}
}

func (d *fakeDispatcher) Dispatch(_ context.Context, firings []types.Firing, corrs []types.CorrelationFiring) {
	d.mu.Lock()
	d.firings = append(d.firings, firings...)
	d.corrs = append(d.corrs, corrs...)
	d.mu.Unlock()
	d.notified <- struct{}{}
}

func (d *fakeDispatcher) waitForDispatch(t *testing.T) {
	t.Helper()
	select {
	case <-d.notified:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher was never called")
	}
}

func (d *fakeDispatcher) assertNotCalled(t *testing.T) {
	t.Helper()
	select {
	case <-d.notified:
		t.Fatal("dispatcher should not have been called")
	case <-time.After(50 * time.Millisecond):
	}
}

func touchAlert(id int64, symbol string, target float64) types.Alert {
	return types.Alert{
		ID:        id,
		UserID:    "user-1",
		Symbol:    symbol,
		Kind:      types.KindTouch,
		Target:    target,
		Direction: types.DirectionAbove,
		Profile:   types.Profile{Tier: types.TierFree, TelegramID: "42"},
	}
}

func TestEngineCycleFiresAndDispatches(t *testing.T) {
	store := &fakeStore{alerts: []types.Alert{touchAlert(1, "EURUSD", 1.0850)}}
	quotes := &fakeQuotes{quotes: map[string]types.Quote{"EURUSD": {Price: 1.0852}}}
	dispatcher := newFakeDispatcher()
	e := NewEngine(store, quotes, dispatcher, time.Second)

	require.NoError(t, e.RunCycle(context.Background()))
	dispatcher.waitForDispatch(t)

	require.Len(t, dispatcher.firings, 1)
	assert.Equal(t, int64(1), dispatcher.firings[0].Alert.ID)
	assert.Equal(t, 1.0852, dispatcher.firings[0].Price)
	require.Len(t, store.claimCalls, 1)
}

func TestEngineSkipsUnpricedSymbols(t *testing.T) {
	store := &fakeStore{alerts: []types.Alert{
		touchAlert(1, "EURUSD", 1.0850),
		touchAlert(2, "GBPUSD", 1.2500),
	}}
	// GBPUSD is omitted from the quote response this cycle.
	quotes := &fakeQuotes{quotes: map[string]types.Quote{"EURUSD": {Price: 1.0900}}}
	dispatcher := newFakeDispatcher()
	e := NewEngine(store, quotes, dispatcher, time.Second)

	require.NoError(t, e.RunCycle(context.Background()))
	dispatcher.waitForDispatch(t)

	require.Len(t, dispatcher.firings, 1)
	assert.Equal(t, "EURUSD", dispatcher.firings[0].Alert.Symbol)
}

func TestEngineClaimFailureAbortsNotification(t *testing.T) {
	store := &fakeStore{
		alerts:   []types.Alert{touchAlert(1, "EURUSD", 1.0850)},
		claimErr: errors.New("store unavailable"),
	}
	quotes := &fakeQuotes{quotes: map[string]types.Quote{"EURUSD": {Price: 1.0900}}}
	dispatcher := newFakeDispatcher()
	e := NewEngine(store, quotes, dispatcher, time.Second)

	err := e.RunCycle(context.Background())
	require.Error(t, err)
	dispatcher.assertNotCalled(t)
}

func TestEngineNotifiesOnlyConfirmedClaims(t *testing.T) {
	store := &fakeStore{
		alerts: []types.Alert{
			touchAlert(1, "EURUSD", 1.0850),
			touchAlert(2, "EURUSD", 1.0840),
		},
		refuse: map[int64]bool{2: true},
	}
	quotes := &fakeQuotes{quotes: map[string]types.Quote{"EURUSD": {Price: 1.0900}}}
	dispatcher := newFakeDispatcher()
	e := NewEngine(store, quotes, dispatcher, time.Second)

	require.NoError(t, e.RunCycle(context.Background()))
	dispatcher.waitForDispatch(t)

	require.Len(t, dispatcher.firings, 1)
	assert.Equal(t, int64(1), dispatcher.firings[0].Alert.ID)
}

func TestEngineEmptyInterestSkipsFetchAndClearsSnapshot(t *testing.T) {
	// A touch alert with no direction that only fires via straddle: if the
	// snapshot survives the empty cycle, the third cycle would fire on stale
	// crossing memory.
	alert := types.Alert{
		ID:        1,
		UserID:    "user-1",
		Symbol:    "EURUSD",
		Kind:      types.KindTouch,
		Target:    1.2550,
		PipBuffer: 1,
		Profile:   types.Profile{Tier: types.TierFree, TelegramID: "42"},
	}

	store := &fakeStore{alerts: []types.Alert{alert}}
	quotes := &fakeQuotes{quotes: map[string]types.Quote{"EURUSD": {Price: 1.2600}}}
	dispatcher := newFakeDispatcher()
	e := NewEngine(store, quotes, dispatcher, time.Second)

	// Cycle 1: price above target, no fire, snapshot remembers 1.2600.
	require.NoError(t, e.RunCycle(context.Background()))
	assert.Equal(t, map[string]float64{"EURUSD": 1.2600}, e.snapshot)

	// Cycle 2: no active alerts at all; the fetch is skipped and crossing
	// memory is wiped.
	store.alerts = nil
	fetchesBefore := quotes.calls
	require.NoError(t, e.RunCycle(context.Background()))
	assert.Equal(t, fetchesBefore, quotes.calls)
	assert.Nil(t, e.snapshot)

	// Cycle 3: alert is back and price is on the other side of the target.
	// Without the reset this would fire as a straddle.
	store.alerts = []types.Alert{alert}
	quotes.quotes = map[string]types.Quote{"EURUSD": {Price: 1.2490}}
	require.NoError(t, e.RunCycle(context.Background()))
	dispatcher.assertNotCalled(t)
}

func TestEngineCrossUsesSnapshotAcrossCycles(t *testing.T) {
	alert := types.Alert{
		ID:        7,
		UserID:    "user-1",
		Symbol:    "GBPUSD",
		Kind:      types.KindCross,
		Target:    1.2500,
		Direction: types.DirectionBelow,
		Profile:   types.Profile{Tier: types.TierFree, TelegramID: "42"},
	}

	store := &fakeStore{alerts: []types.Alert{alert}}
	quotes := &fakeQuotes{quotes: map[string]types.Quote{"GBPUSD": {Price: 1.2600}}}
	dispatcher := newFakeDispatcher()
	e := NewEngine(store, quotes, dispatcher, time.Second)

	// Cycle 1: above the target, nothing fires.
	require.NoError(t, e.RunCycle(context.Background()))
	dispatcher.assertNotCalled(t)

	// Cycle 2: price crossed below between polls.
	quotes.quotes = map[string]types.Quote{"GBPUSD": {Price: 1.2490}}
	require.NoError(t, e.RunCycle(context.Background()))
	dispatcher.waitForDispatch(t)
	require.Len(t, dispatcher.firings, 1)
	assert.Equal(t, int64(7), dispatcher.firings[0].Alert.ID)
}

func TestEngineCorrelationFiring(t *testing.T) {
	corr := types.CorrelationAlert{
		ID:       3,
		UserID:   "user-2",
		Symbol1:  "EURUSD",
		Symbol2:  "GBPUSD",
		ZoneLow:  1.1000,
		ZoneHigh: 1.1100,
		Profile:  types.Profile{Tier: types.TierPro, TelegramID: "99"},
	}

	store := &fakeStore{corrs: []types.CorrelationAlert{corr}}
	quotes := &fakeQuotes{quotes: map[string]types.Quote{
		"EURUSD": {Price: 1.0900},
		"GBPUSD": {Price: 1.1050},
	}}
	dispatcher := newFakeDispatcher()
	e := NewEngine(store, quotes, dispatcher, time.Second)

	require.NoError(t, e.RunCycle(context.Background()))
	dispatcher.waitForDispatch(t)

	require.Len(t, dispatcher.corrs, 1)
	assert.Equal(t, "GBPUSD", dispatcher.corrs[0].TriggeredBy)
	assert.Equal(t, 1.1050, dispatcher.corrs[0].Price)
}

func TestEngineRunStopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	quotes := &fakeQuotes{}
	e := NewEngine(store, quotes, newFakeDispatcher(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after cancellation")
	}
}
