package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBidirectional checks id in subscribers(S) <=> S in symbols(id).
func assertBidirectional(t *testing.T, r *Registry) {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, syms := range r.symbols {
		for sym := range syms {
			_, ok := r.subscribers[sym][id]
			assert.True(t, ok, "%s holds %s but is missing from its subscriber set", id, sym)
		}
	}
	for sym, subs := range r.subscribers {
		assert.NotEmpty(t, subs, "empty subscriber set left for %s", sym)
		for id := range subs {
			_, ok := r.symbols[id][sym]
			assert.True(t, ok, "%s lists %s but the connection does not hold it", sym, id)
		}
	}
}

func TestSubscribeNormalizesAndSorts(t *testing.T) {
	r := New()
	r.RegisterConnection("a")

	added, current, err := r.Subscribe("a", []string{"nvda", "aapl"})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "NVDA"}, added)
	assert.Equal(t, []string{"AAPL", "NVDA"}, current)
	assert.Equal(t, []string{"AAPL", "NVDA"}, r.ActiveSymbols())
	assertBidirectional(t, r)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	r := New()
	r.RegisterConnection("a")

	_, _, err := r.Subscribe("a", []string{"AAPL"})
	require.NoError(t, err)
	added, current, err := r.Subscribe("a", []string{"aapl", "AAPL"})
	require.NoError(t, err)

	assert.Empty(t, added)
	assert.Equal(t, []string{"AAPL"}, current)
	assert.Len(t, r.Subscribers("AAPL"), 1)
	assertBidirectional(t, r)
}

func TestUnknownConnection(t *testing.T) {
	r := New()

	_, _, err := r.Subscribe("ghost", []string{"AAPL"})
	assert.ErrorIs(t, err, ErrConnectionNotRegistered)
	_, _, err = r.Unsubscribe("ghost", []string{"AAPL"})
	assert.ErrorIs(t, err, ErrConnectionNotRegistered)
	assert.Empty(t, r.ActiveSymbols())
}

func TestSoleSubscriberUnsubscribeDeactivates(t *testing.T) {
	r := New()
	r.RegisterConnection("a")
	r.RegisterConnection("b")
	_, _, _ = r.Subscribe("a", []string{"AAPL", "TSLA"})
	_, _, _ = r.Subscribe("b", []string{"TSLA"})

	removed, remaining, err := r.Unsubscribe("a", []string{"aapl", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, removed)
	assert.Equal(t, []string{"TSLA"}, remaining)
	assert.Equal(t, []string{"TSLA"}, r.ActiveSymbols())

	_, remaining, err = r.Unsubscribe("a", []string{"TSLA"})
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Equal(t, []string{"TSLA"}, r.ActiveSymbols(), "b still holds TSLA")
	assertBidirectional(t, r)
}

func TestRemoveConnectionCleansEveryIndex(t *testing.T) {
	r := New()
	r.RegisterConnection("a")
	r.RegisterConnection("b")
	_, _, _ = r.Subscribe("a", []string{"AAPL", "NVDA"})
	_, _, _ = r.Subscribe("b", []string{"NVDA"})

	released := r.RemoveConnection("a")
	assert.Equal(t, []string{"AAPL", "NVDA"}, released)

	for _, sym := range []string{"AAPL", "NVDA"} {
		assert.NotContains(t, r.Subscribers(sym), "a")
	}
	assert.False(t, r.IsRegistered("a"))
	assert.Equal(t, []string{"NVDA"}, r.ActiveSymbols())
	assert.Equal(t, []string{"b"}, r.Connections())

	assert.Nil(t, r.RemoveConnection("a"), "second removal is a no-op")
	assertBidirectional(t, r)
}

func TestRegisterKeepsExistingSubscriptions(t *testing.T) {
	r := New()
	r.RegisterConnection("a")
	_, _, _ = r.Subscribe("a", []string{"AAPL"})
	r.RegisterConnection("a")

	assert.Equal(t, []string{"AAPL"}, r.SymbolsForConnection("a"))
}

func TestStats(t *testing.T) {
	r := New()
	r.RegisterConnection("a")
	r.RegisterConnection("b")
	_, _, _ = r.Subscribe("a", []string{"AAPL", "NVDA"})
	_, _, _ = r.Subscribe("b", []string{"AAPL"})

	assert.Equal(t, Stats{Connections: 2, ActiveSymbols: 2, Subscriptions: 3}, r.Stats())
}

func TestConcurrentMutationsKeepInvariant(t *testing.T) {
	r := New()
	symbols := []string{"AAPL", "NVDA", "TSLA", "MSFT", "AMZN"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", n)
			r.RegisterConnection(id)
			for j := 0; j < 200; j++ {
				sym := symbols[(n+j)%len(symbols)]
				if j%3 == 0 {
					_, _, _ = r.Unsubscribe(id, []string{sym})
				} else {
					_, _, _ = r.Subscribe(id, []string{sym})
				}
			}
			if n%2 == 0 {
				r.RemoveConnection(id)
			}
		}(i)
	}
	wg.Wait()

	assertBidirectional(t, r)
	assert.Len(t, r.Connections(), 16)
}
