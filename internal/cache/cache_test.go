package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("key", "value", time.Minute)

	value, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", value)
}

func TestGetMissing(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("key", "value", 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get("key")
	assert.False(t, ok)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Expired)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("key", "value", 0)
	time.Sleep(10 * time.Millisecond)

	_, ok := c.Get("key")
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Clear()

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.GetStats().Items)
}

func TestDoFillsOnceWithinTTL(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	calls := 0
	fill := func() (interface{}, error) {
		calls++
		return "filled", nil
	}

	first, err := c.Do("key", time.Minute, fill)
	require.NoError(t, err)
	second, err := c.Do("key", time.Minute, fill)
	require.NoError(t, err)

	assert.Equal(t, "filled", first)
	assert.Equal(t, "filled", second)
	assert.Equal(t, 1, calls)
}

func TestDoErrorNotCached(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	boom := errors.New("boom")
	_, err := c.Do("key", time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	value, err := c.Do("key", time.Minute, func() (interface{}, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", value)
}

func TestDoSingleFlight(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	var calls int64
	release := make(chan struct{})
	fill := func() (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]interface{}, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, _ := c.Do("key", time.Minute, fill)
			results[i] = value
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	for _, value := range results {
		assert.Equal(t, "shared", value)
	}
}

func TestDoRefillsAfterClear(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	calls := 0
	fill := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	first, _ := c.Do("key", time.Minute, fill)
	c.Clear()
	second, _ := c.Do("key", time.Minute, fill)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestStats(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("key", "value", time.Minute)
	c.Get("key")
	c.Get("missing")

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Items)
}
