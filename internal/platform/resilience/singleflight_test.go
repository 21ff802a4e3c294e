package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight[string]
	var counter atomic.Int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make([]string, workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			v, err, _ := g.Do("intent-status:pi_123", func() (string, error) {
				counter.Add(1)
				time.Sleep(20 * time.Millisecond)
				return "succeeded", nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
			results[i] = v
		}(i)
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), counter.Load(), "function runs once")
	for _, v := range results {
		assert.Equal(t, "succeeded", v)
	}
}

func TestSingleFlight_PanicBecomesError(t *testing.T) {
	var g SingleFlight[int]

	_, err, shared := g.Do("k", func() (int, error) { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.False(t, shared)

	v, err, _ := g.Do("k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v, "key is released after a panic")
}
