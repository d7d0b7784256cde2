package main

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The generator is shared between request goroutines and event-bus workers,
// so draws from many goroutines must be safe (the race detector fails this
// test if the lock is removed) and stay in range.
func TestLockedRand_ConcurrentDraws(t *testing.T) {
	rng := newLockedRand(1)

	const (
		workers = 8
		draws   = 500
	)

	results := make(chan int, workers*draws)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < draws; j++ {
				results <- rng.Intn(10)
			}
		}()
	}
	wg.Wait()
	close(results)

	count := 0
	for n := range results {
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 10)
		count++
	}
	assert.Equal(t, workers*draws, count)
}
