package duplexrpc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionLatch_SingleWinner(t *testing.T) {
	var l completionLatch

	assert.False(t, l.completed())

	const racers = 32

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := 0; i < racers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if l.tryComplete() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one trigger may win the latch")
	assert.True(t, l.completed())
}
