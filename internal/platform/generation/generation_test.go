package generation

import (
	"sync"
	"testing"
)

func TestCounter_LatestWins(t *testing.T) {
	var c Counter
	first := c.Next()
	second := c.Next()

	if c.Current(first) {
		t.Error("first token should be stale after Next")
	}
	if !c.Current(second) {
		t.Error("second token should be current")
	}
}

func TestCounter_Concurrent(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	seen := make([]uint64, 50)
	for i := range seen {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = c.Next()
		}(i)
	}
	wg.Wait()

	current := 0
	for _, tok := range seen {
		if c.Current(tok) {
			current++
		}
	}
	if current != 1 {
		t.Errorf("current tokens = %d, want exactly 1", current)
	}
}
