package ai

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyRingRoundRobin(t *testing.T) {
	ring := NewKeyRing("a,b,c")
	require.Equal(t, 3, ring.Size())

	counts := map[string]int{}
	var order []string
	for i := 0; i < 9; i++ {
		key := ring.Next()
		counts[key]++
		order = append(order, key)
	}
	require.Equal(t, 3, counts["a"])
	require.Equal(t, 3, counts["b"])
	require.Equal(t, 3, counts["c"])
	require.Equal(t, []string{"a", "b", "c", "a", "b", "c", "a", "b", "c"}, order)
}

func TestKeyRingConfigureTrimsAndResets(t *testing.T) {
	ring := NewKeyRing(" a , ,b,, c ")
	require.Equal(t, []string{"a", "b", "c"}, ring.Snapshot())

	require.Equal(t, "a", ring.Next())
	require.Equal(t, "b", ring.Next())

	// replacing the pool must restart rotation from the first key
	ring.Configure("x,y")
	require.Equal(t, "x", ring.Next())
	require.Equal(t, "y", ring.Next())
	require.Equal(t, "x", ring.Next())
}

func TestKeyRingEmpty(t *testing.T) {
	ring := NewKeyRing("")
	require.True(t, ring.IsEmpty())
	require.Equal(t, 0, ring.Size())
	require.Equal(t, "", ring.Next())
}

func TestKeyRingSnapshotIsCopy(t *testing.T) {
	ring := NewKeyRing("a,b")
	snap := ring.Snapshot()
	snap[0] = "mutated"
	require.Equal(t, []string{"a", "b"}, ring.Snapshot())
}

func TestKeyRingConcurrentFairness(t *testing.T) {
	ring := NewKeyRing("a,b,c")
	const workers = 30
	const perWorker = 10

	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := map[string]int{}
			for j := 0; j < perWorker; j++ {
				local[ring.Next()]++
			}
			mu.Lock()
			for k, v := range local {
				counts[k] += v
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	total := workers * perWorker
	require.NotContains(t, counts, "")
	for _, key := range []string{"a", "b", "c"} {
		require.Equal(t, total/3, counts[key], "key %s not allocated fairly", key)
	}
}
