package core

import (
	"sync"
	"testing"
)

func TestKeyedMutex(t *testing.T) {
	km := NewKeyedMutex(4)
	counts := make(map[string]int)
	var mu sync.Mutex // guards the map itself, not the counts

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		key := []string{"ada", "bob", "eve"}[i%3]
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock(key)
			defer unlock()

			mu.Lock()
			n := counts[key]
			mu.Unlock()

			mu.Lock()
			counts[key] = n + 1
			mu.Unlock()
		}()
	}
	wg.Wait()

	want := map[string]int{"ada": 67, "bob": 67, "eve": 66}
	for key, n := range want {
		if counts[key] != n {
			t.Errorf("counts[%q] = %d; want %d", key, counts[key], n)
		}
	}
}

func TestKeyedMutex_sameShard(t *testing.T) {
	km := NewKeyedMutex()
	if km.shard("ada") != km.shard("ada") {
		t.Error("a key must always map to the same shard")
	}
	if len(km.shards) != defaultShards {
		t.Errorf("len(shards) = %d; want %d", len(km.shards), defaultShards)
	}
}
