package core

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 64

// KeyedMutex serializes work per key using a fixed set of mutexes.
// Two keys may share a shard; a key never maps to two shards.
type KeyedMutex struct {
	shards []sync.Mutex
}

func NewKeyedMutex(shards ...int) *KeyedMutex {
	n := defaultShards
	if len(shards) > 0 && shards[0] > 0 {
		n = shards[0]
	}
	return &KeyedMutex{shards: make([]sync.Mutex, n)}
}

func (km *KeyedMutex) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &km.shards[h.Sum32()%uint32(len(km.shards))]
}

// Lock locks key and returns its unlock func.
func (km *KeyedMutex) Lock(key string) (unlock func()) {
	mu := km.shard(key)
	mu.Lock()
	return mu.Unlock
}
