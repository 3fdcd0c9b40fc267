package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
)

// ConsistentHashBalancer maps a fixed key (typically a client name) onto a hash ring of
// endpoints. The same key always lands on the same endpoint, and adding or removing
// one endpoint only moves the keys that hashed next to it.
//
// Each endpoint is placed on the ring as many virtual nodes so a few endpoints do not
// cluster together.
//
//	Hash Ring:
//	                  0
//	                ╱   ╲
//	              ╱       ╲
//	         B ●               ● A
//	           │    key ◆──►   │   (clockwise to nearest node → A)
//	         C ●               ● A' (virtual node of A)
//	              ╲       ╱
//	                ╲   ╱
type ConsistentHashBalancer struct {
	key      string
	replicas int // Virtual nodes per endpoint
}

// NewConsistentHashBalancer creates a balancer for key with 100 virtual nodes per endpoint.
func NewConsistentHashBalancer(key string) *ConsistentHashBalancer {
	return &ConsistentHashBalancer{key: key, replicas: 100}
}

// Pick builds the ring for endpoints and returns the first node clockwise of the key's hash.
// The ring is rebuilt on every call; endpoints are picked once per dial.
func (b *ConsistentHashBalancer) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	ring := make([]uint32, 0, len(endpoints)*b.replicas)
	nodes := make(map[uint32]int, len(endpoints)*b.replicas)
	for i, ep := range endpoints {
		for r := 0; r < b.replicas; r++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", ep.Address, r)))
			ring = append(ring, hash)
			nodes[hash] = i
		}
	}
	sort.Slice(ring, func(i, j int) bool { return ring[i] < ring[j] })

	hash := crc32.ChecksumIEEE([]byte(b.key))
	idx := sort.Search(len(ring), func(i int) bool { return ring[i] >= hash })
	// Wrap around: past the last node means the first one
	if idx == len(ring) {
		idx = 0
	}
	return &endpoints[nodes[ring[idx]]], nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
