// Package loadbalance chooses which of several configured endpoints a client dials.
//
// Three strategies are implemented:
//   - RoundRobin:      successive dials spread evenly over equal peers
//   - WeightedRandom:  peers with different capacity
//   - ConsistentHash:  a client identity always lands on the same peer
//
// A client keeps one connection for its whole life, so selection happens once per dial.
// DialOrder puts the picked endpoint first and keeps the others as fallbacks.
package loadbalance

import "errors"

// ErrNoEndpoints is returned by Pick for an empty endpoint list.
var ErrNoEndpoints = errors.New("no endpoints available")

// Endpoint is one peer a client may connect to.
type Endpoint struct {
	Address string `yaml:"address"` // host:port for tcp, URL for websocket and http
	Weight  int    `yaml:"weight"`  // Used by WeightedRandom; values below 1 count as 1
}

// Balancer is the interface for selection strategies. Pick must be goroutine-safe.
type Balancer interface {
	Pick(endpoints []Endpoint) (*Endpoint, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}

// New returns the strategy called name. key is only used by ConsistentHash.
func New(name, key string) (Balancer, error) {
	switch name {
	case "", "round_robin":
		return &RoundRobinBalancer{}, nil
	case "weighted_random":
		return &WeightedRandomBalancer{}, nil
	case "consistent_hash":
		return NewConsistentHashBalancer(key), nil
	}
	return nil, errors.New("unknown balancing strategy " + name)
}

// DialOrder returns every endpoint once: the one b picks first, then the rest in
// their configured order.
func DialOrder(b Balancer, endpoints []Endpoint) ([]Endpoint, error) {
	picked, err := b.Pick(endpoints)
	if err != nil {
		return nil, err
	}
	order := make([]Endpoint, 0, len(endpoints))
	order = append(order, *picked)
	skipped := false
	for _, ep := range endpoints {
		if !skipped && ep == *picked {
			skipped = true
			continue
		}
		order = append(order, ep)
	}
	return order, nil
}
