// Package frontier holds the six disjoint node sets the crawl engine
// draws from and feeds back into: nodes_by_seed (provenance only), pending,
// next, processing, reachable, and unreachable. All operations are atomic
// against a single shared lock.
package frontier

import (
	"math/rand"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/virtu/p2p-crawler/internal/addr"
	"github.com/virtu/p2p-crawler/node"
)

// log is the package logger; disabled until UseLogger is called.
var log btclog.Logger

func init() {
	DisableLog()
}

// UseLogger sets the logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// DisableLog disables all library log output.
func DisableLog() {
	log = btclog.Disabled
}

// pollInterval is how long nodesLeft sleeps between checks of processing
// while waiting for it to drain before promoting the next wave. A var, not
// a const, so tests can shrink it instead of taking the production delay.
var pollInterval = 5 * time.Second

// RetryPolicy decides the terminal classification of a node whose handshake
// attempts are exhausted. The same policy applies to every node, whether it
// came from DNS seeding, an addr reply, or history.
type RetryPolicy func(n *node.Node) (reachable bool)

// UnreachableOnExhaustion classifies a node that has used up its handshake
// attempts as unreachable; --handshake-exhausted-unreachable selects it.
func UnreachableOnExhaustion(*node.Node) bool { return false }

// ReachableOnExhaustion treats handshake-exhausted nodes as reachable (the
// TCP connect succeeded, only the protocol handshake did not); this is the
// crawler's default, used when --handshake-exhausted-unreachable is not set.
func ReachableOnExhaustion(*node.Node) bool { return true }

// Frontier holds the engine's working sets under one mutex.
type Frontier struct {
	mu sync.Mutex

	nodesBySeed map[string][]*node.Node
	pending     map[string]*node.Node
	next        map[string]*node.Node
	processing  map[string]*node.Node
	reachable   map[string]*node.Node
	unreachable map[string]*node.Node

	stalenessWindow time.Duration
	retryPolicy     RetryPolicy

	waveCount int
}

// New returns an empty Frontier. stalenessWindow bounds how old an
// advertised address's last-seen time may be before add_peers discards it;
// retryPolicy decides reachable-vs-unreachable for handshake-exhausted
// nodes.
func New(stalenessWindow time.Duration, retryPolicy RetryPolicy) *Frontier {
	return &Frontier{
		nodesBySeed:     make(map[string][]*node.Node),
		pending:         make(map[string]*node.Node),
		next:            make(map[string]*node.Node),
		processing:      make(map[string]*node.Node),
		reachable:       make(map[string]*node.Node),
		unreachable:     make(map[string]*node.Node),
		stalenessWindow: stalenessWindow,
		retryPolicy:     retryPolicy,
	}
}

// Init populates nodes_by_seed and seeds pending with the union of every
// seed's addresses, each wrapped as a seed-distance-0 Node.
func (f *Frontier) Init(addrsBySeed map[string][]addr.Address, maxHandshakeAttempts int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for seed, addrs := range addrsBySeed {
		list := make([]*node.Node, 0, len(addrs))
		for _, a := range addrs {
			n := node.New(a, 0, maxHandshakeAttempts)
			list = append(list, n)
			if _, exists := f.pending[n.Key()]; !exists {
				f.pending[n.Key()] = n
			}
		}
		f.nodesBySeed[seed] = list
	}
}

// MergeHistorical inserts nodes sourced from the history store directly
// into pending, skipping any already known to the frontier (an address
// that both DNS-seeded waves and history name is tried only once).
func (f *Frontier) MergeHistorical(nodes []*node.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, n := range nodes {
		if f.known(n.Key()) {
			continue
		}
		f.pending[n.Key()] = n
	}
}

// GetNode removes a uniformly-random element from pending and moves it to
// processing, returning it. The caller must check nodesLeft (or that
// pending is non-empty) before calling.
func (f *Frontier) GetNode() *node.Node {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return nil
	}

	idx := rand.Intn(len(f.pending))
	var chosen *node.Node
	i := 0
	for _, n := range f.pending {
		if i == idx {
			chosen = n
			break
		}
		i++
	}

	delete(f.pending, chosen.Key())
	f.processing[chosen.Key()] = chosen
	return chosen
}

// SetReachable moves n from processing to reachable.
func (f *Frontier) SetReachable(n *node.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.processing, n.Key())
	f.reachable[n.Key()] = n
}

// SetUnreachable moves n from processing to unreachable.
func (f *Frontier) SetUnreachable(n *node.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.processing, n.Key())
	f.unreachable[n.Key()] = n
}

// RetryOrTerminal moves n back to pending if it has handshake attempts
// left; otherwise it is classified terminal per the configured
// RetryPolicy.
func (f *Frontier) RetryOrTerminal(n *node.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.processing, n.Key())
	if n.AttemptsRemaining() {
		f.pending[n.Key()] = n
		return
	}

	if f.retryPolicy(n) {
		f.reachable[n.Key()] = n
	} else {
		f.unreachable[n.Key()] = n
	}
}

// AddPeers computes advertised minus every node the frontier already
// knows, drops anything advertised outside the staleness window, and
// inserts the survivors into next at the given seedDistance (callers pass
// src's distance plus one). src is accepted for
// parity with the conceptual operation (logging provenance) but doesn't
// otherwise affect the computation.
func (f *Frontier) AddPeers(src *node.Node, advertised map[string]addr.Address, seedDistance int, maxHandshakeAttempts int) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().Add(-f.stalenessWindow).Unix()
	inserted := 0

	for key, a := range advertised {
		if f.known(key) {
			continue
		}
		if a.LastSeen() <= cutoff {
			continue
		}
		f.next[key] = node.New(a, seedDistance, maxHandshakeAttempts)
		inserted++
	}

	log.Debugf("add_peers from %s: %d of %d advertised addresses inserted into next", src.Address, inserted, len(advertised))
	return inserted
}

// known reports whether key already belongs to any of the five work sets
// (pending, next, processing, reachable, unreachable).
func (f *Frontier) known(key string) bool {
	if _, ok := f.pending[key]; ok {
		return true
	}
	if _, ok := f.next[key]; ok {
		return true
	}
	if _, ok := f.processing[key]; ok {
		return true
	}
	if _, ok := f.reachable[key]; ok {
		return true
	}
	if _, ok := f.unreachable[key]; ok {
		return true
	}
	return false
}

// NodesLeft implements the wave-promotion termination check: if pending is
// non-empty, true; else wait for processing to drain, then promote next to
// pending (logging the wave boundary) if it is non-empty; otherwise false.
func (f *Frontier) NodesLeft() bool {
	for {
		f.mu.Lock()
		if len(f.pending) > 0 {
			f.mu.Unlock()
			return true
		}
		processing := len(f.processing)
		f.mu.Unlock()

		if processing > 0 {
			time.Sleep(pollInterval)
			continue
		}

		f.mu.Lock()
		if len(f.next) == 0 {
			f.mu.Unlock()
			return false
		}
		f.waveCount++
		log.Infof("wave %d promoted: %d nodes moved from next to pending", f.waveCount, len(f.next))
		f.pending, f.next = f.next, make(map[string]*node.Node)
		f.mu.Unlock()
		return true
	}
}

// Counts reports the current size of every work set, used by the monitor
// loop and the final stats snapshot.
type Counts struct {
	Pending     int
	Next        int
	Processing  int
	Reachable   int
	Unreachable int
}

// Snapshot returns the current Counts under lock.
func (f *Frontier) Snapshot() Counts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Counts{
		Pending:     len(f.pending),
		Next:        len(f.next),
		Processing:  len(f.processing),
		Reachable:   len(f.reachable),
		Unreachable: len(f.unreachable),
	}
}

// ReachableNodes returns every node currently classified reachable.
func (f *Frontier) ReachableNodes() []*node.Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*node.Node, 0, len(f.reachable))
	for _, n := range f.reachable {
		out = append(out, n)
	}
	return out
}

// UnreachableNodes returns every node currently classified unreachable.
func (f *Frontier) UnreachableNodes() []*node.Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*node.Node, 0, len(f.unreachable))
	for _, n := range f.unreachable {
		out = append(out, n)
	}
	return out
}

// SeedCounts returns the number of addresses seen per DNS seed, preserving
// whatever duplicates Init was given.
func (f *Frontier) SeedCounts() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.nodesBySeed))
	for seed, list := range f.nodesBySeed {
		out[seed] = len(list)
	}
	return out
}
