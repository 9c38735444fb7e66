// Package node drives a single peer session: connect, handshake, and
// getaddr, against the wire protocol codec and a transport.Dialer.
package node

import (
	"github.com/virtu/p2p-crawler/internal/addr"
)

// State is a node session's position in its Idle -> Connecting ->
// Handshaking -> Exchanging -> Done lifecycle. Reachable/Unreachable are
// not states here: the frontier assigns those terminal labels based on the
// booleans Connect/Handshake return, not the session itself.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateHandshaking
	StateExchanging
	StateDone
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateExchanging:
		return "exchanging"
	case StateDone:
		return "done"
	default:
		return "idle"
	}
}

// Stats accumulates everything observed about a peer over the lifetime of
// its session; this is the row written to the reachable-nodes CSV.
type Stats struct {
	HandshakeAttempts int
	HandshakeTimestamp int64
	TimeConnectSeconds float64
	HandshakeDurationSeconds float64

	Version     int32
	Services    uint64
	UserAgent   string
	LatestBlock int32
	Relay       bool

	VersionReplyTimestampRemote int64

	RequestedAddrs int

	AdvertisedAddrsIPv4    int
	AdvertisedAddrsIPv6    int
	AdvertisedAddrsOnionV2 int
	AdvertisedAddrsOnionV3 int
	AdvertisedAddrsI2P     int
	AdvertisedAddrsCJDNS   int
	AdvertisedAddrsUnknown int
}

// RecordAdvertised increments the per-type advertised-address counter
// matching t.
func (s *Stats) RecordAdvertised(t addr.Type) {
	switch t {
	case addr.TypeIPv4:
		s.AdvertisedAddrsIPv4++
	case addr.TypeIPv6:
		s.AdvertisedAddrsIPv6++
	case addr.TypeOnionV2:
		s.AdvertisedAddrsOnionV2++
	case addr.TypeOnionV3:
		s.AdvertisedAddrsOnionV3++
	case addr.TypeI2P:
		s.AdvertisedAddrsI2P++
	case addr.TypeCJDNS:
		s.AdvertisedAddrsCJDNS++
	default:
		s.AdvertisedAddrsUnknown++
	}
}

// Node is a per-session record of one frontier candidate: its address, its
// distance from the DNS seed wave that discovered it, and the stats
// accumulated as its Session runs.
type Node struct {
	Address      addr.Address
	SeedDistance int
	Stats        Stats

	maxHandshakeAttempts int
}

// New constructs a Node at the given seed distance with a handshake-attempt
// budget.
func New(a addr.Address, seedDistance, maxHandshakeAttempts int) *Node {
	return &Node{
		Address:              a,
		SeedDistance:         seedDistance,
		maxHandshakeAttempts: maxHandshakeAttempts,
	}
}

// AttemptsRemaining reports whether the node has handshake attempts left
// after its most recent failure.
func (n *Node) AttemptsRemaining() bool {
	return n.Stats.HandshakeAttempts < n.maxHandshakeAttempts
}

// Key delegates equality/hashing to the node's address.
func (n *Node) Key() string {
	return n.Address.Key()
}
