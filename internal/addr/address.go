// Package addr implements the crawler's address value type: an immutable
// (host, port, last-seen) triple with a type derived from host syntax, and
// the compressed representation used by the addr-data log.
package addr

import (
	"fmt"
	"strconv"
	"strings"
)

// Type classifies an Address by its host syntax.
type Type int

const (
	TypeUnknown Type = iota
	TypeIPv4
	TypeIPv6
	TypeOnionV2
	TypeOnionV3
	TypeI2P
	TypeCJDNS
)

// Types is the fixed ordering addr-data log records encode net_id against.
var Types = []Type{TypeIPv4, TypeIPv6, TypeOnionV2, TypeOnionV3, TypeI2P, TypeCJDNS}

var typeNames = map[Type]string{
	TypeUnknown: "unknown",
	TypeIPv4:    "ipv4",
	TypeIPv6:    "ipv6",
	TypeOnionV2: "onion_v2",
	TypeOnionV3: "onion_v3",
	TypeI2P:     "i2p",
	TypeCJDNS:   "cjdns",
}

// String returns the type's lowercase name, as used in output columns.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// NetID returns the 0-based index of t within Types, or -1 if t has no
// addr-data log representation (TypeUnknown).
func (t Type) NetID() int {
	for i, candidate := range Types {
		if candidate == t {
			return i
		}
	}
	return -1
}

// Address is an immutable (host, port, last-seen) triple. Equality and
// hashing should only ever consider host and port: two advertisements of
// the same endpoint with different last-seen times name the same entity.
type Address struct {
	host     string
	port     uint16
	lastSeen int64
	addrType Type
}

// New constructs an Address, classifying its type once from host syntax.
func New(host string, port uint16, lastSeen int64) Address {
	return Address{
		host:     host,
		port:     port,
		lastSeen: lastSeen,
		addrType: classify(host),
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func looksLikeIPv4(host string) bool {
	octets := strings.Split(host, ".")
	if len(octets) != 4 {
		return false
	}
	for _, o := range octets {
		if !isDigits(o) {
			return false
		}
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// classify derives an Address's Type from its host string, following the
// ordered rules: cjdns and ipv6 are distinguished from onion/i2p/ipv4 by
// the presence of a colon, so they're checked first.
func classify(host string) Type {
	lower := strings.ToLower(host)

	if strings.Contains(host, ":") {
		if strings.HasPrefix(lower, "fc") {
			return TypeCJDNS
		}
		return TypeIPv6
	}

	if strings.HasSuffix(lower, ".onion") {
		switch len(host) {
		case 22:
			return TypeOnionV2
		case 62:
			return TypeOnionV3
		}
		return TypeUnknown
	}

	if strings.HasSuffix(lower, ".b32.i2p") {
		if len(host) == 60 {
			return TypeI2P
		}
		return TypeUnknown
	}

	if looksLikeIPv4(host) {
		return TypeIPv4
	}

	return TypeUnknown
}

// Host returns the address's host component.
func (a Address) Host() string { return a.host }

// Port returns the address's port component.
func (a Address) Port() uint16 { return a.port }

// LastSeen returns the last-seen unix timestamp carried by the
// advertisement that produced this Address.
func (a Address) LastSeen() int64 { return a.lastSeen }

// Type returns the address's classified Type.
func (a Address) Type() Type { return a.addrType }

// WithLastSeen returns a copy of a with a different last-seen time. Host,
// port, and the derived type are unchanged.
func (a Address) WithLastSeen(lastSeen int64) Address {
	a.lastSeen = lastSeen
	return a
}

// Key returns the (host, port) identity used for equality and hashing,
// deliberately excluding last-seen.
func (a Address) Key() string {
	return a.host + "/" + strconv.Itoa(int(a.port))
}

// String renders the address as it appears in logs and output: IPv6 and
// CJDNS hosts are bracketed, matching standard host:port disambiguation.
func (a Address) String() string {
	switch a.addrType {
	case TypeIPv6, TypeCJDNS:
		return fmt.Sprintf("[%s]:%d", a.host, a.port)
	default:
		return fmt.Sprintf("%s:%d", a.host, a.port)
	}
}
