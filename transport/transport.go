// Package transport dials a peer over whichever network its address type
// requires: a direct TCP connection for IP and CJDNS hosts, a SOCKS5 proxy
// for Tor onion hosts, or a shared SAM session for I2P hosts.
package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/virtu/p2p-crawler/internal/addr"
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

// Stream is a framed, symmetric-close byte pipe to a peer. It embeds
// io.ReadWriteCloser so message codec code can read/write directly.
type Stream interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// Class identifies the timeout/backing-transport bucket an Address falls
// into. IP and CJDNS addresses share the "ip" class: CJDNS presents as an
// ordinary IPv6 socket, so it dials exactly like clearnet IPv6.
type Class int

const (
	ClassIP Class = iota
	ClassTor
	ClassI2P
)

// ClassOf maps an address type to its transport Class. TypeUnknown and any
// future type map to ClassIP so dialing is still attempted (and fails
// naturally) rather than panicking.
func ClassOf(t addr.Type) Class {
	switch t {
	case addr.TypeOnionV2, addr.TypeOnionV3:
		return ClassTor
	case addr.TypeI2P:
		return ClassI2P
	default:
		return ClassIP
	}
}

func (c Class) String() string {
	switch c {
	case ClassTor:
		return "tor"
	case ClassI2P:
		return "i2p"
	default:
		return "ip"
	}
}

// Dialer opens a Stream to an address within its connect-timeout budget.
type Dialer interface {
	Dial(address addr.Address, connectTimeout time.Duration) (Stream, error)
}

// Config bundles the three dialers the crawler needs, selected by address
// Class.
type Config struct {
	IP  Dialer
	Tor Dialer
	I2P Dialer
}

// Dial selects the dialer for a's Class and dials it.
func (c *Config) Dial(a addr.Address, connectTimeout time.Duration) (Stream, error) {
	switch ClassOf(a.Type()) {
	case ClassTor:
		return c.Tor.Dial(a, connectTimeout)
	case ClassI2P:
		return c.I2P.Dial(a, connectTimeout)
	default:
		return c.IP.Dial(a, connectTimeout)
	}
}

// ErrUnsupportedAddress is returned when a Dialer is asked to dial an
// address whose type doesn't belong to its Class.
type ErrUnsupportedAddress struct {
	Address addr.Address
	Dialer  string
}

func (e *ErrUnsupportedAddress) Error() string {
	return fmt.Sprintf("%s dialer cannot handle address %s (type %s)", e.Dialer, e.Address, e.Address.Type())
}
