package transport

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/virtu/p2p-crawler/internal/addr"
)

// IPDialer dials ipv4, ipv6, and cjdns addresses as plain TCP sockets.
// CJDNS addresses are ordinary IPv6 literals on the wire, so no special
// handling is required beyond accepting the type.
type IPDialer struct{}

// Dial opens a direct TCP connection to a within connectTimeout.
func (IPDialer) Dial(a addr.Address, connectTimeout time.Duration) (Stream, error) {
	switch a.Type() {
	case addr.TypeIPv4, addr.TypeIPv6, addr.TypeCJDNS:
	default:
		return nil, &ErrUnsupportedAddress{Address: a, Dialer: "ip"}
	}

	hostport := net.JoinHostPort(a.Host(), strconv.Itoa(int(a.Port())))
	conn, err := net.DialTimeout("tcp", hostport, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", hostport, err)
	}
	return conn, nil
}
