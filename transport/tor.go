package transport

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/btcsuite/go-socks/socks"
	"github.com/virtu/p2p-crawler/internal/addr"
)

// TorDialer dials onion_v2/onion_v3 addresses through a local Tor SOCKS5
// proxy. The proxy is handed the onion hostname directly and performs its
// own remote resolution/connect, so TorDialer just wraps socks.Proxy.Dial
// with a single overall deadline covering both the proxy handshake and the
// remote connect.
type TorDialer struct {
	ProxyHost string
	ProxyPort uint16
}

type dialResult struct {
	conn net.Conn
	err  error
}

// Dial opens a connection to a through the configured SOCKS5 proxy.
func (d TorDialer) Dial(a addr.Address, connectTimeout time.Duration) (Stream, error) {
	switch a.Type() {
	case addr.TypeOnionV2, addr.TypeOnionV3:
	default:
		return nil, &ErrUnsupportedAddress{Address: a, Dialer: "tor"}
	}

	proxy := &socks.Proxy{
		Addr: net.JoinHostPort(d.ProxyHost, strconv.Itoa(int(d.ProxyPort))),
	}
	target := net.JoinHostPort(a.Host(), strconv.Itoa(int(a.Port())))

	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := proxy.Dial("tcp", target)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, fmt.Errorf("dialing %s via tor proxy %s: %w", target, proxy.Addr, res.err)
		}
		return res.conn, nil
	case <-time.After(connectTimeout):
		// The proxy dial goroutine leaks until its own OS-level timeout
		// fires; go-socks offers no cancellation hook.
		return nil, fmt.Errorf("dialing %s via tor proxy %s: %w", target, proxy.Addr, TimeoutError{})
	}
}

// TimeoutError is returned when a connect attempt exceeds its class budget.
type TimeoutError struct{}

func (TimeoutError) Error() string { return "connect timeout exceeded" }
