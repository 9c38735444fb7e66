package engine

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/virtu/p2p-crawler/internal/addr"
	"github.com/virtu/p2p-crawler/node"
	"github.com/virtu/p2p-crawler/transport"
	"github.com/virtu/p2p-crawler/wire"
)

// listenerDialer hands back a real TCP connection to a local test
// listener, ignoring the requested address entirely.
type listenerDialer struct {
	addr string
}

func (d listenerDialer) Dial(addr.Address, time.Duration) (transport.Stream, error) {
	return net.DialTimeout("tcp", d.addr, time.Second)
}

func runStubPeer(t *testing.T, ln net.Listener) {
	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	env, err := wire.ReadEnvelope(conn, wire.MainNet)
	require.NoError(t, err)
	require.Equal(t, wire.CmdVersion, env.Command)

	v := &wire.MsgVersion{
		ProtocolVersion: 70015,
		Nonce:           42,
		UserAgent:       "/TestPeer:1.0/",
		LastBlock:       800000,
		Relay:           true,
		ReceiverIP:      net.IPv6zero,
		SenderIP:        net.IPv6zero,
	}
	require.NoError(t, wire.Serialize(conn, wire.MainNet, wire.CmdVersion, v.Serialize()))

	// sendaddrv2 then verack
	for i := 0; i < 2; i++ {
		_, err := wire.ReadEnvelope(conn, wire.MainNet)
		require.NoError(t, err)
	}
}

func TestMinimalHandshakeReachesReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runStubPeer(t, ln)
	}()

	cfg := Config{
		NumWorkers:        1,
		NodeShare:         0,
		HandshakeAttempts: 3,
		Net:               wire.MainNet,
		StalenessWindow:   48 * time.Hour,
		RetryPolicy:       func(*node.Node) bool { return false },
		Dialer:            listenerDialer{addr: ln.Addr().String()},
		Timeouts: node.ClassTimeouts{
			IP: node.Timeouts{Connect: time.Second, Message: 2 * time.Second, GetAddr: time.Second},
		},
	}
	e := New(cfg)
	e.frontier.Init(map[string][]addr.Address{
		"test-seed": {addr.New("203.0.113.1", 8333, 0)},
	}, cfg.HandshakeAttempts)

	e.runWorkerPass()
	<-done

	counts := e.frontier.Snapshot()
	require.Equal(t, 1, counts.Reachable)
	require.Equal(t, 0, counts.Unreachable)

	reachable := e.frontier.ReachableNodes()
	require.Len(t, reachable, 1)
	require.Equal(t, int32(70015), reachable[0].Stats.Version)
	require.Equal(t, "/TestPeer:1.0/", reachable[0].Stats.UserAgent)
}

func TestHandshakeRetryExhaustionGoesUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for i := 0; i < 3; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			// Accept, read the version, then silently drop.
			wire.ReadEnvelope(conn, wire.MainNet)
			conn.Close()
		}
	}()

	cfg := Config{
		NumWorkers:        1,
		HandshakeAttempts: 3,
		Net:               wire.MainNet,
		StalenessWindow:   48 * time.Hour,
		RetryPolicy:       func(*node.Node) bool { return false },
		Dialer:            listenerDialer{addr: ln.Addr().String()},
		Timeouts: node.ClassTimeouts{
			IP: node.Timeouts{Connect: time.Second, Message: 100 * time.Millisecond, GetAddr: time.Second},
		},
	}
	e := New(cfg)
	e.frontier.Init(map[string][]addr.Address{
		"test-seed": {addr.New("203.0.113.2", 8333, 0)},
	}, cfg.HandshakeAttempts)

	e.runWorkerPass()

	counts := e.frontier.Snapshot()
	require.Equal(t, 0, counts.Reachable)
	require.Equal(t, 1, counts.Unreachable)
}
