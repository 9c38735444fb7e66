package node

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/davecgh/go-spew/spew"
	"github.com/virtu/p2p-crawler/internal/addr"
	"github.com/virtu/p2p-crawler/transport"
	"github.com/virtu/p2p-crawler/wire"
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

// UserAgent is the identity the crawler presents in its version message.
const UserAgent = "/Satoshi:23.0.0/"

// Timeouts bundles the three per-transport-class budgets a Session honors.
type Timeouts struct {
	Connect time.Duration
	Message time.Duration
	GetAddr time.Duration
}

// ClassTimeouts holds one Timeouts set per transport.Class.
type ClassTimeouts struct {
	IP, Tor, I2P Timeouts
}

// For returns the Timeouts bound to the given transport class.
func (c ClassTimeouts) For(class transport.Class) Timeouts {
	switch class {
	case transport.ClassTor:
		return c.Tor
	case transport.ClassI2P:
		return c.I2P
	default:
		return c.IP
	}
}

var errReceiveTimeout = errors.New("timed out waiting for expected message")

// Session drives a single Node through Connect, Handshake, and
// GetPeerAddrs against a transport.Dialer and the wire protocol codec.
type Session struct {
	node     *Node
	dialer   transport.Dialer
	net      wire.BitcoinNet
	timeouts ClassTimeouts

	state   State
	stream  transport.Stream
	message time.Duration
	getaddr time.Duration
}

// NewSession returns a Session for n, dialing through d on network net,
// honoring the timeouts appropriate to n's address class.
func NewSession(n *Node, d transport.Dialer, bnet wire.BitcoinNet, timeouts ClassTimeouts) *Session {
	return &Session{node: n, dialer: d, net: bnet, timeouts: timeouts, state: StateIdle}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Disconnect closes the underlying stream, if one was established.
func (s *Session) Disconnect() {
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
}

func randomNonce() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failures are effectively unheard of; zero is a
		// harmless degraded nonce rather than a crawl-ending panic.
		return 0
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Connect dials the node's address, recording elapsed time regardless of
// outcome.
func (s *Session) Connect() bool {
	s.state = StateConnecting
	class := transport.ClassOf(s.node.Address.Type())
	budget := s.timeouts.For(class)

	start := time.Now()
	stream, err := s.dialer.Dial(s.node.Address, budget.Connect)
	s.node.Stats.TimeConnectSeconds = time.Since(start).Seconds()
	if err != nil {
		log.Debugf("connect to %s failed: %v", s.node.Address, err)
		return false
	}

	s.stream = stream
	s.message = budget.Message
	s.getaddr = budget.GetAddr
	return true
}

func (s *Session) send(cmd wire.Command, payload []byte) error {
	return wire.Serialize(s.stream, s.net, cmd, payload)
}

// receiveExpected reads envelopes until one with a command in expected
// arrives, transparently answering any ping encountered along the way,
// or the deadline passes.
func (s *Session) receiveExpected(expected map[wire.Command]bool, timeout time.Duration) (*wire.Envelope, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, errReceiveTimeout
		}
		if err := s.stream.SetDeadline(deadline); err != nil {
			return nil, err
		}

		env, err := wire.ReadEnvelope(s.stream, s.net)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, errReceiveTimeout
			}
			return nil, err
		}
		if env.BadMagic || env.BadCksum {
			log.Debugf("discarding envelope from %s: bad_magic=%v bad_cksum=%v", s.node.Address, env.BadMagic, env.BadCksum)
			continue
		}

		if env.Command == wire.CmdPing {
			ping, _ := wire.ParseMsgPing(env.Payload)
			if err := s.send(wire.CmdPong, wire.MsgPong{Nonce: ping.Nonce}.Serialize()); err != nil {
				return nil, fmt.Errorf("replying to ping: %w", err)
			}
			continue
		}

		if expected[env.Command] {
			return env, nil
		}
	}
}

var versionExpected = map[wire.Command]bool{wire.CmdVersion: true}

// Handshake sends our version message, waits for the peer's, and replies
// with sendaddrv2 then verack. On timeout or parse failure it increments
// the node's attempt counter and returns false; the caller is responsible
// for re-enqueuing the node if attempts remain.
func (s *Session) Handshake() bool {
	s.state = StateHandshaking
	start := time.Now()

	v := &wire.MsgVersion{
		ProtocolVersion: int32(wire.ProtocolVersion),
		Services:        0,
		Timestamp:       time.Now().Unix(),
		ReceiverIP:      net.IPv6zero,
		SenderIP:        net.IPv6zero,
		Nonce:           randomNonce(),
		UserAgent:       UserAgent,
		LastBlock:       0,
		Relay:           true,
	}
	if err := s.send(wire.CmdVersion, v.Serialize()); err != nil {
		s.node.Stats.HandshakeAttempts++
		log.Debugf("sending version to %s: %v", s.node.Address, err)
		return false
	}

	env, err := s.receiveExpected(versionExpected, s.message)
	if err != nil {
		s.node.Stats.HandshakeAttempts++
		log.Debugf("waiting for version from %s: %v", s.node.Address, err)
		return false
	}

	remote, err := wire.ParseMsgVersion(env.Payload)
	if err != nil {
		s.node.Stats.HandshakeAttempts++
		log.Debugf("parsing version from %s: %v", s.node.Address, err)
		return false
	}

	if err := s.send(wire.CmdSendAddrV2, wire.MsgSendAddrV2{}.Serialize()); err != nil {
		s.node.Stats.HandshakeAttempts++
		return false
	}
	if err := s.send(wire.CmdVerAck, wire.MsgVerAck{}.Serialize()); err != nil {
		s.node.Stats.HandshakeAttempts++
		return false
	}

	s.node.Stats.HandshakeAttempts++
	s.node.Stats.HandshakeTimestamp = time.Now().Unix()
	s.node.Stats.HandshakeDurationSeconds = time.Since(start).Seconds()
	s.node.Stats.Version = remote.ProtocolVersion
	s.node.Stats.Services = uint64(remote.Services)
	s.node.Stats.UserAgent = remote.UserAgent
	s.node.Stats.LatestBlock = remote.LastBlock
	s.node.Stats.Relay = remote.Relay
	s.node.Stats.VersionReplyTimestampRemote = remote.Timestamp

	log.Tracef("version message from %s: %v", s.node.Address, spew.Sdump(remote))

	s.state = StateExchanging
	return true
}

var addrExpected = map[wire.Command]bool{wire.CmdAddr: true, wire.CmdAddrV2: true}

// GetPeerAddrs sends getaddr and accumulates advertised addresses from addr
// and addrv2 replies until the getaddr budget elapses or a single receive
// exceeds the message timeout (a silence gap signaling the peer is done).
// The returned map is keyed by address identity so duplicate advertisements
// collapse to their most recent last-seen time.
func (s *Session) GetPeerAddrs() map[string]addr.Address {
	s.node.Stats.RequestedAddrs++
	result := make(map[string]addr.Address)

	if err := s.send(wire.CmdGetAddr, wire.MsgGetAddr{}.Serialize()); err != nil {
		log.Debugf("sending getaddr to %s: %v", s.node.Address, err)
		return result
	}

	deadline := time.Now().Add(s.getaddr)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		perCall := s.message
		if perCall > remaining {
			perCall = remaining
		}

		env, err := s.receiveExpected(addrExpected, perCall)
		if err != nil {
			break
		}

		switch env.Command {
		case wire.CmdAddr:
			msg, err := wire.ParseMsgAddr(env.Payload)
			if err != nil {
				log.Debugf("parsing addr from %s: %v", s.node.Address, err)
				continue
			}
			s.collect(result, msg.Addrs)
		case wire.CmdAddrV2:
			msg, err := wire.ParseMsgAddrV2(env.Payload)
			if err != nil {
				log.Debugf("parsing addrv2 from %s: %v", s.node.Address, err)
				continue
			}
			s.collect(result, msg.Addrs)
		}
	}

	s.state = StateDone
	return result
}

func (s *Session) collect(result map[string]addr.Address, entries []wire.NetAddr) {
	for _, e := range entries {
		a := addr.New(e.Host, e.Port, int64(e.Timestamp))
		if prev, ok := result[a.Key()]; !ok || a.LastSeen() > prev.LastSeen() {
			result[a.Key()] = a
		}
		s.node.Stats.RecordAdvertised(a.Type())
	}
}
