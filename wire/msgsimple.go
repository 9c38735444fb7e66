package wire

import (
	"encoding/binary"
)

// MsgVerAck is the empty-payload "verack" message sent to acknowledge a
// received version message.
type MsgVerAck struct{}

// Serialize returns the (empty) verack payload.
func (MsgVerAck) Serialize() []byte { return nil }

// MsgSendAddrV2 is the empty-payload "sendaddrv2" message a node sends
// before its own version message's verack to announce addrv2 support.
type MsgSendAddrV2 struct{}

// Serialize returns the (empty) sendaddrv2 payload.
func (MsgSendAddrV2) Serialize() []byte { return nil }

// MsgGetAddr is the empty-payload "getaddr" message requesting a peer's
// known address table.
type MsgGetAddr struct{}

// Serialize returns the (empty) getaddr payload.
func (MsgGetAddr) Serialize() []byte { return nil }

// MsgPing carries a nonce a peer must echo back in a pong.
type MsgPing struct {
	Nonce uint64
}

// Serialize encodes the ping payload.
func (m MsgPing) Serialize() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, m.Nonce)
	return buf
}

// ParseMsgPing decodes a ping payload. Pre-BIP0031 peers send a ping with no
// payload at all; that decodes to a zero nonce rather than an error, since
// the crawler only ever needs to echo whatever nonce (if any) it received.
func ParseMsgPing(payload []byte) (*MsgPing, error) {
	if len(payload) < 8 {
		return &MsgPing{}, nil
	}
	return &MsgPing{Nonce: binary.LittleEndian.Uint64(payload[:8])}, nil
}

// MsgPong echoes the nonce from a received ping.
type MsgPong struct {
	Nonce uint64
}

// Serialize encodes the pong payload.
func (m MsgPong) Serialize() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, m.Nonce)
	return buf
}

// ParseMsgPong decodes a pong payload.
func ParseMsgPong(payload []byte) (*MsgPong, error) {
	if len(payload) < 8 {
		return &MsgPong{}, nil
	}
	return &MsgPong{Nonce: binary.LittleEndian.Uint64(payload[:8])}, nil
}
