package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// MsgVersion is the "version" message. Field ordering and widths follow the
// Bitcoin wire protocol exactly; the MultipleAddressVersion and
// BIP0037Version constants in protocol.go gate the optional fields that
// ParseMsgVersion reads. Serialize always writes every field.
type MsgVersion struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       int64

	ReceiverServices ServiceFlag
	ReceiverIP       net.IP
	ReceiverPort     uint16

	SenderServices ServiceFlag
	SenderIP       net.IP
	SenderPort     uint16

	Nonce       uint64
	UserAgent   string
	LastBlock   int32
	RelaySet    bool // whether the relay byte was present on the wire
	Relay       bool
}

func writeNetIP(buf *bytes.Buffer, ip net.IP) {
	v16 := ip.To16()
	if v16 == nil {
		v16 = net.IPv4zero.To16()
	}
	buf.Write(v16)
}

// Serialize encodes the version message payload.
func (m *MsgVersion) Serialize() []byte {
	var buf bytes.Buffer

	var b4 [4]byte
	var b8 [8]byte
	var b2 [2]byte

	binary.LittleEndian.PutUint32(b4[:], uint32(m.ProtocolVersion))
	buf.Write(b4[:])

	binary.LittleEndian.PutUint64(b8[:], uint64(m.Services))
	buf.Write(b8[:])

	binary.LittleEndian.PutUint64(b8[:], uint64(m.Timestamp))
	buf.Write(b8[:])

	binary.LittleEndian.PutUint64(b8[:], uint64(m.ReceiverServices))
	buf.Write(b8[:])
	writeNetIP(&buf, m.ReceiverIP)
	binary.BigEndian.PutUint16(b2[:], m.ReceiverPort)
	buf.Write(b2[:])

	binary.LittleEndian.PutUint64(b8[:], uint64(m.SenderServices))
	buf.Write(b8[:])
	writeNetIP(&buf, m.SenderIP)
	binary.BigEndian.PutUint16(b2[:], m.SenderPort)
	buf.Write(b2[:])

	binary.LittleEndian.PutUint64(b8[:], m.Nonce)
	buf.Write(b8[:])

	ua, _ := AppendVarInt(nil, uint64(len(m.UserAgent)))
	buf.Write(ua)
	buf.WriteString(m.UserAgent)

	binary.LittleEndian.PutUint32(b4[:], uint32(m.LastBlock))
	buf.Write(b4[:])

	if m.Relay {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	return buf.Bytes()
}

// ParseMsgVersion decodes a version message payload. Fields gated behind
// MultipleAddressVersion/BIP0037Version are only read if the payload is long
// enough to contain them, mirroring how real nodes still interoperate with
// the (now purely historical) pre-106 and pre-70001 wire formats.
func ParseMsgVersion(payload []byte) (*MsgVersion, error) {
	r := bytes.NewReader(payload)
	m := &MsgVersion{}

	var b4 [4]byte
	var b8 [8]byte
	var b2 [2]byte
	var b16 [16]byte

	if _, err := io.ReadFull(r, b4[:]); err != nil {
		return nil, fmt.Errorf("version.version: %w", err)
	}
	m.ProtocolVersion = int32(binary.LittleEndian.Uint32(b4[:]))

	if _, err := io.ReadFull(r, b8[:]); err != nil {
		return nil, fmt.Errorf("version.services: %w", err)
	}
	m.Services = ServiceFlag(binary.LittleEndian.Uint64(b8[:]))

	if _, err := io.ReadFull(r, b8[:]); err != nil {
		return nil, fmt.Errorf("version.timestamp: %w", err)
	}
	m.Timestamp = int64(binary.LittleEndian.Uint64(b8[:]))

	if _, err := io.ReadFull(r, b8[:]); err != nil {
		return nil, fmt.Errorf("version.receiver_services: %w", err)
	}
	m.ReceiverServices = ServiceFlag(binary.LittleEndian.Uint64(b8[:]))
	if _, err := io.ReadFull(r, b16[:]); err != nil {
		return nil, fmt.Errorf("version.receiver_ip: %w", err)
	}
	m.ReceiverIP = append(net.IP(nil), b16[:]...)
	if _, err := io.ReadFull(r, b2[:]); err != nil {
		return nil, fmt.Errorf("version.receiver_port: %w", err)
	}
	m.ReceiverPort = binary.BigEndian.Uint16(b2[:])

	if uint32(m.ProtocolVersion) < MultipleAddressVersion {
		return m, nil
	}

	if _, err := io.ReadFull(r, b8[:]); err != nil {
		return nil, fmt.Errorf("version.sender_services: %w", err)
	}
	m.SenderServices = ServiceFlag(binary.LittleEndian.Uint64(b8[:]))
	if _, err := io.ReadFull(r, b16[:]); err != nil {
		return nil, fmt.Errorf("version.sender_ip: %w", err)
	}
	m.SenderIP = append(net.IP(nil), b16[:]...)
	if _, err := io.ReadFull(r, b2[:]); err != nil {
		return nil, fmt.Errorf("version.sender_port: %w", err)
	}
	m.SenderPort = binary.BigEndian.Uint16(b2[:])

	if _, err := io.ReadFull(r, b8[:]); err != nil {
		return nil, fmt.Errorf("version.nonce: %w", err)
	}
	m.Nonce = binary.LittleEndian.Uint64(b8[:])

	ua, err := ReadVarString(r)
	if err != nil {
		return nil, fmt.Errorf("version.user_agent: %w", err)
	}
	m.UserAgent = ua

	if _, err := io.ReadFull(r, b4[:]); err != nil {
		return nil, fmt.Errorf("version.last_block: %w", err)
	}
	m.LastBlock = int32(binary.LittleEndian.Uint32(b4[:]))

	if uint32(m.ProtocolVersion) < BIP0037Version {
		return m, nil
	}

	relay := make([]byte, 1)
	if _, err := io.ReadFull(r, relay); err != nil {
		// Some peers omit the relay byte despite advertising >= 70001;
		// tolerate it rather than failing the whole handshake.
		return m, nil
	}
	m.RelaySet = true
	m.Relay = relay[0] != 0

	return m, nil
}
