package wire

import (
	"bytes"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"golang.org/x/crypto/sha3"
)

// NetID identifies the address encoding of an addrv2 entry, per BIP-155.
type NetID uint8

const (
	NetIDIPv4  NetID = 1
	NetIDIPv6  NetID = 2
	NetIDTorV2 NetID = 3
	NetIDTorV3 NetID = 4
	NetIDI2P   NetID = 5
	NetIDCJDNS NetID = 6
)

// addrSizes gives the canonical byte length of each NetID's address field.
var addrSizes = map[NetID]int{
	NetIDIPv4:  4,
	NetIDIPv6:  16,
	NetIDTorV2: 10,
	NetIDTorV3: 32,
	NetIDI2P:   32,
	NetIDCJDNS: 16,
}

var b32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// NetAddr is one decoded network address as carried by an addr or addrv2
// message: a peer's (host, port, advertised last-seen time).
type NetAddr struct {
	Timestamp uint32
	Services  ServiceFlag
	NetID     NetID
	Host      string // string form per the BIP-155 table; see EncodeHost
	Port      uint16
}

// torV3Checksum computes the 2-byte checksum BIP-155 embeds in a torv3
// address: the first two bytes of SHA3-256(".onion checksum" || pubkey || 0x03).
func torV3Checksum(pubkey []byte) []byte {
	h := sha3.New256()
	h.Write([]byte(".onion checksum"))
	h.Write(pubkey)
	h.Write([]byte{0x03})
	sum := h.Sum(nil)
	return sum[:2]
}

// EncodeHost renders the raw addr-bytes for a NetID into the string form
// given by the BIP-155 table (dotted quad, bracket-free ipv6, or a
// $base32.onion / $base32.b32.i2p hostname).
func EncodeHost(id NetID, raw []byte) (string, error) {
	switch id {
	case NetIDIPv4:
		if len(raw) != 4 {
			return "", fmt.Errorf("ipv4 address must be 4 bytes, got %d", len(raw))
		}
		return net.IP(raw).String(), nil
	case NetIDIPv6:
		if len(raw) != 16 {
			return "", fmt.Errorf("ipv6 address must be 16 bytes, got %d", len(raw))
		}
		ip := net.IP(raw)
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
		return ip.String(), nil
	case NetIDTorV2:
		if len(raw) != 10 {
			return "", fmt.Errorf("torv2 address must be 10 bytes, got %d", len(raw))
		}
		return b32NoPad.EncodeToString(raw) + ".onion", nil
	case NetIDTorV3:
		if len(raw) != 32 {
			return "", fmt.Errorf("torv3 address must be 32 bytes, got %d", len(raw))
		}
		checksum := torV3Checksum(raw)
		full := make([]byte, 0, 35)
		full = append(full, raw...)
		full = append(full, checksum...)
		full = append(full, 0x03)
		return b32NoPad.EncodeToString(full) + ".onion", nil
	case NetIDI2P:
		if len(raw) != 32 {
			return "", fmt.Errorf("i2p address must be 32 bytes, got %d", len(raw))
		}
		return b32NoPad.EncodeToString(raw) + ".b32.i2p", nil
	case NetIDCJDNS:
		if len(raw) != 16 {
			return "", fmt.Errorf("cjdns address must be 16 bytes, got %d", len(raw))
		}
		return net.IP(raw).String(), nil
	default:
		return "", fmt.Errorf("unsupported net id %d", id)
	}
}

// MsgAddr is the legacy "addr" message: a list of IPv4/IPv6 addresses with no
// explicit network id (IPv4 is carried as an IPv4-mapped IPv6 address).
type MsgAddr struct {
	Addrs []NetAddr
}

// ParseMsgAddr decodes an addr message payload.
func ParseMsgAddr(payload []byte) (*MsgAddr, error) {
	r := bytes.NewReader(payload)
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("addr.count: %w", err)
	}

	m := &MsgAddr{}
	for i := uint64(0); i < count; i++ {
		var ts [4]byte
		if _, err := io.ReadFull(r, ts[:]); err != nil {
			return m, fmt.Errorf("addr[%d].timestamp: %w", i, err)
		}
		var svc [8]byte
		if _, err := io.ReadFull(r, svc[:]); err != nil {
			return m, fmt.Errorf("addr[%d].services: %w", i, err)
		}
		var ip [16]byte
		if _, err := io.ReadFull(r, ip[:]); err != nil {
			return m, fmt.Errorf("addr[%d].ip: %w", i, err)
		}
		var port [2]byte
		if _, err := io.ReadFull(r, port[:]); err != nil {
			return m, fmt.Errorf("addr[%d].port: %w", i, err)
		}

		netIP := net.IP(ip[:])
		id := NetIDIPv6
		host := netIP.String()
		if v4 := netIP.To4(); v4 != nil {
			id = NetIDIPv4
			host = v4.String()
		}

		m.Addrs = append(m.Addrs, NetAddr{
			Timestamp: binary.LittleEndian.Uint32(ts[:]),
			Services:  ServiceFlag(binary.LittleEndian.Uint64(svc[:])),
			NetID:     id,
			Host:      host,
			Port:      binary.BigEndian.Uint16(port[:]),
		})
	}
	return m, nil
}

// Serialize encodes the addr message payload. Only ipv4/ipv6 entries can be
// represented; the crawler never builds an addr message with any other
// NetID, but entries of an unsupported type are skipped defensively.
func (m *MsgAddr) Serialize() []byte {
	var buf bytes.Buffer
	countBuf, _ := AppendVarInt(nil, uint64(len(m.Addrs)))
	buf.Write(countBuf)

	for _, a := range m.Addrs {
		var ts [4]byte
		binary.LittleEndian.PutUint32(ts[:], a.Timestamp)
		buf.Write(ts[:])

		var svc [8]byte
		binary.LittleEndian.PutUint64(svc[:], uint64(a.Services))
		buf.Write(svc[:])

		ip := net.ParseIP(a.Host)
		if ip == nil {
			ip = net.IPv6zero
		}
		buf.Write(ip.To16())

		var port [2]byte
		binary.BigEndian.PutUint16(port[:], a.Port)
		buf.Write(port[:])
	}
	return buf.Bytes()
}

// MsgAddrV2 is the BIP-155 "addrv2" message: a list of addresses each
// tagged with an explicit network id, so non-IP networks (Tor, I2P, CJDNS)
// can be advertised without overloading the IPv6 address space.
type MsgAddrV2 struct {
	Addrs []NetAddr
}

// ParseMsgAddrV2 decodes an addrv2 message payload. An entry whose
// addr-length doesn't match its NetID's canonical size, or whose NetID is
// unrecognized, aborts decoding of the *remaining* entries but returns the
// ones already parsed, per the wire format's recoverable-mid-list behavior.
func ParseMsgAddrV2(payload []byte) (*MsgAddrV2, error) {
	r := bytes.NewReader(payload)
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("addrv2.count: %w", err)
	}

	m := &MsgAddrV2{}
	for i := uint64(0); i < count; i++ {
		var ts [4]byte
		if _, err := io.ReadFull(r, ts[:]); err != nil {
			return m, fmt.Errorf("addrv2[%d].timestamp: %w", i, err)
		}

		services, err := ReadVarInt(r)
		if err != nil {
			return m, fmt.Errorf("addrv2[%d].services: %w", i, err)
		}

		var idByte [1]byte
		if _, err := io.ReadFull(r, idByte[:]); err != nil {
			return m, fmt.Errorf("addrv2[%d].net_id: %w", i, err)
		}
		id := NetID(idByte[0])

		addrLen, err := ReadVarInt(r)
		if err != nil {
			return m, fmt.Errorf("addrv2[%d].addr_len: %w", i, err)
		}

		wantLen, known := addrSizes[id]
		if !known {
			return m, fmt.Errorf("addrv2[%d]: unsupported net id %d, aborting remaining entries", i, id)
		}
		if int(addrLen) != wantLen {
			return m, fmt.Errorf("addrv2[%d]: net id %d expects %d address bytes, got %d, aborting remaining entries", i, id, wantLen, addrLen)
		}

		raw := make([]byte, addrLen)
		if _, err := io.ReadFull(r, raw); err != nil {
			return m, fmt.Errorf("addrv2[%d].addr: %w", i, err)
		}

		var port [2]byte
		if _, err := io.ReadFull(r, port[:]); err != nil {
			return m, fmt.Errorf("addrv2[%d].port: %w", i, err)
		}

		host, err := EncodeHost(id, raw)
		if err != nil {
			return m, fmt.Errorf("addrv2[%d]: %w, aborting remaining entries", i, err)
		}

		m.Addrs = append(m.Addrs, NetAddr{
			Timestamp: binary.LittleEndian.Uint32(ts[:]),
			Services:  ServiceFlag(services),
			NetID:     id,
			Host:      host,
			Port:      binary.BigEndian.Uint16(port[:]),
		})
	}
	return m, nil
}

// Serialize encodes the addrv2 message payload.
func (m *MsgAddrV2) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	countBuf, _ := AppendVarInt(nil, uint64(len(m.Addrs)))
	buf.Write(countBuf)

	for _, a := range m.Addrs {
		var ts [4]byte
		binary.LittleEndian.PutUint32(ts[:], a.Timestamp)
		buf.Write(ts[:])

		svcBuf, _ := AppendVarInt(nil, uint64(a.Services))
		buf.Write(svcBuf)

		buf.WriteByte(byte(a.NetID))

		raw, err := decodeHostBytes(a.NetID, a.Host)
		if err != nil {
			return nil, fmt.Errorf("encoding addrv2 entry for %s: %w", a.Host, err)
		}
		lenBuf, _ := AppendVarInt(nil, uint64(len(raw)))
		buf.Write(lenBuf)
		buf.Write(raw)

		var port [2]byte
		binary.BigEndian.PutUint16(port[:], a.Port)
		buf.Write(port[:])
	}
	return buf.Bytes(), nil
}

// decodeHostBytes is the inverse of EncodeHost, used only when the crawler
// itself serializes an addrv2 message (the stub test harness in node tests).
func decodeHostBytes(id NetID, host string) ([]byte, error) {
	switch id {
	case NetIDIPv4:
		ip := net.ParseIP(host).To4()
		if ip == nil {
			return nil, fmt.Errorf("invalid ipv4 host %q", host)
		}
		return ip, nil
	case NetIDIPv6, NetIDCJDNS:
		ip := net.ParseIP(host)
		if ip == nil {
			return nil, fmt.Errorf("invalid ipv6/cjdns host %q", host)
		}
		return ip.To16(), nil
	default:
		return nil, fmt.Errorf("encoding net id %d not supported", id)
	}
}
