package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMsgAddrV2RoundTripIPv4(t *testing.T) {
	m := &MsgAddrV2{Addrs: []NetAddr{
		{Timestamp: 1700000000, Services: SFNodeNetwork, NetID: NetIDIPv4, Host: "203.0.113.1", Port: 8333},
	}}
	payload, err := m.Serialize()
	require.NoError(t, err)

	got, err := ParseMsgAddrV2(payload)
	require.NoError(t, err)
	require.Len(t, got.Addrs, 1)
	require.Equal(t, "203.0.113.1", got.Addrs[0].Host)
	require.Equal(t, uint16(8333), got.Addrs[0].Port)
}

func TestEncodeHostTorV3(t *testing.T) {
	pubkey := make([]byte, 32)
	for i := range pubkey {
		pubkey[i] = byte(i)
	}
	host, err := EncodeHost(NetIDTorV3, pubkey)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(host, ".onion"))
	require.Len(t, host, 62) // 56-char base32(35 bytes) + ".onion"
}

func TestEncodeHostI2P(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i * 7)
	}
	host, err := EncodeHost(NetIDI2P, raw)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(host, ".b32.i2p"))
}

func TestEncodeHostRejectsWrongLength(t *testing.T) {
	_, err := EncodeHost(NetIDTorV3, make([]byte, 10))
	require.Error(t, err)
}

func TestParseMsgAddrV2AbortsOnBadLength(t *testing.T) {
	// One entry, with a mismatched addr-length for ipv4.
	var payload []byte
	countBuf, _ := AppendVarInt(nil, 1)
	payload = append(payload, countBuf...)
	payload = append(payload, 0, 0, 0, 0) // timestamp
	svcBuf, _ := AppendVarInt(nil, 0)
	payload = append(payload, svcBuf...)
	payload = append(payload, byte(NetIDIPv4))
	lenBuf, _ := AppendVarInt(nil, 6) // wrong: ipv4 wants 4
	payload = append(payload, lenBuf...)
	payload = append(payload, make([]byte, 6)...)
	payload = append(payload, 0, 0) // port

	got, err := ParseMsgAddrV2(payload)
	require.Error(t, err)
	require.Empty(t, got.Addrs)
}

func TestParseMsgAddrRoundTrip(t *testing.T) {
	m := &MsgAddr{Addrs: []NetAddr{
		{Timestamp: 1700000000, Services: SFNodeNetwork, NetID: NetIDIPv4, Host: "203.0.113.1", Port: 8333},
	}}
	got, err := ParseMsgAddr(m.Serialize())
	require.NoError(t, err)
	require.Len(t, got.Addrs, 1)
	require.Equal(t, "203.0.113.1", got.Addrs[0].Host)
}
