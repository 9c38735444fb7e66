package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleVersion() *MsgVersion {
	return &MsgVersion{
		ProtocolVersion:  int32(ProtocolVersion),
		Services:         SFNodeNetwork,
		Timestamp:        1700000000,
		ReceiverServices: 0,
		ReceiverIP:       net.ParseIP("203.0.113.1"),
		ReceiverPort:     8333,
		SenderServices:   SFNodeNetwork,
		SenderIP:         net.ParseIP("203.0.113.2"),
		SenderPort:       8333,
		Nonce:            0xdeadbeefcafef00d,
		UserAgent:        "/Satoshi:23.0.0/",
		LastBlock:        800000,
		Relay:            true,
	}
}

func TestMsgVersionRoundTrip(t *testing.T) {
	want := sampleVersion()
	got, err := ParseMsgVersion(want.Serialize())
	require.NoError(t, err)

	require.Equal(t, want.ProtocolVersion, got.ProtocolVersion)
	require.Equal(t, want.Services, got.Services)
	require.Equal(t, want.Timestamp, got.Timestamp)
	require.Equal(t, want.Nonce, got.Nonce)
	require.Equal(t, want.UserAgent, got.UserAgent)
	require.Equal(t, want.LastBlock, got.LastBlock)
	require.True(t, got.RelaySet)
	require.Equal(t, want.Relay, got.Relay)
}

func TestMsgVersionPreMultipleAddressOmitsSender(t *testing.T) {
	v := sampleVersion()
	v.ProtocolVersion = 105
	got, err := ParseMsgVersion(v.Serialize())
	require.NoError(t, err)
	require.Equal(t, int32(105), got.ProtocolVersion)
	require.False(t, got.RelaySet)
}

func TestMsgPingPongRoundTrip(t *testing.T) {
	p := MsgPing{Nonce: 12345}
	got, err := ParseMsgPing(p.Serialize())
	require.NoError(t, err)
	require.Equal(t, p.Nonce, got.Nonce)

	pg := MsgPong{Nonce: 67890}
	gotPong, err := ParseMsgPong(pg.Serialize())
	require.NoError(t, err)
	require.Equal(t, pg.Nonce, gotPong.Nonce)
}

func TestMsgPingEmptyPayloadTolerated(t *testing.T) {
	got, err := ParseMsgPing(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got.Nonce)
}
