package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeReadEnvelopeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello world")
	require.NoError(t, Serialize(&buf, MainNet, CmdPing, payload))

	env, err := ReadEnvelope(&buf, MainNet)
	require.NoError(t, err)
	require.Equal(t, MainNet, env.Net)
	require.Equal(t, CmdPing, env.Command)
	require.Equal(t, payload, env.Payload)
	require.False(t, env.BadMagic)
	require.False(t, env.BadCksum)
}

func TestReadEnvelopeFlagsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, TestNet3, CmdVerAck, nil))

	env, err := ReadEnvelope(&buf, MainNet)
	require.NoError(t, err)
	require.True(t, env.BadMagic)
}

func TestReadEnvelopeFlagsBadChecksum(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, MainNet, CmdPing, []byte("payload")))

	raw := buf.Bytes()
	// Corrupt the checksum field (bytes 20-23) without touching length.
	raw[20] ^= 0xff

	env, err := ReadEnvelope(bytes.NewReader(raw), MainNet)
	require.NoError(t, err)
	require.True(t, env.BadCksum)
}

func TestReadEnvelopeRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, MainNet, CmdAddr, nil))

	raw := buf.Bytes()
	raw[16] = 0xff
	raw[17] = 0xff
	raw[18] = 0xff
	raw[19] = 0xff

	_, err := ReadEnvelope(bytes.NewReader(raw), MainNet)
	require.Error(t, err)
}
