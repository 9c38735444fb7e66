package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestVarIntRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		i := rapid.Uint64().Draw(rt, "i")

		var buf bytes.Buffer
		require.NoError(rt, WriteVarInt(&buf, i))
		require.Equal(rt, VarIntLen(i), buf.Len())

		got, err := ReadVarInt(&buf)
		require.NoError(rt, err)
		require.Equal(rt, i, got)
	})
}

func TestVarIntEncodingBoundaries(t *testing.T) {
	cases := []struct {
		i    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{0xfc, []byte{0xfc}},
		{0xfd, []byte{0xfd, 0xfd, 0x00}},
		{0xffff, []byte{0xfd, 0xff, 0xff}},
		{0x10000, []byte{0xfe, 0x00, 0x00, 0x01, 0x00}},
		{0xffffffff, []byte{0xfe, 0xff, 0xff, 0xff, 0xff}},
		{0x100000000, []byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}},
	}
	for _, c := range cases {
		got, err := AppendVarInt(nil, c.i)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}

func TestReadVarStringInvalidUTF8FallsBackToHex(t *testing.T) {
	var buf bytes.Buffer
	raw := []byte{0xff, 0xfe, 0xfd}
	require.NoError(t, WriteVarInt(&buf, uint64(len(raw))))
	buf.Write(raw)

	s, err := ReadVarString(&buf)
	require.NoError(t, err)
	require.Equal(t, "fffefd", s)
}

func TestReadVarStringValidUTF8(t *testing.T) {
	var buf bytes.Buffer
	ua := "/Satoshi:23.0.0/"
	require.NoError(t, WriteVarInt(&buf, uint64(len(ua))))
	buf.WriteString(ua)

	s, err := ReadVarString(&buf)
	require.NoError(t, err)
	require.Equal(t, ua, s)
}

func TestReadVarStringEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVarInt(&buf, 0))

	s, err := ReadVarString(&buf)
	require.NoError(t, err)
	require.Equal(t, "", s)
}
