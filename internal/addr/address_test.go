package addr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		host string
		want Type
	}{
		{"203.0.113.1", TypeIPv4},
		{"2001:db8::1", TypeIPv6},
		{"fc00::1", TypeCJDNS},
		{"FC00::1", TypeCJDNS},
		{"aaaaaaaaaaaaaaaa.onion", TypeOnionV2},
		{"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb.onion", TypeOnionV3},
		{"not-a-real-host", TypeUnknown},
		{"999.999.999.999", TypeUnknown},
	}
	for _, c := range cases {
		require.Equalf(t, c.want, classify(c.host), "host=%s", c.host)
	}
}

func TestI2PClassification(t *testing.T) {
	// .b32.i2p hosts must be exactly 60 characters to classify as i2p.
	base32part := "abcdefghijklmnopqrstuvwxyz234567abcdefghijklmnopqrst" // 52 chars
	host := base32part + ".b32.i2p"
	require.Len(t, host, 60)
	require.Equal(t, TypeI2P, classify(host))
}

func TestStringBracketsIPv6AndCJDNS(t *testing.T) {
	require.Equal(t, "[2001:db8::1]:8333", New("2001:db8::1", 8333, 0).String())
	require.Equal(t, "[fc00::1]:8333", New("fc00::1", 8333, 0).String())
	require.Equal(t, "203.0.113.1:8333", New("203.0.113.1", 8333, 0).String())
}

func TestKeyIgnoresLastSeen(t *testing.T) {
	a := New("203.0.113.1", 8333, 100)
	b := New("203.0.113.1", 8333, 200)
	require.Equal(t, a.Key(), b.Key())
}

func TestNetIDOrdering(t *testing.T) {
	require.Equal(t, 0, TypeIPv4.NetID())
	require.Equal(t, 1, TypeIPv6.NetID())
	require.Equal(t, 2, TypeOnionV2.NetID())
	require.Equal(t, 3, TypeOnionV3.NetID())
	require.Equal(t, 4, TypeI2P.NetID())
	require.Equal(t, 5, TypeCJDNS.NetID())
	require.Equal(t, -1, TypeUnknown.NetID())
}
