package addrdata

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/virtu/p2p-crawler/internal/addr"
	"pgregory.net/rapid"
)

func TestZigZagRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x := rapid.Int32().Draw(rt, "x")
		require.Equal(rt, x, zigzagDecode32(zigzagEncode32(x)))
	})
}

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, 1700000000)
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	epoch, records, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, uint32(1700000000), epoch)
	require.Empty(t, records)
}

func TestWriteRecordRoundTripWithDuplicateAddrIDs(t *testing.T) {
	var buf bytes.Buffer
	epoch := uint32(1700000000)
	enc, err := NewEncoder(&buf, epoch)
	require.NoError(t, err)

	// 1000 addresses, 50% duplicate hosts across two node records.
	var firstBatch, secondBatch []addr.Address
	for i := 0; i < 500; i++ {
		a := addr.New(fmt.Sprintf("203.0.%d.%d", i/256, i%256), 8333, int64(epoch)-int64(i))
		firstBatch = append(firstBatch, a)
		secondBatch = append(secondBatch, a) // duplicate: same host+port
	}
	for i := 500; i < 1000; i++ {
		secondBatch = append(secondBatch, addr.New(fmt.Sprintf("198.51.%d.%d", i/256, i%256), 8333, int64(epoch)-int64(i)))
	}

	require.NoError(t, enc.WriteRecord("node-a:8333", firstBatch))
	require.NoError(t, enc.WriteRecord("node-b:8333", secondBatch))
	require.NoError(t, enc.Close())

	gotEpoch, records, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, epoch, gotEpoch)
	require.Len(t, records, 2)

	require.Equal(t, "node-a:8333", records[0].NodeString)
	require.Len(t, records[0].Entries, 500)
	require.Equal(t, "node-b:8333", records[1].NodeString)
	require.Len(t, records[1].Entries, 1000)

	// The first 500 entries of node-b's record are the same addresses as
	// node-a's record, so they must reuse the same interned addr_id.
	for i := 0; i < 500; i++ {
		require.Equal(t, records[0].Entries[i].AddrID, records[1].Entries[i].AddrID)
		require.Equal(t, firstBatch[i].LastSeen(), records[0].Entries[i].LastSeen)
	}

	// The 500 new addresses in node-b's record get ids 500..999, never
	// colliding with node-a's 0..499.
	seen := make(map[uint64]bool)
	for _, e := range records[1].Entries[500:] {
		require.False(t, seen[e.AddrID])
		seen[e.AddrID] = true
		require.GreaterOrEqual(t, e.AddrID, uint64(500))
	}
}

func TestWriteRecordSkipsUnknownType(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, 1700000000)
	require.NoError(t, err)
	require.NoError(t, enc.WriteRecord("node-a:8333", []addr.Address{
		addr.New("not-a-valid-host", 8333, 1700000000),
	}))
	require.NoError(t, enc.Close())

	_, records, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Empty(t, records[0].Entries)
}
