// Package addrdata implements the compact, append-only binary log of
// addresses advertised per crawled node: a small header followed by one
// record per node, each listing the addresses it advertised as an
// interned id, a network id, and a zigzag-encoded timestamp delta.
package addrdata

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spaolacci/murmur3"
	"github.com/virtu/p2p-crawler/internal/addr"
	"github.com/virtu/p2p-crawler/wire"
)

const (
	header      = "p2p-addr-data"
	formatVersion byte = 1
	eofMarker   = "EOF"
)

func zigzagEncode32(x int32) uint32 {
	return uint32((x << 1) ^ (x >> 31))
}

func zigzagDecode32(x uint32) int32 {
	return int32(x>>1) ^ -int32(x&1)
}

// Encoder appends node records to an underlying writer in the compact
// addr-data format.
type Encoder struct {
	w     io.Writer
	epoch uint32

	nextID uint32
	ids    map[uint32]uint32 // murmur3(addr string) -> interned addr_id
}

// NewEncoder writes the format header (epoch fixes the basis every
// record's timestamp delta is computed against) and returns an Encoder
// ready for WriteRecord calls.
func NewEncoder(w io.Writer, epoch uint32) (*Encoder, error) {
	e := &Encoder{w: w, epoch: epoch, ids: make(map[uint32]uint32)}

	var buf []byte
	buf = append(buf, header...)
	buf = append(buf, formatVersion)
	var epochBuf [4]byte
	binary.BigEndian.PutUint32(epochBuf[:], epoch)
	buf = append(buf, epochBuf[:]...)
	buf = append(buf, '\n')

	if _, err := w.Write(buf); err != nil {
		return nil, fmt.Errorf("writing addr-data header: %w", err)
	}
	return e, nil
}

// addrID returns the interned id for a, assigning the next sequential id
// the first time a's MurmurHash3-32 hash is seen.
func (e *Encoder) addrID(a addr.Address) uint32 {
	h := murmur3.Sum32([]byte(a.String()))
	if id, ok := e.ids[h]; ok {
		return id
	}
	id := e.nextID
	e.nextID++
	e.ids[h] = id
	return id
}

// WriteRecord appends one node's advertised addresses. Addresses of
// TypeUnknown are skipped: they have no slot in addr.Types and so no
// representable net_id.
func (e *Encoder) WriteRecord(nodeString string, advertised []addr.Address) error {
	var buf []byte

	nsLen, _ := wire.AppendVarInt(nil, uint64(len(nodeString)))
	buf = append(buf, nsLen...)
	buf = append(buf, nodeString...)

	kept := make([]addr.Address, 0, len(advertised))
	for _, a := range advertised {
		if a.Type().NetID() >= 0 {
			kept = append(kept, a)
		}
	}

	cntBuf, _ := wire.AppendVarInt(nil, uint64(len(kept)))
	buf = append(buf, cntBuf...)

	for _, a := range kept {
		id := e.addrID(a)
		netID := uint64(a.Type().NetID())
		key := (uint64(id) << 3) | netID
		keyBuf, _ := wire.AppendVarInt(nil, key)
		buf = append(buf, keyBuf...)

		delta := int64(e.epoch) - a.LastSeen()
		zz := zigzagEncode32(int32(delta))
		zzBuf, _ := wire.AppendVarInt(nil, uint64(zz))
		buf = append(buf, zzBuf...)
	}
	buf = append(buf, '\n')

	_, err := e.w.Write(buf)
	return err
}

// Close writes the literal "EOF" trailer that marks the end of the log.
func (e *Encoder) Close() error {
	_, err := e.w.Write([]byte(eofMarker))
	return err
}

// Entry is one decoded (addr_id, net_id, last_seen) triple within a Record.
type Entry struct {
	AddrID   uint64
	NetID    int
	LastSeen int64
}

// Record is one decoded node record.
type Record struct {
	NodeString string
	Entries    []Entry
}

// Decode reads a full addr-data log, returning the epoch from its header
// and every node record up to the "EOF" trailer.
func Decode(r io.Reader) (epoch uint32, records []Record, err error) {
	br := bufio.NewReader(r)

	hdr := make([]byte, len(header))
	if _, err := io.ReadFull(br, hdr); err != nil {
		return 0, nil, fmt.Errorf("reading addr-data header: %w", err)
	}
	if string(hdr) != header {
		return 0, nil, fmt.Errorf("addr-data header mismatch: got %q", hdr)
	}

	ver, err := br.ReadByte()
	if err != nil {
		return 0, nil, fmt.Errorf("reading addr-data version: %w", err)
	}
	if ver != formatVersion {
		return 0, nil, fmt.Errorf("unsupported addr-data version %d", ver)
	}

	var epochBuf [4]byte
	if _, err := io.ReadFull(br, epochBuf[:]); err != nil {
		return 0, nil, fmt.Errorf("reading addr-data epoch: %w", err)
	}
	epoch = binary.BigEndian.Uint32(epochBuf[:])

	if _, err := br.ReadByte(); err != nil { // header's trailing newline
		return 0, nil, fmt.Errorf("reading addr-data header terminator: %w", err)
	}

	for {
		peek, peekErr := br.Peek(len(eofMarker))
		if peekErr == nil && string(peek) == eofMarker {
			break
		}

		nsLen, err := wire.ReadVarInt(br)
		if err != nil {
			if err == io.EOF {
				break
			}
			return epoch, records, fmt.Errorf("reading node_string length: %w", err)
		}

		nodeBytes := make([]byte, nsLen)
		if _, err := io.ReadFull(br, nodeBytes); err != nil {
			return epoch, records, fmt.Errorf("reading node_string: %w", err)
		}

		numEntries, err := wire.ReadVarInt(br)
		if err != nil {
			return epoch, records, fmt.Errorf("reading num_entries: %w", err)
		}

		entries := make([]Entry, 0, numEntries)
		for i := uint64(0); i < numEntries; i++ {
			key, err := wire.ReadVarInt(br)
			if err != nil {
				return epoch, records, fmt.Errorf("reading entry %d key: %w", i, err)
			}
			zz, err := wire.ReadVarInt(br)
			if err != nil {
				return epoch, records, fmt.Errorf("reading entry %d delta: %w", i, err)
			}
			delta := zigzagDecode32(uint32(zz))
			entries = append(entries, Entry{
				AddrID:   key >> 3,
				NetID:    int(key & 0x7),
				LastSeen: int64(epoch) - int64(delta),
			})
		}

		if _, err := br.ReadByte(); err != nil { // record's trailing newline
			return epoch, records, fmt.Errorf("reading record terminator: %w", err)
		}

		records = append(records, Record{NodeString: string(nodeBytes), Entries: entries})
	}

	return epoch, records, nil
}
