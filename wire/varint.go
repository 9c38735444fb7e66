package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// ReadVarInt decodes a Bitcoin varint from r.
func ReadVarInt(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, err
	}

	switch prefix[0] {
	case 0xfd:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(b[:])), nil
	case 0xfe:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(b[:])), nil
	case 0xff:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b[:]), nil
	default:
		return uint64(prefix[0]), nil
	}
}

// WriteVarInt encodes i as a Bitcoin varint to w.
func WriteVarInt(w io.Writer, i uint64) error {
	buf, err := AppendVarInt(nil, i)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// AppendVarInt appends i's Bitcoin varint encoding to buf and returns the
// extended slice.
func AppendVarInt(buf []byte, i uint64) ([]byte, error) {
	switch {
	case i < 0xfd:
		return append(buf, byte(i)), nil
	case i <= 0xffff:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(i))
		return append(append(buf, 0xfd), b...), nil
	case i <= 0xffffffff:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(i))
		return append(append(buf, 0xfe), b...), nil
	default:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, i)
		return append(append(buf, 0xff), b...), nil
	}
}

// VarIntLen returns the number of bytes AppendVarInt would emit for i.
func VarIntLen(i uint64) int {
	switch {
	case i < 0xfd:
		return 1
	case i <= 0xffff:
		return 3
	case i <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// ReadVarString reads a varint-prefixed UTF-8 string. On invalid UTF-8 it
// falls back to a hex encoding of the raw bytes, matching the behavior
// required for user-agent strings sent by non-conformant peers.
func ReadVarString(r io.Reader) (string, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return "", fmt.Errorf("reading varstring length: %w", err)
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("reading varstring body: %w", err)
	}
	if !utf8.Valid(buf) {
		return fmt.Sprintf("%x", buf), nil
	}
	return string(buf), nil
}
