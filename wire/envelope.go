package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// commandSize is the fixed, NUL-padded width of the command field.
	commandSize = 12

	// MaxPayloadLength caps the size of a single message payload. getaddr
	// replies from a misbehaving or malicious peer could otherwise claim an
	// arbitrarily large payload and exhaust memory before the mismatched
	// checksum is even checked.
	MaxPayloadLength = 4 * 1024 * 1024
)

// Envelope is the header+payload framing every Bitcoin P2P message travels
// in: a 4-byte network magic, a 12-byte NUL-padded command, a 4-byte
// little-endian payload length, a 4-byte checksum, and the payload itself.
type Envelope struct {
	Net      BitcoinNet
	Command  Command
	Payload  []byte
	BadMagic bool // true if Net didn't match the expected network
	BadCksum bool // true if the checksum didn't match the payload
}

func hash256(b []byte) []byte {
	h := chainhash.DoubleHashB(b)
	return h[:]
}

// ReadEnvelope reads exactly one framed message off r. A magic or checksum
// mismatch is recorded on the returned Envelope rather than treated as a
// fatal error: the envelope's declared payload length is still honored, so
// the stream stays framed correctly for the next message.
func ReadEnvelope(r io.Reader, want BitcoinNet) (*Envelope, error) {
	var hdr [4 + commandSize + 4 + 4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("reading envelope header: %w", err)
	}

	net := BitcoinNet(binary.LittleEndian.Uint32(hdr[0:4]))
	cmdBytes := hdr[4 : 4+commandSize]
	end := 0
	for end < len(cmdBytes) && cmdBytes[end] != 0 {
		end++
	}
	cmd := Command(cmdBytes[:end])

	payloadLen := binary.LittleEndian.Uint32(hdr[4+commandSize : 4+commandSize+4])
	if payloadLen > MaxPayloadLength {
		return nil, fmt.Errorf("payload of %d bytes exceeds max of %d", payloadLen, MaxPayloadLength)
	}
	checksum := hdr[4+commandSize+4:]

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("reading envelope payload (command=%s): %w", cmd, err)
	}

	expected := hash256(payload)[:4]
	env := &Envelope{
		Net:      net,
		Command:  cmd,
		Payload:  payload,
		BadMagic: net != want,
		BadCksum: string(expected) != string(checksum),
	}
	return env, nil
}

// Serialize writes the envelope (magic, command, length, checksum, payload)
// to w.
func Serialize(w io.Writer, net BitcoinNet, cmd Command, payload []byte) error {
	var hdr [4 + commandSize + 4 + 4]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(net))
	copy(hdr[4:4+commandSize], []byte(cmd))
	binary.LittleEndian.PutUint32(hdr[4+commandSize:4+commandSize+4], uint32(len(payload)))
	copy(hdr[4+commandSize+4:], hash256(payload)[:4])

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
