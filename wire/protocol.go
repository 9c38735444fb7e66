// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the subset of the Bitcoin P2P wire protocol the
// crawler needs to complete a version/verack handshake and collect address
// advertisements: the message envelope, varint encoding, and the version,
// verack, sendaddrv2, ping, pong, getaddr, addr and addrv2 messages.
package wire

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// ProtocolVersion is the protocol version the crawler advertises in its
	// own version message.
	ProtocolVersion uint32 = 70015

	// NetAddressTimeVersion is the protocol version which added the
	// timestamp field to addr message entries (pver >= NetAddressTimeVersion).
	NetAddressTimeVersion uint32 = 31402

	// MultipleAddressVersion is the protocol version which allowed a
	// sender/receiver pair in the version message (pver >= 106).
	MultipleAddressVersion uint32 = 106

	// BIP0037Version is the protocol version which extended the version
	// message with a relay flag (pver >= BIP0037Version).
	BIP0037Version uint32 = 70001

	// AddrV2Version is the protocol version which added the sendaddrv2 and
	// addrv2 messages.
	AddrV2Version uint32 = 70016
)

// ServiceFlag identifies services supported by a bitcoin peer, as
// advertised by that peer in its version message.
type ServiceFlag uint64

const (
	// SFNodeNetwork indicates the peer is a full node that can serve the
	// complete block chain.
	SFNodeNetwork ServiceFlag = 1 << iota

	// SFNodeGetUTXO indicates the peer supports the getutxos/utxos
	// commands (BIP0064).
	SFNodeGetUTXO

	// SFNodeBloom indicates the peer supports bloom filtering (BIP0111).
	SFNodeBloom

	// SFNodeWitness indicates the peer supports segregated witness
	// (BIP0144).
	SFNodeWitness

	// SFNodeXthin indicates the peer supports xthin blocks.
	SFNodeXthin

	// SFNodeBit5 is reserved for a service defined by bit 5.
	SFNodeBit5

	// SFNodeCompactFilters indicates the peer supports committed
	// filters (BIP0157).
	SFNodeCompactFilters

	// SFNodeNetworkLimited indicates the peer only serves the last 288
	// blocks of the chain.
	SFNodeNetworkLimited ServiceFlag = 1 << 10
)

var sfStrings = map[ServiceFlag]string{
	SFNodeNetwork:        "SFNodeNetwork",
	SFNodeGetUTXO:        "SFNodeGetUTXO",
	SFNodeBloom:          "SFNodeBloom",
	SFNodeWitness:        "SFNodeWitness",
	SFNodeXthin:          "SFNodeXthin",
	SFNodeBit5:           "SFNodeBit5",
	SFNodeCompactFilters: "SFNodeCompactFilters",
	SFNodeNetworkLimited: "SFNodeNetworkLimited",
}

var orderedSFStrings = []ServiceFlag{
	SFNodeNetwork,
	SFNodeGetUTXO,
	SFNodeBloom,
	SFNodeWitness,
	SFNodeXthin,
	SFNodeBit5,
	SFNodeCompactFilters,
	SFNodeNetworkLimited,
}

// HasFlag returns whether the service flag set has the given flag.
func (f ServiceFlag) HasFlag(s ServiceFlag) bool {
	return f&s == s
}

// String returns the ServiceFlag in human-readable form.
func (f ServiceFlag) String() string {
	if f == 0 {
		return "0x0"
	}

	s := ""
	for _, flag := range orderedSFStrings {
		if f&flag == flag {
			s += sfStrings[flag] + "|"
			f -= flag
		}
	}

	s = strings.TrimRight(s, "|")
	if f != 0 {
		s += "|0x" + strconv.FormatUint(uint64(f), 16)
	}
	return strings.TrimLeft(s, "|")
}

// BitcoinNet represents which bitcoin network a message envelope's magic
// identifies.
type BitcoinNet uint32

const (
	// MainNet is Bitcoin's production network; the only network the
	// crawler dials. The others are kept so a misbehaving peer's envelope
	// can still be logged intelligibly instead of just printing hex.
	MainNet BitcoinNet = 0xd9b4bef9

	// TestNet3 is Bitcoin's third public test network.
	TestNet3 BitcoinNet = 0x0709110b

	// SigNet is Bitcoin's public default signet.
	SigNet BitcoinNet = 0x40cf030a
)

var bnStrings = map[BitcoinNet]string{
	MainNet:  "MainNet",
	TestNet3: "TestNet3",
	SigNet:   "SigNet",
}

// String returns the BitcoinNet in human-readable form.
func (n BitcoinNet) String() string {
	if s, ok := bnStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown BitcoinNet (0x%08x)", uint32(n))
}

// Command identifies a message's payload type in its envelope.
type Command string

// Commands implemented by the crawler. Message bodies the crawler never
// sends or has a use for decoding (inv, tx, block, headers, ...) are
// intentionally absent: ReadEnvelope still frames them off the wire, but
// node.Session's receive loop simply skips any command it doesn't expect.
const (
	CmdVersion    Command = "version"
	CmdVerAck     Command = "verack"
	CmdSendAddrV2 Command = "sendaddrv2"
	CmdGetAddr    Command = "getaddr"
	CmdAddr       Command = "addr"
	CmdAddrV2     Command = "addrv2"
	CmdPing       Command = "ping"
	CmdPong       Command = "pong"
)
