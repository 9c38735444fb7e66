// Package output renders the crawl's terminal state into the file
// artifacts a caller hands off to storage: the reachable-nodes CSV and the
// crawler/address stats JSON documents. Every writer here emits
// uncompressed data; compression and any upload to object storage is the
// caller's responsibility.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/virtu/p2p-crawler/node"
)

// csvColumns is the exact, fixed column order of the reachable-nodes CSV.
var csvColumns = []string{
	"host", "port", "network", "seed_distance",
	"handshake_attempts", "handshake_timestamp", "handshake_duration_seconds",
	"time_connect_seconds",
	"version", "services", "user_agent", "latest_block", "relay",
	"version_reply_timestamp_remote",
	"requested_addrs",
	"advertised_addrs_ipv4", "advertised_addrs_ipv6",
	"advertised_addrs_onion_v2", "advertised_addrs_onion_v3",
	"advertised_addrs_i2p", "advertised_addrs_cjdns", "advertised_addrs_unknown",
}

// WriteReachableNodesCSV writes one row per node in nodes, sorted by
// handshake timestamp, with the fixed column order above.
func WriteReachableNodesCSV(w io.Writer, nodes []*node.Node) error {
	sorted := make([]*node.Node, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Stats.HandshakeTimestamp < sorted[j].Stats.HandshakeTimestamp
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, n := range sorted {
		s := n.Stats
		row := []string{
			n.Address.Host(),
			strconv.Itoa(int(n.Address.Port())),
			n.Address.Type().String(),
			strconv.Itoa(n.SeedDistance),
			strconv.Itoa(s.HandshakeAttempts),
			strconv.FormatInt(s.HandshakeTimestamp, 10),
			strconv.FormatFloat(s.HandshakeDurationSeconds, 'f', -1, 64),
			strconv.FormatFloat(s.TimeConnectSeconds, 'f', -1, 64),
			strconv.FormatInt(int64(s.Version), 10),
			strconv.FormatUint(s.Services, 10),
			s.UserAgent,
			strconv.FormatInt(int64(s.LatestBlock), 10),
			strconv.FormatBool(s.Relay),
			strconv.FormatInt(s.VersionReplyTimestampRemote, 10),
			strconv.Itoa(s.RequestedAddrs),
			strconv.Itoa(s.AdvertisedAddrsIPv4),
			strconv.Itoa(s.AdvertisedAddrsIPv6),
			strconv.Itoa(s.AdvertisedAddrsOnionV2),
			strconv.Itoa(s.AdvertisedAddrsOnionV3),
			strconv.Itoa(s.AdvertisedAddrsI2P),
			strconv.Itoa(s.AdvertisedAddrsCJDNS),
			strconv.Itoa(s.AdvertisedAddrsUnknown),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", n.Address, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SetCounts mirrors frontier.Counts without importing the frontier
// package, so output stays a leaf dependency the way the teacher's own
// serialization helpers do.
type SetCounts struct {
	Pending     int `json:"pending"`
	Next        int `json:"next"`
	Processing  int `json:"processing"`
	Reachable   int `json:"reachable"`
	Unreachable int `json:"unreachable"`
}

// CrawlerStats is the settings-and-outcome snapshot written to
// <...>_crawler_stats.json.
type CrawlerStats struct {
	Settings        map[string]interface{} `json:"settings"`
	StartedAt       int64                  `json:"started_at"`
	RuntimeSeconds  float64                `json:"runtime_seconds"`
	Counts          SetCounts              `json:"counts"`
	PerSeedCounts   map[string]int         `json:"per_seed_counts"`
	ReachableHosts  []string               `json:"reachable_hosts"`
	UnreachableHosts []string              `json:"unreachable_hosts"`
}

// WriteCrawlerStatsJSON writes stats as indented JSON.
func WriteCrawlerStatsJSON(w io.Writer, stats CrawlerStats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// AddressObservation is one (age, timestamp) sample of an advertised
// address, recorded each time an addr/addrv2 record mentions it.
type AddressObservation struct {
	SeenByAgeSeconds float64 `json:"seen_by_age_seconds"`
	SeenByTimestamp  int64   `json:"seen_by_timestamp"`
}

// AddressStats is the optional per-address observation history written to
// <...>_address_stats.json: address string -> every observation seen.
type AddressStats map[string][]AddressObservation

// WriteAddressStatsJSON writes stats as indented JSON.
func WriteAddressStatsJSON(w io.Writer, stats AddressStats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
