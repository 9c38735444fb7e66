// Package history persists the set of addresses known reachable across
// runs, with a retry budget that ages an address out after it has been
// unreachable for too many consecutive runs. The store is gzip-compressed
// JSON; see SPEC_FULL.md for why gzip (stdlib-only) was chosen over the
// bz2 literal in the original format: Go's compress/bzip2 is decode-only
// and no pure-Go bz2 encoder exists anywhere in this module's dependency
// corpus.
package history

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/virtu/p2p-crawler/internal/addr"
	"github.com/virtu/p2p-crawler/node"
)

// log is the package logger; disabled until UseLogger is called.
var log btclog.Logger

func init() {
	DisableLog()
}

// UseLogger sets the logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// DisableLog disables all library log output.
func DisableLog() {
	log = btclog.Disabled
}

// formatVersion is written to _metadata.version and bumped if the on-disk
// schema changes incompatibly.
const formatVersion = 1

// synthethicSeedDistance is the seed distance assigned to nodes read back
// from history, so the ordinary DNS-seed waves are always tried first.
const synthethicSeedDistance = 100

// Entry is one historical address's retry-budget state.
type Entry struct {
	NetworkType string `json:"network_type"`
	RetriesLeft int    `json:"retries_left"`
}

// RunStats is one run's summary, appended to _metadata on every
// UpdateAndPersist call.
type RunStats struct {
	Timestamp       int64          `json:"timestamp"`
	CountsByNetType map[string]int `json:"counts_by_net_type"`
}

type metadata struct {
	LastRun int64      `json:"last_run"`
	Version int        `json:"version"`
	Runs    []RunStats `json:"runs"`
}

// document is the on-disk schema: _metadata plus reachable_nodes keyed by
// address string.
type document struct {
	Metadata  metadata          `json:"_metadata"`
	Reachable map[string]*Entry `json:"reachable_nodes"`
}

// Store is an in-memory history, loaded from and persisted to a single
// file path.
type Store struct {
	path       string
	maxRetries int
	doc        document
}

// Load reads path if it exists, or returns an empty Store if it doesn't
// (a fresh history). maxRetries governs how many consecutive unreachable
// runs an address survives before it's forgotten.
func Load(path string, maxRetries int) (*Store, error) {
	s := &Store{
		path:       path,
		maxRetries: maxRetries,
		doc: document{
			Metadata:  metadata{Version: formatVersion},
			Reachable: make(map[string]*Entry),
		},
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening history file %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening gzip reader for %s: %w", path, err)
	}
	defer gz.Close()

	if err := json.NewDecoder(gz).Decode(&s.doc); err != nil {
		return nil, fmt.Errorf("decoding history file %s: %w", path, err)
	}
	if s.doc.Reachable == nil {
		s.doc.Reachable = make(map[string]*Entry)
	}
	return s, nil
}

// GetReachableNodes returns every historical address as a node.Node at the
// synthetic seed distance used to defer history-sourced candidates behind
// the ordinary DNS-seed waves.
func (s *Store) GetReachableNodes(maxHandshakeAttempts int) []*node.Node {
	out := make([]*node.Node, 0, len(s.doc.Reachable))
	for key := range s.doc.Reachable {
		host, port, err := splitHostPort(key)
		if err != nil {
			log.Warnf("skipping malformed history address %q: %v", key, err)
			continue
		}
		out = append(out, node.New(addr.New(host, port, 0), synthethicSeedDistance, maxHandshakeAttempts))
	}
	return out
}

// UpdateAndPersist reconciles history against this run's reachable and
// unreachable sets, then rewrites the file:
//   - addresses reachable now but not in history are inserted with a full
//     retry budget;
//   - addresses both in history and unreachable now are decremented,
//     removed once their budget reaches zero;
//   - addresses both in history and reachable now have their budget reset.
func (s *Store) UpdateAndPersist(reachableNow, unreachableNow []*node.Node) error {
	countsByNetType := make(map[string]int)

	for _, n := range reachableNow {
		key := n.Address.String()
		entry, existed := s.doc.Reachable[key]
		if !existed {
			entry = &Entry{NetworkType: n.Address.Type().String()}
			s.doc.Reachable[key] = entry
		}
		entry.RetriesLeft = s.maxRetries
		countsByNetType[entry.NetworkType]++
	}

	for _, n := range unreachableNow {
		key := n.Address.String()
		entry, existed := s.doc.Reachable[key]
		if !existed {
			continue
		}
		entry.RetriesLeft--
		if entry.RetriesLeft <= 0 {
			delete(s.doc.Reachable, key)
		}
	}

	s.doc.Metadata.LastRun = time.Now().Unix()
	s.doc.Metadata.Version = formatVersion
	s.doc.Metadata.Runs = append(s.doc.Metadata.Runs, RunStats{
		Timestamp:       s.doc.Metadata.LastRun,
		CountsByNetType: countsByNetType,
	})

	return s.persist()
}

// persist writes the document to a temp file in the same directory, then
// renames it over path, so a concurrent reader never observes a partial
// write.
func (s *Store) persist() error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp history file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	gz := gzip.NewWriter(tmp)
	if err := json.NewEncoder(gz).Encode(s.doc); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding history document: %w", err)
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("closing gzip writer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp history file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, s.path, err)
	}
	return nil
}

func splitHostPort(addrString string) (string, uint16, error) {
	host, portStr, err := splitLast(addrString, ':')
	if err != nil {
		return "", 0, err
	}
	var port uint16
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", addrString, err)
	}
	// Addresses whose host contains colons (IPv6/CJDNS) are bracketed;
	// strip the brackets back off.
	if len(host) >= 2 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}
	return host, port, nil
}

func splitLast(s string, sep byte) (before, after string, err error) {
	idx := -1
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == sep {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", "", fmt.Errorf("no %q found in %q", string(sep), s)
	}
	return s[:idx], s[idx+1:], nil
}
