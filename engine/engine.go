// Package engine drives the crawl: it seeds the frontier, runs a pool of
// worker goroutines pulling nodes from it until the frontier reports no
// nodes left, and a monitor goroutine that logs progress until the workers
// are done. The worker-pool/monitor/quit-
// channel structure follows the teacher's mining controller idiom.
package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/virtu/p2p-crawler/dnsseed"
	"github.com/virtu/p2p-crawler/frontier"
	"github.com/virtu/p2p-crawler/history"
	"github.com/virtu/p2p-crawler/internal/addr"
	"github.com/virtu/p2p-crawler/node"
	"github.com/virtu/p2p-crawler/transport"
	"github.com/virtu/p2p-crawler/wire"
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

const monitorInterval = 5 * time.Second

// Config bundles every tunable the engine needs to run a crawl.
type Config struct {
	NumWorkers            int
	NodeShare             float64 // fraction of reachable nodes whose peers are collected
	HandshakeAttempts     int
	GetAddrAttempts       int // total getaddr attempts; later ones run only if a node returned zero addresses
	DelayStart            time.Duration
	DNSSeedTimeout        time.Duration
	Net                   wire.BitcoinNet
	StalenessWindow       time.Duration
	RetryPolicy           frontier.RetryPolicy

	Dialer   transport.Dialer
	Timeouts node.ClassTimeouts

	History *history.Store // nil disables the optional second pass

	RecordAddrStats bool
	OnAdvertised    func(a addr.Address, seenAt time.Time) // nil if RecordAddrStats is false
	RecordAddrData  bool
	OnAddrRecord    func(nodeString string, advertised []addr.Address) // nil if RecordAddrData is false
}

// Engine owns the frontier and runs the crawl described by a Config.
type Engine struct {
	cfg      Config
	frontier *frontier.Frontier
	wg       sync.WaitGroup
	start    time.Time
}

// New constructs an Engine with a fresh Frontier.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:      cfg,
		frontier: frontier.New(cfg.StalenessWindow, cfg.RetryPolicy),
	}
}

// Frontier exposes the engine's frontier for callers that need its final
// snapshot (the cmd layer, writing stats and reachable-nodes output).
func (e *Engine) Frontier() *frontier.Frontier { return e.frontier }

// Run executes the full start sequence: delay, DNS seeding, worker pool,
// optional history second pass. It blocks until the workers have drained
// the frontier, then stops the monitor.
func (e *Engine) Run() {
	e.start = time.Now()

	if e.cfg.DelayStart > 0 {
		log.Infof("delaying start by %s for sidecar services to initialize", e.cfg.DelayStart)
		time.Sleep(e.cfg.DelayStart)
	}

	seeded := dnsseed.Lookup(dnsseed.SystemResolver{}, e.cfg.DNSSeedTimeout)
	e.frontier.Init(seeded, e.cfg.HandshakeAttempts)

	monitorQuit := make(chan struct{})
	go e.monitor(monitorQuit)

	e.runWorkerPass()

	if e.cfg.History != nil {
		historical := e.cfg.History.GetReachableNodes(e.cfg.HandshakeAttempts)
		if len(historical) > 0 {
			log.Infof("merging %d historical nodes into pending for a second pass", len(historical))
			e.frontier.MergeHistorical(historical)
			e.runWorkerPass()
		}
	}

	close(monitorQuit)
}

// runWorkerPass spawns NumWorkers workers and waits for all of them (and,
// transitively, nodesLeft) to report the frontier drained.
func (e *Engine) runWorkerPass() {
	var wg sync.WaitGroup
	for i := 0; i < e.cfg.NumWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			e.worker(id)
		}(i)
	}
	wg.Wait()
}

// worker repeatedly pulls a node from the frontier and drives its session
// until the frontier reports no nodes left.
func (e *Engine) worker(id int) {
	for e.frontier.NodesLeft() {
		n := e.frontier.GetNode()
		if n == nil {
			continue
		}

		sess := node.NewSession(n, e.cfg.Dialer, e.cfg.Net, e.cfg.Timeouts)

		if !sess.Connect() {
			sess.Disconnect()
			e.frontier.SetUnreachable(n)
			continue
		}

		if !sess.Handshake() {
			sess.Disconnect()
			e.frontier.RetryOrTerminal(n)
			continue
		}

		if rand.Float64() < e.cfg.NodeShare {
			e.getAndProcessPeers(sess, n)
		}

		sess.Disconnect()
		e.frontier.SetReachable(n)
	}
}

// getAndProcessPeers runs get_peer_addrs, optionally records addr stats
// and an addr-data record, and feeds the discovered addresses back into
// the frontier at n.SeedDistance+1. It retries getaddr up to
// GetAddrAttempts times total if the peer returns nothing.
func (e *Engine) getAndProcessPeers(sess *node.Session, n *node.Node) {
	var advertised map[string]addr.Address
	attempts := e.cfg.GetAddrAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		advertised = sess.GetPeerAddrs()
		if len(advertised) > 0 {
			break
		}
	}

	peers := make([]addr.Address, 0, len(advertised))
	now := time.Now()
	for _, a := range advertised {
		peers = append(peers, a)
		if e.cfg.RecordAddrStats && e.cfg.OnAdvertised != nil {
			e.cfg.OnAdvertised(a, now)
		}
	}

	if e.cfg.RecordAddrData && e.cfg.OnAddrRecord != nil && len(peers) > 0 {
		e.cfg.OnAddrRecord(n.Address.String(), peers)
	}

	byKey := make(map[string]addr.Address, len(peers))
	for _, a := range peers {
		byKey[a.Key()] = a
	}
	e.frontier.AddPeers(n, byKey, n.SeedDistance+1, e.cfg.HandshakeAttempts)
}

// monitor logs frontier progress every monitorInterval until quit closes.
func (e *Engine) monitor(quit chan struct{}) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c := e.frontier.Snapshot()
			elapsedHours := time.Since(e.start).Hours()
			log.Infof("elapsed=%.2fh reachable=%d unreachable=%d queued=%d processing=%d",
				elapsedHours, c.Reachable, c.Unreachable, c.Pending+c.Next, c.Processing)
		case <-quit:
			return
		}
	}
}
