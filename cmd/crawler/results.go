package main

import (
	"os"
	"time"

	"github.com/virtu/p2p-crawler/engine"
	"github.com/virtu/p2p-crawler/node"
	"github.com/virtu/p2p-crawler/output"
)

// writeResults renders the crawl's terminal frontier state into the fixed
// artifact set under cfg.ResultPath: the reachable-nodes CSV, the crawler
// stats JSON, and (if requested) the per-address observation JSON.
func writeResults(cfg *config, eng *engine.Engine, reachable []*node.Node, started time.Time, runtime time.Duration, addrStats output.AddressStats) error {
	csvFile, err := os.Create(cfg.outputPath("reachable_nodes.csv"))
	if err != nil {
		return err
	}
	defer csvFile.Close()
	if err := output.WriteReachableNodesCSV(csvFile, reachable); err != nil {
		return err
	}

	counts := eng.Frontier().Snapshot()
	unreachable := eng.Frontier().UnreachableNodes()

	reachableHosts := make([]string, 0, len(reachable))
	for _, n := range reachable {
		reachableHosts = append(reachableHosts, n.Address.String())
	}
	unreachableHosts := make([]string, 0, len(unreachable))
	for _, n := range unreachable {
		unreachableHosts = append(unreachableHosts, n.Address.String())
	}

	stats := output.CrawlerStats{
		Settings: map[string]interface{}{
			"version":            crawlerVersion,
			"num_workers":        cfg.NumWorkers,
			"node_share":         cfg.NodeShare,
			"handshake_attempts": cfg.HandshakeAttempts,
			"getaddr_attempts":   cfg.GetAddrAttempts,
			"extra_version_info": cfg.ExtraVersionInfo,
		},
		StartedAt:      started.Unix(),
		RuntimeSeconds: runtime.Seconds(),
		Counts: output.SetCounts{
			Pending:     counts.Pending,
			Next:        counts.Next,
			Processing:  counts.Processing,
			Reachable:   counts.Reachable,
			Unreachable: counts.Unreachable,
		},
		PerSeedCounts:    eng.Frontier().SeedCounts(),
		ReachableHosts:   reachableHosts,
		UnreachableHosts: unreachableHosts,
	}

	statsFile, err := os.Create(cfg.outputPath("crawler_stats.json"))
	if err != nil {
		return err
	}
	defer statsFile.Close()
	if err := output.WriteCrawlerStatsJSON(statsFile, stats); err != nil {
		return err
	}

	if cfg.RecordAddrStats {
		addrStatsFile, err := os.Create(cfg.outputPath("address_stats.json"))
		if err != nil {
			return err
		}
		defer addrStatsFile.Close()
		if err := output.WriteAddressStatsJSON(addrStatsFile, addrStats); err != nil {
			return err
		}
	}

	return nil
}
