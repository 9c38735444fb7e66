// Command crawler performs a single Bitcoin mainnet P2P peer-discovery
// crawl: it seeds a frontier from DNS seeds, drives version/verack
// handshakes and getaddr exchanges across a worker pool, and writes the
// reachable-node set plus summary stats to --result-path.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/virtu/p2p-crawler/engine"
	"github.com/virtu/p2p-crawler/frontier"
	"github.com/virtu/p2p-crawler/history"
	"github.com/virtu/p2p-crawler/internal/addr"
	"github.com/virtu/p2p-crawler/node"
	"github.com/virtu/p2p-crawler/output"
	"github.com/virtu/p2p-crawler/transport"
	"github.com/virtu/p2p-crawler/wire"
)

// crawlerVersion is embedded in output filenames and crawler_stats.json.
const crawlerVersion = "1.0.0"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	debugLogPath := ""
	if cfg.StoreDebugLog {
		debugLogPath = cfg.outputPath("debug_log.txt")
	}
	if err := setupLogging(cfg.LogLevel, debugLogPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := subsystemLoggers["ENGN"]

	var hist *history.Store
	if cfg.HistoryPath != "" {
		hist, err = history.Load(cfg.HistoryPath, cfg.MaxHistoryRetries)
		if err != nil {
			log.Errorf("loading history from %s: %v", cfg.HistoryPath, err)
			os.Exit(1)
		}
	}

	retryPolicy := frontier.UnreachableOnExhaustion
	if !cfg.HandshakeExhaustedUnreachable {
		retryPolicy = frontier.ReachableOnExhaustion
	}

	i2pDialer := transport.NewI2PDialer(cfg.I2PSAMHost, cfg.I2PSAMPort)
	defer i2pDialer.Close()

	dialer := &transport.Config{
		IP:  transport.IPDialer{},
		Tor: transport.TorDialer{ProxyHost: cfg.TorProxyHost, ProxyPort: cfg.TorProxyPort},
		I2P: i2pDialer,
	}

	var addrStats output.AddressStats
	var onAdvertised func(addr.Address, time.Time)
	if cfg.RecordAddrStats {
		addrStats = make(output.AddressStats)
		onAdvertised = func(a addr.Address, seenAt time.Time) {
			key := a.String()
			addrStats[key] = append(addrStats[key], output.AddressObservation{
				SeenByAgeSeconds: seenAt.Sub(time.Unix(a.LastSeen(), 0)).Seconds(),
				SeenByTimestamp:  seenAt.Unix(),
			})
		}
	}

	var addrDataFile *os.File
	var addrDataEncoder *addrDataEncoderCloser
	if cfg.RecordAddrData {
		addrDataFile, err = os.Create(cfg.outputPath("addr_data.bin"))
		if err != nil {
			log.Errorf("creating addr-data file: %v", err)
			os.Exit(1)
		}
		defer addrDataFile.Close()
		addrDataEncoder, err = newAddrDataEncoder(addrDataFile)
		if err != nil {
			log.Errorf("initializing addr-data encoder: %v", err)
			os.Exit(1)
		}
	}

	eng := engine.New(engine.Config{
		NumWorkers:        cfg.NumWorkers,
		NodeShare:         cfg.NodeShare,
		HandshakeAttempts: cfg.HandshakeAttempts,
		GetAddrAttempts:   cfg.GetAddrAttempts,
		DelayStart:        seconds(cfg.DelayStart),
		DNSSeedTimeout:    10 * time.Second,
		Net:               wire.MainNet,
		StalenessWindow:   time.Duration(cfg.StalenessWindowHours) * time.Hour,
		RetryPolicy:       retryPolicy,
		Dialer:            dialer,
		Timeouts: node.ClassTimeouts{
			IP:  node.Timeouts{Connect: seconds(cfg.IPConnectTimeout), Message: seconds(cfg.IPMessageTimeout), GetAddr: seconds(cfg.IPGetAddrTimeout)},
			Tor: node.Timeouts{Connect: seconds(cfg.TorConnectTimeout), Message: seconds(cfg.TorMessageTimeout), GetAddr: seconds(cfg.TorGetAddrTimeout)},
			I2P: node.Timeouts{Connect: seconds(cfg.I2PConnectTimeout), Message: seconds(cfg.I2PMessageTimeout), GetAddr: seconds(cfg.I2PGetAddrTimeout)},
		},
		History:         hist,
		RecordAddrStats: cfg.RecordAddrStats,
		OnAdvertised:    onAdvertised,
		RecordAddrData:  cfg.RecordAddrData,
		OnAddrRecord: func(nodeString string, advertised []addr.Address) {
			if addrDataEncoder != nil {
				addrDataEncoder.writeRecord(nodeString, advertised)
			}
		},
	})

	started := time.Now()
	eng.Run()
	runtime := time.Since(started)

	if addrDataEncoder != nil {
		if err := addrDataEncoder.close(); err != nil {
			log.Errorf("closing addr-data file: %v", err)
		}
	}

	reachable := eng.Frontier().ReachableNodes()
	if err := writeResults(cfg, eng, reachable, started, runtime, addrStats); err != nil {
		log.Errorf("writing results: %v", err)
		os.Exit(1)
	}

	if hist != nil {
		unreachable := eng.Frontier().UnreachableNodes()
		if err := hist.UpdateAndPersist(reachable, unreachable); err != nil {
			log.Errorf("persisting history: %v", err)
		}
	}

	if cfg.StoreToGCS {
		log.Warnf("--store-to-gcs was requested; object-storage upload is outside this module's scope, artifacts remain local under %s", cfg.ResultPath)
	}
}
