package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
)

const (
	defaultNumWorkers        = 32
	defaultNodeShare         = 1.0
	defaultHandshakeAttempts = 3
	defaultGetAddrAttempts   = 1
	defaultDelayStart        = 0.0

	defaultTorProxyHost = "127.0.0.1"
	defaultTorProxyPort = 9050
	defaultI2PSAMHost   = "127.0.0.1"
	defaultI2PSAMPort   = 7656

	defaultIPConnectTimeout  = 3.0
	defaultIPMessageTimeout  = 20.0
	defaultIPGetAddrTimeout  = 60.0
	defaultTorConnectTimeout = 60.0
	defaultTorMessageTimeout = 50.0
	defaultTorGetAddrTimeout = 100.0
	defaultI2PConnectTimeout = 60.0
	defaultI2PMessageTimeout = 100.0
	defaultI2PGetAddrTimeout = 200.0

	defaultStalenessWindowHours = 48
	defaultMaxHistoryRetries    = 3

	defaultLogLevel  = "info"
	defaultResultDir = "results"
)

// config holds every CLI flag the crawler accepts. Each flag also accepts
// its upper-cased equivalent as an environment variable default, handled
// automatically by go-flags' `env` struct tag.
type config struct {
	NumWorkers        int     `long:"num-workers" env:"NUM_WORKERS" default:"32" description:"number of concurrent crawl workers"`
	NodeShare         float64 `long:"node-share" env:"NODE_SHARE" default:"1.0" description:"fraction of reachable nodes whose peers are requested via getaddr"`
	HandshakeAttempts int     `long:"handshake-attempts" env:"HANDSHAKE_ATTEMPTS" default:"3" description:"total handshake attempts before a node is classified terminal"`
	GetAddrAttempts   int     `long:"getaddr-attempts" env:"GETADDR_ATTEMPTS" default:"1" description:"total getaddr attempts; another is made only while a peer returns no addresses"`
	DelayStart        float64 `long:"delay-start" env:"DELAY_START" default:"0" description:"seconds to sleep before seeding the frontier"`

	TorProxyHost string `long:"tor-proxy-host" env:"TOR_PROXY_HOST" default:"127.0.0.1" description:"Tor SOCKS5 proxy host"`
	TorProxyPort uint16 `long:"tor-proxy-port" env:"TOR_PROXY_PORT" default:"9050" description:"Tor SOCKS5 proxy port"`
	I2PSAMHost   string `long:"i2p-sam-host" env:"I2P_SAM_HOST" default:"127.0.0.1" description:"I2P SAM bridge host"`
	I2PSAMPort   uint16 `long:"i2p-sam-port" env:"I2P_SAM_PORT" default:"7656" description:"I2P SAM bridge port"`

	IPConnectTimeout  float64 `long:"ip-connect-timeout" env:"IP_CONNECT_TIMEOUT" default:"3" description:"IP transport connect timeout, seconds"`
	IPMessageTimeout  float64 `long:"ip-message-timeout" env:"IP_MESSAGE_TIMEOUT" default:"20" description:"IP transport per-message timeout, seconds"`
	IPGetAddrTimeout  float64 `long:"ip-getaddr-timeout" env:"IP_GETADDR_TIMEOUT" default:"60" description:"IP transport getaddr window, seconds"`
	TorConnectTimeout float64 `long:"tor-connect-timeout" env:"TOR_CONNECT_TIMEOUT" default:"60" description:"Tor transport connect timeout, seconds"`
	TorMessageTimeout float64 `long:"tor-message-timeout" env:"TOR_MESSAGE_TIMEOUT" default:"50" description:"Tor transport per-message timeout, seconds"`
	TorGetAddrTimeout float64 `long:"tor-getaddr-timeout" env:"TOR_GETADDR_TIMEOUT" default:"100" description:"Tor transport getaddr window, seconds"`
	I2PConnectTimeout float64 `long:"i2p-connect-timeout" env:"I2P_CONNECT_TIMEOUT" default:"60" description:"I2P transport connect timeout, seconds"`
	I2PMessageTimeout float64 `long:"i2p-message-timeout" env:"I2P_MESSAGE_TIMEOUT" default:"100" description:"I2P transport per-message timeout, seconds"`
	I2PGetAddrTimeout float64 `long:"i2p-getaddr-timeout" env:"I2P_GETADDR_TIMEOUT" default:"200" description:"I2P transport getaddr window, seconds"`

	HandshakeExhaustedUnreachable bool `long:"handshake-exhausted-unreachable" env:"HANDSHAKE_EXHAUSTED_UNREACHABLE" description:"classify handshake-exhausted nodes as unreachable rather than reachable"`
	StalenessWindowHours          int  `long:"staleness-window-hours" env:"STALENESS_WINDOW_HOURS" default:"48" description:"advertised addresses older than this are dropped by add_peers"`

	ResultPath        string `long:"result-path" env:"RESULT_PATH" default:"results" description:"directory results are written to"`
	Timestamp         string `long:"timestamp" env:"TIMESTAMP" description:"timestamp to embed in output filenames (defaults to run start time)"`
	StoreDebugLog     bool   `long:"store-debug-log" env:"STORE_DEBUG_LOG" description:"write a debug log file alongside the other artifacts"`
	LogLevel          string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"logging level (trace, debug, info, warn, error, critical)"`
	RecordAddrStats   bool   `long:"record-addr-stats" env:"RECORD_ADDR_STATS" description:"record per-advertised-address age/timestamp observations"`
	RecordAddrData    bool   `long:"record-addr-data" env:"RECORD_ADDR_DATA" description:"record the compact addr-data binary log"`
	ExtraVersionInfo  string `long:"extra-version-info" env:"EXTRA_VERSION_INFO" description:"extra string appended to the crawler's own version reporting"`

	HistoryPath string `long:"history-path" env:"HISTORY_PATH" description:"path to a persistent reachable-node history file (empty disables history)"`
	MaxHistoryRetries int `long:"max-history-retries" env:"MAX_HISTORY_RETRIES" default:"3" description:"consecutive unreachable runs before a historical address is forgotten"`

	StoreToGCS      bool   `long:"store-to-gcs" env:"STORE_TO_GCS" description:"upload result artifacts to Google Cloud Storage"`
	GCSBucket       string `long:"gcs-bucket" env:"GCS_BUCKET" description:"GCS bucket name"`
	GCSLocation     string `long:"gcs-location" env:"GCS_LOCATION" description:"GCS bucket location"`
	GCSCredentials  string `long:"gcs-credentials" env:"GCS_CREDENTIALS" description:"path to GCS service-account credentials JSON"`
}

// seconds converts a float64 seconds value into a time.Duration.
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// loadConfig parses CLI flags (and their environment-variable defaults)
// into a config, and performs the start-up-fatal validations before the
// logger is initialized, each with its own non-zero status: --store-to-gcs
// without credentials exits with 2, and a result directory that cannot be
// created exits with 3.
func loadConfig() (*config, error) {
	cfg := &config{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.StoreToGCS && cfg.GCSCredentials == "" {
		fmt.Fprintln(os.Stderr, "error: --store-to-gcs requires --gcs-credentials")
		os.Exit(2)
	}

	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().UTC().Format("20060102_150405")
	}

	if err := os.MkdirAll(cfg.ResultPath, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: unreadable result directory %s: %v\n", cfg.ResultPath, err)
		os.Exit(3)
	}

	return cfg, nil
}

// outputPath joins the result directory, timestamp, and version into one
// of the fixed artifact filenames (e.g. "reachable_nodes.csv").
func (c *config) outputPath(suffix string) string {
	name := fmt.Sprintf("%s_v%s_%s", c.Timestamp, crawlerVersion, suffix)
	return filepath.Join(c.ResultPath, name)
}
