// Package dnsseed resolves the compiled-in list of Bitcoin mainnet DNS
// seeds into wave-0 addresses for the frontier.
package dnsseed

import (
	"context"
	"net"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/virtu/p2p-crawler/internal/addr"
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

// DefaultPort is the port advertised for every DNS-seed-derived address;
// Bitcoin mainnet DNS seeds don't carry a port, it's implied by convention.
const DefaultPort = 8333

// Seeds is the compiled-in list of Bitcoin mainnet DNS seed hostnames.
var Seeds = []string{
	"seed.bitcoin.sipa.be",
	"dnsseed.bluematt.me",
	"dnsseed.bitcoin.dashjr.org",
	"seed.bitcoinstats.com",
	"seed.bitcoin.jonasschnelli.ch",
	"seed.btc.petertodd.org",
	"seed.bitcoin.sprovoost.nl",
	"dnsseed.emzy.de",
	"seed.bitcoin.wiz.biz",
}

// Resolver abstracts DNS A/AAAA lookups so tests can substitute a fake one
// in place of net.Resolver.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Lookup resolves every hostname in Seeds using r within timeout per seed,
// returning a map from seed hostname to the (possibly duplicate-containing)
// list of addresses it resolved. A seed that fails to resolve logs the
// error and contributes an empty list; it never aborts the others.
func Lookup(r Resolver, timeout time.Duration) map[string][]addr.Address {
	now := time.Now().Unix()
	result := make(map[string][]addr.Address, len(Seeds))

	for _, seed := range Seeds {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		hosts, err := r.LookupHost(ctx, seed)
		cancel()
		if err != nil {
			log.Debugf("dns seed %s failed to resolve: %v", seed, err)
			result[seed] = nil
			continue
		}

		addrs := make([]addr.Address, 0, len(hosts))
		for _, host := range hosts {
			addrs = append(addrs, addr.New(host, DefaultPort, now))
		}
		result[seed] = addrs
	}
	return result
}

// SystemResolver adapts net.DefaultResolver to the Resolver interface.
type SystemResolver struct{}

// LookupHost resolves host using net.DefaultResolver.
func (SystemResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return net.DefaultResolver.LookupHost(ctx, host)
}

// CompareAgainstCoreSeeds is an advisory helper: it reports any seed in got
// that isn't in Seeds, useful for flagging drift against the compiled-in
// list during review. It has no effect on crawl behavior.
func CompareAgainstCoreSeeds(got []string) (unknown []string) {
	known := make(map[string]bool, len(Seeds))
	for _, s := range Seeds {
		known[s] = true
	}
	for _, s := range got {
		if !known[s] {
			unknown = append(unknown, s)
		}
	}
	return unknown
}
