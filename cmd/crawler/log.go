package main

import (
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate"

	"github.com/virtu/p2p-crawler/dnsseed"
	"github.com/virtu/p2p-crawler/engine"
	"github.com/virtu/p2p-crawler/frontier"
	"github.com/virtu/p2p-crawler/history"
	"github.com/virtu/p2p-crawler/node"
	"github.com/virtu/p2p-crawler/transport"
)

// backendLog is the logging backend used to create all subsystem loggers.
// It multiplexes to stdout and, when --store-debug-log is set, to a
// rotating debug log file.
var backendLog *btclog.Backend

// subsystemLoggers maps each package's logger to its name, mirroring how
// btcd's cmd/ wires UseLogger across every internal package.
var subsystemLoggers = make(map[string]btclog.Logger)

// initLogRotator opens path for a rotating debug log file. It does not
// create parent directories; path lies under the result directory, which
// loadConfig has already created.
func initLogRotator(path string) (*logrotate.Rotator, error) {
	rotator, err := logrotate.NewRotator(10*1024, path)
	if err != nil {
		return nil, fmt.Errorf("creating log rotator for %s: %w", path, err)
	}
	return rotator, nil
}

// setupLogging wires subsystem loggers for every package that exposes
// UseLogger, applies logLevel, and optionally tees output to a rotating
// debug log file alongside stdout.
func setupLogging(logLevel string, debugLogPath string) error {
	writer := io.Writer(os.Stdout)

	if debugLogPath != "" {
		rotator, err := initLogRotator(debugLogPath)
		if err != nil {
			return err
		}
		writer = io.MultiWriter(os.Stdout, rotator)
	}

	backendLog = btclog.NewBackend(writer)

	level, ok := btclog.LevelFromString(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	register := func(name string, use func(btclog.Logger)) {
		l := backendLog.Logger(name)
		l.SetLevel(level)
		subsystemLoggers[name] = l
		use(l)
	}

	register("ENGN", engine.UseLogger)
	register("FRON", frontier.UseLogger)
	register("NODE", node.UseLogger)
	register("XPRT", transport.UseLogger)
	register("DSED", dnsseed.UseLogger)
	register("HIST", history.UseLogger)

	return nil
}
