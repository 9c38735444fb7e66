package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSecondsConvertsFractionalValues(t *testing.T) {
	require.Equal(t, 1500*time.Millisecond, seconds(1.5))
	require.Equal(t, time.Duration(0), seconds(0))
}

func TestOutputPathFormat(t *testing.T) {
	cfg := &config{ResultPath: "results", Timestamp: "20260729_120000"}
	got := cfg.outputPath("reachable_nodes.csv")
	require.Equal(t, "results/20260729_120000_v"+crawlerVersion+"_reachable_nodes.csv", got)
}
