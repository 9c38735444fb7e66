package main

import (
	"os"
	"time"

	"github.com/virtu/p2p-crawler/addrdata"
	"github.com/virtu/p2p-crawler/internal/addr"
)

// addrDataEncoderCloser adapts addrdata.Encoder to the engine's
// fire-and-forget OnAddrRecord callback: write errors are logged rather
// than propagated, since a single bad record shouldn't abort a crawl.
type addrDataEncoderCloser struct {
	enc *addrdata.Encoder
}

// newAddrDataEncoder opens an addr-data log against f, stamping its epoch
// with the run's start time.
func newAddrDataEncoder(f *os.File) (*addrDataEncoderCloser, error) {
	enc, err := addrdata.NewEncoder(f, uint32(time.Now().Unix()))
	if err != nil {
		return nil, err
	}
	return &addrDataEncoderCloser{enc: enc}, nil
}

func (a *addrDataEncoderCloser) writeRecord(nodeString string, advertised []addr.Address) {
	if err := a.enc.WriteRecord(nodeString, advertised); err != nil {
		subsystemLoggers["ENGN"].Warnf("writing addr-data record for %s: %v", nodeString, err)
	}
}

func (a *addrDataEncoderCloser) close() error {
	return a.enc.Close()
}
