package transport

import (
	"time"

	"github.com/virtu/p2p-crawler/internal/addr"
	"github.com/virtu/p2p-crawler/internal/sam"
)

// I2PDialer dials i2p addresses through one process-wide SAM session,
// created lazily on first use and shared by every subsequent connection.
type I2PDialer struct {
	session *sam.Session
}

// NewI2PDialer returns a dialer bound to the given SAM bridge address. The
// underlying session is created on the first Dial call, not here.
func NewI2PDialer(host string, port uint16) *I2PDialer {
	return &I2PDialer{session: sam.NewSession(host, port)}
}

// Dial opens an I2P stream to a via the shared SAM session.
func (d *I2PDialer) Dial(a addr.Address, connectTimeout time.Duration) (Stream, error) {
	if a.Type() != addr.TypeI2P {
		return nil, &ErrUnsupportedAddress{Address: a, Dialer: "i2p"}
	}
	return d.session.Connect(a.Host(), connectTimeout)
}

// Close tears down the shared SAM session. Safe to call even if no I2P
// dial ever happened.
func (d *I2PDialer) Close() error {
	return d.session.Close()
}
