// Package sam implements the minimal subset of the I2P SAM v3 control
// protocol the crawler needs: creating one transient STREAM session and
// issuing STREAM CONNECT requests against it. No SAM client library exists
// anywhere in the project's dependency corpus, so this client is hand-rolled
// on the standard library alone.
package sam

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Session is a single SAM v3 STREAM session, created once per process and
// reused for every subsequent STREAM CONNECT. The SAM protocol ties a
// session's lifetime to the socket that created it, so that socket is held
// open for as long as the Session is in use.
type Session struct {
	host string
	port uint16

	mu   sync.Mutex
	once sync.Once
	id   string
	err  error
	ctrl net.Conn
}

// NewSession returns a Session bound to the given SAM bridge address. The
// control connection that creates the session is not opened until the
// first Connect call.
func NewSession(host string, port uint16) *Session {
	return &Session{host: host, port: port}
}

func (s *Session) addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(int(s.port)))
}

// ensure creates the transient STREAM session on first use. Later calls
// reuse the session id; sync.Once keeps concurrent workers from racing to
// create it twice. The connection that creates the session is kept open
// for the Session's lifetime: under SAM v3, closing it destroys the
// session, which would make every later STREAM CONNECT reference a
// session id that no longer exists.
func (s *Session) ensure() error {
	s.once.Do(func() {
		conn, err := net.Dial("tcp", s.addr())
		if err != nil {
			s.err = fmt.Errorf("dialing SAM bridge %s: %w", s.addr(), err)
			return
		}

		if err := handshake(conn); err != nil {
			conn.Close()
			s.err = err
			return
		}

		id := sessionNickname()
		cmd := fmt.Sprintf("SESSION CREATE STYLE=STREAM ID=%s DESTINATION=TRANSIENT\n", id)
		reply, err := sendAndRead(conn, cmd)
		if err != nil {
			conn.Close()
			s.err = fmt.Errorf("creating SAM session: %w", err)
			return
		}
		if !strings.Contains(reply, "RESULT=OK") {
			conn.Close()
			s.err = fmt.Errorf("SAM session create failed: %s", strings.TrimSpace(reply))
			return
		}
		s.id = id
		s.ctrl = conn
	})
	return s.err
}

// Close tears down the session by closing the connection that created it.
// Safe to call even if the session was never established.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return nil
	}
	err := s.ctrl.Close()
	s.ctrl = nil
	return err
}

var nicknameCounter struct {
	mu sync.Mutex
	n  int
}

// sessionNickname returns a unique-enough SAM session id. Process-local
// uniqueness is sufficient since only one Session is ever created per run.
func sessionNickname() string {
	nicknameCounter.mu.Lock()
	defer nicknameCounter.mu.Unlock()
	nicknameCounter.n++
	return fmt.Sprintf("p2p-crawler-%d", nicknameCounter.n)
}

func handshake(conn net.Conn) error {
	reply, err := sendAndRead(conn, "HELLO VERSION MIN=3.0 MAX=3.3\n")
	if err != nil {
		return fmt.Errorf("SAM hello: %w", err)
	}
	if !strings.Contains(reply, "RESULT=OK") {
		return fmt.Errorf("SAM hello rejected: %s", strings.TrimSpace(reply))
	}
	return nil
}

func sendAndRead(conn net.Conn, line string) (string, error) {
	if _, err := conn.Write([]byte(line)); err != nil {
		return "", err
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", err
	}
	return reply, nil
}

// Connect opens a new data connection to dest (a .b32.i2p address or raw
// base64 destination) over a fresh TCP socket to the SAM bridge, using the
// session created by ensure. The returned net.Conn carries the I2P stream
// once the reply confirms RESULT=OK.
func (s *Session) Connect(dest string, timeout time.Duration) (net.Conn, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}

	conn, err := net.DialTimeout("tcp", s.addr(), timeout)
	if err != nil {
		return nil, fmt.Errorf("dialing SAM bridge %s: %w", s.addr(), err)
	}
	conn.SetDeadline(time.Now().Add(timeout))

	if err := handshake(conn); err != nil {
		conn.Close()
		return nil, err
	}

	cmd := fmt.Sprintf("STREAM CONNECT ID=%s DESTINATION=%s SILENT=false\n", s.id, dest)
	reply, err := sendAndRead(conn, cmd)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SAM stream connect to %s: %w", dest, err)
	}
	if !strings.Contains(reply, "RESULT=OK") {
		conn.Close()
		return nil, fmt.Errorf("SAM stream connect to %s rejected: %s", dest, strings.TrimSpace(reply))
	}

	conn.SetDeadline(time.Time{})
	return conn, nil
}
