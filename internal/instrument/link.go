package instrument

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Link opens connections to an SMU. The production implementation speaks
// SCPI over a raw TCP socket (LXI style, e.g. "10.0.0.5:5025"); tests
// substitute a scripted fake.
type Link interface {
	Open(ctx context.Context, address string) (Conn, error)
}

// Conn is a single open connection. Write sends a command that produces no
// response; Query sends a command and reads one response line. Both bound
// their wait with the link's configured timeout.
type Conn interface {
	Write(cmd string) error
	Query(cmd string) (string, error)
	Close() error
}

// TCPLink dials SCPI raw-socket endpoints.
type TCPLink struct {
	Timeout time.Duration // per-operation I/O deadline
}

const defaultIOTimeout = 5 * time.Second

func (l *TCPLink) timeout() time.Duration {
	if l.Timeout > 0 {
		return l.Timeout
	}
	return defaultIOTimeout
}

// Open dials the address. The dial itself is bounded by ctx and by the
// configured timeout, whichever is shorter.
func (l *TCPLink) Open(ctx context.Context, address string) (Conn, error) {
	d := net.Dialer{Timeout: l.timeout()}
	nc, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return &tcpConn{nc: nc, rd: bufio.NewReader(nc), timeout: l.timeout()}, nil
}

type tcpConn struct {
	nc      net.Conn
	rd      *bufio.Reader
	timeout time.Duration
}

func (c *tcpConn) Write(cmd string) error {
	if err := c.nc.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	_, err := c.nc.Write([]byte(cmd + "\n"))
	return err
}

func (c *tcpConn) Query(cmd string) (string, error) {
	if err := c.Write(cmd); err != nil {
		return "", err
	}
	if err := c.nc.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", err
	}
	line, err := c.rd.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *tcpConn) Close() error { return c.nc.Close() }
