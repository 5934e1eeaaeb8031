package ftpc

import (
	"io"
	"net"
	"time"

	"github.com/gonzalop/ftpc/internal/throttle"
)

// deadlineConn wraps a net.Conn and sets a read/write deadline before every operation.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (n int, err error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (n int, err error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(b)
}

// throttledConn routes data connection I/O through a shared bandwidth limiter.
type throttledConn struct {
	net.Conn
	r io.Reader
	w io.Writer
}

func newThrottledConn(conn net.Conn, l *throttle.Limiter) net.Conn {
	if l == nil {
		return conn
	}
	return &throttledConn{
		Conn: conn,
		r:    throttle.NewReader(conn, l),
		w:    throttle.NewWriter(conn, l),
	}
}

func (c *throttledConn) Read(b []byte) (int, error) {
	return c.r.Read(b)
}

func (c *throttledConn) Write(b []byte) (int, error) {
	return c.w.Write(b)
}

// wrapDataConn applies the client's deadline and bandwidth settings.
func (c *Client) wrapDataConn(conn net.Conn) net.Conn {
	if c.timeout > 0 {
		conn = &deadlineConn{Conn: conn, timeout: c.timeout}
	}
	return newThrottledConn(conn, c.limiter)
}
