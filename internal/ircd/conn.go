package ircd

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/horgh/irc"
)

// Conn wraps a client TCP connection with line buffering and
// deadline-based reads, following the same shape as the line-oriented
// transport the rest of this codebase's lineage uses.
type Conn struct {
	conn   net.Conn
	rw     *bufio.ReadWriter
	ioWait time.Duration
}

// NewConn wraps conn. ioWait bounds every individual Read/Write call;
// connections that produce or consume nothing within that window are
// cut loose by the caller's read/write loop.
func NewConn(conn net.Conn, ioWait time.Duration) *Conn {
	return &Conn{
		conn:   conn,
		rw:     bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
		ioWait: ioWait,
	}
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.conn.Close() }

// ReadMessage reads and parses one protocol line.
func (c *Conn) ReadMessage() (irc.Message, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.ioWait)); err != nil {
		return irc.Message{}, fmt.Errorf("unable to set read deadline: %s", err)
	}

	line, err := c.rw.ReadString('\n')
	if err != nil {
		return irc.Message{}, err
	}

	message, err := irc.ParseMessage(line)
	if err != nil && err != irc.ErrTruncated {
		return irc.Message{}, fmt.Errorf("malformed message %q: %s", strings.TrimRight(line, "\r\n"), err)
	}

	return message, nil
}

// WriteLine writes a pre-formatted line, which must already end in
// CRLF, directly to the connection.
func (c *Conn) WriteLine(line string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.ioWait)); err != nil {
		return fmt.Errorf("unable to set write deadline: %s", err)
	}

	if _, err := c.rw.WriteString(line); err != nil {
		return err
	}

	return c.rw.Flush()
}
