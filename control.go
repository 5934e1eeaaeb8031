package ftpc

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// SendCommand writes one command line to the control connection, appending
// CRLF. It does not read the reply; call ReadReply for that. A second
// command cannot be sent until the reply to the first has been read.
func (c *Client) SendCommand(command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(command)
}

// ReadReply reads the next reply from the control connection.
func (c *Client) ReadReply() (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readReply()
}

// Cmd formats a command, sends it and returns its reply. Unlike Quote, a
// 1xx reply is returned as is and the follow-up reply must be read with
// ReadReply.
//
// Example:
//
//	resp, err := client.Cmd("SIZE %s", "pub/README")
func (c *Client) Cmd(format string, args ...any) (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cmd(fmt.Sprintf(format, args...))
}

// send writes a single command line in one write.
func (c *Client) send(command string) error {
	if c.closed {
		return ErrClosed
	}
	if strings.ContainsAny(command, "\r\n") {
		return fmt.Errorf("ftp: command contains a line break: %q", maskCommand(command))
	}

	masked := maskCommand(command)
	if c.pending {
		return fmt.Errorf("%w: cannot send %s", ErrCommandPending, masked)
	}

	c.lastCommand = masked
	c.logger.Debug("ftp command", "cmd", masked)
	if c.commandHook != nil {
		c.commandHook(masked)
	}

	if _, err := io.WriteString(c.conn, command+"\r\n"); err != nil {
		return c.fail(fmt.Errorf("%w: failed to send command: %w", ErrConnectionClosed, err))
	}
	c.pending = true
	return nil
}

// readReply reads one reply. After a 1xx reply another reply is still owed,
// so the client stays pending.
func (c *Client) readReply() (*Reply, error) {
	if c.closed {
		return nil, ErrClosed
	}

	resp, err := c.replies.ReadReply()
	if err != nil {
		// A framing error ends the exchange; the next command may be sent.
		c.pending = false
		return nil, c.fail(fmt.Errorf("failed to read reply: %w", err))
	}
	c.pending = resp.Is1xx()

	c.logger.Debug("ftp reply", "code", resp.Code, "message", resp.Message())
	if c.replyHook != nil {
		c.replyHook(resp)
	}
	return resp, nil
}

// fail closes the control connection if err means it is gone.
func (c *Client) fail(err error) error {
	if errors.Is(err, ErrConnectionClosed) {
		c.logger.Debug("control connection lost", "error", err)
		_ = c.closeConn()
	}
	return err
}

// cmd sends an FTP command and returns its reply.
func (c *Client) cmd(command string, args ...string) (*Reply, error) {
	line := command
	if len(args) > 0 {
		line = command + " " + strings.Join(args, " ")
	}
	if err := c.send(line); err != nil {
		return nil, err
	}
	return c.readReply()
}

// expectCode sends a command and verifies the reply code matches the expected
// code. A mismatch is reported as a *ProtocolError of the given kind.
func (c *Client) expectCode(expectedCode int, kind error, command string, args ...string) (*Reply, error) {
	resp, err := c.cmd(command, args...)
	if err != nil {
		return nil, err
	}

	if resp.Code != expectedCode {
		if resp.Is1xx() {
			c.drain()
		}
		return resp, newProtocolError(kind, c.lastCommand, resp)
	}

	return resp, nil
}

// expect2xx sends a command and verifies the reply is in the 2xx range (success).
func (c *Client) expect2xx(command string, args ...string) (*Reply, error) {
	resp, err := c.cmd(command, args...)
	if err != nil {
		return nil, err
	}

	if !resp.Is2xx() {
		if resp.Is1xx() {
			c.drain()
		}
		return resp, newProtocolError(ErrUnexpectedReply, c.lastCommand, resp)
	}

	return resp, nil
}

// drain consumes the completion reply owed after an unexpected 1xx.
func (c *Client) drain() {
	if _, err := c.readReply(); err != nil {
		c.logger.Debug("failed to read completion reply", "error", err)
	}
}

// maskCommand hides the argument of PASS.
func maskCommand(command string) string {
	if len(command) >= 4 && strings.EqualFold(command[:4], "PASS") {
		return "PASS ****"
	}
	return command
}
