package ftpc

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/gonzalop/ftpc/internal/throttle"
)

// Client represents an FTP client session. It exclusively owns the control
// connection: at most one command is outstanding at any time, and every
// exported method holds the session until its exchange is complete.
type Client struct {
	// conn is the underlying network connection (control channel)
	conn net.Conn

	// replies frames replies read from conn
	replies *ReplyReader

	// host and port for the connection
	host string
	port string

	// timeout is the per-I/O deadline; zero disables deadlines
	timeout time.Duration

	// dialer is used to establish connections
	dialer *net.Dialer

	// logger is used for debug logging
	logger *slog.Logger

	replyHook   func(*Reply)
	commandHook func(string)

	encoding      encoding.Encoding
	maxLineLength int

	bandwidthLimit int64
	limiter        *throttle.Limiter

	// fs is the local filesystem for RetrieveFile and StoreFile
	fs afero.Fs

	progress func(TransferKind, int64)

	// greeting is the first reply read after connecting
	greeting *Reply

	// currentType tracks the current transfer type to avoid redundant TYPE commands
	currentType string

	authenticated bool

	// mu serializes command/reply exchanges
	mu sync.Mutex

	// pending is set while a reply to a sent command has not been read
	pending bool

	// closed is set once the control connection is gone
	closed bool

	// lastCommand is the most recent command line, masked
	lastCommand string
}

// Dial connects to an FTP server at the given address and reads its greeting.
// The address should be in the form "host:port".
//
// A greeting other than 220 does not fail the call. It is logged as a warning
// and the connection stays usable; inspect Greeting to decide whether to go on.
//
// Example:
//
//	client, err := ftpc.Dial("ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
func Dial(addr string, options ...Option) (*Client, error) {
	// Parse the address
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	// Create the client with defaults
	c := &Client{
		host:          host,
		port:          port,
		dialer:        &net.Dialer{},
		logger:        slog.New(slog.DiscardHandler),
		encoding:      unicode.UTF8,
		maxLineLength: DefaultMaxLineLength,
		fs:            afero.NewOsFs(),
	}

	// Apply options
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if c.timeout > 0 {
		c.dialer.Timeout = c.timeout
	}
	c.limiter = throttle.New(c.bandwidthLimit)
	c.logger = c.logger.With("session", uuid.NewString())

	// Establish the connection
	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

// Connect is Dial for a separate host and port.
func Connect(host string, port int, options ...Option) (*Client, error) {
	return Dial(net.JoinHostPort(host, strconv.Itoa(port)), options...)
}

// connect establishes the control connection and reads exactly one greeting reply.
func (c *Client) connect() error {
	addr := net.JoinHostPort(c.host, c.port)
	c.logger.Debug("connecting to ftp server", "addr", addr)

	conn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if c.timeout > 0 {
		conn = &deadlineConn{Conn: conn, timeout: c.timeout}
	}

	c.conn = conn
	c.replies = NewReplyReader(conn, WithEncoding(c.encoding), WithLineLimit(c.maxLineLength))

	resp, err := c.readReply()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to read greeting: %w", err)
	}
	// A 1xx greeting announces a later 220; only one reply is consumed here.
	c.pending = false
	c.greeting = resp

	if resp.Code != 220 {
		c.logger.Warn("unexpected greeting", "code", resp.Code, "message", resp.Message())
	}

	return nil
}

// Greeting returns the reply the server sent on connect.
func (c *Client) Greeting() *Reply {
	return c.greeting
}

// Closed reports whether the control connection has been closed, either
// by Quit or because the server went away.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Authenticated reports whether a login has succeeded on this session.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// PasswordProvider supplies the password when the server asks for one.
// It is not called if USER alone logs the session in.
type PasswordProvider func() (string, error)

// Password returns a PasswordProvider for a fixed password.
func Password(password string) PasswordProvider {
	return func() (string, error) {
		return password, nil
	}
}

// Authenticate logs in with USER and, when the server answers 331, PASS.
// It returns true only on a final 230. Any other reply code returns false
// with a nil error; errors are reserved for I/O and framing failures.
func (c *Client) Authenticate(username string, password PasswordProvider) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, _, err := c.authenticate(username, password)
	return ok, err
}

// Login authenticates with the FTP server using the provided username and
// password. A refused login is reported as a *ProtocolError wrapping
// ErrAuthFailed.
func (c *Client) Login(username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, resp, err := c.authenticate(username, Password(password))
	if err != nil {
		return err
	}
	if !ok {
		return newProtocolError(ErrAuthFailed, c.lastCommand, resp)
	}
	return nil
}

func (c *Client) authenticate(username string, password PasswordProvider) (bool, *Reply, error) {
	resp, err := c.cmd("USER", username)
	if err != nil {
		return false, nil, err
	}

	// If we get 230, we're already logged in (no password required)
	if resp.Code == 230 {
		c.authenticated = true
		return true, resp, nil
	}

	if resp.Code != 331 {
		c.logger.Debug("login refused", "code", resp.Code)
		return false, resp, nil
	}

	if password == nil {
		return false, resp, fmt.Errorf("server requires a password for %s", username)
	}
	pass, err := password()
	if err != nil {
		return false, resp, fmt.Errorf("failed to obtain password: %w", err)
	}

	resp, err = c.cmd("PASS", pass)
	if err != nil {
		return false, nil, err
	}
	if resp.Code != 230 {
		c.logger.Debug("password refused", "code", resp.Code)
		return false, resp, nil
	}

	c.authenticated = true
	return true, resp, nil
}

// Quit sends QUIT and closes the control connection. The reply to QUIT is
// read on a best-effort basis: failures sending QUIT or reading its reply
// are logged and ignored, and the connection is closed regardless.
// Calling Quit on a closed client is a no-op.
func (c *Client) Quit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	// Teardown is allowed even if a reply is outstanding.
	c.pending = false

	if err := c.send("QUIT"); err != nil {
		c.logger.Debug("QUIT not sent", "error", err)
	} else if _, err := c.readReply(); err != nil {
		c.logger.Debug("QUIT reply not read", "error", err)
	}

	return c.closeConn()
}

// closeConn closes the control connection once.
func (c *Client) closeConn() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// Noop sends a NOOP (no operation) command to the server.
func (c *Client) Noop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.expect2xx("NOOP")
	return err
}

// Type sets the transfer type (e.g., "A", "I").
func (c *Client) Type(transferType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Skip if already set to this type
	if c.currentType == transferType {
		c.logger.Debug("transfer type already set, skipping TYPE command", "type", transferType)
		return nil
	}

	if _, err := c.expectCode(200, ErrUnexpectedReply, "TYPE", transferType); err != nil {
		return err
	}

	c.currentType = transferType
	return nil
}

// Quote sends a raw command to the server and returns the reply without
// interpreting its code.
//
// Example:
//
//	resp, err := client.Quote("SITE", "CHMOD", "755", "script.sh")
func (c *Client) Quote(command string, args ...string) (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.cmd(command, args...)
	if err != nil {
		return nil, err
	}
	if resp.Is1xx() {
		// Nothing more can be sent until the follow-up reply arrives.
		final, err := c.readReply()
		if err != nil {
			return nil, err
		}
		return final, nil
	}
	return resp, nil
}
