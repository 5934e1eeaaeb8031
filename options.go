package ftpc

import (
	"log/slog"
	"net"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
)

// DefaultPort is the standard FTP control port.
const DefaultPort = 21

// Option is a functional option for configuring an FTP client.
type Option func(*Client) error

// WithTimeout sets a deadline applied to every read and write on the control
// and data connections. The default of zero disables deadlines, so a stalled
// server blocks the transfer until the connection is closed.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.timeout = timeout
		return nil
	}
}

// WithLogger enables debug logging using the provided logger.
// All FTP commands and replies will be logged at debug level, with the
// PASS argument masked.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	client, _ := ftpc.Dial("ftp.example.com:21", ftpc.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithDialer sets a custom net.Dialer for establishing connections.
// This can be used to configure source addresses, keep-alive settings, etc.
func WithDialer(dialer *net.Dialer) Option {
	return func(c *Client) error {
		c.dialer = dialer
		return nil
	}
}

// WithReplyHook registers a function called with every reply read from the
// control connection, including the greeting.
func WithReplyHook(hook func(*Reply)) Option {
	return func(c *Client) error {
		c.replyHook = hook
		return nil
	}
}

// WithCommandHook registers a function called with every command line
// before it is written. Passwords are masked.
func WithCommandHook(hook func(command string)) Option {
	return func(c *Client) error {
		c.commandHook = hook
		return nil
	}
}

// WithReplyEncoding sets the character set the server's replies are decoded
// from. UTF-8 is used by default.
func WithReplyEncoding(enc encoding.Encoding) Option {
	return func(c *Client) error {
		c.encoding = enc
		return nil
	}
}

// WithMaxLineLength limits the length of a single reply line.
func WithMaxLineLength(n int) Option {
	return func(c *Client) error {
		c.maxLineLength = n
		return nil
	}
}

// WithBandwidthLimit caps data connection throughput in bytes per second.
// Zero or a negative value means unlimited.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(c *Client) error {
		c.bandwidthLimit = bytesPerSecond
		return nil
	}
}

// WithFs sets the filesystem used by RetrieveFile and StoreFile.
// The host filesystem is used by default.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) error {
		c.fs = fs
		return nil
	}
}

// WithProgress registers a callback invoked as transfer bytes move, with the
// running total for the current transfer.
func WithProgress(fn func(kind TransferKind, bytesTransferred int64)) Option {
	return func(c *Client) error {
		c.progress = fn
		return nil
	}
}
