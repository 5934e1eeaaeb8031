package ftpc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// TransferKind identifies the data-channel command of a transfer.
type TransferKind int

const (
	KindList TransferKind = iota
	KindRetrieve
	KindStore
)

// String returns the FTP command for the kind.
func (k TransferKind) String() string {
	switch k {
	case KindList:
		return "LIST"
	case KindRetrieve:
		return "RETR"
	case KindStore:
		return "STOR"
	default:
		return fmt.Sprintf("TransferKind(%d)", int(k))
	}
}

// TransferState is the position of a transfer in its lifecycle:
//
//	Idle -> PasvNegotiated -> CommandSent -> ReplyClassified -> Streaming -> Completed
//	                                                        \-> Rejected
//
// Failed is reachable from every non-terminal state.
type TransferState int

const (
	StateIdle TransferState = iota
	StatePasvNegotiated
	StateCommandSent
	StateReplyClassified
	StateStreaming
	StateCompleted
	StateRejected
	StateFailed
)

var stateNames = [...]string{
	StateIdle:            "Idle",
	StatePasvNegotiated:  "PasvNegotiated",
	StateCommandSent:     "CommandSent",
	StateReplyClassified: "ReplyClassified",
	StateStreaming:       "Streaming",
	StateCompleted:       "Completed",
	StateRejected:        "Rejected",
	StateFailed:          "Failed",
}

func (s TransferState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("TransferState(%d)", int(s))
}

// Terminal reports whether no further transitions are possible.
func (s TransferState) Terminal() bool {
	return s == StateCompleted || s == StateRejected || s == StateFailed
}

// Transfer describes one LIST, RETR or STOR exchange. It is returned on
// both success and failure so callers can see how far the exchange got.
type Transfer struct {
	Kind  TransferKind
	Path  string
	State TransferState

	// Bytes is the number of bytes moved over the data connection.
	Bytes int64

	// Preliminary is the reply to the transfer command (normally 150 or 125).
	Preliminary *Reply

	// Final is the completion reply read after the data connection closed.
	Final *Reply

	// Warning is set when the transfer completed with a final code other
	// than 226 or 250. Such transfers are not treated as failures.
	Warning string

	log *slog.Logger
}

func (t *Transfer) set(s TransferState) {
	t.log.Debug("transfer state", "from", t.State, "to", s)
	t.State = s
}

// transfer runs one data-channel command. move copies bytes between the
// data connection and the caller's stream and returns the count. The data
// connection is always closed, and move has always returned, before the
// completion reply is read.
func (c *Client) transfer(kind TransferKind, path string, move func(data net.Conn) (int64, error)) (*Transfer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &Transfer{
		Kind: kind,
		Path: path,
		log:  c.logger.With("transfer", kind.String(), "path", path),
	}

	dataConn, err := c.openPassive()
	if err != nil {
		t.set(StateFailed)
		return t, err
	}
	t.set(StatePasvNegotiated)

	command := kind.String()
	if path != "" {
		command += " " + path
	}
	if err := c.send(command); err != nil {
		dataConn.Close()
		t.set(StateFailed)
		return t, err
	}
	t.set(StateCommandSent)

	resp, err := c.readReply()
	if err != nil {
		dataConn.Close()
		t.set(StateFailed)
		return t, err
	}
	t.Preliminary = resp
	t.set(StateReplyClassified)

	switch {
	case resp.Is1xx():
	case resp.Code >= 400:
		dataConn.Close()
		t.set(StateRejected)
		return t, newProtocolError(ErrTransferRejected, command, resp)
	default:
		dataConn.Close()
		t.set(StateFailed)
		return t, newProtocolError(ErrUnexpectedReply, command, resp)
	}

	t.set(StateStreaming)
	n, copyErr := move(dataConn)
	t.Bytes = n

	// Closing signals end-of-data to the server for STOR.
	if err := dataConn.Close(); err != nil {
		t.log.Debug("failed to close data connection", "error", err)
	}

	final, err := c.readReply()
	if err != nil {
		t.set(StateFailed)
		if copyErr != nil {
			return t, errors.Join(fmt.Errorf("%s failed: %w", kind, copyErr), err)
		}
		return t, fmt.Errorf("failed to read completion reply: %w", err)
	}
	t.Final = final

	if copyErr != nil {
		t.set(StateFailed)
		return t, fmt.Errorf("%s failed: %w", kind, copyErr)
	}

	if final.Code != 226 && final.Code != 250 {
		t.Warning = fmt.Sprintf("%s completed with unexpected reply %d: %s", kind, final.Code, final.Message())
		t.log.Warn("transfer completed with unexpected reply", "code", final.Code, "message", final.Message())
	}

	t.set(StateCompleted)
	t.log.Debug("ftp data transfer complete", "bytes", n, "code", final.Code)
	return t, nil
}

// List streams the raw LIST output for path to w. An empty path lists the
// current directory. The listing is passed through unparsed.
//
// Example:
//
//	_, err := client.List("/pub", os.Stdout)
func (c *Client) List(path string, w io.Writer) (*Transfer, error) {
	return c.transfer(KindList, path, func(data net.Conn) (int64, error) {
		return io.Copy(c.sinkFor(KindList, w), data)
	})
}

// Retrieve downloads the remote path into w.
//
// Example:
//
//	file, err := os.Create("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	_, err = client.Retrieve("remote.txt", file)
func (c *Client) Retrieve(remotePath string, w io.Writer) (*Transfer, error) {
	if remotePath == "" {
		return nil, fmt.Errorf("ftp: RETR requires a path")
	}
	return c.transfer(KindRetrieve, remotePath, func(data net.Conn) (int64, error) {
		return io.Copy(c.sinkFor(KindRetrieve, w), data)
	})
}

// Store uploads everything read from r to the remote path.
//
// Example:
//
//	file, err := os.Open("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	_, err = client.Store("remote.txt", file)
func (c *Client) Store(remotePath string, r io.Reader) (*Transfer, error) {
	if remotePath == "" {
		return nil, fmt.Errorf("ftp: STOR requires a path")
	}
	return c.transfer(KindStore, remotePath, func(data net.Conn) (int64, error) {
		return io.Copy(data, c.sourceFor(KindStore, r))
	})
}

// RetrieveFile downloads a remote file to a local path on the client's
// filesystem. Data is written to a temporary file next to localPath, which
// is renamed over localPath only when the download succeeds; an existing
// local file is left untouched by a failed or rejected download. The
// temporary file is created before any network I/O; if that fails, no
// command is sent.
//
// Example:
//
//	_, err := client.RetrieveFile("/public/data.csv", "local_data.csv")
func (c *Client) RetrieveFile(remotePath, localPath string) (*Transfer, error) {
	f, err := afero.TempFile(c.fs, filepath.Dir(localPath), "."+filepath.Base(localPath)+".*.part")
	if err != nil {
		return nil, localError("create "+localPath, err)
	}
	tmp := f.Name()

	t, err := c.Retrieve(remotePath, f)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = localError("close "+localPath, cerr)
	}
	if err == nil {
		if rerr := c.fs.Rename(tmp, localPath); rerr != nil {
			err = localError("rename "+localPath, rerr)
		}
	}
	if err != nil {
		_ = c.fs.Remove(tmp)
		return t, err
	}
	return t, nil
}

// StoreFile uploads a local file to the remote path. The local file is
// opened before any network I/O; if that fails, no command is sent.
//
// Example:
//
//	_, err := client.StoreFile("local_image.jpg", "/public/images/remote_image.jpg")
func (c *Client) StoreFile(localPath, remotePath string) (*Transfer, error) {
	f, err := c.fs.Open(localPath)
	if err != nil {
		return nil, localError("open "+localPath, err)
	}
	defer f.Close()

	return c.Store(remotePath, f)
}

// ChangeDir changes the remote working directory. Only a 250 reply counts
// as success.
func (c *Client) ChangeDir(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.expectCode(250, ErrUnexpectedReply, "CWD", path)
	return err
}

// CurrentDir returns the remote working directory reported by PWD.
func (c *Client) CurrentDir() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.expectCode(257, ErrUnexpectedReply, "PWD")
	if err != nil {
		return "", err
	}

	// Parse the directory from the response
	// Example: 257 "/home/user" is the current directory
	msg := resp.Message()
	start := strings.Index(msg, "\"")
	if start == -1 {
		return "", fmt.Errorf("%w: invalid PWD response: %s", ErrUnexpectedReply, msg)
	}
	end := strings.Index(msg[start+1:], "\"")
	if end == -1 {
		return "", fmt.Errorf("%w: invalid PWD response: %s", ErrUnexpectedReply, msg)
	}

	return msg[start+1 : start+1+end], nil
}
