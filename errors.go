package ftpc

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrConnectionClosed indicates the peer closed the control connection
	// before a complete reply was read.
	ErrConnectionClosed = errors.New("ftp: connection closed")

	// ErrMalformedReply indicates a reply that does not start with a
	// three-digit code, or a line longer than the configured maximum.
	ErrMalformedReply = errors.New("ftp: malformed reply")

	// ErrMalformedAddress indicates an unparsable PASV reply.
	ErrMalformedAddress = errors.New("ftp: malformed passive address")

	// ErrNegotiationFailed indicates PASV was answered with something other than 227.
	ErrNegotiationFailed = errors.New("ftp: passive negotiation failed")

	// ErrDataConnect indicates the advertised data endpoint could not be reached.
	ErrDataConnect = errors.New("ftp: data connection failed")

	// ErrTransferRejected indicates a 4xx/5xx reply to LIST, RETR or STOR.
	ErrTransferRejected = errors.New("ftp: transfer rejected")

	// ErrUnexpectedReply indicates a reply code the current step does not accept.
	ErrUnexpectedReply = errors.New("ftp: unexpected reply")

	// ErrLocalIO indicates a failure opening, reading or writing the local stream.
	ErrLocalIO = errors.New("ftp: local I/O failure")

	// ErrAuthFailed indicates the server refused the credentials.
	ErrAuthFailed = errors.New("ftp: authentication failed")

	// ErrCommandPending indicates a command was sent before the previous
	// reply was read.
	ErrCommandPending = errors.New("ftp: reply still pending")

	// ErrClosed indicates the client has already quit.
	ErrClosed = errors.New("ftp: client closed")
)

// ProtocolError represents an FTP protocol error with full context of the
// command/response conversation.
type ProtocolError struct {
	// Command is the FTP command that was sent (e.g., "STOR file.txt").
	// Passwords are masked.
	Command string

	// Response is the raw response received from the server (e.g., "550 Permission denied")
	Response string

	// Code is the numeric FTP response code (e.g., 550)
	Code int

	// Kind is one of the package error kinds (ErrTransferRejected, ...).
	Kind error
}

func newProtocolError(kind error, command string, r *Reply) *ProtocolError {
	return &ProtocolError{
		Command:  maskCommand(command),
		Response: r.Message(),
		Code:     r.Code,
		Kind:     kind,
	}
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ftp: %s failed: %s (code %d)", e.Command, e.Response, e.Code)
}

// Unwrap returns the error kind.
func (e *ProtocolError) Unwrap() error {
	return e.Kind
}

// Is4xx returns true if the error code is in the 4xx range (temporary failure).
func (e *ProtocolError) Is4xx() bool {
	return e.Code >= 400 && e.Code < 500
}

// Is5xx returns true if the error code is in the 5xx range (permanent failure).
func (e *ProtocolError) Is5xx() bool {
	return e.Code >= 500 && e.Code < 600
}

// IsTemporary returns true if the error is a temporary failure (4xx).
func (e *ProtocolError) IsTemporary() bool {
	return e.Is4xx()
}

// IsPermanent returns true if the error is a permanent failure (5xx).
func (e *ProtocolError) IsPermanent() bool {
	return e.Is5xx()
}

// DataConnError reports a failure after a successful PASV exchange: either the
// advertised address could not be parsed or it could not be dialed. Kind tells
// the two apart.
type DataConnError struct {
	// Addr is the endpoint that was dialed, or the raw reply text when
	// the address could not be decoded.
	Addr string

	// Kind is ErrMalformedAddress or ErrDataConnect.
	Kind error

	// Err is the underlying error.
	Err error
}

func (e *DataConnError) Error() string {
	if e.Kind == ErrMalformedAddress {
		return fmt.Sprintf("ftp: cannot parse passive address from %q: %v", e.Addr, e.Err)
	}
	return fmt.Sprintf("ftp: cannot connect to data port %s: %v", e.Addr, e.Err)
}

// Unwrap returns both the kind and the underlying error.
func (e *DataConnError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// localError tags an error from the caller's stream so it is reported as
// ErrLocalIO instead of as a network failure.
func localError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrLocalIO, op, err)
}
