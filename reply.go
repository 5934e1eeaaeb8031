package ftpc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// DefaultMaxLineLength is the longest reply line accepted by a ReplyReader.
const DefaultMaxLineLength = 64 * 1024

// Reply represents one logical FTP server reply.
type Reply struct {
	// Code is the three-digit reply code (e.g., 220, 550)
	Code int

	// Lines contains every line of the reply in order, without terminators.
	// A single-line reply has exactly one element.
	Lines []string

	// Multiline is set when the first line used the "NNN-" continuation form.
	Multiline bool
}

// Is1xx returns true if the reply code is in the 1xx range (preliminary).
func (r *Reply) Is1xx() bool {
	return r.Code >= 100 && r.Code < 200
}

// Is2xx returns true if the reply code is in the 2xx range (success).
func (r *Reply) Is2xx() bool {
	return r.Code >= 200 && r.Code < 300
}

// Is3xx returns true if the reply code is in the 3xx range (intermediate).
func (r *Reply) Is3xx() bool {
	return r.Code >= 300 && r.Code < 400
}

// Is4xx returns true if the reply code is in the 4xx range (temporary failure).
func (r *Reply) Is4xx() bool {
	return r.Code >= 400 && r.Code < 500
}

// Is5xx returns true if the reply code is in the 5xx range (permanent failure).
func (r *Reply) Is5xx() bool {
	return r.Code >= 500 && r.Code < 600
}

// Message returns the human-readable text of the reply with the code
// prefixes removed, one line per reply line.
func (r *Reply) Message() string {
	prefix := fmt.Sprintf("%03d", r.Code)
	msg := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		if strings.HasPrefix(l, prefix) && (len(l) == 3 || l[3] == ' ' || l[3] == '-') {
			if len(l) > 4 {
				msg = append(msg, l[4:])
			} else {
				msg = append(msg, "")
			}
			continue
		}
		msg = append(msg, l)
	}
	return strings.Join(msg, "\n")
}

// String returns the full reply as a string.
func (r *Reply) String() string {
	return strings.Join(r.Lines, "\n")
}

// ReplyReader reads FTP replies from a control connection byte stream.
// It has no side effects beyond consuming the stream.
type ReplyReader struct {
	r       *bufio.Reader
	decoder *encoding.Decoder
	maxLine int
}

// ReaderOption configures a ReplyReader.
type ReaderOption func(*ReplyReader)

// WithEncoding sets the character encoding reply lines are decoded from.
// The default is UTF-8, with undecodable bytes replaced by U+FFFD.
func WithEncoding(enc encoding.Encoding) ReaderOption {
	return func(rr *ReplyReader) {
		if enc != nil {
			rr.decoder = enc.NewDecoder()
		}
	}
}

// WithLineLimit sets the maximum length in bytes of one reply line.
func WithLineLimit(n int) ReaderOption {
	return func(rr *ReplyReader) {
		if n > 0 {
			rr.maxLine = n
		}
	}
}

// NewReplyReader returns a ReplyReader consuming r. If r is already a
// *bufio.Reader it is used directly.
func NewReplyReader(r io.Reader, opts ...ReaderOption) *ReplyReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	rr := &ReplyReader{
		r:       br,
		decoder: unicode.UTF8.NewDecoder(),
		maxLine: DefaultMaxLineLength,
	}
	for _, opt := range opts {
		opt(rr)
	}
	return rr
}

// ReadReply reads one complete reply, blocking until its final line arrives.
//
// Single-line format: "220 Welcome\r\n"
// Multi-line format:
//
//	"220-Welcome to FTP\r\n"
//	" any text at all\r\n"
//	"220 Ready\r\n"
//
// A multi-line reply ends at the first line starting with the same code
// followed by a space. Lines in between are kept verbatim.
func (rr *ReplyReader) ReadReply() (*Reply, error) {
	first, err := rr.readLine()
	if err != nil {
		return nil, err
	}

	code, err := parseCode(first)
	if err != nil {
		return nil, err
	}

	reply := &Reply{Code: code, Lines: []string{first}}
	if len(first) < 4 || first[3] != '-' {
		return reply, nil
	}

	reply.Multiline = true
	closing := first[:3] + " "
	for {
		line, err := rr.readLine()
		if err != nil {
			return nil, fmt.Errorf("reading %d reply: %w", code, err)
		}
		reply.Lines = append(reply.Lines, line)
		if strings.HasPrefix(line, closing) {
			return reply, nil
		}
	}
}

// readLine returns the next LF-terminated line with CR/LF stripped.
func (rr *ReplyReader) readLine() (string, error) {
	var buf []byte
	for {
		chunk, err := rr.r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > rr.maxLine {
			if errors.Is(err, bufio.ErrBufferFull) {
				rr.skipLine()
			}
			return "", fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedReply, rr.maxLine)
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if isClosed(err) {
			return "", fmt.Errorf("%w: stream ended after %d bytes of a line", ErrConnectionClosed, len(buf))
		}
		return "", err
	}

	buf = bytes.TrimSuffix(buf, []byte("\n"))
	buf = bytes.TrimSuffix(buf, []byte("\r"))
	return rr.decode(buf), nil
}

// skipLine discards the rest of an oversized line so the next read starts
// on a line boundary.
func (rr *ReplyReader) skipLine() {
	for {
		_, err := rr.r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return
		}
	}
}

func (rr *ReplyReader) decode(b []byte) string {
	out, err := rr.decoder.Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}

// parseCode validates the "NNN" prefix of a first reply line.
func parseCode(line string) (int, error) {
	if len(line) < 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedReply, line)
	}
	code := 0
	for i := range 3 {
		ch := line[i]
		if ch < '0' || ch > '9' {
			return 0, fmt.Errorf("%w: %q", ErrMalformedReply, line)
		}
		code = code*10 + int(ch-'0')
	}
	if code < 100 || code > 599 {
		return 0, fmt.Errorf("%w: code %03d out of range", ErrMalformedReply, code)
	}
	if len(line) > 3 && line[3] != ' ' && line[3] != '-' {
		return 0, fmt.Errorf("%w: %q", ErrMalformedReply, line)
	}
	return code, nil
}

// isClosed reports whether err means the peer is gone.
func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET)
}
