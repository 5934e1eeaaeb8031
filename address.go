package ftpc

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is a data connection address advertised by a PASV reply.
type Endpoint struct {
	Host string
	Port int
}

// String returns the endpoint in "host:port" form.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// DecodePassiveAddress extracts the endpoint from a PASV reply.
// Only the parenthesized sextet is parsed; surrounding text is ignored.
// Example: "227 Entering Passive Mode (192,168,1,1,195,149)."
// Returns: {Host: "192.168.1.1", Port: 50069} (195*256 + 149 = 50069)
func DecodePassiveAddress(text string) (Endpoint, error) {
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return Endpoint{}, fmt.Errorf("%w: no address group in %q", ErrMalformedAddress, text)
	}
	end := strings.IndexByte(text[open:], ')')
	if end < 0 {
		return Endpoint{}, fmt.Errorf("%w: unterminated address group in %q", ErrMalformedAddress, text)
	}

	fields := strings.Split(text[open+1:open+end], ",")
	if len(fields) != 6 {
		return Endpoint{}, fmt.Errorf("%w: want 6 fields, got %d in %q", ErrMalformedAddress, len(fields), text)
	}

	var octets [6]int
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Endpoint{}, fmt.Errorf("%w: field %d: %w", ErrMalformedAddress, i+1, err)
		}
		if v < 0 || v > 255 {
			return Endpoint{}, fmt.Errorf("%w: field %d out of range: %d", ErrMalformedAddress, i+1, v)
		}
		octets[i] = v
	}

	return Endpoint{
		Host: fmt.Sprintf("%d.%d.%d.%d", octets[0], octets[1], octets[2], octets[3]),
		Port: octets[4]*256 + octets[5],
	}, nil
}

// EncodePassiveAddress formats an IPv4 endpoint as "h1,h2,h3,h4,p1,p2".
func EncodePassiveAddress(e Endpoint) (string, error) {
	ip := net.ParseIP(e.Host)
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("%w: %q is not an IPv4 address", ErrMalformedAddress, e.Host)
	}
	if e.Port < 0 || e.Port > 65535 {
		return "", fmt.Errorf("%w: port %d out of range", ErrMalformedAddress, e.Port)
	}
	ip = ip.To4()
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", ip[0], ip[1], ip[2], ip[3], e.Port/256, e.Port%256), nil
}

// resolveDataAddr returns the address to dial for a passive endpoint.
// If the server advertises 0.0.0.0, the control connection host is used.
func resolveDataAddr(e Endpoint, controlHost string) string {
	if e.Host == "0.0.0.0" {
		return net.JoinHostPort(controlHost, strconv.Itoa(e.Port))
	}
	return e.String()
}

// ParseHostPort splits a "host[:port]" target. The port defaults to
// defaultPort when omitted.
func ParseHostPort(s string, defaultPort int) (string, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, fmt.Errorf("empty host string")
	}

	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return s, defaultPort, nil
	}

	host := strings.TrimSpace(s[:i])
	if host == "" {
		return "", 0, fmt.Errorf("missing hostname in %q", s)
	}
	port, err := strconv.Atoi(strings.TrimSpace(s[i+1:]))
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q in %q", s[i+1:], s)
	}
	return host, port, nil
}
