package ftpc

import (
	"fmt"
	"net"
)

// openPassive negotiates a data connection with PASV and dials it.
//
// The PASV exchange is consumed on the control connection whatever happens
// afterwards. Failures after a 227 reply are reported as *DataConnError so an
// unparsable address (ErrMalformedAddress) can be told apart from an
// unreachable one (ErrDataConnect).
func (c *Client) openPassive() (net.Conn, error) {
	resp, err := c.cmd("PASV")
	if err != nil {
		return nil, fmt.Errorf("PASV failed: %w", err)
	}

	if resp.Code != 227 {
		if resp.Is1xx() {
			c.drain()
		}
		return nil, newProtocolError(ErrNegotiationFailed, "PASV", resp)
	}

	ep, err := DecodePassiveAddress(resp.String())
	if err != nil {
		return nil, &DataConnError{Addr: resp.String(), Kind: ErrMalformedAddress, Err: err}
	}

	// If the server sends 0.0.0.0, we use the control connection address.
	addr := resolveDataAddr(ep, c.host)
	c.logger.Debug("opening data connection", "addr", addr)

	dataConn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return nil, &DataConnError{Addr: addr, Kind: ErrDataConnect, Err: err}
	}

	return c.wrapDataConn(dataConn), nil
}
