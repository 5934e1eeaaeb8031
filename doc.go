// Package ftpc implements a passive-mode FTP client engine.
//
// # Overview
//
// FTP uses two channels. A long-lived control connection carries
// CRLF-terminated commands and three-digit replies, and a short-lived data
// connection is opened for every listing or file transfer at the address the
// server advertises in its PASV reply. This package provides:
//   - Reply framing for single and multi-line replies (ReplyReader)
//   - PASV address decoding (DecodePassiveAddress)
//   - A control session with login and orderly shutdown (Client)
//   - LIST, RETR and STOR transfers that keep both channels in step
//
// Active mode, TLS, restart offsets and listing parsing are not supported.
//
// # Basic Usage
//
//	client, err := ftpc.Dial("ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	ok, err := client.Authenticate("anonymous", ftpc.Password("guest"))
//	if err != nil || !ok {
//	    log.Fatal("login failed")
//	}
//
//	if _, err := client.List("", os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
//
// # Transfers
//
// Every transfer runs PASV, sends its command, and classifies the reply:
// 1xx proceeds, 4xx/5xx fails with ErrTransferRejected, anything else fails
// with ErrUnexpectedReply. Data is then copied until the data connection
// closes, the data connection is closed on our side, and only then is the
// completion reply read. A completion code other than 226 or 250 is reported
// in Transfer.Warning rather than as an error.
//
//	t, err := client.RetrieveFile("pub/README", "README")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes, final reply %d\n", t.Bytes, t.Final.Code)
//
// # Observability
//
// Replies and commands can be observed without touching the parser with
// WithReplyHook and WithCommandHook. WithLogger enables debug logging through
// log/slog. The PASS argument is never logged or passed to hooks.
//
// # Error Handling
//
// Errors wrap one of the package's sentinel kinds, so callers can branch with
// errors.Is. Protocol failures are *ProtocolError values carrying the command,
// reply text and code:
//
//	if _, err := client.Retrieve("missing.txt", w); err != nil {
//	    var pe *ftpc.ProtocolError
//	    if errors.As(err, &pe) && errors.Is(err, ftpc.ErrTransferRejected) {
//	        fmt.Printf("server refused: %d %s\n", pe.Code, pe.Response)
//	    }
//	}
//
// Only ErrConnectionClosed means the session is over; every other error
// leaves the client usable.
package ftpc
