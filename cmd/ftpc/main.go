// Command ftpc is an interactive passive-mode FTP client.
//
// Usage:
//
//	ftpc [flags] [host[:port]]
//
// Flags:
//
//	-u, --user string       login name (default "anonymous")
//	    --password-stdin    read the password from the first line of stdin
//	-d, --debug             enable debug logging
//	    --timeout duration  per-I/O deadline, 0 disables (default 0s)
//	    --limit int         data connection limit in bytes/sec, 0 disables
//	    --encoding string   character set of server replies (default "utf-8")
//
// With no host, ftpc connects to ftp.cs.brown.edu on port 21.
// Type "help" at the ftp> prompt for the list of commands.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/term"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/gonzalop/ftpc"
	"github.com/gonzalop/ftpc/shell"
)

// DefaultServer is used when no host is given.
const DefaultServer = "ftp.cs.brown.edu"

// Config holds the command-line configuration.
type Config struct {
	Host          string
	Port          int
	User          string
	PasswordStdin bool
	Debug         bool
	Timeout       time.Duration
	Limit         int64
	Encoding      string
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stdout)
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	in := bufio.NewReader(os.Stdin)
	os.Exit(run(cfg, in, os.Stdout, log, passwordPrompt(cfg, in, os.Stdout)))
}

func parseFlags(args []string, out io.Writer) (*Config, error) {
	cfg := &Config{}
	fs := pflag.NewFlagSet("ftpc", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVarP(&cfg.User, "user", "u", "anonymous", "login name")
	fs.BoolVar(&cfg.PasswordStdin, "password-stdin", false, "read the password from the first line of stdin")
	fs.BoolVarP(&cfg.Debug, "debug", "d", false, "enable debug logging")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "per-I/O deadline, 0 disables")
	fs.Int64Var(&cfg.Limit, "limit", 0, "data connection limit in bytes/sec, 0 disables")
	fs.StringVar(&cfg.Encoding, "encoding", "utf-8", "character set of server replies (utf-8, latin1, windows-1252)")
	fs.Usage = func() {
		fmt.Fprintln(out, "Usage: ftpc [flags] [host[:port]]")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if replyEncoding(cfg.Encoding) == nil {
		return nil, fmt.Errorf("unsupported encoding %q", cfg.Encoding)
	}

	switch fs.NArg() {
	case 0:
		cfg.Host, cfg.Port = DefaultServer, ftpc.DefaultPort
		fmt.Fprintf(out, "No host given, defaulting to %s:%d\n", cfg.Host, cfg.Port)
	case 1:
		host, port, err := ftpc.ParseHostPort(fs.Arg(0), ftpc.DefaultPort)
		if err != nil {
			return nil, err
		}
		cfg.Host, cfg.Port = host, port
	default:
		return nil, fmt.Errorf("expected at most one host argument, got %d", fs.NArg())
	}

	return cfg, nil
}

// replyEncoding maps a charset name to its decoder, or nil if unknown.
// Only ASCII-compatible charsets are offered: reply codes and line ends are
// framed on ASCII bytes before decoding.
func replyEncoding(name string) encoding.Encoding {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	default:
		return nil
	}
}

// passwordPrompt asks for the password without echo on a terminal, and
// otherwise takes the next line of input.
func passwordPrompt(cfg *Config, in *bufio.Reader, out io.Writer) ftpc.PasswordProvider {
	fd := int(os.Stdin.Fd())
	if cfg.PasswordStdin || !term.IsTerminal(fd) {
		return func() (string, error) {
			return readLine(in)
		}
	}
	return func() (string, error) {
		fmt.Fprint(out, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// run connects, logs in and drives the command loop. It returns the
// process exit code.
func run(cfg *Config, in *bufio.Reader, out io.Writer, log *logrus.Logger, password ftpc.PasswordProvider) int {
	fmt.Fprintf(out, "Connecting to %s on port %d\n", cfg.Host, cfg.Port)

	client, err := ftpc.Connect(cfg.Host, cfg.Port,
		ftpc.WithTimeout(cfg.Timeout),
		ftpc.WithBandwidthLimit(cfg.Limit),
		ftpc.WithReplyEncoding(replyEncoding(cfg.Encoding)),
		ftpc.WithReplyHook(func(r *ftpc.Reply) {
			for _, line := range r.Lines {
				fmt.Fprintf(out, " -*- %s\n", line)
			}
		}),
		ftpc.WithCommandHook(func(cmd string) {
			log.WithField("cmd", cmd).Debug("Sending command")
		}),
	)
	if err != nil {
		log.WithError(err).Errorf("Error connecting to %s:%d", cfg.Host, cfg.Port)
		return 1
	}

	ok, err := client.Authenticate(cfg.User, password)
	if err != nil || !ok {
		if err != nil {
			log.WithError(err).Debug("Login aborted")
		}
		fmt.Fprintln(out, "Login failed.")
		_ = client.Quit()
		return 1
	}

	sess := shell.New(client, shell.WithOutput(out))
	for !sess.Done() {
		fmt.Fprint(out, "ftp> ")
		line, err := in.ReadString('\n')
		if line != "" {
			if cerr := sess.Execute(line); cerr != nil {
				log.WithError(cerr).Error("Command failed")
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Error("Failed to read command")
			}
			break
		}
	}

	if err := client.Quit(); err != nil {
		log.WithError(err).Debug("Error during QUIT")
	}
	return 0
}
