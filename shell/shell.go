// Package shell maps interactive verbs onto an FTP engine.
//
// A Session validates argument counts before anything reaches the network,
// keeps running after failed commands, and ends only on quit/close or when
// the control connection is lost.
package shell

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/gonzalop/ftpc"
)

var (
	// ErrUsage indicates a verb was given the wrong number of arguments.
	ErrUsage = errors.New("usage")

	// ErrUnknownCommand indicates a verb that is not recognized.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrSessionDone indicates the session has already ended.
	ErrSessionDone = errors.New("session ended")
)

// Engine is the subset of *ftpc.Client the shell drives.
type Engine interface {
	List(path string, w io.Writer) (*ftpc.Transfer, error)
	ChangeDir(path string) error
	CurrentDir() (string, error)
	RetrieveFile(remotePath, localPath string) (*ftpc.Transfer, error)
	StoreFile(localPath, remotePath string) (*ftpc.Transfer, error)
	Type(transferType string) error
	Quote(command string, args ...string) (*ftpc.Reply, error)
	Quit() error
}

// Session dispatches verbs to an Engine.
type Session struct {
	engine Engine
	out    io.Writer
	done   bool
}

// Option configures a Session.
type Option func(*Session)

// WithOutput sets where listings and status lines are written.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		s.out = w
	}
}

// New returns a Session driving engine.
func New(engine Engine, opts ...Option) *Session {
	s := &Session{engine: engine, out: io.Discard}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Done reports whether the session has ended.
func (s *Session) Done() bool {
	return s.done
}

// Execute splits line on whitespace and dispatches it. Blank lines are
// ignored.
func (s *Session) Execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return s.Dispatch(fields[0], fields[1:])
}

// Dispatch runs one verb. Errors from the engine are returned unchanged;
// the session ends only on quit/close or a lost control connection.
func (s *Session) Dispatch(verb string, args []string) error {
	if s.done {
		return ErrSessionDone
	}

	cmd, ok := lookup(verb)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, verb)
	}
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
	}

	err := cmd.run(s, args)
	if errors.Is(err, ftpc.ErrConnectionClosed) || errors.Is(err, ftpc.ErrClosed) {
		s.done = true
	}
	return err
}

type command struct {
	names   []string
	minArgs int
	maxArgs int // -1 for unbounded
	usage   string
	run     func(s *Session, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{names: []string{"ls", "dir"}, minArgs: 0, maxArgs: 1, usage: "ls [remote-dir]", run: (*Session).list},
		{names: []string{"cwd", "cd"}, minArgs: 1, maxArgs: 1, usage: "cwd <remote-dir>", run: (*Session).changeDir},
		{names: []string{"get"}, minArgs: 1, maxArgs: 2, usage: "get <remote> [local]", run: (*Session).fetch},
		{names: []string{"put"}, minArgs: 1, maxArgs: 2, usage: "put <local> [remote]", run: (*Session).store},
		{names: []string{"pwd"}, minArgs: 0, maxArgs: 0, usage: "pwd", run: (*Session).pwd},
		{names: []string{"binary"}, minArgs: 0, maxArgs: 0, usage: "binary", run: func(s *Session, _ []string) error { return s.engine.Type("I") }},
		{names: []string{"ascii"}, minArgs: 0, maxArgs: 0, usage: "ascii", run: func(s *Session, _ []string) error { return s.engine.Type("A") }},
		{names: []string{"quote"}, minArgs: 1, maxArgs: -1, usage: "quote <command> [args...]", run: (*Session).quote},
		{names: []string{"close", "quit", "bye"}, minArgs: 0, maxArgs: 0, usage: "quit", run: (*Session).quit},
		{names: []string{"help", "?"}, minArgs: 0, maxArgs: 0, usage: "help", run: (*Session).help},
	}
}

func lookup(verb string) (command, bool) {
	verb = strings.ToLower(verb)
	for _, c := range commands {
		for _, n := range c.names {
			if n == verb {
				return c, true
			}
		}
	}
	return command{}, false
}

func (s *Session) list(args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	}
	t, err := s.engine.List(dir, s.out)
	if err != nil {
		return err
	}
	s.warn(t)
	return nil
}

func (s *Session) changeDir(args []string) error {
	return s.engine.ChangeDir(args[0])
}

func (s *Session) fetch(args []string) error {
	remote := args[0]
	local := path.Base(remote)
	if len(args) == 2 {
		local = args[1]
	}
	t, err := s.engine.RetrieveFile(remote, local)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d bytes received into %s\n", t.Bytes, local)
	s.warn(t)
	return nil
}

func (s *Session) store(args []string) error {
	local := args[0]
	remote := filepath.Base(local)
	if len(args) == 2 {
		remote = args[1]
	}
	t, err := s.engine.StoreFile(local, remote)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d bytes sent to %s\n", t.Bytes, remote)
	s.warn(t)
	return nil
}

func (s *Session) pwd(_ []string) error {
	dir, err := s.engine.CurrentDir()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, dir)
	return nil
}

func (s *Session) quote(args []string) error {
	_, err := s.engine.Quote(strings.ToUpper(args[0]), args[1:]...)
	return err
}

func (s *Session) quit(_ []string) error {
	s.done = true
	return s.engine.Quit()
}

func (s *Session) help(_ []string) error {
	for _, c := range commands {
		fmt.Fprintf(s.out, "  %-28s %s\n", c.usage, strings.Join(c.names[1:], ", "))
	}
	return nil
}

func (s *Session) warn(t *ftpc.Transfer) {
	if t != nil && t.Warning != "" {
		fmt.Fprintf(s.out, "warning: %s\n", t.Warning)
	}
}
