package shell

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/gonzalop/ftpc"
)

// fakeEngine records calls and returns canned results.
type fakeEngine struct {
	calls   []string
	listing string
	warning string
	err     error
}

func (f *fakeEngine) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.err
}

func (f *fakeEngine) transfer(kind ftpc.TransferKind, n int64) *ftpc.Transfer {
	return &ftpc.Transfer{Kind: kind, State: ftpc.StateCompleted, Bytes: n, Warning: f.warning}
}

func (f *fakeEngine) List(path string, w io.Writer) (*ftpc.Transfer, error) {
	if err := f.record("List %q", path); err != nil {
		return nil, err
	}
	_, _ = io.WriteString(w, f.listing)
	return f.transfer(ftpc.KindList, int64(len(f.listing))), nil
}

func (f *fakeEngine) ChangeDir(path string) error {
	return f.record("ChangeDir %q", path)
}

func (f *fakeEngine) CurrentDir() (string, error) {
	return "/home/ftp", f.record("CurrentDir")
}

func (f *fakeEngine) RetrieveFile(remotePath, localPath string) (*ftpc.Transfer, error) {
	if err := f.record("RetrieveFile %q %q", remotePath, localPath); err != nil {
		return nil, err
	}
	return f.transfer(ftpc.KindRetrieve, 42), nil
}

func (f *fakeEngine) StoreFile(localPath, remotePath string) (*ftpc.Transfer, error) {
	if err := f.record("StoreFile %q %q", localPath, remotePath); err != nil {
		return nil, err
	}
	return f.transfer(ftpc.KindStore, 7), nil
}

func (f *fakeEngine) Type(transferType string) error {
	return f.record("Type %q", transferType)
}

func (f *fakeEngine) Quote(command string, args ...string) (*ftpc.Reply, error) {
	if err := f.record("Quote %q %q", command, args); err != nil {
		return nil, err
	}
	return &ftpc.Reply{Code: 200, Lines: []string{"200 OK"}}, nil
}

func (f *fakeEngine) Quit() error {
	f.calls = append(f.calls, "Quit")
	return nil
}

func TestExecute_Dispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
	}{
		{"ls", `List ""`},
		{"ls /pub", `List "/pub"`},
		{"dir /pub", `List "/pub"`},
		{"cwd pub", `ChangeDir "pub"`},
		{"cd ..", `ChangeDir ".."`},
		{"get pub/README", `RetrieveFile "pub/README" "README"`},
		{"get pub/README notes.txt", `RetrieveFile "pub/README" "notes.txt"`},
		{"put /tmp/report.pdf", `StoreFile "/tmp/report.pdf" "report.pdf"`},
		{"put report.pdf in/r.pdf", `StoreFile "report.pdf" "in/r.pdf"`},
		{"pwd", "CurrentDir"},
		{"binary", `Type "I"`},
		{"ascii", `Type "A"`},
		{"quote site chmod 644 x", `Quote "SITE" ["chmod" "644" "x"]`},
		{"  LS   /pub  ", `List "/pub"`},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			eng := &fakeEngine{}
			s := New(eng)
			if err := s.Execute(tt.line); err != nil {
				t.Fatalf("Execute(%q) error = %v", tt.line, err)
			}
			if len(eng.calls) != 1 || eng.calls[0] != tt.want {
				t.Errorf("Execute(%q) calls = %q, want %q", tt.line, eng.calls, tt.want)
			}
			if s.Done() {
				t.Error("session ended")
			}
		})
	}
}

func TestExecute_Usage(t *testing.T) {
	t.Parallel()

	for _, line := range []string{"ls a b", "cwd", "cd a b", "get", "get a b c", "put", "pwd x", "quote", "quit now"} {
		t.Run(line, func(t *testing.T) {
			t.Parallel()
			eng := &fakeEngine{}
			err := New(eng).Execute(line)
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("Execute(%q) error = %v, want ErrUsage", line, err)
			}
			if len(eng.calls) != 0 {
				t.Errorf("engine called: %q", eng.calls)
			}
		})
	}
}

func TestExecute_UnknownAndBlank(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{}
	s := New(eng)

	if err := s.Execute("frobnicate x"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("unknown verb error = %v", err)
	}
	if err := s.Execute("   "); err != nil {
		t.Errorf("blank line error = %v", err)
	}
	if len(eng.calls) != 0 || s.Done() {
		t.Errorf("calls = %q, done = %v", eng.calls, s.Done())
	}
}

func TestQuit(t *testing.T) {
	t.Parallel()

	for _, verb := range []string{"quit", "close", "bye"} {
		t.Run(verb, func(t *testing.T) {
			t.Parallel()
			eng := &fakeEngine{}
			s := New(eng)
			if err := s.Execute(verb); err != nil {
				t.Fatal(err)
			}
			if !s.Done() {
				t.Error("session not ended")
			}
			if err := s.Execute("ls"); !errors.Is(err, ErrSessionDone) {
				t.Errorf("Execute after quit error = %v", err)
			}
			if len(eng.calls) != 1 || eng.calls[0] != "Quit" {
				t.Errorf("calls = %q", eng.calls)
			}
		})
	}
}

func TestErrors_SessionSurvives(t *testing.T) {
	t.Parallel()

	rejected := &ftpc.ProtocolError{Command: "RETR x", Code: 550, Response: "No such file", Kind: ftpc.ErrTransferRejected}
	tests := []struct {
		name     string
		err      error
		wantDone bool
	}{
		{"rejected", rejected, false},
		{"local", fmt.Errorf("%w: create x: denied", ftpc.ErrLocalIO), false},
		{"data connect", &ftpc.DataConnError{Addr: "1.2.3.4:5", Kind: ftpc.ErrDataConnect, Err: io.EOF}, false},
		{"connection lost", fmt.Errorf("failed to read reply: %w", ftpc.ErrConnectionClosed), true},
		{"already closed", ftpc.ErrClosed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := New(&fakeEngine{err: tt.err})
			err := s.Execute("get x")
			if !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
			if s.Done() != tt.wantDone {
				t.Errorf("Done() = %v, want %v", s.Done(), tt.wantDone)
			}
		})
	}
}

func TestOutput(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	eng := &fakeEngine{listing: "drwxr-xr-x pub\r\n", warning: "LIST completed with unexpected reply 200: ok"}
	s := New(eng, WithOutput(&out))

	for _, line := range []string{"ls", "pwd", "get a/b.txt", "put c.txt", "help"} {
		if err := s.Execute(line); err != nil {
			t.Fatalf("Execute(%q) error = %v", line, err)
		}
	}

	got := out.String()
	for _, want := range []string{
		"drwxr-xr-x pub\r\n",
		"warning: LIST completed with unexpected reply 200",
		"/home/ftp\n",
		"42 bytes received into b.txt",
		"7 bytes sent to c.txt",
		"get <remote> [local]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
