package ftpc

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestReadReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		code      int
		lines     []string
		multiline bool
	}{
		{
			name:  "single line",
			input: "220 Service ready\r\n",
			code:  220,
			lines: []string{"220 Service ready"},
		},
		{
			name:  "bare LF",
			input: "230 Logged in\n",
			code:  230,
			lines: []string{"230 Logged in"},
		},
		{
			name:  "code only",
			input: "200\r\n",
			code:  200,
			lines: []string{"200"},
		},
		{
			name:      "multi-line with free-form continuation",
			input:     "220-Welcome\r\n to the server\r\n220-still going\r\n220 Ready\r\n",
			code:      220,
			lines:     []string{"220-Welcome", " to the server", "220-still going", "220 Ready"},
			multiline: true,
		},
		{
			name:      "other codes inside a multi-line reply",
			input:     "211-Status\r\n230 not the end\r\n211 End\r\n",
			code:      211,
			lines:     []string{"211-Status", "230 not the end", "211 End"},
			multiline: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rr := NewReplyReader(strings.NewReader(tt.input))
			r, err := rr.ReadReply()
			if err != nil {
				t.Fatalf("ReadReply() error = %v", err)
			}
			if r.Code != tt.code {
				t.Errorf("Code = %d, want %d", r.Code, tt.code)
			}
			if r.Multiline != tt.multiline {
				t.Errorf("Multiline = %v, want %v", r.Multiline, tt.multiline)
			}
			if strings.Join(r.Lines, "|") != strings.Join(tt.lines, "|") {
				t.Errorf("Lines = %q, want %q", r.Lines, tt.lines)
			}
		})
	}
}

func TestReadReply_Sequence(t *testing.T) {
	t.Parallel()
	rr := NewReplyReader(strings.NewReader("150 Opening\r\n226 Done\r\n"))

	for _, want := range []int{150, 226} {
		r, err := rr.ReadReply()
		if err != nil {
			t.Fatalf("ReadReply() error = %v", err)
		}
		if r.Code != want {
			t.Errorf("Code = %d, want %d", r.Code, want)
		}
	}

	if _, err := rr.ReadReply(); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("read past end: error = %v, want ErrConnectionClosed", err)
	}
}

func TestReadReply_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty stream", "", ErrConnectionClosed},
		{"truncated before terminator", "22", ErrConnectionClosed},
		{"missing closing line", "220-Welcome\r\nmore text\r\n", ErrConnectionClosed},
		{"short code", "22\r\n", ErrMalformedReply},
		{"letters", "abc\r\n", ErrMalformedReply},
		{"digit then letters", "2xx Hello\r\n", ErrMalformedReply},
		{"code below range", "000 zero\r\n", ErrMalformedReply},
		{"code above range", "600 too big\r\n", ErrMalformedReply},
		{"empty line", "\r\n", ErrMalformedReply},
		{"no separator after code", "220X text\r\n", ErrMalformedReply},
		{"tab after code", "220\tReady\r\n", ErrMalformedReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewReplyReader(strings.NewReader(tt.input)).ReadReply()
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadReply() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadReply_LineLimit(t *testing.T) {
	t.Parallel()

	long := "220 " + strings.Repeat("x", 100) + "\r\n"
	_, err := NewReplyReader(strings.NewReader(long), WithLineLimit(32)).ReadReply()
	if !errors.Is(err, ErrMalformedReply) {
		t.Fatalf("error = %v, want ErrMalformedReply", err)
	}

	// The rest of an oversized line is discarded so the next reply frames.
	oversized := "220 " + strings.Repeat("x", 10000) + "\r\n200 Next\r\n"
	rr := NewReplyReader(strings.NewReader(oversized), WithLineLimit(64))
	if _, err := rr.ReadReply(); !errors.Is(err, ErrMalformedReply) {
		t.Fatalf("oversized line: error = %v, want ErrMalformedReply", err)
	}
	next, err := rr.ReadReply()
	if err != nil || next.Code != 200 {
		t.Fatalf("reply after oversized line = %v, %v", next, err)
	}

	// Longer than the bufio buffer but within the limit.
	huge := "220 " + strings.Repeat("y", 10000) + "\r\n"
	r, err := NewReplyReader(strings.NewReader(huge)).ReadReply()
	if err != nil {
		t.Fatalf("ReadReply() error = %v", err)
	}
	if len(r.Lines[0]) != 10004 {
		t.Errorf("line length = %d, want 10004", len(r.Lines[0]))
	}
}

func TestReadReply_Encoding(t *testing.T) {
	t.Parallel()

	t.Run("invalid UTF-8 is replaced", func(t *testing.T) {
		t.Parallel()
		r, err := NewReplyReader(strings.NewReader("220 caf\xe9\r\n")).ReadReply()
		if err != nil {
			t.Fatalf("ReadReply() error = %v", err)
		}
		if r.Lines[0] != "220 caf\uFFFD" {
			t.Errorf("line = %q, want replacement character", r.Lines[0])
		}
	})

	t.Run("latin-1", func(t *testing.T) {
		t.Parallel()
		rr := NewReplyReader(strings.NewReader("220 caf\xe9\r\n"), WithEncoding(charmap.ISO8859_1))
		r, err := rr.ReadReply()
		if err != nil {
			t.Fatalf("ReadReply() error = %v", err)
		}
		if r.Lines[0] != "220 café" {
			t.Errorf("line = %q, want %q", r.Lines[0], "220 café")
		}
	})
}

func TestReply_Message(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply Reply
		want  string
	}{
		{"single", Reply{Code: 550, Lines: []string{"550 No such file"}}, "No such file"},
		{"bare code", Reply{Code: 200, Lines: []string{"200"}}, ""},
		{
			"multi",
			Reply{Code: 230, Lines: []string{"230-Welcome", " banner", "230 Logged in"}, Multiline: true},
			"Welcome\n banner\nLogged in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.reply.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReply_Classes(t *testing.T) {
	t.Parallel()

	r := &Reply{Code: 150}
	if !r.Is1xx() || r.Is2xx() || r.Is3xx() || r.Is4xx() || r.Is5xx() {
		t.Errorf("150 classified incorrectly")
	}
	r = &Reply{Code: 331}
	if !r.Is3xx() {
		t.Errorf("331 should be 3xx")
	}
	r = &Reply{Code: 425}
	if !r.Is4xx() {
		t.Errorf("425 should be 4xx")
	}
}

func FuzzReadReply(f *testing.F) {
	f.Add("220 ok\r\n")
	f.Add("220-a\r\nb\r\n220 c\r\n")
	f.Add("abc\r\n")
	f.Add("")

	f.Fuzz(func(t *testing.T, input string) {
		r, err := NewReplyReader(strings.NewReader(input)).ReadReply()
		if err != nil {
			if !errors.Is(err, ErrMalformedReply) && !errors.Is(err, ErrConnectionClosed) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			return
		}
		if r.Code < 100 || r.Code > 599 {
			t.Fatalf("code %d out of range", r.Code)
		}
		if len(r.Lines) == 0 {
			t.Fatal("reply with no lines")
		}
	})
}
