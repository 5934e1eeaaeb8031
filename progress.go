package ftpc

import "io"

// ProgressReader wraps an io.Reader and reports progress via a callback.
type ProgressReader struct {
	// Reader is the underlying reader
	Reader io.Reader

	// Callback is called after each Read with the total bytes transferred
	Callback func(bytesTransferred int64)

	total int64
}

// Read implements io.Reader.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	pr.total += int64(n)
	if pr.Callback != nil && n > 0 {
		pr.Callback(pr.total)
	}
	return n, err
}

// ProgressWriter wraps an io.Writer and reports progress via a callback.
type ProgressWriter struct {
	// Writer is the underlying writer
	Writer io.Writer

	// Callback is called after each Write with the total bytes transferred
	Callback func(bytesTransferred int64)

	total int64
}

// Write implements io.Writer.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.total += int64(n)
	if pw.Callback != nil && n > 0 {
		pw.Callback(pw.total)
	}
	return n, err
}

// localReader marks errors from the caller's source as local.
type localReader struct {
	r io.Reader
}

func (l localReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	if err == io.EOF {
		return n, err
	}
	return n, localError("read", err)
}

// localWriter marks errors from the caller's sink as local.
type localWriter struct {
	w io.Writer
}

func (l localWriter) Write(p []byte) (int, error) {
	n, err := l.w.Write(p)
	return n, localError("write", err)
}

// sinkFor wraps the caller's writer with progress reporting and local
// error tagging.
func (c *Client) sinkFor(kind TransferKind, w io.Writer) io.Writer {
	if c.progress != nil {
		w = &ProgressWriter{Writer: w, Callback: func(n int64) { c.progress(kind, n) }}
	}
	return localWriter{w: w}
}

// sourceFor wraps the caller's reader with progress reporting and local
// error tagging.
func (c *Client) sourceFor(kind TransferKind, r io.Reader) io.Reader {
	if c.progress != nil {
		r = &ProgressReader{Reader: r, Callback: func(n int64) { c.progress(kind, n) }}
	}
	return localReader{r: r}
}
