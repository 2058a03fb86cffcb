// Package streaming provides the Server-Sent Events plumbing shared by the
// handlers and the stream transcoders: line-oriented reading of upstream
// bodies and flush-through writing to clients.
package streaming

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"strings"
)

// Done is the sentinel payload terminating an SSE stream.
const Done = "[DONE]"

// DoneFrame is the fully framed terminal event.
const DoneFrame = "data: " + Done + "\n\n"

// LineReader yields complete lines from an upstream stream body. Trailing
// '\r' is stripped. A partial line at EOF is discarded; transcoders
// synthesize their own terminal events instead.
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader wraps r in a buffered line reader.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r)}
}

// Next returns the next complete line, or io.EOF when the stream ends.
func (l *LineReader) Next() (string, error) {
	line, err := l.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// Writer writes an SSE response. Creating one commits the response: it sets
// the stream headers, status 200, and flushes.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares w for SSE output. Returns an error if the
// ResponseWriter does not support flushing.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported: ResponseWriter does not implement http.Flusher")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}, nil
}

// Copy fans src through to the client verbatim, flushing after every read so
// that upstream pacing is preserved. Returns nil on clean EOF.
func (w *Writer) Copy(src io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := w.w.Write(buf[:n]); werr != nil {
				return werr
			}
			w.flusher.Flush()
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return rerr
		}
	}
}
