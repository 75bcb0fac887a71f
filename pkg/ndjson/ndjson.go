// Package ndjson writes and reads newline delimited JSON streams.
package ndjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// ContentType is the media type of a stream.
const ContentType = "application/x-ndjson"

// Writer encodes one JSON object per line and flushes after each one when the
// underlying writer supports it.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// Write is safe for concurrent use; lines are never interleaved.
func (w *Writer) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ndjson: encode: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(line); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// MaxLineBytes bounds a single decoded line.
const MaxLineBytes = 4 << 20

// Reader reassembles lines from arbitrarily fragmented input.
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	return &Reader{scanner: s}
}

// Next decodes the next non-empty line into v. It returns io.EOF at the end
// of the stream.
func (r *Reader) Next(v any) error {
	for r.scanner.Scan() {
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, v); err != nil {
			return fmt.Errorf("ndjson: decode line: %w", err)
		}
		return nil
	}
	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("ndjson: line exceeds %d bytes: %w", MaxLineBytes, err)
		}
		return err
	}
	return io.EOF
}
