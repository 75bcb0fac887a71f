package ndjson

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
)

type event struct {
	Type  string `json:"type"`
	Index int    `json:"index,omitempty"`
	URL   string `json:"url,omitempty"`
}

func TestWriterFlushesEachLine(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	if err := w.Write(event{Type: "status"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !rec.Flushed {
		t.Fatal("expected flush after write")
	}
	if err := w.Write(event{Type: "image", Index: 1, URL: "https://cdn.example/a.png"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "{\"type\":\"status\"}\n{\"type\":\"image\",\"index\":1,\"url\":\"https://cdn.example/a.png\"}\n"
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestReaderReassemblesFragments(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < 3; i++ {
		if err := w.Write(event{Type: "image", Index: i}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	buf.WriteString("\n\n")

	r := NewReader(iotest.OneByteReader(&buf))
	for i := 0; i < 3; i++ {
		var ev event
		if err := r.Next(&ev); err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if ev.Index != i || ev.Type != "image" {
			t.Fatalf("event %d = %+v", i, ev)
		}
	}
	var ev event
	if err := r.Next(&ev); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReaderRejectsMalformedLine(t *testing.T) {
	r := NewReader(strings.NewReader("{\"type\":\n"))
	var ev event
	if err := r.Next(&ev); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
