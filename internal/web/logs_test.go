package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var timeZero time.Time

func TestLogBuffer_JoinsPartialLines(t *testing.T) {
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte("first li"))
	_, _ = b.Write([]byte("ne\nsecond\n\nthi"))

	lines, dropped := b.Snapshot(0)
	if dropped != 0 {
		t.Fatalf("dropped=%d", dropped)
	}
	if strings.Join(lines, "|") != "first line|second" {
		t.Fatalf("lines=%q", lines)
	}

	_, _ = b.Write([]byte("rd\r\n"))
	lines, _ = b.Snapshot(1)
	if len(lines) != 1 || lines[0] != "third" {
		t.Fatalf("lines=%q", lines)
	}
}

func TestLogBuffer_DropsOldest(t *testing.T) {
	b := NewLogBuffer(2)
	_, _ = b.Write([]byte("a\nb\nc\n"))

	lines, dropped := b.Snapshot(10)
	if dropped != 1 {
		t.Fatalf("dropped=%d want 1", dropped)
	}
	if strings.Join(lines, "|") != "b|c" {
		t.Fatalf("lines=%q", lines)
	}
}

func TestLogBuffer_Handler(t *testing.T) {
	b := NewLogBuffer(5)
	_, _ = b.Write([]byte("one\ntwo\n"))
	ts := httptest.NewServer(b.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "?tail=1")
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	defer resp.Body.Close()
	var out LogsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(out.Lines) != 1 || out.Lines[0] != "two" {
		t.Fatalf("lines=%q", out.Lines)
	}

	bad, err := http.Get(ts.URL + "?tail=6")
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("status code=%d", bad.StatusCode)
	}
}
