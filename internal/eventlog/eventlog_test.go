package eventlog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gpxtab/internal/gpx"
)

func TestReaderReadAll(t *testing.T) {
	in := strings.NewReader(`
# recorded by test

START
O rte
O rtept lat="47.58" lon="2.19"
C rtept
O name
T "a"
T "b \"quoted\"\n"
C name
C rte
START
O wpt lat="1" lon="2"
C wpt
`)

	docs, err := NewReader(in).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if len(docs[0].Events) != 8 {
		t.Fatalf("expected 8 events, got %d", len(docs[0].Events))
	}
	want := Event{Kind: Open, Name: "rtept", Attrs: []gpx.Attr{{Name: "lat", Value: "47.58"}, {Name: "lon", Value: "2.19"}}}
	if !reflect.DeepEqual(docs[0].Events[1], want) {
		t.Fatalf("unexpected open event: %+v", docs[0].Events[1])
	}
	if got := docs[0].Events[5].Text; got != "b \"quoted\"\n" {
		t.Fatalf("unexpected text %q", got)
	}
	if docs[1].Events[1].Kind != Close || docs[1].Events[1].Name != "wpt" {
		t.Fatalf("unexpected close event: %+v", docs[1].Events[1])
	}
}

func TestReaderReadAll_ImplicitDocument(t *testing.T) {
	docs, err := NewReader(strings.NewReader("O wpt lat=\"1\" lon=\"2\"\nC wpt\n")).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(docs) != 1 || len(docs[0].Events) != 2 {
		t.Fatalf("unexpected documents: %+v", docs)
	}
}

func TestReaderReadAll_InvalidLines(t *testing.T) {
	for _, line := range []string{
		"not-a-valid-line",
		"X wpt",
		"T unquoted",
		"O wpt lat=1",
		"O wpt lat",
		"C two names",
		"O ",
	} {
		if _, err := NewReader(strings.NewReader(line + "\n")).ReadAll(); err == nil {
			t.Fatalf("expected error for %q", line)
		}
	}
}

func TestRecordReplay_RoundTrip(t *testing.T) {
	const doc = `<gpx><rte><name>R &amp; D</name><rtept lat="47.58" lon="2.19"/><rtept lat="47.59" lon="1.06"/></rte></gpx>`

	path := filepath.Join(t.TempDir(), "events.log")
	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}

	var direct gpx.Collector
	p := gpx.NewParser(&direct)
	if err := gpx.Decode(context.Background(), strings.NewReader(doc), Tee{Log: w, Next: p}); err != nil {
		_ = w.Finish()
		t.Fatalf("Decode() error: %v", err)
	}
	if err := p.Finish(); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Writer.Finish() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer f.Close()

	docs, err := NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}

	var replayed gpx.Collector
	res := Replay(docs, &replayed)
	if len(res) != 1 || res[0].Err != nil {
		t.Fatalf("unexpected replay result: %+v", res)
	}
	if res[0].Counts.Routes != 1 || res[0].Counts.Points != 2 {
		t.Fatalf("unexpected counts: %+v", res[0].Counts)
	}
	if !reflect.DeepEqual(direct.Routes, replayed.Routes) {
		t.Fatalf("replayed routes differ:\n%+v\n%+v", direct.Routes, replayed.Routes)
	}
	if replayed.Routes[0].Name != "R & D" {
		t.Fatalf("unexpected route name %q", replayed.Routes[0].Name)
	}
}

func TestReplay_StructuralErrorIsPerDocument(t *testing.T) {
	docs := []Document{
		{Events: []Event{{Kind: Open, Name: "rte"}, {Kind: Close, Name: "wpt"}}},
		{Events: []Event{
			{Kind: Open, Name: "wpt", Attrs: []gpx.Attr{{Name: "lat", Value: "1"}, {Name: "lon", Value: "2"}}},
			{Kind: Close, Name: "wpt"},
		}},
	}

	var c gpx.Collector
	res := Replay(docs, &c)
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if !errors.Is(res[0].Err, gpx.ErrStructural) {
		t.Fatalf("expected structural error, got %v", res[0].Err)
	}
	if res[1].Err != nil || res[1].Counts.Waypoints != 1 {
		t.Fatalf("unexpected second result: %+v", res[1])
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", c.Len())
	}
}

func TestWriter_Format(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	_ = w.Comment("two\nlines")
	_ = w.Start()
	_ = w.Open("wpt", []gpx.Attr{{Name: "lat", Value: "1"}, {Name: "lon", Value: "2"}})
	_ = w.Text([]byte("x\ty"))
	_ = w.Close("wpt")
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}

	want := "# two lines\nSTART\nO wpt lat=\"1\" lon=\"2\"\nT \"x\\ty\"\nC wpt\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
	if err := w.Open("x", nil); err == nil {
		t.Fatalf("expected error after Finish")
	}
}
