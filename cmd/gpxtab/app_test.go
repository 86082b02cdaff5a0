package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gpxtab/internal/eventlog"
	"gpxtab/internal/export"
)

const testDoc = `<?xml version="1.0"?>
<gpx version="1.1" creator="test">
  <wpt lat="45.5" lon="6.5"><name>Refuge</name></wpt>
  <rte><name>Ridge</name>
    <rtept lat="47.58" lon="2.19"/>
    <rtept lat="47.59" lon="1.06"><link href="http://x"/></rtept>
  </rte>
</gpx>
`

func writeTestFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"gpxtab"}, args...))
	return out.String(), err
}

func TestSummaryCommand(t *testing.T) {
	path := writeTestFile(t, "a.gpx", testDoc)
	out, err := runApp(t, "summary", path)
	if err != nil {
		t.Fatalf("summary error: %v", err)
	}
	for _, want := range []string{"waypoints: 1\n", "routes: 1\n", "points: 3\n", "links: 1\n", "bounds: 45.500000,1.060000 47.590000,6.500000\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestImportCommand(t *testing.T) {
	path := writeTestFile(t, "a.gpx", testDoc)
	broken := writeTestFile(t, "b.gpx", `<gpx><rte></wpt></gpx>`)
	db := filepath.Join(t.TempDir(), "gpx.db")

	out, err := runApp(t, "import", "--db", db, path)
	if err != nil {
		t.Fatalf("import error: %v", err)
	}
	if !strings.Contains(out, "document 1") || !strings.Contains(out, "3 points") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, err = runApp(t, "import", "--db", db, broken, path)
	if err == nil || err.Error() != "1 of 2 documents failed" {
		t.Fatalf("err=%v", err)
	}
	if !strings.Contains(out, "FAILED") || !strings.Contains(out, "document 2") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestConvertCommand(t *testing.T) {
	path := writeTestFile(t, "a.gpx", testDoc)
	dst := filepath.Join(t.TempDir(), "a.geojson")

	if _, err := runApp(t, "convert", "-o", dst, path); err != nil {
		t.Fatalf("convert error: %v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("unexpected collection: type=%q features=%d", fc.Type, len(fc.Features))
	}

	out, err := runApp(t, "convert", "--format", "osm", path)
	if err != nil {
		t.Fatalf("convert error: %v", err)
	}
	if !strings.Contains(out, "<osm") || !strings.Contains(out, `k="name" v="Ridge"`) {
		t.Fatalf("unexpected osm output:\n%s", out)
	}
}

func TestRecordReplayCommands(t *testing.T) {
	path := writeTestFile(t, "a.gpx", testDoc)
	logPath := filepath.Join(t.TempDir(), "a.events")

	if _, err := runApp(t, "record", path, logPath); err != nil {
		t.Fatalf("record error: %v", err)
	}
	out, err := runApp(t, "replay", logPath)
	if err != nil {
		t.Fatalf("replay error: %v", err)
	}
	if !strings.Contains(out, "documents: 1\n") || !strings.Contains(out, "waypoints=1 routes=1 tracks=0 points=3 issues=0: ok") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestMissingArgs(t *testing.T) {
	if _, err := runApp(t, "record", "only-one"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestConvertFormat(t *testing.T) {
	cases := []struct {
		flag, output, def string
		want              export.Format
	}{
		{"osm", "x.geojson", "gpx", export.FormatOSM},
		{"", "x.gpx.gz", "geojson", export.FormatGPX},
		{"", "x.bin", "osm", export.FormatOSM},
		{"", "", "geojson", export.FormatGeoJSON},
	}
	for _, tc := range cases {
		got, err := convertFormat(tc.flag, tc.output, tc.def)
		if err != nil {
			t.Fatalf("convertFormat(%q,%q,%q) error: %v", tc.flag, tc.output, tc.def, err)
		}
		if got != tc.want {
			t.Fatalf("convertFormat(%q,%q,%q)=%q want %q", tc.flag, tc.output, tc.def, got, tc.want)
		}
	}
	if _, err := convertFormat("kml", "", "geojson"); err == nil {
		t.Fatalf("expected error for kml")
	}
}

func TestRecordDocument(t *testing.T) {
	var buf bytes.Buffer
	w := eventlog.NewWriter(&buf)
	sum, perr, err := recordDocument(context.Background(), strings.NewReader(testDoc), "a.gpx", w, nil)
	if err != nil || perr != nil {
		t.Fatalf("recordDocument() err=%v parseErr=%v", err, perr)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if sum.Points != 3 {
		t.Fatalf("points=%d want 3", sum.Points)
	}
	if !strings.HasPrefix(buf.String(), "# source: a.gpx\n") {
		t.Fatalf("unexpected log head:\n%s", buf.String())
	}
}

func TestRecordDocument_LogWriteError(t *testing.T) {
	w := eventlog.NewWriter(io.Discard)
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}
	_, _, err := recordDocument(context.Background(), strings.NewReader(testDoc), "a.gpx", w, nil)
	if err == nil {
		t.Fatalf("expected error writing to a finished log")
	}
}
