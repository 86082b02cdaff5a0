package export

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gpxgo "github.com/tkrajina/gpxgo/gpx"

	"gpxtab/internal/gpx"
)

const sampleDoc = `<gpx version="1.1">
  <wpt lat="45.5" lon="6.5"><name>Refuge</name><ele>2100</ele><link href="http://refuge"/></wpt>
  <rte><name>Ridge</name><number>2</number>
    <rtept lat="45.0" lon="6.0"/><rtept lat="45.1" lon="6.1"/>
  </rte>
  <trk><name>Walk</name>
    <trkseg><trkpt lat="45.2" lon="6.2"><time>2024-05-01T07:00:00Z</time></trkpt><trkpt lat="45.3" lon="6.3"/></trkseg>
    <trkseg><trkpt lat="45.4" lon="6.4"/></trkseg>
  </trk>
</gpx>`

func collect(t *testing.T, doc string) *gpx.Collector {
	t.Helper()
	var c gpx.Collector
	_, err := gpx.ParseReader(context.Background(), strings.NewReader(doc), &c)
	require.NoError(t, err)
	return &c
}

func TestGeoJSON(t *testing.T) {
	c := collect(t, sampleDoc)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatGeoJSON, c, Options{Indent: true}))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 3)

	assert.Equal(t, orb.Point{6.5, 45.5}, fc.Features[0].Geometry)
	assert.Equal(t, "Refuge", fc.Features[0].Properties["name"])
	assert.Equal(t, 2100.0, fc.Features[0].Properties["ele"])

	assert.Equal(t, orb.LineString{{6.0, 45.0}, {6.1, 45.1}}, fc.Features[1].Geometry)
	assert.Equal(t, "route", fc.Features[1].Properties["kind"])
	assert.Equal(t, 2.0, fc.Features[1].Properties["number"])

	mls, ok := fc.Features[2].Geometry.(orb.MultiLineString)
	require.True(t, ok)
	assert.Len(t, mls, 2)
	assert.Equal(t, 3.0, fc.Features[2].Properties["points"])
}

func TestOSM(t *testing.T) {
	c := collect(t, sampleDoc)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatOSM, c, Options{Creator: "test"}))

	var o osm.OSM
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &o))
	assert.Equal(t, "test", o.Generator)
	assert.Len(t, o.Nodes, 6)
	assert.Len(t, o.Ways, 3)
	require.Len(t, o.Relations, 1)
	assert.Len(t, o.Relations[0].Members, 2)

	for _, n := range o.Nodes {
		assert.Less(t, int64(n.ID), int64(0))
	}
	assert.Equal(t, "Refuge", o.Nodes[0].Tags.Find("name"))
	assert.Equal(t, "2100", o.Nodes[0].Tags.Find("ele"))
	assert.Equal(t, "Ridge", o.Ways[0].Tags.Find("name"))
	assert.Equal(t, "2", o.Ways[0].Tags.Find("gpx:number"))
}

func TestGPXRoundTrip(t *testing.T) {
	c := collect(t, sampleDoc)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatGPX, c, Options{Indent: true}))

	g, err := gpxgo.ParseBytes(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, g.Waypoints, 1)
	assert.Equal(t, "Refuge", g.Waypoints[0].Name)
	require.Len(t, g.Tracks, 1)
	assert.Len(t, g.Tracks[0].Segments, 2)

	again := collect(t, buf.String())
	assert.Equal(t, c.Routes[0].LineString(), again.Routes[0].LineString())
	assert.Equal(t, c.Tracks[0].PointCount(), again.Tracks[0].PointCount())
	assert.True(t, c.Tracks[0].Segments[0].Points[0].Time.Equal(*again.Tracks[0].Segments[0].Points[0].Time))
}

func TestCreateGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.geojson.gz")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, Write(w, FormatGeoJSON, collect(t, `<wpt lat="1" lon="2"/>`), Options{}))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	b, err := io.ReadAll(zr)
	require.NoError(t, err)

	var v map[string]any
	require.NoError(t, json.Unmarshal(b, &v))
	assert.Equal(t, "FeatureCollection", v["type"])
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"a.json", FormatGeoJSON, true},
		{"a.GeoJSON.gz", FormatGeoJSON, true},
		{"dir/a.osm", FormatOSM, true},
		{"a.gpx.gz", FormatGPX, true},
		{"a.txt", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatForPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := ParseFormat("kml")
	assert.Error(t, err)
}
