package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpxtab/internal/gpx"
)

const sampleDoc = `<?xml version="1.0"?>
<gpx version="1.1" creator="test">
  <wpt lat="45.5" lon="6.5"><name>Refuge</name><ele>2100</ele><link href="http://refuge"><text>site</text></link></wpt>
  <rte>
    <name>Ridge</name>
    <link href="http://route"/>
    <rtept lat="45.0" lon="6.0"><link href="http://pt"/></rtept>
    <rtept lat="45.1" lon="6.1"><ele>oops</ele></rtept>
  </rte>
  <trk>
    <name>Walk</name>
    <number>3</number>
    <trkseg>
      <trkpt lat="45.2" lon="6.2"><time>2024-05-01T07:00:00Z</time></trkpt>
      <trkpt lat="45.3" lon="6.3"/>
    </trkseg>
    <trkseg/>
  </trk>
</gpx>`

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "gpx.db"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestImportStoresDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sum, err := s.Import(ctx, "sample.gpx", strings.NewReader(sampleDoc))
	require.NoError(t, err)
	assert.NotEmpty(t, sum.ImportID)
	assert.Equal(t, int64(1), sum.DocumentID)
	assert.Equal(t, 5, sum.Counts.Points)
	require.Len(t, sum.Issues, 1)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"document":     1,
		"waypoint":     1,
		"route":        1,
		"routepoint":   2,
		"track":        1,
		"tracksegment": 2,
		"trackpoint":   2,
		"link":         3,
	}, counts)

	var wpts, routes, tracks, points, issues int
	err = s.DB().QueryRowContext(ctx, "SELECT waypoints, routes, tracks, points, issues FROM gpx_document WHERE id = ?", sum.DocumentID).
		Scan(&wpts, &routes, &tracks, &points, &issues)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 5, 1}, []int{wpts, routes, tracks, points, issues})

	var number int
	err = s.DB().QueryRowContext(ctx, "SELECT number FROM gpx_track").Scan(&number)
	require.NoError(t, err)
	assert.Equal(t, 3, number)
}

func TestImportLinkOwners(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Import(ctx, "sample.gpx", strings.NewReader(sampleDoc))
	require.NoError(t, err)

	rows, err := s.DB().QueryContext(ctx, "SELECT owner_table, href FROM gpx_link ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	var got []string
	for rows.Next() {
		var owner, href string
		require.NoError(t, rows.Scan(&owner, &href))
		got = append(got, owner+" "+href)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"waypoint http://refuge", "route http://route", "routepoint http://pt"}, got)
}

func TestImportGeometry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Import(ctx, "sample.gpx", strings.NewReader(sampleDoc))
	require.NoError(t, err)

	var data []byte
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT the_geom FROM gpx_route").Scan(&data))
	geom, err := wkb.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{6.0, 45.0}, {6.1, 45.1}}, geom)

	var empty []byte
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT the_geom FROM gpx_tracksegment WHERE seq = 2").Scan(&empty))
	assert.Nil(t, empty)
}

func TestImportStructuralErrorStoresNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := `<gpx><wpt lat="1" lon="2"/><rte><rtept lat="1" lon="2"/></wpt></gpx>`
	sum, err := s.Import(ctx, "broken.gpx", strings.NewReader(doc))
	require.ErrorIs(t, err, gpx.ErrStructural)
	assert.Equal(t, 1, sum.Counts.Waypoints)
	assert.Zero(t, sum.DocumentID)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	for table, n := range counts {
		assert.Zero(t, n, table)
	}
}

func TestBatchCommitTwice(t *testing.T) {
	s := openTestStore(t)
	b, err := s.Begin(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, b.Commit(0))
	require.Error(t, b.Commit(0))
	require.NoError(t, b.Rollback())
	require.Error(t, b.EmitWaypoint(gpx.GeoPoint{}))
}

func TestTablePrefix(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "p.db"), Options{TablePrefix: "trip"})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Import(ctx, "w", strings.NewReader(`<wpt lat="1" lon="2"/>`))
	require.NoError(t, err)

	var n int
	require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM trip_waypoint").Scan(&n))
	assert.Equal(t, 1, n)

	_, err = Open(ctx, ":memory:", Options{TablePrefix: "bad-prefix"})
	require.Error(t, err)
}
