package store

import (
	"fmt"
	"strings"
)

// pointColumns are shared by waypoints, route points and track points.
const pointColumns = `lat REAL NOT NULL,
	lon REAL NOT NULL,
	ele REAL,
	time TEXT,
	name TEXT,
	cmt TEXT,
	"desc" TEXT,
	sym TEXT,
	src TEXT,
	type TEXT,
	fix TEXT,
	sat INTEGER,
	hdop REAL,
	vdop REAL,
	pdop REAL,
	magvar REAL,
	geoidheight REAL,
	ageofdgpsdata REAL,
	dgpsid INTEGER,
	the_geom BLOB`

const pointInsertColumns = `lat, lon, ele, time, name, cmt, "desc", sym, src, type, fix, sat, hdop, vdop, pdop, magvar, geoidheight, ageofdgpsdata, dgpsid, the_geom`

// Tables, without prefix, in creation order.
var tables = []string{
	"document",
	"waypoint",
	"route",
	"routepoint",
	"track",
	"tracksegment",
	"trackpoint",
	"link",
}

func schema(prefix string) []string {
	t := func(name string) string { return prefix + "_" + name }
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY,
	import_id TEXT NOT NULL UNIQUE,
	name TEXT,
	imported_at TEXT NOT NULL,
	waypoints INTEGER NOT NULL DEFAULT 0,
	routes INTEGER NOT NULL DEFAULT 0,
	tracks INTEGER NOT NULL DEFAULT 0,
	points INTEGER NOT NULL DEFAULT 0,
	issues INTEGER NOT NULL DEFAULT 0
)`, t("document")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY,
	document_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	%s
)`, t("waypoint"), t("document"), pointColumns),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY,
	document_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	name TEXT,
	cmt TEXT,
	"desc" TEXT,
	src TEXT,
	type TEXT,
	number INTEGER,
	the_geom BLOB
)`, t("route"), t("document")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY,
	route_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	%s
)`, t("routepoint"), t("route"), pointColumns),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY,
	document_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	name TEXT,
	cmt TEXT,
	"desc" TEXT,
	src TEXT,
	type TEXT,
	number INTEGER,
	the_geom BLOB
)`, t("track"), t("document")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY,
	track_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	the_geom BLOB
)`, t("tracksegment"), t("track")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY,
	segment_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	%s
)`, t("trackpoint"), t("tracksegment"), pointColumns),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY,
	document_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	owner_table TEXT NOT NULL,
	owner_id INTEGER NOT NULL,
	href TEXT NOT NULL,
	text TEXT,
	type TEXT
)`, t("link"), t("document")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_owner ON %s(owner_table, owner_id)`, t("link"), t("link")),
	}
}

// queries holds the statements for one table prefix.
type queries struct {
	insertDocument string
	finishDocument string
	insertWaypoint string
	insertRoute    string
	insertRtept    string
	insertTrack    string
	insertSegment  string
	insertTrkpt    string
	insertLink     string
}

func newQueries(prefix string) queries {
	t := func(name string) string { return prefix + "_" + name }
	pointValues := placeholders(20)
	return queries{
		insertDocument: fmt.Sprintf(`INSERT INTO %s (import_id, name, imported_at) VALUES (?, ?, ?)`, t("document")),
		finishDocument: fmt.Sprintf(`UPDATE %s SET waypoints = ?, routes = ?, tracks = ?, points = ?, issues = ? WHERE id = ?`, t("document")),
		insertWaypoint: fmt.Sprintf(`INSERT INTO %s (document_id, seq, %s) VALUES (?, ?, %s)`, t("waypoint"), pointInsertColumns, pointValues),
		insertRoute:    fmt.Sprintf(`INSERT INTO %s (document_id, seq, name, cmt, "desc", src, type, number, the_geom) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, t("route")),
		insertRtept:    fmt.Sprintf(`INSERT INTO %s (route_id, seq, %s) VALUES (?, ?, %s)`, t("routepoint"), pointInsertColumns, pointValues),
		insertTrack:    fmt.Sprintf(`INSERT INTO %s (document_id, seq, name, cmt, "desc", src, type, number, the_geom) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, t("track")),
		insertSegment:  fmt.Sprintf(`INSERT INTO %s (track_id, seq, the_geom) VALUES (?, ?, ?)`, t("tracksegment")),
		insertTrkpt:    fmt.Sprintf(`INSERT INTO %s (segment_id, seq, %s) VALUES (?, ?, %s)`, t("trackpoint"), pointInsertColumns, pointValues),
		insertLink:     fmt.Sprintf(`INSERT INTO %s (document_id, owner_table, owner_id, href, text, type) VALUES (?, ?, ?, ?, ?, ?)`, t("link")),
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
