package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite"

	"gpxtab/internal/gpx"
)

// Options configures a Store. Zero values pick the defaults.
type Options struct {
	TablePrefix string
	BusyTimeout time.Duration
}

// Store writes parsed GPX documents to SQLite, one transaction per document.
type Store struct {
	db     *sql.DB
	prefix string
	q      queries
}

// Open opens (creating if needed) the database at path and migrates the
// schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	prefix := opts.TablePrefix
	if prefix == "" {
		prefix = "gpx"
	}
	if !validPrefix(prefix) {
		return nil, fmt.Errorf("store: invalid table prefix %q", prefix)
	}
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, prefix: prefix, q: newQueries(prefix)}
	if err := s.init(ctx, busy); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context, busy time.Duration) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	for _, stmt := range append(pragmas, schema(s.prefix)...) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

func validPrefix(p string) bool {
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return p != ""
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for read queries.
func (s *Store) DB() *sql.DB { return s.db }

// Table returns the prefixed name of table.
func (s *Store) Table(name string) string { return s.prefix + "_" + name }

// Begin starts a document. Records emitted to the returned Batch become
// visible only after Commit.
func (s *Store) Begin(ctx context.Context, name string) (*Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	importID := uuid.NewString()
	res, err := tx.ExecContext(ctx, s.q.insertDocument, importID, nullString(name), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("store: insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("store: insert document: %w", err)
	}
	return &Batch{ctx: ctx, tx: tx, q: &s.q, ImportID: importID, DocumentID: id}, nil
}

// Summary describes one imported document.
type Summary struct {
	ImportID   string     `json:"import_id"`
	DocumentID int64      `json:"document_id"`
	Counts     gpx.Counts `json:"counts"`
	Issues     gpx.Issues `json:"-"`
}

// Import parses r and stores it as one document. On a fatal parse or sink
// error nothing is stored; the returned summary still reports what was
// parsed before the failure.
func (s *Store) Import(ctx context.Context, name string, r io.Reader, opts ...gpx.Option) (Summary, error) {
	b, err := s.Begin(ctx, name)
	if err != nil {
		return Summary{}, err
	}
	res, err := gpx.ParseReader(ctx, r, b, opts...)
	sum := Summary{ImportID: b.ImportID, Counts: res.Counts, Issues: res.Issues}
	if err != nil {
		if rerr := b.Rollback(); rerr != nil {
			log.Printf("store: rollback %s: %v", name, rerr)
		}
		return sum, err
	}
	if err := b.Commit(len(res.Issues)); err != nil {
		return sum, err
	}
	sum.DocumentID = b.DocumentID
	return sum, nil
}

// Counts returns the number of rows per table, keyed by unprefixed name.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(tables))
	for _, t := range tables {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.Table(t)).Scan(&n); err != nil {
			return nil, fmt.Errorf("store: count %s: %w", t, err)
		}
		out[t] = n
	}
	return out, nil
}

// Batch is a gpx.Sink writing one document inside a transaction.
type Batch struct {
	ctx context.Context
	tx  *sql.Tx
	q   *queries

	ImportID   string
	DocumentID int64

	counts gpx.Counts
	done   bool
}

var errBatchDone = errors.New("store: batch already finished")

func (b *Batch) EmitWaypoint(p gpx.GeoPoint) error {
	if b.done {
		return errBatchDone
	}
	b.counts.Waypoints++
	b.counts.Points++
	id, err := b.insertPoint(b.q.insertWaypoint, b.DocumentID, int64(b.counts.Waypoints), p)
	if err != nil {
		return fmt.Errorf("store: waypoint %d: %w", p.ID, err)
	}
	return b.insertLinks("waypoint", id, p.Links)
}

func (b *Batch) EmitRoute(l gpx.Line) error {
	if b.done {
		return errBatchDone
	}
	b.counts.Routes++
	geom, err := lineGeom(l.LineString())
	if err != nil {
		return err
	}
	id, err := b.insert(b.q.insertRoute, b.DocumentID, b.counts.Routes,
		nullString(l.Name), nullString(l.Comment), nullString(l.Description), nullString(l.Source), nullString(l.Type), nullInt(l.Number), geom)
	if err != nil {
		return fmt.Errorf("store: route %d: %w", l.ID, err)
	}
	if err := b.insertLinks("route", id, l.Links); err != nil {
		return err
	}
	for i, p := range l.Points {
		b.counts.Points++
		pid, err := b.insertPoint(b.q.insertRtept, id, int64(i+1), p)
		if err != nil {
			return fmt.Errorf("store: route %d point %d: %w", l.ID, p.ID, err)
		}
		if err := b.insertLinks("routepoint", pid, p.Links); err != nil {
			return err
		}
	}
	return nil
}

func (b *Batch) EmitTrack(t gpx.Track) error {
	if b.done {
		return errBatchDone
	}
	b.counts.Tracks++
	var geom any
	if mls := t.MultiLineString(); t.PointCount() > 0 {
		data, err := wkb.Marshal(mls)
		if err != nil {
			return fmt.Errorf("store: track %d geometry: %w", t.ID, err)
		}
		geom = data
	}
	id, err := b.insert(b.q.insertTrack, b.DocumentID, b.counts.Tracks,
		nullString(t.Name), nullString(t.Comment), nullString(t.Description), nullString(t.Source), nullString(t.Type), nullInt(t.Number), geom)
	if err != nil {
		return fmt.Errorf("store: track %d: %w", t.ID, err)
	}
	if err := b.insertLinks("track", id, t.Links); err != nil {
		return err
	}

	for si, seg := range t.Segments {
		sgeom, err := lineGeom(seg.LineString())
		if err != nil {
			return err
		}
		sid, err := b.insert(b.q.insertSegment, id, si+1, sgeom)
		if err != nil {
			return fmt.Errorf("store: track %d segment %d: %w", t.ID, seg.ID, err)
		}
		if err := b.insertLinks("tracksegment", sid, seg.Links); err != nil {
			return err
		}
		for pi, p := range seg.Points {
			b.counts.Points++
			pid, err := b.insertPoint(b.q.insertTrkpt, sid, int64(pi+1), p)
			if err != nil {
				return fmt.Errorf("store: track %d point %d: %w", t.ID, p.ID, err)
			}
			if err := b.insertLinks("trackpoint", pid, p.Links); err != nil {
				return err
			}
		}
	}
	return nil
}

// Commit records the document totals and commits the transaction.
func (b *Batch) Commit(issues int) error {
	if b.done {
		return errBatchDone
	}
	b.done = true
	c := b.counts
	if _, err := b.tx.ExecContext(b.ctx, b.q.finishDocument, c.Waypoints, c.Routes, c.Tracks, c.Points, issues, b.DocumentID); err != nil {
		_ = b.tx.Rollback()
		return fmt.Errorf("store: finish document: %w", err)
	}
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Rollback discards every row of the document. It is a no-op after Commit.
func (b *Batch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	return b.tx.Rollback()
}

func (b *Batch) insert(query string, args ...any) (int64, error) {
	res, err := b.tx.ExecContext(b.ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (b *Batch) insertPoint(query string, parent, seq int64, p gpx.GeoPoint) (int64, error) {
	geom, err := wkb.Marshal(p.Point())
	if err != nil {
		return 0, err
	}
	var ts any
	if p.Time != nil {
		ts = p.Time.UTC().Format(time.RFC3339Nano)
	}
	return b.insert(query, parent, seq,
		p.Lat, p.Lon, nullFloat(p.Ele), ts,
		nullString(p.Name), nullString(p.Comment), nullString(p.Description), nullString(p.Symbol),
		nullString(p.Source), nullString(p.Type), nullString(p.Fix), nullInt(p.Sat),
		nullFloat(p.HDOP), nullFloat(p.VDOP), nullFloat(p.PDOP), nullFloat(p.MagVar),
		nullFloat(p.GeoidHeight), nullFloat(p.AgeOfDGPSData), nullInt(p.DGPSID), geom)
}

func (b *Batch) insertLinks(owner string, ownerID int64, links []gpx.Link) error {
	for _, l := range links {
		if _, err := b.tx.ExecContext(b.ctx, b.q.insertLink, b.DocumentID, owner, ownerID, l.Href, nullString(l.Text), nullString(l.Type)); err != nil {
			return fmt.Errorf("store: %s %d link: %w", owner, ownerID, err)
		}
	}
	return nil
}

// lineGeom encodes ls as WKB, or NULL for an empty line.
func lineGeom(ls orb.LineString) (any, error) {
	if len(ls) == 0 {
		return nil, nil
	}
	data, err := wkb.Marshal(ls)
	if err != nil {
		return nil, fmt.Errorf("store: line geometry: %w", err)
	}
	return data, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return int64(*n)
}
