package web

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"gpxtab/internal/gpx"
)

// Status counts imports served by this process. It is safe for concurrent
// use.
type Status struct {
	startUnixNano  int64
	documents      uint64
	failures       uint64
	waypoints      uint64
	routes         uint64
	tracks         uint64
	points         uint64
	issues         uint64
	lastImportNano int64
	lastError      atomic.Value // string
	storePath      atomic.Value // string
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.lastError.Store("")
	s.storePath.Store("")
	return s
}

func (s *Status) SetStorePath(path string) {
	s.storePath.Store(path)
}

func (s *Status) MarkImport(nowUTC time.Time, c gpx.Counts, issues int) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.StoreInt64(&s.lastImportNano, nowUTC.UnixNano())
	atomic.AddUint64(&s.documents, 1)
	atomic.AddUint64(&s.waypoints, uint64(c.Waypoints))
	atomic.AddUint64(&s.routes, uint64(c.Routes))
	atomic.AddUint64(&s.tracks, uint64(c.Tracks))
	atomic.AddUint64(&s.points, uint64(c.Points))
	if issues > 0 {
		atomic.AddUint64(&s.issues, uint64(issues))
	}
}

func (s *Status) MarkFailure(nowUTC time.Time, err error) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.AddUint64(&s.failures, 1)
	if err != nil {
		s.lastError.Store(nowUTC.Format(time.RFC3339) + " " + err.Error())
	}
}

type StatusSnapshot struct {
	Service       string `json:"service"`
	Version       string `json:"version,omitempty"`
	Commit        string `json:"commit,omitempty"`
	GoVersion     string `json:"go_version"`
	NowUTC        string `json:"now_utc"`
	UptimeSec     int64  `json:"uptime_sec"`
	StorePath     string `json:"store_path,omitempty"`
	Documents     uint64 `json:"documents"`
	Failures      uint64 `json:"failures"`
	Waypoints     uint64 `json:"waypoints"`
	Routes        uint64 `json:"routes"`
	Tracks        uint64 `json:"tracks"`
	Points        uint64 `json:"points"`
	Issues        uint64 `json:"issues"`
	LastImportUTC string `json:"last_import_utc,omitempty"`
	LastError     string `json:"last_error,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	last := atomic.LoadInt64(&s.lastImportNano)

	snap := StatusSnapshot{
		Service:   "gpxtab",
		GoVersion: runtime.Version(),
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		StorePath: s.storePath.Load().(string),
		Documents: atomic.LoadUint64(&s.documents),
		Failures:  atomic.LoadUint64(&s.failures),
		Waypoints: atomic.LoadUint64(&s.waypoints),
		Routes:    atomic.LoadUint64(&s.routes),
		Tracks:    atomic.LoadUint64(&s.tracks),
		Points:    atomic.LoadUint64(&s.points),
		Issues:    atomic.LoadUint64(&s.issues),
		LastError: s.lastError.Load().(string),
	}
	if last != 0 {
		snap.LastImportUTC = time.Unix(0, last).UTC().Format(time.RFC3339Nano)
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		snap.Version = bi.Main.Version
		for _, kv := range bi.Settings {
			if kv.Key == "vcs.revision" {
				snap.Commit = kv.Value
			}
		}
	}
	return snap
}
