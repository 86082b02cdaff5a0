package main

import (
	"fmt"
	"io"
	"time"

	"github.com/paulmach/orb"

	"gpxtab/internal/gpx"
)

type docSummary struct {
	Waypoints int
	Routes    int
	Tracks    int
	Segments  int
	Points    int
	Links     int

	Bound    orb.Bound
	HasBound bool

	First, Last time.Time
	Issues      []gpx.IssueSummary
}

func summarizeDocument(c *gpx.Collector, issues gpx.Issues) docSummary {
	s := docSummary{
		Waypoints: len(c.Waypoints),
		Routes:    len(c.Routes),
		Tracks:    len(c.Tracks),
		Issues:    issues.Summary(),
	}

	addPoint := func(p gpx.GeoPoint) {
		s.Points++
		s.Links += len(p.Links)
		if s.HasBound {
			s.Bound = s.Bound.Extend(p.Point())
		} else {
			s.Bound, s.HasBound = p.Point().Bound(), true
		}
		if p.Time == nil {
			return
		}
		if s.First.IsZero() || p.Time.Before(s.First) {
			s.First = *p.Time
		}
		if p.Time.After(s.Last) {
			s.Last = *p.Time
		}
	}

	for _, p := range c.Waypoints {
		addPoint(p)
	}
	for _, r := range c.Routes {
		s.Links += len(r.Links)
		for _, p := range r.Points {
			addPoint(p)
		}
	}
	for _, t := range c.Tracks {
		s.Links += len(t.Links)
		s.Segments += len(t.Segments)
		for _, seg := range t.Segments {
			s.Links += len(seg.Links)
			for _, p := range seg.Points {
				addPoint(p)
			}
		}
	}
	return s
}

func printDocSummary(w io.Writer, path string, s docSummary, parseErr error) {
	fmt.Fprintf(w, "path: %s\n", path)
	if parseErr != nil {
		fmt.Fprintf(w, "error: %v\n", parseErr)
	}
	fmt.Fprintf(w, "waypoints: %d\n", s.Waypoints)
	fmt.Fprintf(w, "routes: %d\n", s.Routes)
	fmt.Fprintf(w, "tracks: %d\n", s.Tracks)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "points: %d\n", s.Points)
	fmt.Fprintf(w, "links: %d\n", s.Links)
	if s.HasBound {
		fmt.Fprintf(w, "bounds: %.6f,%.6f %.6f,%.6f\n", s.Bound.Min.Lat(), s.Bound.Min.Lon(), s.Bound.Max.Lat(), s.Bound.Max.Lon())
	}
	if !s.First.IsZero() {
		fmt.Fprintf(w, "time_span: %s .. %s (%s)\n", s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339), s.Last.Sub(s.First))
	}
	fmt.Fprintf(w, "issues:\n")
	for _, is := range s.Issues {
		fmt.Fprintf(w, "  %s: %d\n", is.Kind, is.Count)
	}
}
