package export

import (
	gpxgo "github.com/tkrajina/gpxgo/gpx"

	"gpxtab/internal/gpx"
)

// GPX re-encodes the records as a GPX 1.1 document. Waypoints, routes and
// tracks keep their relative order within each kind.
func GPX(c *gpx.Collector, creator string, indent bool) ([]byte, error) {
	doc := &gpxgo.GPX{Version: "1.1", Creator: creator}
	for _, p := range c.Waypoints {
		doc.Waypoints = append(doc.Waypoints, gpxPoint(p))
	}
	for _, l := range c.Routes {
		r := gpxgo.GPXRoute{Name: l.Name, Comment: l.Comment, Description: l.Description, Source: l.Source, Type: l.Type}
		if l.Number != nil {
			r.Number.SetValue(*l.Number)
		}
		for _, p := range l.Points {
			r.Points = append(r.Points, gpxPoint(p))
		}
		doc.Routes = append(doc.Routes, r)
	}
	for _, t := range c.Tracks {
		trk := gpxgo.GPXTrack{Name: t.Name, Comment: t.Comment, Description: t.Description, Source: t.Source, Type: t.Type}
		if t.Number != nil {
			trk.Number.SetValue(*t.Number)
		}
		for _, s := range t.Segments {
			var seg gpxgo.GPXTrackSegment
			for _, p := range s.Points {
				seg.Points = append(seg.Points, gpxPoint(p))
			}
			trk.Segments = append(trk.Segments, seg)
		}
		doc.Tracks = append(doc.Tracks, trk)
	}
	return doc.ToXml(gpxgo.ToXmlParams{Version: "1.1", Indent: indent})
}

func gpxPoint(p gpx.GeoPoint) gpxgo.GPXPoint {
	out := gpxgo.GPXPoint{
		Point:        gpxgo.Point{Latitude: p.Lat, Longitude: p.Lon},
		Name:         p.Name,
		Comment:      p.Comment,
		Description:  p.Description,
		Source:       p.Source,
		Symbol:       p.Symbol,
		Type:         p.Type,
		TypeOfGpsFix: p.Fix,
	}
	if p.Ele != nil {
		out.Elevation.SetValue(*p.Ele)
	}
	if p.Time != nil {
		out.Timestamp = p.Time.UTC()
	}
	if p.Sat != nil {
		out.Satellites.SetValue(*p.Sat)
	}
	if p.HDOP != nil {
		out.HorizontalDilution.SetValue(*p.HDOP)
	}
	if p.VDOP != nil {
		out.VerticalDilution.SetValue(*p.VDOP)
	}
	if p.PDOP != nil {
		out.PositionalDilution.SetValue(*p.PDOP)
	}
	if p.AgeOfDGPSData != nil {
		out.AgeOfDGpsData.SetValue(*p.AgeOfDGPSData)
	}
	if p.DGPSID != nil {
		out.DGpsId.SetValue(*p.DGPSID)
	}
	return out
}
