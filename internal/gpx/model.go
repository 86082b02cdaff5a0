package gpx

import (
	"time"

	"github.com/paulmach/orb"
)

// Link is an external reference attached to exactly one point, route, track
// or track segment.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
	Type string `json:"type,omitempty"`
}

// GeoPoint is a waypoint, route point or track point.
//
// Optional values are nil when the element was absent or failed to parse.
type GeoPoint struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	Ele  *float64   `json:"ele,omitempty"`
	Time *time.Time `json:"time,omitempty"`

	Name        string `json:"name,omitempty"`
	Comment     string `json:"cmt,omitempty"`
	Description string `json:"desc,omitempty"`
	Symbol      string `json:"sym,omitempty"`
	Source      string `json:"src,omitempty"`
	Type        string `json:"type,omitempty"`
	Fix         string `json:"fix,omitempty"`

	MagVar        *float64 `json:"magvar,omitempty"`
	GeoidHeight   *float64 `json:"geoidheight,omitempty"`
	HDOP          *float64 `json:"hdop,omitempty"`
	VDOP          *float64 `json:"vdop,omitempty"`
	PDOP          *float64 `json:"pdop,omitempty"`
	AgeOfDGPSData *float64 `json:"ageofdgpsdata,omitempty"`
	Sat           *int     `json:"sat,omitempty"`
	DGPSID        *int     `json:"dgpsid,omitempty"`

	Links []Link `json:"links,omitempty"`
}

// Point returns the point as an orb.Point (lon, lat).
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// LineKind tells routes and track segments apart.
type LineKind uint8

const (
	LineRoute LineKind = iota + 1
	LineSegment
)

func (k LineKind) String() string {
	switch k {
	case LineRoute:
		return "route"
	case LineSegment:
		return "segment"
	default:
		return "unknown"
	}
}

// Line is a route or a track segment. Points are in document order.
type Line struct {
	ID   int64    `json:"id"`
	Kind LineKind `json:"-"`

	Name        string `json:"name,omitempty"`
	Comment     string `json:"cmt,omitempty"`
	Description string `json:"desc,omitempty"`
	Source      string `json:"src,omitempty"`
	Type        string `json:"type,omitempty"`
	Number      *int   `json:"number,omitempty"`

	Links  []Link     `json:"links,omitempty"`
	Points []GeoPoint `json:"points"`
}

// LineString returns the line's coordinate sequence.
func (l Line) LineString() orb.LineString {
	ls := make(orb.LineString, 0, len(l.Points))
	for _, p := range l.Points {
		ls = append(ls, p.Point())
	}
	return ls
}

// Track is an ordered sequence of segments.
type Track struct {
	ID int64 `json:"id"`

	Name        string `json:"name,omitempty"`
	Comment     string `json:"cmt,omitempty"`
	Description string `json:"desc,omitempty"`
	Source      string `json:"src,omitempty"`
	Type        string `json:"type,omitempty"`
	Number      *int   `json:"number,omitempty"`

	Links    []Link `json:"links,omitempty"`
	Segments []Line `json:"segments"`
}

// MultiLineString returns one line string per segment.
func (t Track) MultiLineString() orb.MultiLineString {
	mls := make(orb.MultiLineString, 0, len(t.Segments))
	for _, s := range t.Segments {
		mls = append(mls, s.LineString())
	}
	return mls
}

// PointCount is the number of points over all segments.
func (t Track) PointCount() int {
	n := 0
	for _, s := range t.Segments {
		n += len(s.Points)
	}
	return n
}

// Bound returns the bounding box of the track. ok is false for a track
// without points.
func (t Track) Bound() (b orb.Bound, ok bool) {
	for _, s := range t.Segments {
		sb, sok := s.Bound()
		if !sok {
			continue
		}
		if !ok {
			b, ok = sb, true
			continue
		}
		b = b.Union(sb)
	}
	return b, ok
}

// Bound returns the bounding box of the line. ok is false for an empty line.
func (l Line) Bound() (orb.Bound, bool) {
	if len(l.Points) == 0 {
		return orb.Bound{}, false
	}
	return l.LineString().Bound(), true
}

// descriptive is implemented by every record that carries the shared
// name/cmt/desc/src/type/link fields. Scalar closes target whichever record
// is innermost through it.
type descriptive interface {
	setName(string)
	setComment(string)
	setDescription(string)
	setSource(string)
	setType(string)
	addLink(Link)
}

func (p *GeoPoint) setName(v string)        { p.Name = v }
func (p *GeoPoint) setComment(v string)     { p.Comment = v }
func (p *GeoPoint) setDescription(v string) { p.Description = v }
func (p *GeoPoint) setSource(v string)      { p.Source = v }
func (p *GeoPoint) setType(v string)        { p.Type = v }
func (p *GeoPoint) addLink(l Link)          { p.Links = append(p.Links, l) }

func (l *Line) setName(v string)        { l.Name = v }
func (l *Line) setComment(v string)     { l.Comment = v }
func (l *Line) setDescription(v string) { l.Description = v }
func (l *Line) setSource(v string)      { l.Source = v }
func (l *Line) setType(v string)        { l.Type = v }
func (l *Line) addLink(k Link)          { l.Links = append(l.Links, k) }

func (t *Track) setName(v string)        { t.Name = v }
func (t *Track) setComment(v string)     { t.Comment = v }
func (t *Track) setDescription(v string) { t.Description = v }
func (t *Track) setSource(v string)      { t.Source = v }
func (t *Track) setType(v string)        { t.Type = v }
func (t *Track) addLink(l Link)          { t.Links = append(t.Links, l) }
