package gpx

// Sink receives finished top-level records in document order. Each method is
// called exactly once per record and never with a partially built one. A
// returned error aborts the document.
type Sink interface {
	EmitWaypoint(GeoPoint) error
	EmitRoute(Line) error
	EmitTrack(Track) error
}

// Collector is an in-memory Sink.
type Collector struct {
	Waypoints []GeoPoint
	Routes    []Line
	Tracks    []Track

	// Order records the emission order as TagWpt, TagRte and TagTrk entries.
	Order []Tag
}

func (c *Collector) EmitWaypoint(p GeoPoint) error {
	c.Waypoints = append(c.Waypoints, p)
	c.Order = append(c.Order, TagWpt)
	return nil
}

func (c *Collector) EmitRoute(l Line) error {
	c.Routes = append(c.Routes, l)
	c.Order = append(c.Order, TagRte)
	return nil
}

func (c *Collector) EmitTrack(t Track) error {
	c.Tracks = append(c.Tracks, t)
	c.Order = append(c.Order, TagTrk)
	return nil
}

// Len is the number of records collected.
func (c *Collector) Len() int { return len(c.Order) }

// SinkFuncs adapts plain functions to a Sink. Nil functions discard.
type SinkFuncs struct {
	Waypoint func(GeoPoint) error
	Route    func(Line) error
	Track    func(Track) error
}

func (f SinkFuncs) EmitWaypoint(p GeoPoint) error {
	if f.Waypoint == nil {
		return nil
	}
	return f.Waypoint(p)
}

func (f SinkFuncs) EmitRoute(l Line) error {
	if f.Route == nil {
		return nil
	}
	return f.Route(l)
}

func (f SinkFuncs) EmitTrack(t Track) error {
	if f.Track == nil {
		return nil
	}
	return f.Track(t)
}

// MultiSink emits to every sink in order and stops at the first error.
type MultiSink []Sink

func (m MultiSink) EmitWaypoint(p GeoPoint) error {
	for _, s := range m {
		if err := s.EmitWaypoint(p); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) EmitRoute(l Line) error {
	for _, s := range m {
		if err := s.EmitRoute(l); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) EmitTrack(t Track) error {
	for _, s := range m {
		if err := s.EmitTrack(t); err != nil {
			return err
		}
	}
	return nil
}

// Counts tallies emitted records per kind. It wraps another sink, which may
// be nil.
type Counts struct {
	Next Sink `json:"-"`

	Waypoints int `json:"waypoints"`
	Routes    int `json:"routes"`
	Tracks    int `json:"tracks"`
	Points    int `json:"points"`
}

func (c *Counts) EmitWaypoint(p GeoPoint) error {
	if c.Next != nil {
		if err := c.Next.EmitWaypoint(p); err != nil {
			return err
		}
	}
	c.Waypoints++
	c.Points++
	return nil
}

func (c *Counts) EmitRoute(l Line) error {
	if c.Next != nil {
		if err := c.Next.EmitRoute(l); err != nil {
			return err
		}
	}
	c.Routes++
	c.Points += len(l.Points)
	return nil
}

func (c *Counts) EmitTrack(t Track) error {
	if c.Next != nil {
		if err := c.Next.EmitTrack(t); err != nil {
			return err
		}
	}
	c.Tracks++
	c.Points += t.PointCount()
	return nil
}
