package gpx

// handlerState is the position of the bound handler inside its container.
type handlerState uint8

const (
	stateIdle      handlerState = iota
	stateContainer              // inside <rte> or <trk>
	stateSegment                // inside <trkseg>
	statePoint                  // inside <wpt>, <rtept> or <trkpt>
)

// parseContext holds the records under construction. Exactly one container
// handler is bound at a time; kind is TagUnknown while none is.
type parseContext struct {
	kind  Tag // TagWpt, TagRte, TagTrk or TagUnknown
	depth int // stack depth of the bound container element
	state handlerState

	point      *GeoPoint
	pointDepth int

	line      *Line // route, or the open track segment
	lineDepth int

	track *Track

	link      *Link
	linkOwner descriptive
	linkDepth int

	// skipDepth > 0 ignores everything below a dropped or uninterpreted
	// element until that element closes.
	skipDepth int
}

func (c *parseContext) skipping() bool { return c.skipDepth > 0 }

func (c *parseContext) skip(depth int) { c.skipDepth = depth }

// innermost returns the record that scalar children attach to and the depth
// of its element.
func (c *parseContext) innermost() (descriptive, int) {
	switch {
	case c.point != nil:
		return c.point, c.pointDepth
	case c.line != nil:
		return c.line, c.lineDepth
	case c.track != nil:
		return c.track, c.depth
	default:
		return nil, 0
	}
}

type idCounters struct {
	waypoint int64
	route    int64
	track    int64
	segment  int64
}
