package gpx

import "fmt"

// bind makes kind the active container handler at depth.
func (p *Parser) bind(kind Tag, depth int, st handlerState) {
	p.cur = parseContext{kind: kind, depth: depth, state: st}
}

// unbind returns control to the document level and releases every reference
// to the emitted records.
func (p *Parser) unbind() {
	p.cur = parseContext{}
}

func (p *Parser) openWaypoint(name string, depth int, attrs []Attr) error {
	pt, err := newPoint(name, depth, attrs)
	if err != nil {
		p.addIssue(err)
		p.cur.skip(depth)
		return nil
	}
	p.ids.waypoint++
	pt.ID = p.ids.waypoint
	p.bind(TagWpt, depth, statePoint)
	p.cur.point = pt
	p.cur.pointDepth = depth
	return nil
}

func (p *Parser) openRoute(depth int) error {
	p.ids.route++
	p.bind(TagRte, depth, stateContainer)
	p.cur.line = &Line{ID: p.ids.route, Kind: LineRoute}
	p.cur.lineDepth = depth
	return nil
}

func (p *Parser) openTrack(depth int) error {
	p.ids.track++
	p.bind(TagTrk, depth, stateContainer)
	p.cur.track = &Track{ID: p.ids.track}
	return nil
}

// openBound forwards an open to the bound handler.
func (p *Parser) openBound(tag Tag, name string, depth int, attrs []Attr) error {
	c := &p.cur
	switch tag {
	case TagWpt, TagRte, TagTrk, TagGPX:
		return p.fail(&StructuralError{Element: name, Depth: depth, Msg: fmt.Sprintf("nested inside <%s>", c.kind)})

	case TagRtept:
		if c.kind != TagRte || c.state != stateContainer || depth != c.depth+1 {
			return p.fail(&StructuralError{Element: name, Depth: depth, Msg: "route point outside of <rte>"})
		}
		return p.openPoint(name, depth, attrs)

	case TagTrkseg:
		if c.kind != TagTrk || c.state != stateContainer || depth != c.depth+1 {
			return p.fail(&StructuralError{Element: name, Depth: depth, Msg: "track segment outside of <trk>"})
		}
		p.ids.segment++
		c.line = &Line{ID: p.ids.segment, Kind: LineSegment}
		c.lineDepth = depth
		c.state = stateSegment
		return nil

	case TagTrkpt:
		if c.kind != TagTrk || c.state != stateSegment || depth != c.lineDepth+1 {
			return p.fail(&StructuralError{Element: name, Depth: depth, Msg: "track point outside of <trkseg>"})
		}
		return p.openPoint(name, depth, attrs)

	case TagLink:
		return p.openLink(name, depth, attrs)

	case TagExtensions, TagUnknown:
		c.skip(depth)
		return nil

	default:
		// Scalar children act on close.
		return nil
	}
}

// openPoint starts a route or track point inside the current line.
func (p *Parser) openPoint(name string, depth int, attrs []Attr) error {
	pt, err := newPoint(name, depth, attrs)
	if err != nil {
		p.addIssue(err)
		p.cur.skip(depth)
		return nil
	}
	pt.ID = int64(len(p.cur.line.Points) + 1)
	p.cur.point = pt
	p.cur.pointDepth = depth
	p.cur.state = statePoint
	return nil
}

// closeBound forwards a close to the bound handler. text is the element's
// buffered character data.
func (p *Parser) closeBound(tag Tag, name string, depth int, text string) error {
	c := &p.cur

	if depth == c.depth {
		return p.closeContainer()
	}

	if c.link != nil {
		if depth == c.linkDepth {
			c.linkOwner.addLink(*c.link)
			c.link, c.linkOwner, c.linkDepth = nil, nil, 0
			return nil
		}
		if depth == c.linkDepth+1 {
			p.setLinkField(tag, text)
		}
		return nil
	}

	switch {
	case c.point != nil && depth == c.pointDepth:
		// Only <rtept> and <trkpt> reach here; <wpt> is the container.
		c.line.Points = append(c.line.Points, *c.point)
		c.point, c.pointDepth = nil, 0
		if c.kind == TagTrk {
			c.state = stateSegment
		} else {
			c.state = stateContainer
		}
		return nil

	case tag == TagTrkseg && c.line != nil && depth == c.lineDepth:
		c.track.Segments = append(c.track.Segments, *c.line)
		c.line, c.lineDepth = nil, 0
		c.state = stateContainer
		return nil
	}

	rec, recDepth := c.innermost()
	if rec == nil || depth != recDepth+1 {
		return nil
	}
	p.setField(rec, tag, name, text)
	return nil
}

// closeContainer hands the finished record to the sink and unbinds.
func (p *Parser) closeContainer() error {
	c := p.cur
	p.unbind()

	var err error
	switch c.kind {
	case TagWpt:
		err = p.sink.EmitWaypoint(*c.point)
	case TagRte:
		err = p.sink.EmitRoute(*c.line)
	case TagTrk:
		err = p.sink.EmitTrack(*c.track)
	}
	if err != nil {
		return p.fail(fmt.Errorf("gpx: emit <%s>: %w", c.kind, err))
	}
	return nil
}
