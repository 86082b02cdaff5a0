package export

import (
	"strconv"

	"github.com/paulmach/osm"

	"gpxtab/internal/gpx"
)

// OSM converts records to new (negative id) OSM elements. Waypoints become
// tagged nodes, routes and track segments become ways over untagged nodes,
// and each track becomes a relation over its segment ways.
func OSM(c *gpx.Collector, generator string) *osm.OSM {
	b := &osmBuilder{o: &osm.OSM{Version: "0.6", Generator: generator}}
	var wi, ri, ti int
	for _, kind := range c.Order {
		switch kind {
		case gpx.TagWpt:
			p := c.Waypoints[wi]
			wi++
			n := b.node(p)
			n.Tags = append(n.Tags, pointTags(p)...)
		case gpx.TagRte:
			l := c.Routes[ri]
			ri++
			w := b.way(l)
			w.Tags = append(w.Tags, osm.Tag{Key: "gpx:kind", Value: "route"})
			w.Tags = append(w.Tags, descTags(l.Name, l.Comment, l.Description, l.Source, l.Type, l.Number, l.Links)...)
		case gpx.TagTrk:
			t := c.Tracks[ti]
			ti++
			b.track(t)
		}
	}
	return b.o
}

type osmBuilder struct {
	o      *osm.OSM
	nextID int64
}

func (b *osmBuilder) id() int64 {
	b.nextID--
	return b.nextID
}

func (b *osmBuilder) node(p gpx.GeoPoint) *osm.Node {
	n := &osm.Node{ID: osm.NodeID(b.id()), Lat: p.Lat, Lon: p.Lon, Visible: true}
	if p.Time != nil {
		n.Timestamp = p.Time.UTC()
	}
	b.o.Nodes = append(b.o.Nodes, n)
	return n
}

func (b *osmBuilder) way(l gpx.Line) *osm.Way {
	w := &osm.Way{ID: osm.WayID(b.id()), Visible: true}
	for _, p := range l.Points {
		n := b.node(p)
		w.Nodes = append(w.Nodes, osm.WayNode{ID: n.ID, Lat: n.Lat, Lon: n.Lon})
	}
	b.o.Ways = append(b.o.Ways, w)
	return w
}

func (b *osmBuilder) track(t gpx.Track) {
	r := &osm.Relation{ID: osm.RelationID(b.id()), Visible: true}
	r.Tags = append(r.Tags, osm.Tag{Key: "type", Value: "multilinestring"}, osm.Tag{Key: "gpx:kind", Value: "track"})
	r.Tags = append(r.Tags, descTags(t.Name, t.Comment, t.Description, t.Source, t.Type, t.Number, t.Links)...)
	for _, seg := range t.Segments {
		w := b.way(seg)
		w.Tags = append(w.Tags, osm.Tag{Key: "gpx:kind", Value: "segment"})
		r.Members = append(r.Members, osm.Member{Type: osm.TypeWay, Ref: int64(w.ID)})
	}
	b.o.Relations = append(b.o.Relations, r)
}

func descTags(name, cmt, desc, src, typ string, number *int, links []gpx.Link) osm.Tags {
	var tags osm.Tags
	add := func(k, v string) {
		if v != "" {
			tags = append(tags, osm.Tag{Key: k, Value: v})
		}
	}
	add("name", name)
	add("note", cmt)
	add("description", desc)
	add("source", src)
	add("gpx:type", typ)
	if number != nil {
		add("gpx:number", strconv.Itoa(*number))
	}
	if len(links) > 0 {
		add("website", links[0].Href)
	}
	return tags
}

func pointTags(p gpx.GeoPoint) osm.Tags {
	tags := descTags(p.Name, p.Comment, p.Description, p.Source, p.Type, nil, p.Links)
	if p.Ele != nil {
		tags = append(tags, osm.Tag{Key: "ele", Value: strconv.FormatFloat(*p.Ele, 'f', -1, 64)})
	}
	if p.Symbol != "" {
		tags = append(tags, osm.Tag{Key: "gpx:sym", Value: p.Symbol})
	}
	return tags
}
