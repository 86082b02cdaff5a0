package export

import (
	"time"

	"github.com/paulmach/orb/geojson"

	"gpxtab/internal/gpx"
)

// GeoJSON returns one feature per record, in emission order: waypoints as
// Point, routes as LineString and tracks as MultiLineString.
func GeoJSON(c *gpx.Collector) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	var wi, ri, ti int
	for _, kind := range c.Order {
		switch kind {
		case gpx.TagWpt:
			fc.Append(waypointFeature(c.Waypoints[wi]))
			wi++
		case gpx.TagRte:
			fc.Append(routeFeature(c.Routes[ri]))
			ri++
		case gpx.TagTrk:
			fc.Append(trackFeature(c.Tracks[ti]))
			ti++
		}
	}
	return fc
}

func waypointFeature(p gpx.GeoPoint) *geojson.Feature {
	f := geojson.NewFeature(p.Point())
	f.ID = p.ID
	f.Properties["kind"] = "waypoint"
	setPointProps(f.Properties, p)
	return f
}

func routeFeature(l gpx.Line) *geojson.Feature {
	f := geojson.NewFeature(l.LineString())
	f.ID = l.ID
	f.Properties["kind"] = "route"
	setDescProps(f.Properties, l.Name, l.Comment, l.Description, l.Source, l.Type, l.Number, l.Links)
	return f
}

func trackFeature(t gpx.Track) *geojson.Feature {
	f := geojson.NewFeature(t.MultiLineString())
	f.ID = t.ID
	f.Properties["kind"] = "track"
	f.Properties["points"] = t.PointCount()
	setDescProps(f.Properties, t.Name, t.Comment, t.Description, t.Source, t.Type, t.Number, t.Links)
	if b, ok := t.Bound(); ok {
		f.BBox = geojson.NewBBox(b)
	}
	return f
}

func setDescProps(props geojson.Properties, name, cmt, desc, src, typ string, number *int, links []gpx.Link) {
	setString(props, "name", name)
	setString(props, "cmt", cmt)
	setString(props, "desc", desc)
	setString(props, "src", src)
	setString(props, "type", typ)
	if number != nil {
		props["number"] = *number
	}
	if len(links) > 0 {
		props["links"] = links
	}
}

func setPointProps(props geojson.Properties, p gpx.GeoPoint) {
	setDescProps(props, p.Name, p.Comment, p.Description, p.Source, p.Type, nil, p.Links)
	setString(props, "sym", p.Symbol)
	setString(props, "fix", p.Fix)
	if p.Ele != nil {
		props["ele"] = *p.Ele
	}
	if p.Time != nil {
		props["time"] = p.Time.UTC().Format(time.RFC3339)
	}
	if p.Sat != nil {
		props["sat"] = *p.Sat
	}
	if p.HDOP != nil {
		props["hdop"] = *p.HDOP
	}
}

func setString(props geojson.Properties, key, v string) {
	if v != "" {
		props[key] = v
	}
}
