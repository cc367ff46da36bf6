package geomhelp

import (
	"github.com/muesli/reflow/truncate"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// RepresentativeCoord returns the first/defining coordinate of a geometry.
// false when the geometry is nil or empty.
func RepresentativeCoord(g orb.Geometry) (orb.Point, bool) {
	switch g := g.(type) {
	case orb.Point:
		return g, true
	case orb.MultiPoint:
		if len(g) > 0 {
			return g[0], true
		}
	case orb.LineString:
		if len(g) > 0 {
			return g[0], true
		}
	case orb.MultiLineString:
		if len(g) > 0 {
			return RepresentativeCoord(g[0])
		}
	case orb.Ring:
		if len(g) > 0 {
			return g[0], true
		}
	case orb.Polygon:
		if len(g) > 0 {
			return RepresentativeCoord(g[0])
		}
	case orb.MultiPolygon:
		if len(g) > 0 {
			return RepresentativeCoord(g[0])
		}
	case orb.Collection:
		if len(g) > 0 {
			return RepresentativeCoord(g[0])
		}
	case orb.Bound:
		return g.Min, true
	}
	return orb.Point{}, false
}

// Describe renders a geometry as WKT, truncated for use in debug output.
func Describe(g orb.Geometry, width uint) string {
	if g == nil {
		return "<nil>"
	}
	return truncate.StringWithTail(wkt.MarshalString(g), width, "...")
}
