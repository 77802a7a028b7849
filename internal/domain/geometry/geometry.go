// Package geometry provides the canonical zone geometry model shared by map
// rendering, containment checks and persistence.
//
// Every geofence encoding accepted at the edges (GeoJSON wrappers, legacy
// point lists, center+radius circles) is normalized into a Shape exactly once;
// downstream consumers never see the raw encodings.
package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// Kind tags the canonical geometry variant.
type Kind string

const (
	KindPolygon Kind = "polygon"
	KindCircle  Kind = "circle"
)

// Point is a coordinate pair in internal (latitude, longitude) order.
// GeoJSON sources store [longitude, latitude] and are swapped exactly once
// during normalization; legacy pair lists are already (lat, lng).
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Shape is the canonical zone geometry: a closed polygon ring or a circle.
type Shape struct {
	Kind Kind `json:"kind"`

	// Ring is the closed outer ring (first vertex == last vertex) with at
	// least 3 distinct vertices. Polygon only.
	Ring []Point `json:"ring,omitempty"`

	// Center and Radius (meters) describe the circle variant.
	Center Point   `json:"center,omitempty"`
	Radius float64 `json:"radius,omitempty"`
}

// Contains reports whether p lies within the shape.
//
// Polygons use the even-odd ray-casting rule over the closed ring; points
// exactly on an edge are treated as inside. Circles use the great-circle
// (haversine) distance from the center, so edge-of-radius behavior is
// consistent at high latitudes.
func (s *Shape) Contains(p Point) bool {
	switch s.Kind {
	case KindCircle:
		center := orb.Point{s.Center.Lng, s.Center.Lat}
		point := orb.Point{p.Lng, p.Lat}

		return geo.Distance(center, point) <= s.Radius
	case KindPolygon:
		return planar.RingContains(s.orbRing(), orb.Point{p.Lng, p.Lat})
	default:
		return false
	}
}

func (s *Shape) orbRing() orb.Ring {
	ring := make(orb.Ring, 0, len(s.Ring))
	for _, v := range s.Ring {
		ring = append(ring, orb.Point{v.Lng, v.Lat})
	}

	return ring
}
