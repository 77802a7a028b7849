package geometry

import (
	"bytes"
	"encoding/json"
	"math"

	"fieldtrack/internal/errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Normalization errors. These are returned, never panicked, so one malformed
// zone among many does not abort processing of the rest.
var (
	// ErrUnsupportedGeometry is returned when the raw encoding matches none of
	// the accepted shapes.
	ErrUnsupportedGeometry = errors.New("unsupported geometry encoding")
	// ErrInsufficientVertices is returned when fewer than 3 valid vertices
	// remain after filtering.
	ErrInsufficientVertices = errors.New("polygon has fewer than 3 valid vertices")
	// ErrInvalidRadius is returned when a circle's radius is not a positive number.
	ErrInvalidRadius = errors.New("circle radius must be a positive number")
	// ErrEmptyGeometry is returned for empty or null input.
	ErrEmptyGeometry = errors.New("empty geometry")
)

// legacyPair matches one element of the legacy {lat, lng} object list.
type legacyPair struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// circleSpec matches the {lat, lng, radius} circle record.
type circleSpec struct {
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Radius *float64 `json:"radius"`
}

// Normalize parses a geofence definition into the canonical Shape.
//
// Accepted encodings, in priority order:
//  1. GeoJSON Feature/FeatureCollection — unwrapped to the first feature's geometry.
//  2. GeoJSON Polygon — the outer ring.
//  3. GeoJSON MultiPolygon — the outer ring of the first polygon.
//  4. A legacy array of {lat, lng} objects or [lat, lng] pairs — no axis swap.
//  5. A {lat, lng, radius} triple — a circle, skipping polygon validation.
//
// GeoJSON coordinates arrive as [longitude, latitude] and are swapped to the
// internal (lat, lng) order here and nowhere else. Non-finite vertices are
// dropped; open rings are closed by appending the first vertex.
func Normalize(raw json.RawMessage) (*Shape, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyGeometry
	}

	switch trimmed[0] {
	case '{':
		return normalizeObject(trimmed)
	case '[':
		return normalizeLegacyList(trimmed)
	default:
		return nil, ErrUnsupportedGeometry
	}
}

func normalizeObject(raw []byte) (*Shape, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.Wrap(ErrUnsupportedGeometry, err.Error())
	}

	if probe.Type != "" {
		return normalizeGeoJSON(raw, probe.Type)
	}

	return normalizeCircle(raw)
}

func normalizeGeoJSON(raw []byte, geoType string) (*Shape, error) {
	var geom orb.Geometry

	switch geoType {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, errors.Wrap(ErrUnsupportedGeometry, err.Error())
		}
		if len(fc.Features) == 0 || fc.Features[0].Geometry == nil {
			return nil, ErrEmptyGeometry
		}
		geom = fc.Features[0].Geometry
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, errors.Wrap(ErrUnsupportedGeometry, err.Error())
		}
		if f.Geometry == nil {
			return nil, ErrEmptyGeometry
		}
		geom = f.Geometry
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, errors.Wrap(ErrUnsupportedGeometry, err.Error())
		}
		geom = g.Geometry()
	}

	return fromOrbGeometry(geom)
}

func fromOrbGeometry(geom orb.Geometry) (*Shape, error) {
	var ring orb.Ring

	switch g := geom.(type) {
	case orb.Polygon:
		if len(g) == 0 {
			return nil, ErrEmptyGeometry
		}
		ring = g[0]
	case orb.MultiPolygon:
		if len(g) == 0 || len(g[0]) == 0 {
			return nil, ErrEmptyGeometry
		}
		ring = g[0][0]
	default:
		return nil, ErrUnsupportedGeometry
	}

	// orb points are [lon, lat]; swap to internal (lat, lng) order.
	vertices := make([]Point, 0, len(ring))
	for _, pt := range ring {
		vertices = append(vertices, Point{Lat: pt.Lat(), Lng: pt.Lon()})
	}

	return buildPolygon(vertices)
}

func normalizeCircle(raw []byte) (*Shape, error) {
	var spec circleSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, errors.Wrap(ErrUnsupportedGeometry, err.Error())
	}
	if spec.Lat == nil || spec.Lng == nil || spec.Radius == nil {
		return nil, ErrUnsupportedGeometry
	}
	if !isFinite(*spec.Lat) || !isFinite(*spec.Lng) {
		return nil, ErrUnsupportedGeometry
	}
	if !isFinite(*spec.Radius) || *spec.Radius <= 0 {
		return nil, ErrInvalidRadius
	}

	return &Shape{
		Kind:   KindCircle,
		Center: Point{Lat: *spec.Lat, Lng: *spec.Lng},
		Radius: *spec.Radius,
	}, nil
}

func normalizeLegacyList(raw []byte) (*Shape, error) {
	// Legacy pairs are already (lat, lng); they must NOT be axis-swapped.
	var objects []legacyPair
	if err := json.Unmarshal(raw, &objects); err == nil && len(objects) > 0 && objects[0].Lat != nil {
		vertices := make([]Point, 0, len(objects))
		for _, p := range objects {
			if p.Lat == nil || p.Lng == nil {
				continue
			}
			vertices = append(vertices, Point{Lat: *p.Lat, Lng: *p.Lng})
		}

		return buildPolygon(vertices)
	}

	var pairs [][]float64
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, errors.Wrap(ErrUnsupportedGeometry, err.Error())
	}

	vertices := make([]Point, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			continue
		}
		vertices = append(vertices, Point{Lat: p[0], Lng: p[1]})
	}

	return buildPolygon(vertices)
}

// buildPolygon filters invalid vertices, validates the minimum vertex count
// and guarantees a closed ring.
func buildPolygon(vertices []Point) (*Shape, error) {
	ring := make([]Point, 0, len(vertices)+1)
	for _, v := range vertices {
		if !isFinite(v.Lat) || !isFinite(v.Lng) {
			continue
		}
		ring = append(ring, v)
	}

	// Ignore an already-closing duplicate when counting distinct vertices.
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}

	if len(ring) < 3 {
		return nil, ErrInsufficientVertices
	}

	ring = append(ring, ring[0])

	return &Shape{Kind: KindPolygon, Ring: ring}, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
