// Package geo provides the polygon math used by the coverage filter and the
// processing planner: geodesic area, centroids and footprint overlap.
package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// AreaKm2 returns the geodesic area of the polygon in square kilometers.
func AreaKm2(p orb.Polygon) float64 {
	area := orbgeo.Area(p)
	if area < 0 {
		area = -area
	}
	return area / 1e6
}

// Centroid returns the area centroid of the polygon as (lat, lon).
func Centroid(p orb.Polygon) (lat, lon float64) {
	point, _ := planar.CentroidArea(p)
	return point.Lat(), point.Lon()
}

// Contains reports whether every vertex of region's outer ring lies within
// footprint. Satellite scene footprints are convex quads, so vertex testing
// is equivalent to full topological containment for our inputs.
func Contains(footprint, region orb.Polygon) bool {
	if len(region) == 0 || len(footprint) == 0 {
		return false
	}
	for _, pt := range region[0] {
		if !planar.PolygonContains(footprint, pt) {
			return false
		}
	}
	return true
}

// OverlapPercent returns intersection-area(footprint, region) / area(region)
// as a percentage. A region with zero area yields 0.
func OverlapPercent(footprint, region orb.Polygon) float64 {
	regionArea := AreaKm2(region)
	if regionArea == 0 || len(footprint) == 0 || len(region) == 0 {
		return 0
	}
	clipped := clipRing(region[0], footprint[0])
	if len(clipped) < 3 {
		return 0
	}
	overlap := AreaKm2(orb.Polygon{clipped})
	pct := overlap / regionArea * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// clipRing clips subject against the convex ring clip using the
// Sutherland-Hodgman algorithm. The clip ring is normalized to
// counter-clockwise orientation so the inside test is consistent.
func clipRing(subject, clip orb.Ring) orb.Ring {
	if clip.Orientation() == orb.CW {
		reversed := make(orb.Ring, len(clip))
		for i, pt := range clip {
			reversed[len(clip)-1-i] = pt
		}
		clip = reversed
	}

	output := openRing(subject)
	for i := 0; i < len(clip)-1; i++ {
		if len(output) == 0 {
			return nil
		}
		a, b := clip[i], clip[i+1]
		input := output
		output = nil
		for j := range input {
			curr := input[j]
			prev := input[(j+len(input)-1)%len(input)]
			currInside := isLeft(a, b, curr)
			prevInside := isLeft(a, b, prev)
			switch {
			case currInside && prevInside:
				output = append(output, curr)
			case currInside && !prevInside:
				output = append(output, intersect(prev, curr, a, b), curr)
			case !currInside && prevInside:
				output = append(output, intersect(prev, curr, a, b))
			}
		}
	}

	if len(output) >= 3 {
		// close the ring
		output = append(output, output[0])
	}
	return output
}

// openRing strips the closing vertex so each vertex appears once.
func openRing(r orb.Ring) orb.Ring {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}

// isLeft reports whether p lies on or to the left of the directed edge a→b.
func isLeft(a, b, p orb.Point) bool {
	return (b[0]-a[0])*(p[1]-a[1])-(b[1]-a[1])*(p[0]-a[0]) >= 0
}

// intersect returns the intersection of segment p1→p2 with the infinite line
// through a and b.
func intersect(p1, p2, a, b orb.Point) orb.Point {
	dx1, dy1 := p2[0]-p1[0], p2[1]-p1[1]
	dx2, dy2 := b[0]-a[0], b[1]-a[1]
	denom := dx1*dy2 - dy1*dx2
	if denom == 0 {
		return p2
	}
	t := ((a[0]-p1[0])*dy2 - (a[1]-p1[1])*dx2) / denom
	return orb.Point{p1[0] + t*dx1, p1[1] + t*dy1}
}

// BoundingRect returns a closed rectangular polygon covering the bound of p.
// Used when the archive expects a simple rectangle for catalogue queries.
func BoundingRect(p orb.Polygon) orb.Polygon {
	b := p.Bound()
	return orb.Polygon{orb.Ring{
		{b.Min[0], b.Min[1]},
		{b.Max[0], b.Min[1]},
		{b.Max[0], b.Max[1]},
		{b.Min[0], b.Max[1]},
		{b.Min[0], b.Min[1]},
	}}
}
