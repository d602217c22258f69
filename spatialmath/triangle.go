package spatialmath

import (
	"github.com/golang/geo/r3"
)

// Triangle is three points in world space plus their cached unit normal.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
}

// NewTriangle instantiates a new triangle. The normal follows the right hand rule over p0, p1, p2 and is the
// zero vector for degenerate triangles.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		normal: PlaneNormal(p0, p1, p2),
	}
}

// Points returns the three points of the triangle in construction order.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the unit normal of the triangle.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Area returns the area of the triangle.
func (t *Triangle) Area() float64 {
	return TriangleArea(t.p0, t.p1, t.p2)
}

// Centroid returns the average of the three points.
func (t *Triangle) Centroid() r3.Vector {
	return TriangleCentroid(t.p0, t.p1, t.p2)
}

// Bounds returns the axis aligned box around the triangle.
func (t *Triangle) Bounds() AABB {
	return AABBFromPoints(t.p0, t.p1, t.p2)
}

// IsDegenerate reports whether the triangle has (nearly) zero area.
func (t *Triangle) IsDegenerate() bool {
	return t.Area() < DegenerateAreaEpsilon
}

// ClosestPointToPoint takes a point, and returns the closest point on the triangle to the given point.
func (t *Triangle) ClosestPointToPoint(point r3.Vector) r3.Vector {
	return ClosestPointTrianglePoint(t.p0, t.p1, t.p2, point)
}

// ClosestInsidePoint returns the closest point on a triangle IF AND ONLY IF the query point's projection overlaps the
// triangle. Otherwise it will return the projection and false.
func (t *Triangle) ClosestInsidePoint(point r3.Vector) (r3.Vector, bool) {
	return closestTriangleInsidePoint(t.p0, t.p1, t.p2, point)
}

// IntersectsRay returns the hit distance and barycentric u, v of the ray against the triangle.
func (t *Triangle) IntersectsRay(ray Ray) (float64, float64, float64, bool) {
	return ray.IntersectTriangle(t.p0, t.p1, t.p2)
}

// TriangleArea returns the area of the triangle a, b, c.
func TriangleArea(a, b, c r3.Vector) float64 {
	return 0.5 * b.Sub(a).Cross(c.Sub(a)).Norm()
}

// TriangleCentroid returns the centroid of the triangle a, b, c.
func TriangleCentroid(a, b, c r3.Vector) r3.Vector {
	return a.Add(b).Add(c).Mul(1. / 3.)
}

// ClosestPointTrianglePoint returns the point on triangle a, b, c closest to pt.
func ClosestPointTrianglePoint(a, b, c, pt r3.Vector) r3.Vector {
	closestPtInside, inside := closestTriangleInsidePoint(a, b, c, pt)
	if inside {
		return closestPtInside
	}

	// If the closest point is outside the triangle, it must be on an edge, so we
	// check each triangle edge for a closest point to the point pt.
	closestPt := ClosestPointSegmentPoint(a, b, pt)
	bestDist := pt.Sub(closestPt).Norm2()

	newPt := ClosestPointSegmentPoint(b, c, pt)
	if newDist := pt.Sub(newPt).Norm2(); newDist < bestDist {
		closestPt = newPt
		bestDist = newDist
	}

	newPt = ClosestPointSegmentPoint(c, a, pt)
	if newDist := pt.Sub(newPt).Norm2(); newDist < bestDist {
		return newPt
	}
	return closestPt
}

// closestTriangleInsidePoint returns the closest point on a triangle IF AND ONLY IF the query point's projection
// overlaps the triangle. To visualize this- if one draws a tetrahedron using the triangle and the query point, all
// angles from the triangle to the query point must be <= 90 degrees.
func closestTriangleInsidePoint(p0, p1, p2, point r3.Vector) (r3.Vector, bool) {
	eps := 1e-6

	// Parametrize the triangle s.t. a point inside the triangle is
	// Q = p0 + u * e0 + v * e1, when 0 <= u <= 1, 0 <= v <= 1, and
	// 0 <= u + v <= 1. Let e0 = (p1 - p0) and e1 = (p2 - p0).
	// We analytically minimize the distance between the point pt and Q.
	e0 := p1.Sub(p0)
	e1 := p2.Sub(p0)
	a := e0.Norm2()
	b := e0.Dot(e1)
	c := e1.Norm2()
	d := point.Sub(p0)
	// The determinant is 0 only if the angle between e1 and e0 is 0
	// (i.e. the triangle has overlapping lines).
	det := (a*c - b*b)
	if det < floatEpsilon {
		return point, false
	}
	u := (c*e0.Dot(d) - b*e1.Dot(d)) / det
	v := (-b*e0.Dot(d) + a*e1.Dot(d)) / det
	inside := (0 <= u+eps) && (u <= 1+eps) && (0 <= v+eps) && (v <= 1+eps) && (u+v <= 1+eps)
	return p0.Add(e0.Mul(u)).Add(e1.Mul(v)), inside
}
