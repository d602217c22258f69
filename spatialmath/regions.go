package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Sphere is a ball around Center.
type Sphere struct {
	Center r3.Vector
	Radius float64
}

// ContainsPoint reports whether p is inside or on the sphere.
func (s Sphere) ContainsPoint(p r3.Vector) bool {
	return p.Sub(s.Center).Norm2() <= s.Radius*s.Radius
}

// OverlapsAABB reports whether the sphere touches the box.
func (s Sphere) OverlapsAABB(b AABB) bool {
	return b.DistanceSquaredToPoint(s.Center) <= s.Radius*s.Radius
}

// Bounds returns the box around the sphere.
func (s Sphere) Bounds() AABB {
	r := r3.Vector{X: s.Radius, Y: s.Radius, Z: s.Radius}
	return AABB{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

// Cone is a right circular cone with its apex at Apex opening along Axis. HalfAngle is in radians. A positive
// Length caps the cone at that distance along the axis; zero means unbounded.
type Cone struct {
	Apex      r3.Vector
	Axis      r3.Vector
	HalfAngle float64
	Length    float64
}

// NewCone normalizes the axis.
func NewCone(apex, axis r3.Vector, halfAngle, length float64) Cone {
	return Cone{Apex: apex, Axis: axis.Normalize(), HalfAngle: halfAngle, Length: length}
}

// ContainsPoint reports whether p is inside the cone.
func (c Cone) ContainsPoint(p r3.Vector) bool {
	v := p.Sub(c.Apex)
	proj := v.Dot(c.Axis)
	if c.Length > 0 && proj > c.Length {
		return false
	}
	dist := v.Norm()
	if dist < floatEpsilon {
		return true
	}
	return proj >= dist*math.Cos(c.HalfAngle)
}

// OverlapsSphere is a conservative test of the cone against a ball; it never rejects a ball that overlaps.
func (c Cone) OverlapsSphere(center r3.Vector, radius float64) bool {
	d := center.Sub(c.Apex)
	along := d.Dot(c.Axis)
	if c.Length > 0 && along-radius > c.Length {
		return false
	}
	if c.HalfAngle >= math.Pi/2 {
		return along >= -radius
	}
	sinA := math.Sin(c.HalfAngle)
	cosA := math.Cos(c.HalfAngle)
	if sinA < floatEpsilon {
		return DistToLineSegment(c.Apex, c.Apex.Add(c.Axis.Mul(math.Max(along, 0))), center) <= radius
	}
	// Move the apex back so that the widened cone contains every ball center touching the real cone.
	u := c.Apex.Sub(c.Axis.Mul(radius / sinA))
	du := center.Sub(u)
	if c.Axis.Dot(du) < du.Norm()*cosA {
		return false
	}
	// Centers behind the apex only touch through the apex itself.
	if -along >= d.Norm()*sinA {
		return d.Norm() <= radius
	}
	return true
}

// OverlapsAABB tests the cone against the bounding sphere of the box.
func (c Cone) OverlapsAABB(b AABB) bool {
	if b.IsEmpty() {
		return false
	}
	return c.OverlapsSphere(b.Center(), b.BoundingSphereRadius())
}

// Tube is the set of points within Radius of the segment Start-End (a capsule).
type Tube struct {
	Start  r3.Vector
	End    r3.Vector
	Radius float64
}

// ContainsPoint reports whether p lies within the tube.
func (t Tube) ContainsPoint(p r3.Vector) bool {
	return DistToLineSegment(t.Start, t.End, p) <= t.Radius
}

// OverlapsAABB clips the segment against the box grown by the radius; it is conservative near the box corners.
func (t Tube) OverlapsAABB(b AABB) bool {
	if b.IsEmpty() {
		return false
	}
	grown := b.Grow(t.Radius)
	seg := t.End.Sub(t.Start)
	length := seg.Norm()
	if length < floatEpsilon {
		return grown.ContainsPoint(t.Start)
	}
	tmin, _, ok := NewRay(t.Start, seg).IntersectAABB(grown)
	return ok && tmin <= length
}

// Bounds returns the box around the tube.
func (t Tube) Bounds() AABB {
	return NewAABB(t.Start, t.End).Grow(t.Radius)
}

// Square is a square prism: a square of side 2*HalfSize centered at Center in the plane with normal Normal,
// extruded Depth to each side of the plane.
type Square struct {
	Center   r3.Vector
	Normal   r3.Vector
	HalfSize float64
	Depth    float64
}

// basis returns the unit normal and two unit vectors spanning the square's plane. The first edge direction is the
// world axis least aligned with the normal, projected into the plane, so a square facing an axis has axis aligned
// edges.
func (s Square) basis() (r3.Vector, r3.Vector, r3.Vector) {
	n := s.Normal.Normalize()
	axis := r3.Vector{X: 1}
	switch n.SmallestComponent() {
	case r3.YAxis:
		axis = r3.Vector{Y: 1}
	case r3.ZAxis:
		axis = r3.Vector{Z: 1}
	}
	u := axis.Sub(n.Mul(n.Dot(axis))).Normalize()
	w := n.Cross(u)
	return n, u, w
}

// ContainsPoint reports whether p is inside the prism.
func (s Square) ContainsPoint(p r3.Vector) bool {
	n, u, w := s.basis()
	v := p.Sub(s.Center)
	return math.Abs(v.Dot(n)) <= s.Depth &&
		math.Abs(v.Dot(u)) <= s.HalfSize &&
		math.Abs(v.Dot(w)) <= s.HalfSize
}

// OverlapsAABB tests the box against the bounding sphere of the prism.
func (s Square) OverlapsAABB(b AABB) bool {
	r := math.Sqrt(2*s.HalfSize*s.HalfSize + s.Depth*s.Depth)
	return Sphere{Center: s.Center, Radius: r}.OverlapsAABB(b)
}
