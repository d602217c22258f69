package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// AABB is an axis aligned bounding box in world space. The zero value is the degenerate box at the origin; use
// EmptyAABB for a box that contains nothing.
type AABB struct {
	Min r3.Vector
	Max r3.Vector
}

// EmptyAABB returns an inverted box which becomes valid as soon as a point is added to it.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: r3.Vector{X: inf, Y: inf, Z: inf},
		Max: r3.Vector{X: -inf, Y: -inf, Z: -inf},
	}
}

// NewAABB builds a box from two opposite corners in any order.
func NewAABB(a, b r3.Vector) AABB {
	return AABB{Min: MinVector(a, b), Max: MaxVector(a, b)}
}

// AABBFromPoints returns the smallest box containing all the given points.
func AABBFromPoints(pts ...r3.Vector) AABB {
	box := EmptyAABB()
	for _, p := range pts {
		box = box.ExpandPoint(p)
	}
	return box
}

// ComputeTrianglesAABB returns the bounding box of a set of triangles.
func ComputeTrianglesAABB(triangles []*Triangle) AABB {
	box := EmptyAABB()
	for _, tri := range triangles {
		box = box.ExpandPoint(tri.p0).ExpandPoint(tri.p1).ExpandPoint(tri.p2)
	}
	return box
}

// String returns a human readable form of the box.
func (b AABB) String() string {
	return fmt.Sprintf("AABB | Min: X:%.3f, Y:%.3f, Z:%.3f | Max: X:%.3f, Y:%.3f, Z:%.3f",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// ExpandPoint returns the box grown to contain p.
func (b AABB) ExpandPoint(p r3.Vector) AABB {
	return AABB{Min: MinVector(b.Min, p), Max: MaxVector(b.Max, p)}
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return AABB{Min: MinVector(b.Min, o.Min), Max: MaxVector(b.Max, o.Max)}
}

// Grow returns the box padded by eps in every direction.
func (b AABB) Grow(eps float64) AABB {
	if b.IsEmpty() {
		return b
	}
	d := r3.Vector{X: eps, Y: eps, Z: eps}
	return AABB{Min: b.Min.Sub(d), Max: b.Max.Add(d)}
}

// Center returns the center of the box.
func (b AABB) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfExtent returns half the size of the box along each axis.
func (b AABB) HalfExtent() r3.Vector {
	if b.IsEmpty() {
		return r3.Vector{}
	}
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Size returns the full extent of the box along each axis.
func (b AABB) Size() r3.Vector {
	if b.IsEmpty() {
		return r3.Vector{}
	}
	return b.Max.Sub(b.Min)
}

// Volume returns the volume of the box.
func (b AABB) Volume() float64 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// SurfaceArea returns the surface area of the box.
func (b AABB) SurfaceArea() float64 {
	s := b.Size()
	return 2 * (s.X*s.Y + s.Y*s.Z + s.Z*s.X)
}

// LongestAxis returns 0, 1 or 2 for the axis along which the box is largest. Ties favour the lower axis.
func (b AABB) LongestAxis() int {
	s := b.Size()
	axis := 0
	if s.Y > s.X {
		axis = 1
	}
	if s.Z > Component(s, axis) {
		axis = 2
	}
	return axis
}

// ContainsPoint reports whether p lies inside or on the box.
func (b AABB) ContainsPoint(p r3.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Contains reports whether o lies completely inside b. An empty box is contained by anything.
func (b AABB) Contains(o AABB) bool {
	if o.IsEmpty() {
		return true
	}
	return b.ContainsPoint(o.Min) && b.ContainsPoint(o.Max)
}

// Overlaps reports whether the boxes share at least one point.
func (b AABB) Overlaps(o AABB) bool {
	return aabbOverlap(b.Min, b.Max, o.Min, o.Max)
}

// Distance returns the smallest distance between the two boxes, zero if they overlap.
func (b AABB) Distance(o AABB) float64 {
	return aabbDistance(b.Min, b.Max, o.Min, o.Max)
}

// DistanceToPoint returns the distance from p to the closest point of the box, zero if p is inside.
func (b AABB) DistanceToPoint(p r3.Vector) float64 {
	return math.Sqrt(b.DistanceSquaredToPoint(p))
}

// DistanceSquaredToPoint returns the squared distance from p to the box.
func (b AABB) DistanceSquaredToPoint(p r3.Vector) float64 {
	dx := math.Max(0, math.Max(b.Min.X-p.X, p.X-b.Max.X))
	dy := math.Max(0, math.Max(b.Min.Y-p.Y, p.Y-b.Max.Y))
	dz := math.Max(0, math.Max(b.Min.Z-p.Z, p.Z-b.Max.Z))
	return dx*dx + dy*dy + dz*dz
}

// ClosestPoint returns the point of the box closest to p.
func (b AABB) ClosestPoint(p r3.Vector) r3.Vector {
	return MaxVector(b.Min, MinVector(b.Max, p))
}

// BoundingSphereRadius returns the radius of the sphere around Center touching the corners.
func (b AABB) BoundingSphereRadius() float64 {
	return b.HalfExtent().Norm()
}

// AlmostEqual compares two boxes corner by corner.
func (b AABB) AlmostEqual(o AABB, eps float64) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return b.IsEmpty() == o.IsEmpty()
	}
	return R3VectorAlmostEqual(b.Min, o.Min, eps) && R3VectorAlmostEqual(b.Max, o.Max, eps)
}

// Split cuts the box with the plane perpendicular to axis at pos and returns the low and high halves.
func (b AABB) Split(axis int, pos float64) (AABB, AABB) {
	lo, hi := b, b
	lo.Max = WithComponent(lo.Max, axis, pos)
	hi.Min = WithComponent(hi.Min, axis, pos)
	return lo, hi
}

func aabbOverlap(min1, max1, min2, max2 r3.Vector) bool {
	return min1.X <= max2.X && max1.X >= min2.X &&
		min1.Y <= max2.Y && max1.Y >= min2.Y &&
		min1.Z <= max2.Z && max1.Z >= min2.Z
}

func aabbDistance(min1, max1, min2, max2 r3.Vector) float64 {
	dx := math.Max(0, math.Max(min1.X-max2.X, min2.X-max1.X))
	dy := math.Max(0, math.Max(min1.Y-max2.Y, min2.Y-max1.Y))
	dz := math.Max(0, math.Max(min1.Z-max2.Z, min2.Z-max1.Z))
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
