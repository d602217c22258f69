package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// TriangleAABBOverlap runs the separating axis test between triangle a, b, c and box (Akenine-Möller).
//
// Axis order, stopping at the first separating axis:
//
//	bullet 3: the nine cross products of the triangle edges with the box axes
//	bullet 1: the three box face normals (the triangle's extent against the box)
//	bullet 2: the triangle plane against the box
//
// Touching counts as overlapping.
func TriangleAABBOverlap(a, b, c r3.Vector, box AABB) bool {
	if box.IsEmpty() {
		return false
	}
	center := box.Center()
	h := box.HalfExtent()

	// Move everything so that the box center is at the origin.
	v0 := a.Sub(center)
	v1 := b.Sub(center)
	v2 := c.Sub(center)

	e0 := v1.Sub(v0)
	e1 := v2.Sub(v1)
	e2 := v0.Sub(v2)

	// --- bullet 3: edge cross box axes ---
	fex, fey, fez := math.Abs(e0.X), math.Abs(e0.Y), math.Abs(e0.Z)
	if axisTestX01(e0.Z, e0.Y, fez, fey, v0, v2, h) ||
		axisTestY02(e0.Z, e0.X, fez, fex, v0, v2, h) ||
		axisTestZ12(e0.Y, e0.X, fey, fex, v1, v2, h) {
		return false
	}

	fex, fey, fez = math.Abs(e1.X), math.Abs(e1.Y), math.Abs(e1.Z)
	if axisTestX01(e1.Z, e1.Y, fez, fey, v0, v2, h) ||
		axisTestY02(e1.Z, e1.X, fez, fex, v0, v2, h) ||
		axisTestZ0(e1.Y, e1.X, fey, fex, v0, v1, h) {
		return false
	}

	fex, fey, fez = math.Abs(e2.X), math.Abs(e2.Y), math.Abs(e2.Z)
	if axisTestX2(e2.Z, e2.Y, fez, fey, v0, v1, h) ||
		axisTestY1(e2.Z, e2.X, fez, fex, v0, v1, h) ||
		axisTestZ12(e2.Y, e2.X, fey, fex, v1, v2, h) {
		return false
	}

	// --- bullet 1: box face normals ---
	if minOf3(v0.X, v1.X, v2.X) > h.X || maxOf3(v0.X, v1.X, v2.X) < -h.X {
		return false
	}
	if minOf3(v0.Y, v1.Y, v2.Y) > h.Y || maxOf3(v0.Y, v1.Y, v2.Y) < -h.Y {
		return false
	}
	if minOf3(v0.Z, v1.Z, v2.Z) > h.Z || maxOf3(v0.Z, v1.Z, v2.Z) < -h.Z {
		return false
	}

	// --- bullet 2: triangle plane ---
	normal := e0.Cross(e1)
	if normal.Norm2() < floatEpsilon {
		// Degenerate triangles have no plane; the segment tests above already decided.
		return true
	}
	return planeBoxOverlap(normal, v0, h)
}

func planeBoxOverlap(normal, vert, h r3.Vector) bool {
	var vmin, vmax r3.Vector
	for axis := 0; axis < 3; axis++ {
		n := Component(normal, axis)
		v := Component(vert, axis)
		e := Component(h, axis)
		if n > 0 {
			vmin = WithComponent(vmin, axis, -e-v)
			vmax = WithComponent(vmax, axis, e-v)
		} else {
			vmin = WithComponent(vmin, axis, e-v)
			vmax = WithComponent(vmax, axis, -e-v)
		}
	}
	if normal.Dot(vmin) > 0 {
		return false
	}
	return normal.Dot(vmax) >= 0
}

// The axis tests below return true when the axis separates the triangle from the box.

func axisTestX01(a, b, fa, fb float64, v0, v2, h r3.Vector) bool {
	p0 := a*v0.Y - b*v0.Z
	p2 := a*v2.Y - b*v2.Z
	rad := fa*h.Y + fb*h.Z
	return math.Min(p0, p2) > rad || math.Max(p0, p2) < -rad
}

func axisTestX2(a, b, fa, fb float64, v0, v1, h r3.Vector) bool {
	p0 := a*v0.Y - b*v0.Z
	p1 := a*v1.Y - b*v1.Z
	rad := fa*h.Y + fb*h.Z
	return math.Min(p0, p1) > rad || math.Max(p0, p1) < -rad
}

func axisTestY02(a, b, fa, fb float64, v0, v2, h r3.Vector) bool {
	p0 := -a*v0.X + b*v0.Z
	p2 := -a*v2.X + b*v2.Z
	rad := fa*h.X + fb*h.Z
	return math.Min(p0, p2) > rad || math.Max(p0, p2) < -rad
}

func axisTestY1(a, b, fa, fb float64, v0, v1, h r3.Vector) bool {
	p0 := -a*v0.X + b*v0.Z
	p1 := -a*v1.X + b*v1.Z
	rad := fa*h.X + fb*h.Z
	return math.Min(p0, p1) > rad || math.Max(p0, p1) < -rad
}

func axisTestZ12(a, b, fa, fb float64, v1, v2, h r3.Vector) bool {
	p1 := a*v1.X - b*v1.Y
	p2 := a*v2.X - b*v2.Y
	rad := fa*h.X + fb*h.Y
	return math.Min(p1, p2) > rad || math.Max(p1, p2) < -rad
}

func axisTestZ0(a, b, fa, fb float64, v0, v1, h r3.Vector) bool {
	p0 := a*v0.X - b*v0.Y
	p1 := a*v1.X - b*v1.Y
	rad := fa*h.X + fb*h.Y
	return math.Min(p0, p1) > rad || math.Max(p0, p1) < -rad
}

func minOf3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func maxOf3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
