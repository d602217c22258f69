package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/meshbvh/utils"
)

const floatEpsilon = 1e-12

// DegenerateAreaEpsilon is the area below which a triangle is treated as degenerate.
const DegenerateAreaEpsilon = 1e-12

// PlaneNormal returns the unit normal of the plane through p0, p1, p2, or the zero vector if the points are
// collinear.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	return p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
}

// ClosestPointSegmentPoint takes a line segment defined by two points, and a third point, and returns the point on the
// segment closest to the third point.
func ClosestPointSegmentPoint(segStart, segEnd, pt r3.Vector) r3.Vector {
	seg := segEnd.Sub(segStart)
	segLen2 := seg.Norm2()
	if segLen2 < floatEpsilon {
		return segStart
	}
	t := pt.Sub(segStart).Dot(seg) / segLen2
	t = math.Max(0, math.Min(1, t))
	return segStart.Add(seg.Mul(t))
}

// DistToLineSegment returns the distance from pt to the segment segStart-segEnd.
func DistToLineSegment(segStart, segEnd, pt r3.Vector) float64 {
	return pt.Sub(ClosestPointSegmentPoint(segStart, segEnd, pt)).Norm()
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than
// epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return utils.Float64AlmostEqual(a.X, b.X, epsilon) &&
		utils.Float64AlmostEqual(a.Y, b.Y, epsilon) &&
		utils.Float64AlmostEqual(a.Z, b.Z, epsilon)
}

// Component returns the axis-th coordinate of v, with 0, 1, 2 meaning X, Y, Z.
func Component(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns v with its axis-th coordinate replaced by value.
func WithComponent(v r3.Vector, axis int, value float64) r3.Vector {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// MinVector returns the componentwise minimum of a and b.
func MinVector(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxVector returns the componentwise maximum of a and b.
func MaxVector(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// VectorIsFinite reports whether no coordinate of v is NaN or infinite.
func VectorIsFinite(v r3.Vector) bool {
	return utils.IsFinite(v.X, v.Y, v.Z)
}
