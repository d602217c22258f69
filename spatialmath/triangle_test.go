package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBasicTriangleFunctions(t *testing.T) {
	expectedPts := []r3.Vector{{}, {X: 3}, {Y: 3}}
	tri := NewTriangle(expectedPts[0], expectedPts[1], expectedPts[2])

	expectedNormal := r3.Vector{Z: 1}
	expectedArea := 4.5
	expectedCentroid := r3.Vector{X: 1, Y: 1}

	t.Run("constructor", func(t *testing.T) {
		test.That(t, tri.Points(), test.ShouldResemble, expectedPts)
		// the cross product of the normal with what is expected should result in nothing
		test.That(t, tri.Normal().Cross(expectedNormal), test.ShouldResemble, r3.Vector{})
	})

	t.Run("area", func(t *testing.T) {
		test.That(t, tri.Area(), test.ShouldEqual, expectedArea)
		test.That(t, tri.IsDegenerate(), test.ShouldBeFalse)
	})

	t.Run("centroid", func(t *testing.T) {
		test.That(t, tri.Centroid(), test.ShouldResemble, expectedCentroid)
	})

	t.Run("bounds", func(t *testing.T) {
		test.That(t, tri.Bounds(), test.ShouldResemble, AABB{Min: r3.Vector{}, Max: r3.Vector{X: 3, Y: 3}})
	})

	t.Run("closest triangle inside point", func(t *testing.T) {
		// interior
		closestPoint, isInside := tri.ClosestInsidePoint(r3.Vector{X: 1, Y: 1, Z: 1})
		test.That(t, closestPoint, test.ShouldResemble, r3.Vector{X: 1, Y: 1})
		test.That(t, isInside, test.ShouldBeTrue)

		// above edge
		closestPoint, isInside = tri.ClosestInsidePoint(r3.Vector{X: 2, Z: 1})
		test.That(t, closestPoint, test.ShouldResemble, r3.Vector{X: 2})
		test.That(t, isInside, test.ShouldBeTrue)

		// outside (obtuse with triangle)
		_, isInside = tri.ClosestInsidePoint(r3.Vector{X: 1, Y: -1, Z: 1})
		test.That(t, isInside, test.ShouldBeFalse)

		// interior, testing a triangle rotated off the xy-plane
		rotatedTri := NewTriangle(r3.Vector{}, r3.Vector{X: 50}, r3.Vector{Y: 30, Z: 40})
		closestPoint, isInside = rotatedTri.ClosestInsidePoint(r3.Vector{X: 1, Y: 3 + 4, Z: 4 - 3})
		test.That(t, R3VectorAlmostEqual(closestPoint, r3.Vector{X: 1, Y: 3, Z: 4}, 1e-9), test.ShouldBeTrue)
		test.That(t, isInside, test.ShouldBeTrue)
	})

	t.Run("closest triangle point", func(t *testing.T) {
		closestPoint := tri.ClosestPointToPoint(r3.Vector{X: 1, Y: 1, Z: 1})
		test.That(t, closestPoint, test.ShouldResemble, r3.Vector{X: 1, Y: 1})

		// closest point is edge
		closestPoint = tri.ClosestPointToPoint(r3.Vector{X: 3, Y: 2, Z: 1})
		test.That(t, closestPoint, test.ShouldResemble, r3.Vector{X: 2, Y: 1})

		// closest point is vertex
		closestPoint = tri.ClosestPointToPoint(r3.Vector{X: -1, Y: -1, Z: 1})
		test.That(t, closestPoint, test.ShouldResemble, r3.Vector{})
	})
}

func TestDegenerateTriangle(t *testing.T) {
	tri := NewTriangle(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{X: 2})
	test.That(t, tri.IsDegenerate(), test.ShouldBeTrue)
	test.That(t, tri.Normal(), test.ShouldResemble, r3.Vector{})

	// closest point falls back to the edges
	closest := tri.ClosestPointToPoint(r3.Vector{X: 1, Y: 1})
	test.That(t, closest, test.ShouldResemble, r3.Vector{X: 1})

	// never hit by rays
	_, _, _, hit := tri.IntersectsRay(NewRay(r3.Vector{X: 1, Z: 5}, r3.Vector{Z: -1}))
	test.That(t, hit, test.ShouldBeFalse)
}

func TestClosestPointSegmentPoint(t *testing.T) {
	a := r3.Vector{}
	b := r3.Vector{X: 2}
	test.That(t, ClosestPointSegmentPoint(a, b, r3.Vector{X: 1, Y: 1}), test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, ClosestPointSegmentPoint(a, b, r3.Vector{X: -1, Y: 1}), test.ShouldResemble, a)
	test.That(t, ClosestPointSegmentPoint(a, b, r3.Vector{X: 5, Y: 1}), test.ShouldResemble, b)
	test.That(t, ClosestPointSegmentPoint(a, a, r3.Vector{X: 5, Y: 1}), test.ShouldResemble, a)
	test.That(t, DistToLineSegment(a, b, r3.Vector{X: 1, Y: 3, Z: 4}), test.ShouldAlmostEqual, 5)
}

func TestPlaneNormal(t *testing.T) {
	n := PlaneNormal(r3.Vector{}, r3.Vector{Y: 1}, r3.Vector{Z: 1})
	test.That(t, n, test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, math.Abs(n.Norm()-1), test.ShouldBeLessThan, 1e-12)
}
