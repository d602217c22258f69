package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func boxAround(c r3.Vector, half float64) AABB {
	h := r3.Vector{X: half, Y: half, Z: half}
	return AABB{Min: c.Sub(h), Max: c.Add(h)}
}

func TestSphereRegion(t *testing.T) {
	s := Sphere{Center: r3.Vector{X: 1}, Radius: 2}
	test.That(t, s.ContainsPoint(r3.Vector{X: 3}), test.ShouldBeTrue)
	test.That(t, s.ContainsPoint(r3.Vector{X: 3.1}), test.ShouldBeFalse)
	test.That(t, s.OverlapsAABB(boxAround(r3.Vector{X: 4}, 1)), test.ShouldBeTrue)
	test.That(t, s.OverlapsAABB(boxAround(r3.Vector{X: 5}, 1)), test.ShouldBeFalse)
	test.That(t, s.Bounds(), test.ShouldResemble, AABB{Min: r3.Vector{X: -1, Y: -2, Z: -2}, Max: r3.Vector{X: 3, Y: 2, Z: 2}})
}

func TestConeRegion(t *testing.T) {
	cone := NewCone(r3.Vector{}, r3.Vector{Z: 5}, math.Pi/4, 0)
	test.That(t, cone.Axis, test.ShouldResemble, r3.Vector{Z: 1})

	t.Run("points", func(t *testing.T) {
		test.That(t, cone.ContainsPoint(r3.Vector{}), test.ShouldBeTrue)
		test.That(t, cone.ContainsPoint(r3.Vector{Z: 1}), test.ShouldBeTrue)
		test.That(t, cone.ContainsPoint(r3.Vector{X: 0.5, Z: 1}), test.ShouldBeTrue)
		test.That(t, cone.ContainsPoint(r3.Vector{X: 1, Z: 0.5}), test.ShouldBeFalse)
		test.That(t, cone.ContainsPoint(r3.Vector{Z: -1}), test.ShouldBeFalse)
	})

	t.Run("length cap", func(t *testing.T) {
		capped := NewCone(r3.Vector{}, r3.Vector{Z: 1}, math.Pi/4, 2)
		test.That(t, capped.ContainsPoint(r3.Vector{Z: 1.5}), test.ShouldBeTrue)
		test.That(t, capped.ContainsPoint(r3.Vector{Z: 3}), test.ShouldBeFalse)
		test.That(t, capped.OverlapsAABB(boxAround(r3.Vector{Z: 10}, 1)), test.ShouldBeFalse)
	})

	t.Run("boxes", func(t *testing.T) {
		test.That(t, cone.OverlapsAABB(boxAround(r3.Vector{Z: 5}, 0.5)), test.ShouldBeTrue)
		test.That(t, cone.OverlapsAABB(boxAround(r3.Vector{Z: -5}, 0.5)), test.ShouldBeFalse)
		test.That(t, cone.OverlapsAABB(boxAround(r3.Vector{X: 10, Z: 1}, 0.5)), test.ShouldBeFalse)
		// a box straddling the apex
		test.That(t, cone.OverlapsAABB(boxAround(r3.Vector{Z: -0.2}, 0.5)), test.ShouldBeTrue)
		test.That(t, cone.OverlapsAABB(EmptyAABB()), test.ShouldBeFalse)
	})

	t.Run("wide cone is a half space", func(t *testing.T) {
		wide := NewCone(r3.Vector{}, r3.Vector{Z: 1}, math.Pi/2, 0)
		test.That(t, wide.ContainsPoint(r3.Vector{X: 1, Z: 0.1}), test.ShouldBeTrue)
		test.That(t, wide.ContainsPoint(r3.Vector{X: 1, Z: -0.1}), test.ShouldBeFalse)
		test.That(t, wide.OverlapsAABB(boxAround(r3.Vector{X: 100, Z: 1}, 0.5)), test.ShouldBeTrue)
		test.That(t, wide.OverlapsAABB(boxAround(r3.Vector{X: 100, Z: -5}, 0.5)), test.ShouldBeFalse)
	})
}

func TestTubeRegion(t *testing.T) {
	tube := Tube{Start: r3.Vector{}, End: r3.Vector{X: 10}, Radius: 1}

	test.That(t, tube.ContainsPoint(r3.Vector{X: 5, Y: 0.5}), test.ShouldBeTrue)
	test.That(t, tube.ContainsPoint(r3.Vector{X: 11}), test.ShouldBeTrue)
	test.That(t, tube.ContainsPoint(r3.Vector{X: 5, Y: 2}), test.ShouldBeFalse)
	test.That(t, tube.ContainsPoint(r3.Vector{X: -2}), test.ShouldBeFalse)

	test.That(t, tube.OverlapsAABB(boxAround(r3.Vector{X: 5, Y: 1.2}, 0.5)), test.ShouldBeTrue)
	test.That(t, tube.OverlapsAABB(boxAround(r3.Vector{X: 5, Y: 3}, 0.5)), test.ShouldBeFalse)
	test.That(t, tube.OverlapsAABB(boxAround(r3.Vector{X: 20}, 0.5)), test.ShouldBeFalse)

	point := Tube{Start: r3.Vector{X: 1}, End: r3.Vector{X: 1}, Radius: 0.5}
	test.That(t, point.OverlapsAABB(boxAround(r3.Vector{}, 0.6)), test.ShouldBeTrue)
	test.That(t, point.OverlapsAABB(boxAround(r3.Vector{X: -1}, 0.6)), test.ShouldBeFalse)

	test.That(t, tube.Bounds(), test.ShouldResemble, AABB{Min: r3.Vector{X: -1, Y: -1, Z: -1}, Max: r3.Vector{X: 11, Y: 1, Z: 1}})
}

func TestSquareRegion(t *testing.T) {
	sq := Square{Center: r3.Vector{}, Normal: r3.Vector{Z: 2}, HalfSize: 1, Depth: 0.1}

	test.That(t, sq.ContainsPoint(r3.Vector{X: 0.5, Y: 0.5, Z: 0.05}), test.ShouldBeTrue)
	test.That(t, sq.ContainsPoint(r3.Vector{X: 0.5, Y: 0.5, Z: 0.2}), test.ShouldBeFalse)
	test.That(t, sq.ContainsPoint(r3.Vector{X: 1.5}), test.ShouldBeFalse)

	test.That(t, sq.OverlapsAABB(boxAround(r3.Vector{X: 1}, 0.2)), test.ShouldBeTrue)
	test.That(t, sq.OverlapsAABB(boxAround(r3.Vector{X: 5}, 0.2)), test.ShouldBeFalse)
}
