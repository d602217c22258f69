package spatialmath

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestRayAABB(t *testing.T) {
	box := AABB{Min: r3.Vector{X: -1, Y: -1, Z: -1}, Max: r3.Vector{X: 1, Y: 1, Z: 1}}

	t.Run("hit from outside", func(t *testing.T) {
		tmin, tmax, ok := NewRay(r3.Vector{X: -5}, r3.Vector{X: 1}).IntersectAABB(box)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, tmin, test.ShouldAlmostEqual, 4)
		test.That(t, tmax, test.ShouldAlmostEqual, 6)
	})

	t.Run("origin inside", func(t *testing.T) {
		tmin, tmax, ok := NewRay(r3.Vector{}, r3.Vector{Z: 1}).IntersectAABB(box)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, tmin, test.ShouldEqual, 0)
		test.That(t, tmax, test.ShouldAlmostEqual, 1)
	})

	t.Run("pointing away", func(t *testing.T) {
		_, _, ok := NewRay(r3.Vector{X: -5}, r3.Vector{X: -1}).IntersectAABB(box)
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("parallel outside slab", func(t *testing.T) {
		_, _, ok := NewRay(r3.Vector{X: -5, Y: 3}, r3.Vector{X: 1}).IntersectAABB(box)
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("empty box", func(t *testing.T) {
		_, _, ok := NewRay(r3.Vector{}, r3.Vector{X: 1}).IntersectAABB(EmptyAABB())
		test.That(t, ok, test.ShouldBeFalse)
	})
}

func TestRayTriangle(t *testing.T) {
	a := r3.Vector{X: 0, Y: 0, Z: 0}
	b := r3.Vector{X: 1, Y: 0, Z: 0}
	c := r3.Vector{X: 0, Y: 1, Z: 0}

	t.Run("hit", func(t *testing.T) {
		ray := NewRay(r3.Vector{X: 0.25, Y: 0.25, Z: 2}, r3.Vector{Z: -1})
		dist, u, v, ok := ray.IntersectTriangle(a, b, c)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, dist, test.ShouldAlmostEqual, 2)
		test.That(t, u, test.ShouldAlmostEqual, 0.25)
		test.That(t, v, test.ShouldAlmostEqual, 0.25)
		test.That(t, R3VectorAlmostEqual(ray.At(dist), r3.Vector{X: 0.25, Y: 0.25}, 1e-12), test.ShouldBeTrue)
	})

	t.Run("hit from behind the face", func(t *testing.T) {
		_, _, _, ok := NewRay(r3.Vector{X: 0.25, Y: 0.25, Z: -2}, r3.Vector{Z: 1}).IntersectTriangle(a, b, c)
		test.That(t, ok, test.ShouldBeTrue)
	})

	t.Run("miss outside", func(t *testing.T) {
		_, _, _, ok := NewRay(r3.Vector{X: 2, Y: 2, Z: 2}, r3.Vector{Z: -1}).IntersectTriangle(a, b, c)
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("triangle behind origin", func(t *testing.T) {
		_, _, _, ok := NewRay(r3.Vector{X: 0.25, Y: 0.25, Z: 2}, r3.Vector{Z: 1}).IntersectTriangle(a, b, c)
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("parallel", func(t *testing.T) {
		_, _, _, ok := NewRay(r3.Vector{X: -1, Y: 0.25, Z: 0}, r3.Vector{X: 1}).IntersectTriangle(a, b, c)
		test.That(t, ok, test.ShouldBeFalse)
	})
}
