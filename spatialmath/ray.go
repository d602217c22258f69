package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// rayTriangleEpsilon rejects determinants of rays (nearly) parallel to the triangle plane.
const rayTriangleEpsilon = 1e-12

// Ray is a half line starting at Origin going along the unit vector Dir.
type Ray struct {
	Origin r3.Vector
	Dir    r3.Vector

	invDir r3.Vector
}

// NewRay normalizes dir and precomputes its reciprocal for box tests.
func NewRay(origin, dir r3.Vector) Ray {
	d := dir.Normalize()
	return Ray{
		Origin: origin,
		Dir:    d,
		invDir: r3.Vector{X: 1 / d.X, Y: 1 / d.Y, Z: 1 / d.Z},
	}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) r3.Vector {
	return r.Origin.Add(r.Dir.Mul(t))
}

// IsValid reports whether the ray has a usable direction.
func (r Ray) IsValid() bool {
	return r.Dir.Norm2() > 0 && VectorIsFinite(r.Origin)
}

// IntersectAABB runs the slab test and returns the entry and exit distances. The entry distance is clamped to zero
// when the origin is inside the box.
func (r Ray) IntersectAABB(b AABB) (float64, float64, bool) {
	if b.IsEmpty() {
		return 0, 0, false
	}
	tmin := 0.0
	tmax := math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o := Component(r.Origin, axis)
		inv := Component(r.invDir, axis)
		lo := Component(b.Min, axis)
		hi := Component(b.Max, axis)
		if math.IsInf(inv, 0) {
			// parallel to the slab
			if o < lo || o > hi {
				return 0, 0, false
			}
			continue
		}
		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, 0, false
		}
	}
	return tmin, tmax, true
}

// IntersectTriangle is the Möller–Trumbore test. It returns the hit distance along the ray and the barycentric
// coordinates u (weight of b) and v (weight of c). Hits behind the origin are rejected.
func (r Ray) IntersectTriangle(a, b, c r3.Vector) (float64, float64, float64, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	pvec := r.Dir.Cross(e2)
	det := e1.Dot(pvec)
	if math.Abs(det) < rayTriangleEpsilon {
		return 0, 0, 0, false
	}
	invDet := 1 / det

	tvec := r.Origin.Sub(a)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	qvec := tvec.Cross(e1)
	v := r.Dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t := e2.Dot(qvec) * invDet
	if t < 0 {
		return 0, 0, 0, false
	}
	return t, u, v, true
}
