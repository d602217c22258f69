package bvh

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/meshbvh/spatialmath"
	"go.viam.com/meshbvh/utils"
)

func TestCastRayCube(t *testing.T) {
	eachVariant(t, cubeSource, optionsWith(4), func(t *testing.T, idx Index) {
		t.Run("hits the face it is aimed at", func(t *testing.T) {
			cases := []struct {
				origin, dir r3.Vector
				face        FaceHandle
				dist        float64
				point       r3.Vector
			}{
				{r3.Vector{X: 0.3, Y: 0.4, Z: -5}, r3.Vector{Z: 1}, faceBottom, 5, r3.Vector{X: 0.3, Y: 0.4}},
				{r3.Vector{X: 0.5, Y: 0.6, Z: 5}, r3.Vector{Z: -1}, faceTop, 4, r3.Vector{X: 0.5, Y: 0.6, Z: 1}},
				{r3.Vector{X: 0.4, Y: -5, Z: 0.5}, r3.Vector{Y: 1}, faceFront, 5, r3.Vector{X: 0.4, Z: 0.5}},
				{r3.Vector{X: 0.6, Y: 5, Z: 0.5}, r3.Vector{Y: -1}, faceBack, 4, r3.Vector{X: 0.6, Y: 1, Z: 0.5}},
				{r3.Vector{X: -5, Y: 0.45, Z: 0.55}, r3.Vector{X: 1}, faceLeft, 5, r3.Vector{Y: 0.45, Z: 0.55}},
				{r3.Vector{X: 5, Y: 0.45, Z: 0.55}, r3.Vector{X: -1}, faceRight, 4, r3.Vector{X: 1, Y: 0.45, Z: 0.55}},
			}
			for _, tc := range cases {
				hit, err := idx.CastRay(tc.origin, tc.dir)
				test.That(t, err, test.ShouldBeNil)
				test.That(t, hit, test.ShouldNotBeNil)
				test.That(t, hit.Face, test.ShouldEqual, tc.face)
				test.That(t, hit.Distance, test.ShouldAlmostEqual, tc.dist)
				test.That(t, hit.Point.Distance(tc.origin), test.ShouldAlmostEqual, tc.dist)
				test.That(t, spatialmath.R3VectorAlmostEqual(hit.Point, tc.point, 1e-9), test.ShouldBeTrue)
				// outward normals face the ray
				test.That(t, hit.Normal.Dot(tc.dir), test.ShouldAlmostEqual, -1)
				tri, ok := idx.Triangle(hit.Triangle)
				test.That(t, ok, test.ShouldBeTrue)
				test.That(t, tri.Face, test.ShouldEqual, tc.face)
			}
		})

		t.Run("unnormalized direction", func(t *testing.T) {
			hit, err := idx.CastRay(r3.Vector{X: 0.3, Y: 0.4, Z: -5}, r3.Vector{Z: 10})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, hit.Distance, test.ShouldAlmostEqual, 5)
		})

		t.Run("origin inside hits the far wall", func(t *testing.T) {
			hit, err := idx.CastRay(r3.Vector{X: 0.5, Y: 0.3, Z: 0.25}, r3.Vector{Z: 1})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, hit.Face, test.ShouldEqual, faceTop)
			test.That(t, hit.Distance, test.ShouldAlmostEqual, 0.75)
		})

		t.Run("misses", func(t *testing.T) {
			hit, err := idx.CastRay(r3.Vector{X: 0.3, Y: 0.4, Z: -5}, r3.Vector{Z: -1})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, hit, test.ShouldBeNil)

			hit, err = idx.CastRay(r3.Vector{X: 3, Y: 3, Z: -5}, r3.Vector{Z: 1})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, hit, test.ShouldBeNil)
		})

		t.Run("invalid ray", func(t *testing.T) {
			_, err := idx.CastRay(r3.Vector{}, r3.Vector{})
			test.That(t, err, test.ShouldEqual, ErrInvalidRay)
			_, err = idx.CastRay(r3.Vector{X: math.NaN()}, r3.Vector{Z: 1})
			test.That(t, err, test.ShouldEqual, ErrInvalidRay)
		})
	})
}

func TestClosestPoint(t *testing.T) {
	eachVariant(t, func() *testSource { return gridSource(5, 2) }, optionsWith(4), func(t *testing.T, idx Index) {
		hit, err := idx.ClosestPoint(r3.Vector{X: 0.25, Y: 0.75, Z: 3})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, hit.Triangle, test.ShouldEqual, TriangleID(1))
		test.That(t, hit.Face, test.ShouldEqual, FaceHandle(0))
		test.That(t, hit.Distance, test.ShouldAlmostEqual, 3)
		test.That(t, spatialmath.R3VectorAlmostEqual(hit.Point, r3.Vector{X: 0.25, Y: 0.75}, 1e-9), test.ShouldBeTrue)

		// outside the mesh the nearest point is on the border
		hit, err = idx.ClosestPoint(r3.Vector{X: 8, Y: 1.5, Z: -4})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, hit.Distance, test.ShouldAlmostEqual, 5)
		test.That(t, spatialmath.R3VectorAlmostEqual(hit.Point, r3.Vector{X: 5, Y: 1.5}, 1e-9), test.ShouldBeTrue)
	})
}

func TestRegionQueries(t *testing.T) {
	eachVariant(t, func() *testSource { return gridSource(5, 2) }, optionsWith(4), func(t *testing.T, idx Index) {
		t.Run("closest verts", func(t *testing.T) {
			res, err := idx.ClosestVerts(r3.Vector{}, 1)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Verts, test.ShouldResemble, []VertexID{0, 1, 6})
			test.That(t, res.Dists, test.ShouldResemble, []float64{0, 1, 1})

			res, err = idx.ClosestVerts(r3.Vector{X: 10}, 1)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Len(), test.ShouldEqual, 0)

			res, err = idx.ClosestVerts(r3.Vector{}, -1)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Len(), test.ShouldEqual, 0)
		})

		t.Run("closest tris", func(t *testing.T) {
			res, err := idx.ClosestTris(r3.Vector{X: 0.75, Y: 0.25}, 0.1)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Tris, test.ShouldResemble, []TriangleID{0})

			// every triangle touching vertex (1,1)
			res, err = idx.ClosestTris(r3.Vector{X: 1, Y: 1, Z: 0.5}, 0.5)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Tris, test.ShouldResemble, []TriangleID{0, 1, 3, 10, 12, 13})
		})

		t.Run("verts in cone", func(t *testing.T) {
			cone := spatialmath.NewCone(r3.Vector{Z: 5}, r3.Vector{Z: -1}, utils.DegToRad(15), 0)
			res, err := idx.VertsInCone(cone)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Verts, test.ShouldResemble, []VertexID{0, 1, 6})
			test.That(t, res.Dists[0], test.ShouldAlmostEqual, 5)
			test.That(t, res.Dists[1], test.ShouldAlmostEqual, math.Sqrt(26))

			narrow := spatialmath.NewCone(r3.Vector{Z: 5}, r3.Vector{Z: -1}, utils.DegToRad(5), 0)
			res, err = idx.VertsInCone(narrow)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Verts, test.ShouldResemble, []VertexID{0})

			short := spatialmath.NewCone(r3.Vector{Z: 5}, r3.Vector{Z: -1}, utils.DegToRad(15), 4)
			res, err = idx.VertsInCone(short)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Len(), test.ShouldEqual, 0)
		})

		t.Run("faces in cone", func(t *testing.T) {
			down := spatialmath.NewCone(r3.Vector{X: 0.75, Y: 0.25, Z: 5}, r3.Vector{Z: -1}, utils.DegToRad(2), 0)
			res, err := idx.FacesInCone(down, true)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Tris, test.ShouldResemble, []TriangleID{0})

			up := spatialmath.NewCone(r3.Vector{X: 0.75, Y: 0.25, Z: -5}, r3.Vector{Z: 1}, utils.DegToRad(2), 0)
			res, err = idx.FacesInCone(up, true)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Len(), test.ShouldEqual, 0)

			res, err = idx.FacesInCone(up, false)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Tris, test.ShouldResemble, []TriangleID{0})
		})

		t.Run("verts in tube", func(t *testing.T) {
			res, err := idx.VertsInTube(r3.Vector{}, r3.Vector{X: 5}, 0.1)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Verts, test.ShouldResemble, []VertexID{0, 1, 2, 3, 4, 5})

			res, err = idx.VertsInTube(r3.Vector{X: 2, Y: 1, Z: 1}, r3.Vector{X: 2, Y: 1, Z: -1}, 0.5)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Verts, test.ShouldResemble, []VertexID{8})
			test.That(t, res.Dists, test.ShouldResemble, []float64{0})
		})

		t.Run("verts in square", func(t *testing.T) {
			sq := spatialmath.Square{Center: r3.Vector{X: 1, Y: 1}, Normal: r3.Vector{Z: 1}, HalfSize: 0.5, Depth: 0.1}
			res, err := idx.VertsInSquare(sq)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Verts, test.ShouldResemble, []VertexID{7})

			// a square facing +Z has axis aligned edges
			sq.HalfSize = 1
			res, err = idx.VertsInSquare(sq)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Verts, test.ShouldResemble, []VertexID{0, 1, 2, 6, 7, 8, 12, 13, 14})
		})

		t.Run("nearest n verts", func(t *testing.T) {
			res, err := idx.NearestVertsN(r3.Vector{X: 0.1, Y: 0.1}, 3, 0)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Verts, test.ShouldResemble, []VertexID{0, 1, 6})

			res, err = idx.NearestVertsN(r3.Vector{X: 4.9, Y: 1.9, Z: 0.2}, 1, 0)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Verts, test.ShouldResemble, []VertexID{17})

			res, err = idx.NearestVertsN(r3.Vector{X: 0.5, Y: 0.5}, 4, 0.5)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Len(), test.ShouldEqual, 0)

			res, err = idx.NearestVertsN(r3.Vector{}, 100, 0)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Len(), test.ShouldEqual, 18)

			res, err = idx.NearestVertsN(r3.Vector{X: 0.1, Y: 0.1}, math.MaxInt, 0)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Len(), test.ShouldEqual, 18)
			test.That(t, res.Verts[0], test.ShouldEqual, VertexID(0))

			res, err = idx.NearestVertsN(r3.Vector{}, 0, 0)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Len(), test.ShouldEqual, 0)
		})
	})
}

// bruteRay intersects every triangle of the source.
func bruteRay(s *testSource, origin, dir r3.Vector) (TriangleID, float64) {
	ray := spatialmath.NewRay(origin, dir)
	best, bestID := math.Inf(1), TriangleID(-1)
	s.EachTriangle(func(id TriangleID, verts [3]VertexID, _ FaceHandle) bool {
		a, b, c := s.verts[verts[0]], s.verts[verts[1]], s.verts[verts[2]]
		if d, _, _, ok := ray.IntersectTriangle(a, b, c); ok && d < best {
			best, bestID = d, id
		}
		return true
	})
	return bestID, best
}

func bruteClosest(s *testSource, p r3.Vector) float64 {
	best := math.Inf(1)
	s.EachTriangle(func(_ TriangleID, verts [3]VertexID, _ FaceHandle) bool {
		a, b, c := s.verts[verts[0]], s.verts[verts[1]], s.verts[verts[2]]
		best = math.Min(best, spatialmath.ClosestPointTrianglePoint(a, b, c, p).Sub(p).Norm())
		return true
	})
	return best
}

func TestQueriesMatchBruteForce(t *testing.T) {
	source := wavySource(12)
	eachVariant(t, func() *testSource { return source }, optionsWith(6), func(t *testing.T, idx Index) {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 200; i++ {
			origin := r3.Vector{X: rng.Float64()*16 - 2, Y: rng.Float64()*16 - 2, Z: 3 + rng.Float64()}
			target := r3.Vector{X: rng.Float64() * 12, Y: rng.Float64() * 12, Z: rng.Float64()*2 - 1}
			dir := target.Sub(origin)

			wantID, wantDist := bruteRay(source, origin, dir)
			hit, err := idx.CastRay(origin, dir)
			test.That(t, err, test.ShouldBeNil)
			if wantID < 0 {
				test.That(t, hit, test.ShouldBeNil)
			} else {
				test.That(t, hit, test.ShouldNotBeNil)
				test.That(t, hit.Distance, test.ShouldAlmostEqual, wantDist, 1e-9)
			}

			p := r3.Vector{X: rng.Float64()*16 - 2, Y: rng.Float64()*16 - 2, Z: rng.Float64()*6 - 3}
			closest, err := idx.ClosestPoint(p)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, closest.Distance, test.ShouldAlmostEqual, bruteClosest(source, p), 1e-9)

			radius := rng.Float64() * 2
			verts, err := idx.ClosestVerts(p, radius)
			test.That(t, err, test.ShouldBeNil)
			want := 0
			for _, co := range source.verts {
				if co.Sub(p).Norm() <= radius {
					want++
				}
			}
			test.That(t, verts.Len(), test.ShouldEqual, want)
		}
		test.That(t, idx.Validate(), test.ShouldBeNil)
	})
}

func TestResultPool(t *testing.T) {
	opts := optionsWith(4)
	opts.ResultPoolSize = 2
	tree := newTestTree(t, cubeSource(), opts)

	first, err := tree.CastRay(r3.Vector{X: 0.3, Y: 0.4, Z: -5}, r3.Vector{Z: 1})
	test.That(t, err, test.ShouldBeNil)
	kept := first.Clone()

	_, err = tree.CastRay(r3.Vector{X: 0.3, Y: 0.4, Z: 5}, r3.Vector{Z: -1})
	test.That(t, err, test.ShouldBeNil)
	third, err := tree.CastRay(r3.Vector{X: 0.5, Y: 0.6, Z: 5}, r3.Vector{Z: -1})
	test.That(t, err, test.ShouldBeNil)

	// the pool wrapped: the first result now holds the third hit
	test.That(t, third, test.ShouldEqual, first)
	test.That(t, first.Face, test.ShouldEqual, faceTop)
	test.That(t, kept.Face, test.ShouldEqual, faceBottom)
	test.That(t, kept, test.ShouldNotEqual, first)

	verts, err := tree.ClosestVerts(r3.Vector{}, 0.5)
	test.That(t, err, test.ShouldBeNil)
	keptVerts := verts.Clone()
	_, err = tree.ClosestVerts(r3.Vector{X: 1, Y: 1, Z: 1}, 0.5)
	test.That(t, err, test.ShouldBeNil)
	_, err = tree.ClosestVerts(r3.Vector{X: 1}, 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, verts.Verts, test.ShouldResemble, []VertexID{1})
	test.That(t, keptVerts.Verts, test.ShouldResemble, []VertexID{0})
}
