package bvh

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/meshbvh/logging"
)

type sourceTriangle struct {
	verts [3]VertexID
	face  FaceHandle
}

// testSource is an in memory GeometrySource that tests can edit.
type testSource struct {
	verts map[VertexID]r3.Vector
	tris  map[TriangleID]sourceTriangle
}

func newTestSource() *testSource {
	return &testSource{verts: map[VertexID]r3.Vector{}, tris: map[TriangleID]sourceTriangle{}}
}

func (s *testSource) VertexPosition(id VertexID) (r3.Vector, bool) {
	p, ok := s.verts[id]
	return p, ok
}

func (s *testSource) EachTriangle(fn func(TriangleID, [3]VertexID, FaceHandle) bool) {
	maxID := TriangleID(-1)
	for id := range s.tris {
		maxID = max(maxID, id)
	}
	for id := TriangleID(0); id <= maxID; id++ {
		tri, ok := s.tris[id]
		if ok && !fn(id, tri.verts, tri.face) {
			return
		}
	}
}

func (s *testSource) addTriangle(id TriangleID, a, b, c VertexID, face FaceHandle) {
	s.tris[id] = sourceTriangle{verts: [3]VertexID{a, b, c}, face: face}
}

// gridSource is a flat nx by ny grid of unit quads in the z=0 plane. Vertex (i, j) has id j*(nx+1)+i; quad (i, j)
// is split along its (i, j)-(i+1, j+1) diagonal into triangles 2*(j*nx+i) (below the diagonal) and
// 2*(j*nx+i)+1 (above it), both with face j*nx+i.
func gridSource(nx, ny int) *testSource {
	s := newTestSource()
	vid := func(i, j int) VertexID { return VertexID(j*(nx+1) + i) }
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			s.verts[vid(i, j)] = r3.Vector{X: float64(i), Y: float64(j)}
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			q := j*nx + i
			s.addTriangle(TriangleID(2*q), vid(i, j), vid(i+1, j), vid(i+1, j+1), FaceHandle(q))
			s.addTriangle(TriangleID(2*q+1), vid(i, j), vid(i+1, j+1), vid(i, j+1), FaceHandle(q))
		}
	}
	return s
}

const (
	faceBottom FaceHandle = iota
	faceTop
	faceFront
	faceBack
	faceLeft
	faceRight
)

// cubeSource is the unit cube [0,1]^3 as 12 outward facing triangles, two per face.
func cubeSource() *testSource {
	s := newTestSource()
	for i := 0; i < 8; i++ {
		s.verts[VertexID(i)] = r3.Vector{X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1)}
	}
	quads := []struct {
		v    [4]VertexID
		face FaceHandle
	}{
		{[4]VertexID{0, 2, 3, 1}, faceBottom},
		{[4]VertexID{4, 5, 7, 6}, faceTop},
		{[4]VertexID{0, 1, 5, 4}, faceFront},
		{[4]VertexID{2, 6, 7, 3}, faceBack},
		{[4]VertexID{0, 4, 6, 2}, faceLeft},
		{[4]VertexID{1, 3, 7, 5}, faceRight},
	}
	for i, q := range quads {
		s.addTriangle(TriangleID(2*i), q.v[0], q.v[1], q.v[2], q.face)
		s.addTriangle(TriangleID(2*i+1), q.v[0], q.v[2], q.v[3], q.face)
	}
	return s
}

// wavySource is a grid whose heights follow a smooth bump, for comparing indexes against brute force.
func wavySource(n int) *testSource {
	s := gridSource(n, n)
	for id, p := range s.verts {
		p.Z = math.Sin(p.X*0.7) * math.Cos(p.Y*0.5)
		s.verts[id] = p
	}
	return s
}

func optionsWith(leafLimit int) Options {
	opts := DefaultOptions()
	opts.LeafLimit = leafLimit
	return opts
}

func newTestTree(t *testing.T, source GeometrySource, opts Options) *Tree {
	t.Helper()
	tree, err := NewTree(source, opts, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return tree
}

func newTestGrid(t *testing.T, source GeometrySource, opts Options) *HashGrid {
	t.Helper()
	grid, err := NewHashGrid(source, opts, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return grid
}

// eachVariant runs fn against a tree and a spatial hash built over the same source.
func eachVariant(t *testing.T, makeSource func() *testSource, opts Options, fn func(t *testing.T, idx Index)) {
	t.Helper()
	t.Run("tree", func(t *testing.T) {
		fn(t, newTestTree(t, makeSource(), opts))
	})
	t.Run("spatial hash", func(t *testing.T) {
		hashOpts := opts
		hashOpts.UseSpatialHash = true
		idx, err := New(makeSource(), hashOpts, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		fn(t, idx)
	})
}
