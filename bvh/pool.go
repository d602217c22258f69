package bvh

import (
	"slices"

	"github.com/golang/geo/r3"
)

// RayHit is the nearest intersection of a ray with the surface.
//
// RayHit values are owned by the index's result pool and are overwritten once the pool wraps, after
// Options.ResultPoolSize further ray casts. Use Clone to keep one.
type RayHit struct {
	Triangle TriangleID
	Face     FaceHandle
	Distance float64
	// U and V are the barycentric weights of the triangle's second and third vertex.
	U, V   float64
	Point  r3.Vector
	Normal r3.Vector
}

// Clone returns a copy that is not owned by the pool.
func (h *RayHit) Clone() *RayHit {
	c := *h
	return &c
}

// ClosestHit is the point of the surface nearest to a query point. It is pooled like RayHit.
type ClosestHit struct {
	Triangle TriangleID
	Face     FaceHandle
	Point    r3.Vector
	Distance float64
}

// Clone returns a copy that is not owned by the pool.
func (h *ClosestHit) Clone() *ClosestHit {
	c := *h
	return &c
}

// VertexResult holds the vertices found by a region query and their distance to the query's reference point. It is
// pooled like RayHit: the slices are reused by later queries.
type VertexResult struct {
	Verts []VertexID
	Dists []float64
}

// Len returns the number of vertices found.
func (r *VertexResult) Len() int {
	return len(r.Verts)
}

// Clone returns a copy that is not owned by the pool.
func (r *VertexResult) Clone() *VertexResult {
	return &VertexResult{Verts: slices.Clone(r.Verts), Dists: slices.Clone(r.Dists)}
}

func (r *VertexResult) reset() *VertexResult {
	r.Verts = r.Verts[:0]
	r.Dists = r.Dists[:0]
	return r
}

func (r *VertexResult) add(v VertexID, dist float64) {
	r.Verts = append(r.Verts, v)
	r.Dists = append(r.Dists, dist)
}

// TriangleResult holds the triangles found by a region query. It is pooled like RayHit.
type TriangleResult struct {
	Tris []TriangleID
}

// Len returns the number of triangles found.
func (r *TriangleResult) Len() int {
	return len(r.Tris)
}

// Clone returns a copy that is not owned by the pool.
func (r *TriangleResult) Clone() *TriangleResult {
	return &TriangleResult{Tris: slices.Clone(r.Tris)}
}

func (r *TriangleResult) reset() *TriangleResult {
	r.Tris = r.Tris[:0]
	return r
}

// ring hands out preallocated values round robin.
type ring[T any] struct {
	items []T
	next  int
}

func newRing[T any](size int) ring[T] {
	return ring[T]{items: make([]T, size)}
}

func (r *ring[T]) get() *T {
	item := &r.items[r.next]
	r.next = (r.next + 1) % len(r.items)
	return item
}

// stampSet is a visited set over small integer ids cleared in O(1) by bumping a generation.
type stampSet struct {
	stamps []uint32
	gen    uint32
}

func (s *stampSet) reset(size int) {
	if size > len(s.stamps) {
		s.stamps = append(s.stamps, make([]uint32, size-len(s.stamps))...)
	}
	s.gen++
	if s.gen == 0 {
		clear(s.stamps)
		s.gen = 1
	}
}

// visit marks i and reports whether it was unmarked.
func (s *stampSet) visit(i int) bool {
	if s.stamps[i] == s.gen {
		return false
	}
	s.stamps[i] = s.gen
	return true
}

// resultPool owns every value handed out by queries, and the per query visited sets.
type resultPool struct {
	rayHits   ring[RayHit]
	closest   ring[ClosestHit]
	vertices  ring[VertexResult]
	triangles ring[TriangleResult]

	triSeen  stampSet
	vertSeen stampSet
}

func newResultPool(size int) *resultPool {
	return &resultPool{
		rayHits:   newRing[RayHit](size),
		closest:   newRing[ClosestHit](size),
		vertices:  newRing[VertexResult](size),
		triangles: newRing[TriangleResult](size),
	}
}
