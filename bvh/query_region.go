package bvh

import (
	"container/heap"
	"math"
	"sort"

	"github.com/golang/geo/r3"

	"go.viam.com/meshbvh/spatialmath"
)

// Region queries walk the partition with a box/region overlap test to prune, then run an exact test on every
// triangle or vertex of the surviving cells. Straddling triangles and shared vertices are reported once.

func everywhere() spatialmath.AABB {
	inf := math.Inf(1)
	return spatialmath.AABB{
		Min: r3.Vector{X: -inf, Y: -inf, Z: -inf},
		Max: r3.Vector{X: inf, Y: inf, Z: inf},
	}
}

type byDistance struct{ *VertexResult }

func (s byDistance) Less(i, j int) bool {
	if s.Dists[i] != s.Dists[j] {
		return s.Dists[i] < s.Dists[j]
	}
	return s.Verts[i] < s.Verts[j]
}

func (s byDistance) Swap(i, j int) {
	s.Verts[i], s.Verts[j] = s.Verts[j], s.Verts[i]
	s.Dists[i], s.Dists[j] = s.Dists[j], s.Dists[i]
}

type byVertex struct{ *VertexResult }

func (s byVertex) Less(i, j int) bool { return s.Verts[i] < s.Verts[j] }

func (s byVertex) Swap(i, j int) {
	s.Verts[i], s.Verts[j] = s.Verts[j], s.Verts[i]
	s.Dists[i], s.Dists[j] = s.Dists[j], s.Dists[i]
}

// ClosestVerts returns the vertices within radius of center, nearest first.
func (c *core) ClosestVerts(center r3.Vector, radius float64) (*VertexResult, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	res := c.pool.vertices.get().reset()
	if radius < 0 {
		return res, nil
	}
	sphere := spatialmath.Sphere{Center: center, Radius: radius}
	c.eachVertexIn(sphere.Bounds(), sphere.OverlapsAABB, func(v VertexID, co r3.Vector) {
		if d := co.Sub(center).Norm(); d <= radius {
			res.add(v, d)
		}
	})
	sort.Sort(byDistance{res})
	return res, nil
}

// ClosestTris returns the triangles with a point within radius of center, in id order.
func (c *core) ClosestTris(center r3.Vector, radius float64) (*TriangleResult, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	res := c.pool.triangles.get().reset()
	if radius < 0 {
		return res, nil
	}
	sphere := spatialmath.Sphere{Center: center, Radius: radius}
	c.eachTriangleIn(sphere.Bounds(), sphere.OverlapsAABB, func(rec *triRecord) bool {
		a, b, d := c.triPoints(rec)
		if spatialmath.ClosestPointTrianglePoint(a, b, d, center).Sub(center).Norm2() <= radius*radius {
			res.Tris = append(res.Tris, rec.ID)
		}
		return true
	})
	sortTriangles(res)
	return res, nil
}

func coneQueryBox(cone spatialmath.Cone) spatialmath.AABB {
	if cone.Length > 0 {
		return spatialmath.Sphere{Center: cone.Apex, Radius: cone.Length / math.Max(math.Cos(cone.HalfAngle), 1e-9)}.Bounds()
	}
	return everywhere()
}

// VertsInCone returns the vertices inside the cone in id order, with their distance to the apex.
func (c *core) VertsInCone(cone spatialmath.Cone) (*VertexResult, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	res := c.pool.vertices.get().reset()
	c.eachVertexIn(coneQueryBox(cone), cone.OverlapsAABB, func(v VertexID, co r3.Vector) {
		if cone.ContainsPoint(co) {
			res.add(v, co.Sub(cone.Apex).Norm())
		}
	})
	sort.Sort(byVertex{res})
	return res, nil
}

// FacesInCone returns the triangles with a corner or the centroid inside the cone, in id order. With visibleOnly
// set, triangles facing away from the apex (normal not opposing the axis) and degenerate triangles are culled.
func (c *core) FacesInCone(cone spatialmath.Cone, visibleOnly bool) (*TriangleResult, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	res := c.pool.triangles.get().reset()
	c.eachTriangleIn(coneQueryBox(cone), cone.OverlapsAABB, func(rec *triRecord) bool {
		if visibleOnly && (rec.Degenerate || rec.Normal.Dot(cone.Axis) >= 0) {
			return true
		}
		a, b, d := c.triPoints(rec)
		if cone.ContainsPoint(a) || cone.ContainsPoint(b) || cone.ContainsPoint(d) ||
			cone.ContainsPoint(spatialmath.TriangleCentroid(a, b, d)) {
			res.Tris = append(res.Tris, rec.ID)
		}
		return true
	})
	sortTriangles(res)
	return res, nil
}

// VertsInTube returns the vertices within radius of the segment start-end in id order, with their distance to the
// segment.
func (c *core) VertsInTube(start, end r3.Vector, radius float64) (*VertexResult, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	res := c.pool.vertices.get().reset()
	if radius < 0 {
		return res, nil
	}
	tube := spatialmath.Tube{Start: start, End: end, Radius: radius}
	c.eachVertexIn(tube.Bounds(), tube.OverlapsAABB, func(v VertexID, co r3.Vector) {
		if d := spatialmath.DistToLineSegment(start, end, co); d <= radius {
			res.add(v, d)
		}
	})
	sort.Sort(byVertex{res})
	return res, nil
}

// VertsInSquare returns the vertices inside the square prism in id order, with their distance to its center.
func (c *core) VertsInSquare(sq spatialmath.Square) (*VertexResult, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	res := c.pool.vertices.get().reset()
	if sq.HalfSize < 0 || sq.Depth < 0 {
		return res, nil
	}
	r := math.Sqrt(2*sq.HalfSize*sq.HalfSize + sq.Depth*sq.Depth)
	query := spatialmath.Sphere{Center: sq.Center, Radius: r}.Bounds()
	c.eachVertexIn(query, sq.OverlapsAABB, func(v VertexID, co r3.Vector) {
		if sq.ContainsPoint(co) {
			res.add(v, co.Sub(sq.Center).Norm())
		}
	})
	sort.Sort(byVertex{res})
	return res, nil
}

type vertexCandidate struct {
	v    VertexID
	dist float64
}

// candidateHeap is a max heap: the root is the worst of the current best n.
type candidateHeap []vertexCandidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist > h[j].dist
	}
	return h[i].v > h[j].v
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(vertexCandidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// NearestVertsN returns up to n vertices nearest to p, nearest first. A positive maxDist limits the search radius.
// Once n candidates are known, cells farther than the worst of them are pruned.
func (c *core) NearestVertsN(p r3.Vector, n int, maxDist float64) (*VertexResult, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	res := c.pool.vertices.get().reset()
	if n <= 0 {
		return res, nil
	}
	limit := math.Inf(1)
	query := everywhere()
	if maxDist > 0 {
		limit = maxDist
		query = spatialmath.Sphere{Center: p, Radius: maxDist}.Bounds()
	}
	// never more candidates than registered vertices
	h := make(candidateHeap, 0, min(n, c.verts.count))
	bound := func() float64 {
		if len(h) < n {
			return limit
		}
		return h[0].dist
	}
	prune := func(box spatialmath.AABB) bool {
		b := bound()
		return box.DistanceSquaredToPoint(p) <= b*b
	}
	c.eachVertexIn(query, prune, func(v VertexID, co r3.Vector) {
		d := co.Sub(p).Norm()
		if d > limit {
			return
		}
		cand := vertexCandidate{v, d}
		if len(h) < n {
			heap.Push(&h, cand)
			return
		}
		if worst := h[0]; d < worst.dist || (d == worst.dist && v < worst.v) {
			h[0] = cand
			heap.Fix(&h, 0)
		}
	})
	for _, cand := range h {
		res.add(cand.v, cand.dist)
	}
	sort.Sort(byDistance{res})
	return res, nil
}

func sortTriangles(res *TriangleResult) {
	sort.Slice(res.Tris, func(i, j int) bool { return res.Tris[i] < res.Tris[j] })
}
