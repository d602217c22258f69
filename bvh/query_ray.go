package bvh

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/meshbvh/spatialmath"
)

// rayTest intersects one triangle and replaces best when the hit is nearer.
func (c *core) rayTest(rec *triRecord, ray spatialmath.Ray, best *RayHit) bool {
	if rec.Degenerate {
		return false
	}
	a, b, d := c.triPoints(rec)
	dist, u, v, ok := ray.IntersectTriangle(a, b, d)
	if !ok || dist >= best.Distance {
		return false
	}
	*best = RayHit{
		Triangle: rec.ID,
		Face:     rec.Face,
		Distance: dist,
		U:        u,
		V:        v,
		Point:    ray.At(dist),
		Normal:   spatialmath.PlaneNormal(a, b, d),
	}
	return true
}

// newRay validates a ray query.
func (c *core) newRay(origin, dir r3.Vector) (spatialmath.Ray, error) {
	if err := c.checkAlive(); err != nil {
		return spatialmath.Ray{}, err
	}
	ray := spatialmath.NewRay(origin, dir)
	if !ray.IsValid() {
		return spatialmath.Ray{}, ErrInvalidRay
	}
	return ray, nil
}

// finishRay copies a hit into the pool. It returns nil when nothing was hit.
func (c *core) finishRay(best *RayHit) *RayHit {
	if math.IsInf(best.Distance, 1) {
		return nil
	}
	hit := c.pool.rayHits.get()
	*hit = *best
	return hit
}

type rayEntry struct {
	idx   nodeIndex
	entry float64
}

// CastRay returns the nearest hit of the ray with a non degenerate triangle, or nil if the ray misses. The hit is
// owned by the result pool.
//
// Children are visited nearer box first, and a subtree is skipped once its entry distance is beyond the best hit.
func (t *Tree) CastRay(origin, dir r3.Vector) (*RayHit, error) {
	ray, err := t.newRay(origin, dir)
	if err != nil {
		return nil, err
	}
	best := RayHit{Distance: math.Inf(1)}
	if t.root == noNode {
		return nil, nil
	}
	entry, _, ok := ray.IntersectAABB(t.nodes[t.root].bounds)
	if !ok {
		return nil, nil
	}
	stack := make([]rayEntry, 0, 2*t.opts.DepthLimit)
	stack = append(stack, rayEntry{t.root, entry})
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.entry > best.Distance {
			continue
		}
		n := &t.nodes[top.idx]
		for _, id := range n.tris.ids {
			if rec := t.usable(id); rec != nil {
				t.rayTest(rec, ray, &best)
			}
		}
		if n.isLeaf() {
			continue
		}
		lEntry, _, lok := ray.IntersectAABB(t.nodes[n.left].bounds)
		rEntry, _, rok := ray.IntersectAABB(t.nodes[n.right].bounds)
		near, far := rayEntry{n.left, lEntry}, rayEntry{n.right, rEntry}
		nearOK, farOK := lok, rok
		if rok && (!lok || rEntry < lEntry) {
			near, far = far, near
			nearOK, farOK = farOK, nearOK
		}
		if farOK && far.entry <= best.Distance {
			stack = append(stack, far)
		}
		if nearOK && near.entry <= best.Distance {
			stack = append(stack, near)
		}
	}
	return t.finishRay(&best), nil
}
