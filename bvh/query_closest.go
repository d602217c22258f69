package bvh

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/meshbvh/spatialmath"
)

// closestScratch is the running best of a closest point search. dist2 is squared.
type closestScratch struct {
	hit   ClosestHit
	dist2 float64
}

func newClosestScratch() closestScratch {
	return closestScratch{dist2: math.Inf(1)}
}

// closestTest measures one triangle. Degenerate triangles are measured through their edges, which the general
// routine falls back to on its own.
func (c *core) closestTest(rec *triRecord, p r3.Vector, best *closestScratch) {
	a, b, d := c.triPoints(rec)
	q := spatialmath.ClosestPointTrianglePoint(a, b, d, p)
	dist2 := q.Sub(p).Norm2()
	if dist2 < best.dist2 || (dist2 == best.dist2 && rec.ID < best.hit.Triangle) {
		best.dist2 = dist2
		best.hit = ClosestHit{Triangle: rec.ID, Face: rec.Face, Point: q}
	}
}

func (c *core) finishClosest(best *closestScratch) *ClosestHit {
	if math.IsInf(best.dist2, 1) || math.IsNaN(best.dist2) {
		return nil
	}
	hit := c.pool.closest.get()
	*hit = best.hit
	hit.Distance = math.Sqrt(best.dist2)
	return hit
}

type closestEntry struct {
	idx   nodeIndex
	dist2 float64
}

// ClosestPoint returns the point of the surface nearest to p, or nil when the index holds no triangle. The search
// radius starts unbounded and shrinks to the best distance found, pruning every box farther than that.
func (t *Tree) ClosestPoint(p r3.Vector) (*ClosestHit, error) {
	if err := t.checkAlive(); err != nil {
		return nil, err
	}
	best := newClosestScratch()
	if t.root == noNode || t.nodes[t.root].bounds.IsEmpty() {
		return nil, nil
	}
	stack := make([]closestEntry, 0, 2*t.opts.DepthLimit)
	stack = append(stack, closestEntry{t.root, t.nodes[t.root].bounds.DistanceSquaredToPoint(p)})
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.dist2 > best.dist2 {
			continue
		}
		n := &t.nodes[top.idx]
		for _, id := range n.tris.ids {
			if rec := t.usable(id); rec != nil {
				t.closestTest(rec, p, &best)
			}
		}
		if n.isLeaf() {
			continue
		}
		near := closestEntry{n.left, t.boxDist2(n.left, p)}
		far := closestEntry{n.right, t.boxDist2(n.right, p)}
		if far.dist2 < near.dist2 {
			near, far = far, near
		}
		if far.dist2 <= best.dist2 {
			stack = append(stack, far)
		}
		if near.dist2 <= best.dist2 {
			stack = append(stack, near)
		}
	}
	return t.finishClosest(&best), nil
}

// boxDist2 is the squared distance from p to a node's box; empty boxes are infinitely far.
func (t *Tree) boxDist2(idx nodeIndex, p r3.Vector) float64 {
	b := t.nodes[idx].bounds
	if b.IsEmpty() {
		return math.Inf(1)
	}
	return b.DistanceSquaredToPoint(p)
}
