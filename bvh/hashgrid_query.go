package bvh

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/meshbvh/spatialmath"
)

// CastRay walks the cells along the ray with a 3D DDA and stops once the best hit lies before the exit of the
// current cell. The hit is owned by the result pool; nil means no hit.
func (g *HashGrid) CastRay(origin, dir r3.Vector) (*RayHit, error) {
	ray, err := g.newRay(origin, dir)
	if err != nil {
		return nil, err
	}
	best := RayHit{Distance: math.Inf(1)}
	seen := &g.pool.triSeen
	seen.reset(len(g.tris.recs))
	test := func(ids []TriangleID) {
		for _, id := range ids {
			if rec := g.usable(id); rec != nil && seen.visit(int(id)) {
				g.rayTest(rec, ray, &best)
			}
		}
	}
	test(g.stray.ids)

	tEnter, tExit, ok := ray.IntersectAABB(g.bounds)
	if !ok {
		return g.finishRay(&best), nil
	}
	lo, hi := g.cellOf(g.bounds.Min), g.cellOf(g.bounds.Max)
	cell := clampCell(g.cellOf(ray.At(tEnter)), lo, hi)

	var step [3]int64
	var tMax, tDelta [3]float64
	for axis := 0; axis < 3; axis++ {
		d := spatialmath.Component(ray.Dir, axis)
		o := spatialmath.Component(ray.Origin, axis)
		c := cellComponent(cell, axis)
		switch {
		case d > 0:
			step[axis] = 1
			tMax[axis] = (float64(c+1)*g.cellSize - o) / d
			tDelta[axis] = g.cellSize / d
		case d < 0:
			step[axis] = -1
			tMax[axis] = (float64(c)*g.cellSize - o) / d
			tDelta[axis] = -g.cellSize / d
		default:
			tMax[axis] = math.Inf(1)
			tDelta[axis] = math.Inf(1)
		}
	}

	for {
		if b := g.lookup(cell); b >= 0 {
			test(g.buckets[b].tris.ids)
		}
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		exit := tMax[axis]
		if best.Distance <= exit || exit > tExit {
			break
		}
		cell = setCellComponent(cell, axis, cellComponent(cell, axis)+step[axis])
		if c := cellComponent(cell, axis); c < cellComponent(lo, axis) || c > cellComponent(hi, axis) {
			break
		}
		tMax[axis] += tDelta[axis]
	}
	return g.finishRay(&best), nil
}

// ClosestPoint searches shells of cells of growing radius around the cell of p. It stops once the best distance
// is within the distance from p to the unsearched cells.
func (g *HashGrid) ClosestPoint(p r3.Vector) (*ClosestHit, error) {
	if err := g.checkAlive(); err != nil {
		return nil, err
	}
	best := newClosestScratch()
	seen := &g.pool.triSeen
	seen.reset(len(g.tris.recs))
	test := func(ids []TriangleID) {
		for _, id := range ids {
			if rec := g.usable(id); rec != nil && seen.visit(int(id)) {
				g.closestTest(rec, p, &best)
			}
		}
	}
	test(g.stray.ids)
	if g.bounds.IsEmpty() || len(g.buckets) == 0 {
		return g.finishClosest(&best), nil
	}

	lo, hi := g.cellOf(g.bounds.Min), g.cellOf(g.bounds.Max)
	center := clampCell(g.cellOf(g.bounds.ClosestPoint(p)), lo, hi)
	for r := int64(0); ; r++ {
		g.eachShellCell(center, r, lo, hi, func(k cellKey) {
			if b := g.lookup(k); b >= 0 {
				bk := &g.buckets[b]
				if bk.box.DistanceSquaredToPoint(p) <= best.dist2 {
					test(bk.tris.ids)
				}
			}
		})
		bound, done := g.unsearchedDistance(p, center, r, lo, hi)
		if done || best.dist2 <= bound*bound {
			break
		}
	}
	return g.finishClosest(&best), nil
}

// eachShellCell calls fn for the cells at Chebyshev distance r from center that lie in [lo, hi].
func (g *HashGrid) eachShellCell(center cellKey, r int64, lo, hi cellKey, fn func(cellKey)) {
	for i := max(center.I-r, lo.I); i <= min(center.I+r, hi.I); i++ {
		for j := max(center.J-r, lo.J); j <= min(center.J+r, hi.J); j++ {
			onFace := abs64(i-center.I) == r || abs64(j-center.J) == r
			if onFace {
				for k := max(center.K-r, lo.K); k <= min(center.K+r, hi.K); k++ {
					fn(cellKey{i, j, k})
				}
				continue
			}
			if k := center.K - r; k >= lo.K {
				fn(cellKey{i, j, k})
			}
			if k := center.K + r; r > 0 && k <= hi.K {
				fn(cellKey{i, j, k})
			}
		}
	}
}

// unsearchedDistance is a lower bound of the distance from p to any cell in [lo, hi] outside the block of radius r
// around center. done reports that the block covers the whole range.
func (g *HashGrid) unsearchedDistance(p r3.Vector, center cellKey, r int64, lo, hi cellKey) (float64, bool) {
	bound := math.Inf(1)
	done := true
	for axis := 0; axis < 3; axis++ {
		c := cellComponent(center, axis)
		x := spatialmath.Component(p, axis)
		if low := c - r; low > cellComponent(lo, axis) {
			done = false
			bound = math.Min(bound, math.Max(0, x-float64(low)*g.cellSize))
		}
		if high := c + r; high < cellComponent(hi, axis) {
			done = false
			bound = math.Min(bound, math.Max(0, float64(high+1)*g.cellSize-x))
		}
	}
	return bound, done
}

func clampCell(k, lo, hi cellKey) cellKey {
	return cellKey{
		I: min(max(k.I, lo.I), hi.I),
		J: min(max(k.J, lo.J), hi.J),
		K: min(max(k.K, lo.K), hi.K),
	}
}

func cellComponent(k cellKey, axis int) int64 {
	switch axis {
	case 0:
		return k.I
	case 1:
		return k.J
	default:
		return k.K
	}
}

func setCellComponent(k cellKey, axis int, v int64) cellKey {
	switch axis {
	case 0:
		k.I = v
	case 1:
		k.J = v
	default:
		k.K = v
	}
	return k
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
