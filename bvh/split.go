package bvh

import (
	"math"
	"slices"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/meshbvh/spatialmath"
)

// splitRecursive splits a leaf and then its children until every new leaf is within the limit or cannot be split.
// It reports whether idx was split.
func (t *Tree) splitRecursive(idx nodeIndex) bool {
	split := false
	stack := []nodeIndex{idx}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t.splitLeaf(cur) {
			split = true
			n := &t.nodes[cur]
			stack = append(stack, n.left, n.right)
		}
	}
	return split
}

func (t *Tree) needsSplit(n *node) bool {
	count := n.tris.len()
	if !n.live || !n.isLeaf() || count <= t.opts.LeafLimit || n.depth+1 >= t.opts.DepthLimit {
		return false
	}
	// a reverted split is only retried once the leaf has grown by another leaf limit
	return n.splitFailedAt == 0 || count >= n.splitFailedAt+t.opts.LeafLimit
}

// splitLeaf turns an oversized leaf into an interior node with two leaf children. Triangles contained in one half
// box move there, triangles crossing the split plane go to both. It reports whether the split happened.
func (t *Tree) splitLeaf(idx nodeIndex) bool {
	if !t.needsSplit(&t.nodes[idx]) {
		return false
	}
	n := &t.nodes[idx]
	ids := slices.Clone(n.tris.ids)
	slices.Sort(ids)
	box := t.contentBounds(n)

	axis, pos, ok := t.chooseSplit(ids, box)
	if !ok {
		t.logger.Warnw("cannot split leaf, triangle centroids coincide",
			"node", idx, "depth", n.depth, "triangles", len(ids))
		n.splitFailedAt = len(ids)
		return false
	}
	loBox, hiBox := box.Split(axis, pos)

	var loIDs, hiIDs, stuck []TriangleID
	for _, id := range ids {
		rec := &t.tris.recs[id]
		tb := t.triBounds(rec)
		switch {
		case loBox.Contains(tb):
			loIDs = append(loIDs, id)
		case hiBox.Contains(tb):
			hiIDs = append(hiIDs, id)
		default:
			a, b, c := t.triPoints(rec)
			inLo := spatialmath.TriangleAABBOverlap(a, b, c, loBox)
			inHi := spatialmath.TriangleAABBOverlap(a, b, c, hiBox)
			switch {
			case inLo && inHi:
				loIDs = append(loIDs, id)
				hiIDs = append(hiIDs, id)
			case inLo:
				loIDs = append(loIDs, id)
			case inHi:
				hiIDs = append(hiIDs, id)
			default:
				stuck = append(stuck, id)
			}
		}
	}

	var retained []TriangleID
	for _, id := range stuck {
		t.logger.Warnw("triangle fits no child of split", "node", idx, "triangle", id, "deform_mode", t.opts.DeformMode)
		if t.opts.DeformMode {
			retained = append(retained, id)
			continue
		}
		centroid := t.centroid(&t.tris.recs[id])
		if hiBox.DistanceSquaredToPoint(centroid) < loBox.DistanceSquaredToPoint(centroid) {
			hiIDs = append(hiIDs, id)
		} else {
			loIDs = append(loIDs, id)
		}
	}

	if len(loIDs) >= len(ids) || len(hiIDs) >= len(ids) || len(loIDs) == 0 || len(hiIDs) == 0 {
		t.logger.Warnw("split did not reduce leaf, keeping oversized leaf",
			"node", idx, "depth", n.depth, "triangles", len(ids), "axis", axis, "position", pos,
			"low", len(loIDs), "high", len(hiIDs))
		n.splitFailedAt = len(ids)
		return false
	}

	depth := n.depth
	left := t.allocNode(idx, depth+1)
	right := t.allocNode(idx, depth+1)
	n = &t.nodes[idx]
	for _, id := range ids {
		if !slices.Contains(retained, id) {
			t.removeFromNode(idx, &t.tris.recs[id])
		}
	}
	n.left, n.right = left, right
	n.uniqueVerts, n.otherVerts = nil, nil
	n.splitFailedAt = 0
	for _, id := range loIDs {
		t.addToNode(left, &t.tris.recs[id])
	}
	for _, id := range hiIDs {
		t.addToNode(right, &t.tris.recs[id])
	}
	for _, child := range []nodeIndex{left, right} {
		c := &t.nodes[child]
		c.setBounds(t.contentBounds(c))
		c.origBounds = c.bounds
		c.triCount = c.tris.len()
		t.markDirty(child, flagUpdateVertIndex|flagUpdateTriCount)
	}
	t.markDirty(idx, flagUpdateBounds|flagUpdateTriCount)
	t.logger.Debugw("split leaf", "node", idx, "axis", axis, "position", pos,
		"low", len(loIDs), "high", len(hiIDs), "retained", len(retained))
	return true
}

func (t *Tree) centroid(rec *triRecord) r3.Vector {
	a, b, c := t.triPoints(rec)
	return spatialmath.TriangleCentroid(a, b, c)
}

// chooseSplit picks the split axis and position: the longest axis along which the centroids of the non degenerate
// triangles spread, at their median, moved to the nearest vertex coordinate strictly inside the box.
func (t *Tree) chooseSplit(ids []TriangleID, box spatialmath.AABB) (int, float64, bool) {
	centroids := make([]r3.Vector, 0, len(ids))
	for _, id := range ids {
		rec := &t.tris.recs[id]
		if rec.Degenerate {
			continue
		}
		if c := t.centroid(rec); spatialmath.VectorIsFinite(c) {
			centroids = append(centroids, c)
		}
	}
	if len(centroids) == 0 {
		return 0, 0, false
	}

	size := box.Size()
	axes := []int{0, 1, 2}
	slices.SortStableFunc(axes, func(a, b int) int {
		sa, sb := spatialmath.Component(size, a), spatialmath.Component(size, b)
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		}
		return 0
	})

	values := make([]float64, len(centroids))
	for _, axis := range axes {
		for i, c := range centroids {
			values[i] = spatialmath.Component(c, axis)
		}
		slices.Sort(values)
		spread := values[len(values)-1] - values[0]
		if spread <= 1e-12*math.Max(1, spatialmath.Component(size, axis)) {
			continue
		}
		median := stat.Quantile(0.5, stat.Empirical, values, nil)
		return axis, t.snapToVertex(ids, axis, median, box), true
	}
	return 0, 0, false
}

// snapToVertex returns the vertex coordinate strictly inside the box nearest to pos, or pos if there is none.
func (t *Tree) snapToVertex(ids []TriangleID, axis int, pos float64, box spatialmath.AABB) float64 {
	lowest, highest := spatialmath.Component(box.Min, axis), spatialmath.Component(box.Max, axis)
	best, bestDist := pos, math.Inf(1)
	for _, id := range ids {
		for _, v := range t.tris.recs[id].Verts {
			c := spatialmath.Component(t.verts.position(v), axis)
			if c <= lowest || c >= highest {
				continue
			}
			if d := math.Abs(c - pos); d < bestDist || (d == bestDist && c < best) {
				best, bestDist = c, d
			}
		}
	}
	return best
}

// joinChildren collapses two leaf children back into their parent when their distinct triangles fit in one leaf.
func (t *Tree) joinChildren(idx nodeIndex) bool {
	n := &t.nodes[idx]
	if !n.live || n.isLeaf() {
		return false
	}
	left, right := n.left, n.right
	l, r := &t.nodes[left], &t.nodes[right]
	if !l.isLeaf() || !r.isLeaf() {
		return false
	}
	distinct := lo.Uniq(slices.Concat(n.tris.ids, l.tris.ids, r.tris.ids))
	if len(distinct) > t.opts.LeafLimit {
		return false
	}
	for _, id := range distinct {
		rec := &t.tris.recs[id]
		t.removeFromNode(left, rec)
		t.removeFromNode(right, rec)
		t.addToNode(idx, rec)
	}
	n.left, n.right = noNode, noNode
	n.splitFailedAt = 0
	t.freeNode(left)
	t.freeNode(right)
	n.setBounds(t.contentBounds(n))
	t.markDirty(idx, flagUpdateAll)
	t.logger.Debugw("joined children", "node", idx, "triangles", len(distinct))
	return true
}

// pruneEmpty removes an empty leaf child by moving its sibling's content into the parent.
func (t *Tree) pruneEmpty(idx nodeIndex) bool {
	n := &t.nodes[idx]
	if !n.live || n.isLeaf() {
		return false
	}
	var keep, drop nodeIndex
	switch {
	case t.isEmptyLeaf(n.left):
		keep, drop = n.right, n.left
	case t.isEmptyLeaf(n.right):
		keep, drop = n.left, n.right
	default:
		return false
	}
	k := &t.nodes[keep]
	for _, id := range slices.Clone(k.tris.ids) {
		rec := &t.tris.recs[id]
		t.removeFromNode(keep, rec)
		t.addToNode(idx, rec)
	}
	n.left, n.right = k.left, k.right
	n.splitFailedAt = k.splitFailedAt
	n.setBounds(k.bounds)
	if !n.isLeaf() {
		t.nodes[n.left].parent = idx
		t.nodes[n.right].parent = idx
		t.setDepth(n.left, n.depth+1)
		t.setDepth(n.right, n.depth+1)
	}
	k.left, k.right = noNode, noNode
	t.freeNode(keep)
	t.freeNode(drop)
	t.markDirty(idx, flagUpdateAll)
	t.logger.Debugw("pruned empty leaf", "node", idx)
	return true
}

func (t *Tree) isEmptyLeaf(idx nodeIndex) bool {
	n := &t.nodes[idx]
	return n.isLeaf() && n.tris.len() == 0
}
