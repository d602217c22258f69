package bvh

import (
	"slices"

	"go.viam.com/meshbvh/spatialmath"
)

// LeafInfo describes one leaf for debugging and for brushes that need its vertex partition.
type LeafInfo struct {
	Node      int
	Depth     int
	Bounds    spatialmath.AABB
	Triangles []TriangleID
	// UniqueVerts are used only by triangles stored in this leaf alone; OtherVerts are shared with other leaves.
	UniqueVerts []VertexID
	OtherVerts  []VertexID
}

// Leaves returns the leaves of the tree in depth first order, left child first. The vertex partitions are those
// computed by the last Update.
func (t *Tree) Leaves() []LeafInfo {
	if t.destroyed || t.root == noNode {
		return nil
	}
	var out []LeafInfo
	t.eachNode(func(idx nodeIndex, n *node) {
		if !n.isLeaf() {
			return
		}
		tris := slices.Clone(n.tris.ids)
		slices.Sort(tris)
		out = append(out, LeafInfo{
			Node:        int(idx),
			Depth:       n.depth,
			Bounds:      n.bounds,
			Triangles:   tris,
			UniqueVerts: slices.Clone(n.uniqueVerts),
			OtherVerts:  slices.Clone(n.otherVerts),
		})
	})
	return out
}

// eachNode visits the reachable nodes depth first, left child first.
func (t *Tree) eachNode(fn func(idx nodeIndex, n *node)) {
	stack := []nodeIndex{t.root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[idx]
		fn(idx, n)
		if !n.isLeaf() {
			stack = append(stack, n.right, n.left)
		}
	}
}

// NodeBoxes returns the boxes of the nodes at one level for drawing. The level is shifted by DrawLevelOffset; a
// negative level returns every node.
func (t *Tree) NodeBoxes(level int) []spatialmath.AABB {
	if t.destroyed || t.root == noNode {
		return nil
	}
	depth := level + t.opts.DrawLevelOffset
	var boxes []spatialmath.AABB
	t.eachNode(func(_ nodeIndex, n *node) {
		if (level < 0 || n.depth == depth) && !n.bounds.IsEmpty() {
			boxes = append(boxes, n.bounds)
		}
	})
	return boxes
}

// LeafBoxes returns the boxes of the non empty leaves.
func (t *Tree) LeafBoxes() []spatialmath.AABB {
	var boxes []spatialmath.AABB
	for _, leaf := range t.Leaves() {
		if len(leaf.Triangles) > 0 {
			boxes = append(boxes, leaf.Bounds)
		}
	}
	return boxes
}

// LeafBoxes returns the cell boxes of the non empty buckets.
func (g *HashGrid) LeafBoxes() []spatialmath.AABB {
	var boxes []spatialmath.AABB
	for _, b := range g.buckets {
		if b.tris.len() > 0 {
			boxes = append(boxes, b.box)
		}
	}
	return boxes
}
