package bvh

import (
	"github.com/golang/geo/r3"

	"go.viam.com/meshbvh/spatialmath"
)

type nodeIndex int32

const noNode nodeIndex = -1

type nodeFlag uint8

const (
	flagUpdateBounds nodeFlag = 1 << iota
	flagUpdateNormals
	flagUpdateVertIndex
	flagUpdateTriCount
	flagInWorkSet

	flagUpdateAll = flagUpdateBounds | flagUpdateNormals | flagUpdateVertIndex | flagUpdateTriCount
)

// node is an entry of the tree's node arena. A leaf owns triangles; an interior node has exactly two children and,
// in deform mode only, may keep triangles that fit neither child.
type node struct {
	bounds     spatialmath.AABB
	origBounds spatialmath.AABB
	center     r3.Vector
	halfExtent r3.Vector

	parent      nodeIndex
	left, right nodeIndex

	tris     triSet
	vertRefs map[VertexID]int
	// unique vertices touch only triangles owned solely by this leaf; other vertices are shared with another leaf.
	uniqueVerts []VertexID
	otherVerts  []VertexID

	flags        nodeFlag
	depth        int
	subtreeDepth int
	// triCount is the number of triangles stored in the subtree, counting straddlers once per owner.
	triCount int
	// splitFailedAt is the triangle count of the last split that had to be reverted.
	splitFailedAt int
	live          bool
}

func (n *node) isLeaf() bool {
	return n.left == noNode
}

func (n *node) setBounds(b spatialmath.AABB) {
	n.bounds = b
	n.center = b.Center()
	n.halfExtent = b.HalfExtent()
}

func (n *node) addVertRefs(verts [3]VertexID) {
	if n.vertRefs == nil {
		n.vertRefs = map[VertexID]int{}
	}
	for i, v := range verts {
		if i > 0 && (v == verts[0] || (i == 2 && v == verts[1])) {
			continue
		}
		n.vertRefs[v]++
	}
}

// removeVertRefs drops one reference per vertex; a vertex reaching zero leaves the unique/other sets.
func (n *node) removeVertRefs(verts [3]VertexID) {
	for i, v := range verts {
		if i > 0 && (v == verts[0] || (i == 2 && v == verts[1])) {
			continue
		}
		n.vertRefs[v]--
		if n.vertRefs[v] <= 0 {
			delete(n.vertRefs, v)
			n.uniqueVerts = removeVertex(n.uniqueVerts, v)
			n.otherVerts = removeVertex(n.otherVerts, v)
		}
	}
}

func removeVertex(verts []VertexID, v VertexID) []VertexID {
	for i, u := range verts {
		if u == v {
			verts[i] = verts[len(verts)-1]
			return verts[:len(verts)-1]
		}
	}
	return verts
}

// allocNode takes a node from the free list or grows the arena.
func (t *Tree) allocNode(parent nodeIndex, depth int) nodeIndex {
	var idx nodeIndex
	if len(t.freeNodes) > 0 {
		idx = t.freeNodes[len(t.freeNodes)-1]
		t.freeNodes = t.freeNodes[:len(t.freeNodes)-1]
	} else {
		t.nodes = append(t.nodes, node{})
		idx = nodeIndex(len(t.nodes) - 1)
	}
	n := &t.nodes[idx]
	tris := n.tris
	tris.clear()
	*n = node{
		parent:       parent,
		left:         noNode,
		right:        noNode,
		tris:         tris,
		vertRefs:     map[VertexID]int{},
		depth:        depth,
		subtreeDepth: 1,
		live:         true,
	}
	n.setBounds(spatialmath.EmptyAABB())
	n.origBounds = n.bounds
	return idx
}

func (t *Tree) freeNode(idx nodeIndex) {
	n := &t.nodes[idx]
	n.live = false
	n.tris.clear()
	n.vertRefs = nil
	n.uniqueVerts = nil
	n.otherVerts = nil
	n.left, n.right, n.parent = noNode, noNode, noNode
	t.freeNodes = append(t.freeNodes, idx)
}

// markDirty sets flags on a node and queues it for the next Update.
func (t *Tree) markDirty(idx nodeIndex, flags nodeFlag) {
	n := &t.nodes[idx]
	n.flags |= flags
	if n.flags&flagInWorkSet == 0 {
		n.flags |= flagInWorkSet
		t.workSet = append(t.workSet, idx)
	}
}

// addToNode stores a triangle in a node and links the ownership both ways.
func (t *Tree) addToNode(idx nodeIndex, rec *triRecord) {
	n := &t.nodes[idx]
	if !n.tris.add(rec.ID) {
		return
	}
	n.addVertRefs(rec.Verts)
	rec.addOwner(int32(idx))
}

func (t *Tree) removeFromNode(idx nodeIndex, rec *triRecord) {
	n := &t.nodes[idx]
	if !n.tris.remove(rec.ID) {
		return
	}
	n.removeVertRefs(rec.Verts)
	rec.removeOwner(int32(idx))
}

// contentBounds is the union of the boxes of the triangles stored directly in a node.
func (t *Tree) contentBounds(n *node) spatialmath.AABB {
	box := spatialmath.EmptyAABB()
	for _, id := range n.tris.ids {
		if tb := t.triBounds(&t.tris.recs[id]); finiteBox(tb) {
			box = box.Union(tb)
		}
	}
	return box
}

// setDepth fixes the depth of a subtree after it moved in the tree.
func (t *Tree) setDepth(idx nodeIndex, depth int) {
	stack := []nodeIndex{idx}
	depths := []int{depth}
	for len(stack) > 0 {
		cur, d := stack[len(stack)-1], depths[len(depths)-1]
		stack, depths = stack[:len(stack)-1], depths[:len(depths)-1]
		n := &t.nodes[cur]
		n.depth = d
		if !n.isLeaf() {
			stack = append(stack, n.left, n.right)
			depths = append(depths, d+1, d+1)
		}
	}
}
