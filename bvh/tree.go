package bvh

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/meshbvh/logging"
	"go.viam.com/meshbvh/spatialmath"
)

// Tree is a dynamic bounding volume hierarchy over the triangles of a mutable mesh.
//
// A Tree is not safe for concurrent use. Mutations leave the touched nodes dirty; queries see correct results for
// them only after Update.
type Tree struct {
	core

	nodes     []node
	freeNodes []nodeIndex
	root      nodeIndex
	workSet   []nodeIndex

	// building suppresses eager splits while the initial triangles are loaded.
	building bool
}

// NewTree builds a tree over every triangle of source.
func NewTree(source GeometrySource, opts Options, logger logging.Logger) (*Tree, error) {
	c, err := newCore(source, opts, logger.Sublogger("bvh"))
	if err != nil {
		return nil, err
	}
	t := &Tree{core: c, root: noNode}
	t.part = t
	t.root = t.allocNode(noNode, 0)

	t.building = true
	var errs []error
	source.EachTriangle(func(id TriangleID, verts [3]VertexID, face FaceHandle) bool {
		if _, err := t.AddTriangle(id, verts, face); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	t.building = false
	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	if err := t.Update(); err != nil {
		return nil, err
	}
	t.captureOriginalBounds()
	t.logger.Debugw("built tree", "triangles", t.NumTriangles(), "nodes", len(t.nodes)-len(t.freeNodes))
	return t, nil
}

// Bounds returns the box around all triangles.
func (t *Tree) Bounds() spatialmath.AABB {
	if t.root == noNode {
		return spatialmath.EmptyAABB()
	}
	return t.nodes[t.root].bounds
}

// AddTriangle registers a triangle and stores it in the leaf whose box fits it best, splitting that leaf when it
// grows past the leaf limit.
func (t *Tree) AddTriangle(id TriangleID, verts [3]VertexID, face FaceHandle) (Triangle, error) {
	if err := t.checkAlive(); err != nil {
		return Triangle{}, err
	}
	rec, err := t.registerTriangle(id, verts, face)
	if err != nil {
		return Triangle{}, err
	}
	leaf := t.insert(rec)
	if !t.building {
		t.splitRecursive(leaf)
	}
	return rec.Triangle, nil
}

func (t *Tree) insert(rec *triRecord) nodeIndex {
	box := t.triBounds(rec)
	idx := t.root
	for {
		n := &t.nodes[idx]
		if finiteBox(box) {
			n.setBounds(n.bounds.Union(box))
		}
		if n.isLeaf() {
			break
		}
		idx = t.chooseChild(n, box)
	}
	t.addToNode(idx, rec)
	t.markDirty(idx, flagUpdateAll)
	t.touchNeighbors(rec)
	return idx
}

// chooseChild routes a triangle box into the child that contains it, or the one whose surface area grows least.
func (t *Tree) chooseChild(n *node, box spatialmath.AABB) nodeIndex {
	l, r := &t.nodes[n.left], &t.nodes[n.right]
	lc, rc := l.bounds.Contains(box), r.bounds.Contains(box)
	switch {
	case lc && rc:
		if r.bounds.SurfaceArea() < l.bounds.SurfaceArea() {
			return n.right
		}
		return n.left
	case lc:
		return n.left
	case rc:
		return n.right
	}
	growL := l.bounds.Union(box).SurfaceArea() - l.bounds.SurfaceArea()
	growR := r.bounds.Union(box).SurfaceArea() - r.bounds.SurfaceArea()
	if growR < growL || (growR == growL && r.triCount < l.triCount) {
		return n.right
	}
	return n.left
}

// touchNeighbors flags every node storing a triangle that shares a vertex with rec; their unique/other vertex sets
// depend on rec's owners.
func (t *Tree) touchNeighbors(rec *triRecord) {
	for _, v := range rec.Verts {
		vr := t.verts.get(v)
		if vr == nil {
			continue
		}
		for _, u := range vr.tris {
			for _, owner := range t.tris.recs[u].owners {
				t.markDirty(nodeIndex(owner), flagUpdateVertIndex)
			}
		}
	}
}

// RemoveTriangle unlinks a triangle from every node that owns it and releases its id. Removing an unknown id logs
// a warning and returns an error wrapping ErrUnknownTriangle; the tree is left unchanged.
func (t *Tree) RemoveTriangle(id TriangleID) error {
	if err := t.checkAlive(); err != nil {
		return err
	}
	rec := t.usable(id)
	if rec == nil {
		t.logger.Warnw("cannot remove unknown triangle", "triangle", id)
		return newUnknownTriangleError(id)
	}
	rec.invalid = true
	t.touchNeighbors(rec)
	for len(rec.owners) > 0 {
		owner := nodeIndex(rec.owners[0])
		t.removeFromNode(owner, rec)
		t.markDirty(owner, flagUpdateBounds|flagUpdateVertIndex|flagUpdateTriCount)
	}
	t.unregisterTriangle(rec)
	return nil
}

// MoveVertex changes the cached position of a vertex. Owning nodes grow to keep containing the triangles; they are
// tightened by the next Update.
func (t *Tree) MoveVertex(id VertexID, pos r3.Vector) error {
	if err := t.checkAlive(); err != nil {
		return err
	}
	vr, err := t.moveVertex(id, pos)
	if err != nil {
		return err
	}
	for _, u := range vr.tris {
		rec := &t.tris.recs[u]
		box := t.triBounds(rec)
		for _, owner := range rec.owners {
			t.growPath(nodeIndex(owner), box)
			t.markDirty(nodeIndex(owner), flagUpdateBounds|flagUpdateNormals)
		}
	}
	return nil
}

// growPath widens a node and its ancestors to contain box.
func (t *Tree) growPath(idx nodeIndex, box spatialmath.AABB) {
	if !finiteBox(box) {
		return
	}
	for idx != noNode {
		n := &t.nodes[idx]
		if n.bounds.Contains(box) {
			return
		}
		n.setBounds(n.bounds.Union(box))
		idx = n.parent
	}
}

// OnTriangleCreated implements MeshListener.
func (t *Tree) OnTriangleCreated(id TriangleID, verts [3]VertexID, face FaceHandle) error {
	_, err := t.AddTriangle(id, verts, face)
	return err
}

// OnTriangleRemoved implements MeshListener.
func (t *Tree) OnTriangleRemoved(id TriangleID) error {
	return t.RemoveTriangle(id)
}

// OnVertexMoved implements MeshListener. Vertices no triangle uses yet are not cached and are ignored.
func (t *Tree) OnVertexMoved(id VertexID, pos r3.Vector) error {
	if err := t.MoveVertex(id, pos); err != nil && !errors.Is(err, ErrUnknownVertex) {
		return err
	}
	return nil
}

// OnFullRebuildRequired implements MeshListener.
func (t *Tree) OnFullRebuildRequired() error {
	return t.FullRebuild()
}

// Destroy releases the tree. Every later call returns ErrDestroyed.
func (t *Tree) Destroy() {
	t.destroyed = true
	t.nodes = nil
	t.freeNodes = nil
	t.workSet = nil
	t.root = noNode
	t.tris = triRegistry{}
	t.verts = vertRegistry{}
}

// walk implements partition with a depth first traversal.
func (t *Tree) walk(query spatialmath.AABB, prune func(spatialmath.AABB) bool, visit func([]TriangleID) bool) {
	if t.root == noNode {
		return
	}
	stack := make([]nodeIndex, 0, 2*t.opts.DepthLimit)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[idx]
		if n.bounds.IsEmpty() || !n.bounds.Overlaps(query) || !prune(n.bounds) {
			continue
		}
		if n.tris.len() > 0 && !visit(n.tris.ids) {
			return
		}
		if !n.isLeaf() {
			stack = append(stack, n.right, n.left)
		}
	}
}

func finiteBox(b spatialmath.AABB) bool {
	return spatialmath.VectorIsFinite(b.Min) && spatialmath.VectorIsFinite(b.Max)
}
