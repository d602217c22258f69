package bvh

import (
	"slices"

	"go.uber.org/multierr"
)

// Update brings every dirty node up to date: oversized leaves are split, subtrees that shrank are joined, and
// bounds, normals, vertex partitions and triangle counts are refreshed bottom up. Only nodes touched since the last
// Update are visited. With nothing dirty Update does nothing.
func (t *Tree) Update() error {
	if err := t.checkAlive(); err != nil {
		return err
	}
	if len(t.workSet) == 0 {
		return nil
	}
	for t.restructure() {
	}
	dirty := t.drainWorkSet()
	t.refreshNodes(dirty)
	t.refit(dirty)
	return nil
}

// restructure applies the joins and splits the work set calls for. It reports whether the tree changed; changes
// queue more nodes, so callers repeat until it returns false.
func (t *Tree) restructure() bool {
	pending := slices.Clone(t.workSet)
	changed := false

	var candidates []nodeIndex
	for _, idx := range pending {
		n := &t.nodes[idx]
		if n.live && n.parent != noNode {
			candidates = append(candidates, n.parent)
		}
	}
	for len(candidates) > 0 {
		slices.SortFunc(candidates, func(a, b nodeIndex) int {
			if d := t.nodes[b].depth - t.nodes[a].depth; d != 0 {
				return d
			}
			return int(a - b)
		})
		candidates = slices.Compact(candidates)
		var next []nodeIndex
		for _, idx := range candidates {
			if !t.nodes[idx].live {
				continue
			}
			if t.pruneEmpty(idx) || t.joinChildren(idx) {
				changed = true
				if p := t.nodes[idx].parent; p != noNode {
					next = append(next, p)
				}
			}
		}
		candidates = next
	}

	for _, idx := range pending {
		n := &t.nodes[idx]
		if n.live && n.isLeaf() && t.splitRecursive(idx) {
			changed = true
		}
	}
	return changed
}

// drainWorkSet empties the work set and returns the live nodes it held, each once.
func (t *Tree) drainWorkSet() []nodeIndex {
	dirty := make([]nodeIndex, 0, len(t.workSet))
	for _, idx := range t.workSet {
		n := &t.nodes[idx]
		if n.flags&flagInWorkSet == 0 {
			continue
		}
		n.flags &^= flagInWorkSet
		if n.live {
			dirty = append(dirty, idx)
		}
	}
	t.workSet = t.workSet[:0]
	return dirty
}

// refreshNodes recomputes what each dirty node's flags ask for from its own triangles.
func (t *Tree) refreshNodes(dirty []nodeIndex) {
	for _, idx := range dirty {
		n := &t.nodes[idx]
		if n.flags&flagUpdateNormals != 0 {
			for _, id := range n.tris.ids {
				t.refreshTriangle(&t.tris.recs[id])
			}
		}
		if !n.isLeaf() {
			continue
		}
		if n.flags&flagUpdateBounds != 0 {
			n.setBounds(t.contentBounds(n))
		}
		if n.flags&flagUpdateVertIndex != 0 {
			t.computeVertIndex(idx)
		}
	}
}

// computeVertIndex partitions a leaf's vertices: a vertex is unique when every triangle using it is owned by this
// leaf alone.
func (t *Tree) computeVertIndex(idx nodeIndex) {
	n := &t.nodes[idx]
	n.uniqueVerts = n.uniqueVerts[:0]
	n.otherVerts = n.otherVerts[:0]
	for v := range n.vertRefs {
		unique := true
		if vr := t.verts.get(v); vr != nil {
			for _, u := range vr.tris {
				rec := &t.tris.recs[u]
				if rec.invalid {
					continue
				}
				if len(rec.owners) != 1 || nodeIndex(rec.owners[0]) != idx {
					unique = false
					break
				}
			}
		}
		if unique {
			n.uniqueVerts = append(n.uniqueVerts, v)
		} else {
			n.otherVerts = append(n.otherVerts, v)
		}
	}
	slices.Sort(n.uniqueVerts)
	slices.Sort(n.otherVerts)
}

// refit recomputes bounds, triangle counts and subtree depths of the dirty nodes and all their ancestors, deepest
// first, and clears their flags.
func (t *Tree) refit(dirty []nodeIndex) {
	seen := map[nodeIndex]struct{}{}
	var order []nodeIndex
	for _, idx := range dirty {
		for cur := idx; cur != noNode; cur = t.nodes[cur].parent {
			if _, ok := seen[cur]; ok {
				break
			}
			seen[cur] = struct{}{}
			order = append(order, cur)
		}
	}
	slices.SortStableFunc(order, func(a, b nodeIndex) int {
		return t.nodes[b].depth - t.nodes[a].depth
	})
	for _, idx := range order {
		n := &t.nodes[idx]
		if n.isLeaf() {
			n.triCount = n.tris.len()
			n.subtreeDepth = 1
		} else {
			l, r := &t.nodes[n.left], &t.nodes[n.right]
			n.setBounds(l.bounds.Union(r.bounds).Union(t.contentBounds(n)))
			n.triCount = l.triCount + r.triCount + n.tris.len()
			n.subtreeDepth = 1 + max(l.subtreeDepth, r.subtreeDepth)
		}
		n.flags &^= flagUpdateAll
	}
}

// FullRebuild resynchronizes the index with its geometry source after a topology change the index could not
// follow incrementally. It invalidates every original vertex position, reloads positions, adds and removes
// triangles to match the source, and refreshes every node.
func (t *Tree) FullRebuild() error {
	if err := t.checkAlive(); err != nil {
		return err
	}
	t.origGen++
	t.building = true
	err := t.reconcile(func(id TriangleID, verts [3]VertexID, face FaceHandle) error {
		_, err := t.AddTriangle(id, verts, face)
		return err
	}, t.RemoveTriangle)
	t.building = false
	for i := range t.nodes {
		if t.nodes[i].live {
			t.markDirty(nodeIndex(i), flagUpdateAll)
		}
	}
	err = multierr.Combine(err, t.Update())
	t.captureOriginalBounds()
	t.logger.Debugw("full rebuild", "generation", t.origGen, "triangles", t.NumTriangles())
	return err
}

// captureOriginalBounds records the current bounds of every node as its original bounds.
func (t *Tree) captureOriginalBounds() {
	for i := range t.nodes {
		if n := &t.nodes[i]; n.live {
			n.origBounds = n.bounds
		}
	}
}

// reconcile reloads the cached vertex positions and makes the registered triangles match the source. Triangles
// whose vertices or face changed are removed and added again.
func (c *core) reconcile(add func(TriangleID, [3]VertexID, FaceHandle) error, remove func(TriangleID) error) error {
	for i := range c.verts.recs {
		vr := &c.verts.recs[i]
		if !vr.live {
			continue
		}
		if pos, ok := c.source.VertexPosition(VertexID(i)); ok {
			vr.co = pos
		}
	}

	var errs []error
	present := map[TriangleID]struct{}{}
	type triangleEvent struct {
		id    TriangleID
		verts [3]VertexID
		face  FaceHandle
	}
	var added []triangleEvent
	c.source.EachTriangle(func(id TriangleID, verts [3]VertexID, face FaceHandle) bool {
		present[id] = struct{}{}
		if rec := c.usable(id); rec != nil {
			if rec.Verts == verts && rec.Face == face {
				c.refreshTriangle(rec)
				return true
			}
			errs = append(errs, remove(id))
		}
		added = append(added, triangleEvent{id, verts, face})
		return true
	})

	var stale []TriangleID
	c.tris.each(func(rec *triRecord) bool {
		if _, ok := present[rec.ID]; !ok {
			stale = append(stale, rec.ID)
		}
		return true
	})
	for _, id := range stale {
		errs = append(errs, remove(id))
	}
	for _, ev := range added {
		errs = append(errs, add(ev.id, ev.verts, ev.face))
	}
	return multierr.Combine(errs...)
}
