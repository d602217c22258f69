package bvh

import (
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/meshbvh/spatialmath"
)

const containmentTolerance = 1e-9

// Validate checks the structural invariants of the tree: ownership is linked both ways, parent and child links
// agree, every registered triangle is owned by a node reachable from the root, and the bounds of every clean node
// contain its triangles and children. It returns every violation found.
func (t *Tree) Validate() error {
	if err := t.checkAlive(); err != nil {
		return err
	}
	var errs []error
	for i := range t.nodes {
		idx := nodeIndex(i)
		n := &t.nodes[i]
		if !n.live {
			continue
		}
		clean := n.flags&flagUpdateAll == 0
		if !n.isLeaf() {
			if n.tris.len() > 0 && !t.opts.DeformMode {
				errs = append(errs, errors.Errorf("interior node %d holds %d triangles", idx, n.tris.len()))
			}
			for _, child := range []nodeIndex{n.left, n.right} {
				c := &t.nodes[child]
				if !c.live || c.parent != idx {
					errs = append(errs, errors.Errorf("node %d has a broken link to child %d", idx, child))
					continue
				}
				if clean && !c.bounds.IsEmpty() && !containsWithin(n.bounds, c.bounds) {
					errs = append(errs, errors.Errorf("node %d does not contain child %d", idx, child))
				}
			}
		}
		for _, id := range n.tris.ids {
			rec := t.tris.get(id)
			if rec == nil {
				errs = append(errs, errors.Errorf("node %d holds released triangle %d", idx, id))
				continue
			}
			if !slices.Contains(rec.owners, int32(idx)) {
				errs = append(errs, errors.Errorf("triangle %d does not list owner %d", id, idx))
			}
			if tb := t.triBounds(rec); clean && finiteBox(tb) && !containsWithin(n.bounds, tb) {
				errs = append(errs, errors.Errorf("node %d does not contain triangle %d", idx, id))
			}
		}
	}
	t.tris.each(func(rec *triRecord) bool {
		if len(rec.owners) == 0 {
			errs = append(errs, errors.Errorf("triangle %d has no owner", rec.ID))
		}
		for _, o := range rec.owners {
			if !t.reachable(nodeIndex(o)) {
				errs = append(errs, errors.Errorf("triangle %d is owned by unreachable node %d", rec.ID, o))
			} else if !t.nodes[o].tris.has(rec.ID) {
				errs = append(errs, errors.Errorf("node %d does not hold owned triangle %d", o, rec.ID))
			}
		}
		return true
	})
	return multierr.Combine(errs...)
}

func (t *Tree) reachable(idx nodeIndex) bool {
	for steps := 0; idx != noNode && steps <= len(t.nodes); steps++ {
		if !t.nodes[idx].live {
			return false
		}
		if idx == t.root {
			return true
		}
		idx = t.nodes[idx].parent
	}
	return false
}

func containsWithin(outer, inner spatialmath.AABB) bool {
	return outer.Grow(containmentTolerance).Contains(inner)
}

// Validate checks that buckets and triangle owners agree, that every registered triangle is bucketed or stray, and
// that every triangle not waiting for Update touches the cells it is stored in.
func (g *HashGrid) Validate() error {
	if err := g.checkAlive(); err != nil {
		return err
	}
	var errs []error
	for b := range g.buckets {
		for _, id := range g.buckets[b].tris.ids {
			rec := g.tris.get(id)
			if rec == nil {
				errs = append(errs, errors.Errorf("bucket %d holds released triangle %d", b, id))
				continue
			}
			if !slices.Contains(rec.owners, int32(b)) {
				errs = append(errs, errors.Errorf("triangle %d does not list bucket %d", id, b))
			}
			if !g.pending.has(id) && !g.buckets[b].box.Grow(containmentTolerance).Overlaps(g.triBounds(rec)) {
				errs = append(errs, errors.Errorf("triangle %d does not touch bucket %d", id, b))
			}
		}
	}
	g.tris.each(func(rec *triRecord) bool {
		if len(rec.owners) == 0 && !g.stray.has(rec.ID) {
			errs = append(errs, errors.Errorf("triangle %d is in no bucket", rec.ID))
		}
		return true
	})
	return multierr.Combine(errs...)
}
