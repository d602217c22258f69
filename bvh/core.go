package bvh

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/meshbvh/logging"
	"go.viam.com/meshbvh/spatialmath"
)

// partition is the spatial subdivision a query walks. The tree walks its nodes, the spatial hash its buckets.
type partition interface {
	// walk calls visit with the triangles of every cell whose box passes prune. query is a conservative box around
	// everything the caller can accept; it may be infinite. Iteration stops when visit returns false.
	walk(query spatialmath.AABB, prune func(box spatialmath.AABB) bool, visit func(ids []TriangleID) bool)
}

// core is the state both index variants share: the registries, the result pool and the query algorithms that only
// need a partition to walk.
type core struct {
	logger logging.Logger
	opts   Options
	source GeometrySource

	tris  triRegistry
	verts vertRegistry
	pool  *resultPool
	part  partition

	// origGen is bumped by every full rebuild; vertex original positions stamped with an older generation are
	// stale.
	origGen   uint64
	destroyed bool
}

func newCore(source GeometrySource, opts Options, logger logging.Logger) (core, error) {
	if source == nil {
		return core{}, errors.New("geometry source cannot be nil")
	}
	if err := opts.Validate(); err != nil {
		return core{}, err
	}
	return core{
		logger:  logger,
		opts:    opts,
		source:  source,
		pool:    newResultPool(opts.ResultPoolSize),
		origGen: 1,
	}, nil
}

func (c *core) checkAlive() error {
	if c.destroyed {
		return ErrDestroyed
	}
	return nil
}

// NewTriangleID returns an unused triangle id, reusing released ids first. The id stays reserved, and is not
// returned again, until it has been added and removed.
func (c *core) NewTriangleID() TriangleID {
	return c.tris.newID()
}

// NumTriangles returns the number of registered triangles.
func (c *core) NumTriangles() int {
	return c.tris.count
}

// NumVertices returns the number of cached vertices.
func (c *core) NumVertices() int {
	return c.verts.count
}

// Triangle returns the registered triangle with the given id.
func (c *core) Triangle(id TriangleID) (Triangle, bool) {
	rec := c.usable(id)
	if rec == nil {
		return Triangle{}, false
	}
	return rec.Triangle, true
}

// VertexPosition returns the cached position of a vertex used by a registered triangle.
func (c *core) VertexPosition(id VertexID) (r3.Vector, bool) {
	rec := c.verts.get(id)
	if rec == nil {
		return r3.Vector{}, false
	}
	return rec.co, true
}

// OriginalPosition returns where a vertex was at the last full rebuild. Outside deform mode this is the current
// position.
func (c *core) OriginalPosition(id VertexID) (r3.Vector, error) {
	if err := c.checkAlive(); err != nil {
		return r3.Vector{}, err
	}
	rec := c.verts.get(id)
	if rec == nil {
		return r3.Vector{}, newUnknownVertexError(id)
	}
	if !c.opts.DeformMode || rec.origGen != c.origGen {
		return rec.co, nil
	}
	return rec.origCo, nil
}

// usable returns the record of a live triangle that is not being removed.
func (c *core) usable(id TriangleID) *triRecord {
	rec := c.tris.get(id)
	if rec == nil || rec.invalid {
		return nil
	}
	return rec
}

// registerTriangle creates the registry record and links the vertices. Placing the triangle is up to the variant.
func (c *core) registerTriangle(id TriangleID, verts [3]VertexID, face FaceHandle) (*triRecord, error) {
	if id < 0 {
		return nil, errors.Wrapf(ErrInvalidTriangleID, "triangle %d", id)
	}
	if c.tris.get(id) != nil {
		return nil, newDuplicateTriangleError(id)
	}
	for i, v := range verts {
		if _, err := c.verts.acquire(v, c.source, c.origGen); err != nil {
			for _, prev := range verts[:i] {
				c.verts.releaseIfUnused(prev)
			}
			return nil, errors.Wrapf(err, "cannot add triangle %d", id)
		}
	}
	rec := c.tris.insert(id, verts, face)
	for i, v := range verts {
		if i > 0 && (v == verts[0] || (i == 2 && v == verts[1])) {
			continue
		}
		vr := c.verts.get(v)
		vr.tris = append(vr.tris, id)
	}
	c.refreshTriangle(rec)
	return rec, nil
}

// unregisterTriangle unlinks the vertices and releases the id. The caller has already unlinked the owners.
func (c *core) unregisterTriangle(rec *triRecord) {
	id := rec.ID
	for _, v := range rec.Verts {
		if vr := c.verts.get(v); vr != nil {
			vr.removeTri(id)
			c.verts.releaseIfUnused(v)
		}
	}
	c.tris.release(id)
}

// moveVertex updates the cached position. In deform mode the first move after a full rebuild records the
// original position.
func (c *core) moveVertex(id VertexID, pos r3.Vector) (*vertRecord, error) {
	rec := c.verts.get(id)
	if rec == nil {
		return nil, newUnknownVertexError(id)
	}
	if c.opts.DeformMode && rec.origGen != c.origGen {
		rec.origCo = rec.co
		rec.origGen = c.origGen
	}
	rec.co = pos
	return rec, nil
}

// triTest is the leaf level accept test of a region query.
type triTest func(rec *triRecord) bool

// eachTriangleIn walks the partition and calls accept once for every usable triangle in a cell that passes prune.
func (c *core) eachTriangleIn(query spatialmath.AABB, prune func(spatialmath.AABB) bool, accept triTest) {
	seen := &c.pool.triSeen
	seen.reset(len(c.tris.recs))
	c.part.walk(query, prune, func(ids []TriangleID) bool {
		for _, id := range ids {
			rec := c.usable(id)
			if rec == nil || !seen.visit(int(id)) {
				continue
			}
			if !accept(rec) {
				return false
			}
		}
		return true
	})
}

// eachVertexIn calls accept once for every vertex of the triangles in cells passing prune.
func (c *core) eachVertexIn(query spatialmath.AABB, prune func(spatialmath.AABB) bool, accept func(v VertexID, co r3.Vector)) {
	vseen := &c.pool.vertSeen
	vseen.reset(len(c.verts.recs))
	c.eachTriangleIn(query, prune, func(rec *triRecord) bool {
		for _, v := range rec.Verts {
			if vseen.visit(int(v)) {
				accept(v, c.verts.position(v))
			}
		}
		return true
	})
}
