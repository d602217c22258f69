package bvh

import (
	"github.com/golang/geo/r3"

	"go.viam.com/meshbvh/spatialmath"
)

// triSet is an unordered set of triangle ids with O(1) add/remove and allocation free iteration.
type triSet struct {
	ids []TriangleID
	pos map[TriangleID]int
}

func newTriSet() triSet {
	return triSet{pos: map[TriangleID]int{}}
}

func (s *triSet) len() int {
	return len(s.ids)
}

func (s *triSet) has(id TriangleID) bool {
	_, ok := s.pos[id]
	return ok
}

func (s *triSet) add(id TriangleID) bool {
	if s.pos == nil {
		s.pos = map[TriangleID]int{}
	}
	if _, ok := s.pos[id]; ok {
		return false
	}
	s.pos[id] = len(s.ids)
	s.ids = append(s.ids, id)
	return true
}

func (s *triSet) remove(id TriangleID) bool {
	i, ok := s.pos[id]
	if !ok {
		return false
	}
	last := len(s.ids) - 1
	moved := s.ids[last]
	s.ids[i] = moved
	s.pos[moved] = i
	s.ids = s.ids[:last]
	delete(s.pos, id)
	return true
}

func (s *triSet) clear() {
	s.ids = s.ids[:0]
	clear(s.pos)
}

// triRecord is the registry entry of a triangle. owners holds the nodes (tree) or buckets (spatial hash) that
// store the triangle.
type triRecord struct {
	Triangle
	owners  []int32
	live    bool
	invalid bool
	// reserved is set on ids handed out by newID until they are registered.
	reserved bool
}

func (rec *triRecord) addOwner(owner int32) {
	for _, o := range rec.owners {
		if o == owner {
			return
		}
	}
	rec.owners = append(rec.owners, owner)
}

func (rec *triRecord) removeOwner(owner int32) {
	for i, o := range rec.owners {
		if o == owner {
			rec.owners[i] = rec.owners[len(rec.owners)-1]
			rec.owners = rec.owners[:len(rec.owners)-1]
			return
		}
	}
}

type triRegistry struct {
	recs  []triRecord
	free  []TriangleID
	count int
}

func (r *triRegistry) get(id TriangleID) *triRecord {
	if id < 0 || int(id) >= len(r.recs) || !r.recs[id].live {
		return nil
	}
	return &r.recs[id]
}

// newID draws a released id, or extends the slot array, and reserves it. Ids that were since registered
// explicitly are skipped.
func (r *triRegistry) newID() TriangleID {
	for len(r.free) > 0 {
		id := r.free[len(r.free)-1]
		r.free = r.free[:len(r.free)-1]
		if rec := &r.recs[id]; !rec.live && !rec.reserved {
			rec.reserved = true
			return id
		}
	}
	r.recs = append(r.recs, triRecord{reserved: true})
	return TriangleID(len(r.recs) - 1)
}

func (r *triRegistry) insert(id TriangleID, verts [3]VertexID, face FaceHandle) *triRecord {
	for int(id) >= len(r.recs) {
		r.recs = append(r.recs, triRecord{})
	}
	rec := &r.recs[id]
	*rec = triRecord{
		Triangle: Triangle{ID: id, Verts: verts, Face: face},
		owners:   rec.owners[:0],
		live:     true,
	}
	r.count++
	return rec
}

func (r *triRegistry) release(id TriangleID) {
	rec := &r.recs[id]
	rec.live = false
	rec.invalid = false
	rec.owners = rec.owners[:0]
	r.free = append(r.free, id)
	r.count--
}

// each calls fn for every live triangle in id order.
func (r *triRegistry) each(fn func(rec *triRecord) bool) {
	for i := range r.recs {
		if r.recs[i].live && !r.recs[i].invalid {
			if !fn(&r.recs[i]) {
				return
			}
		}
	}
}

type vertRecord struct {
	co      r3.Vector
	origCo  r3.Vector
	origGen uint64
	tris    []TriangleID
	live    bool
}

func (v *vertRecord) removeTri(id TriangleID) {
	for i, t := range v.tris {
		if t == id {
			v.tris[i] = v.tris[len(v.tris)-1]
			v.tris = v.tris[:len(v.tris)-1]
			return
		}
	}
}

// vertRegistry caches the vertices used by registered triangles.
type vertRegistry struct {
	recs  []vertRecord
	count int
}

func (r *vertRegistry) get(id VertexID) *vertRecord {
	if id < 0 || int(id) >= len(r.recs) || !r.recs[id].live {
		return nil
	}
	return &r.recs[id]
}

// acquire returns the cached vertex, loading its position from the source on first use.
func (r *vertRegistry) acquire(id VertexID, source GeometrySource, gen uint64) (*vertRecord, error) {
	if rec := r.get(id); rec != nil {
		return rec, nil
	}
	if id < 0 {
		return nil, newUnknownVertexError(id)
	}
	pos, ok := source.VertexPosition(id)
	if !ok {
		return nil, newUnknownVertexError(id)
	}
	for int(id) >= len(r.recs) {
		r.recs = append(r.recs, vertRecord{})
	}
	rec := &r.recs[id]
	*rec = vertRecord{co: pos, origCo: pos, origGen: gen, tris: rec.tris[:0], live: true}
	r.count++
	return rec, nil
}

// releaseIfUnused drops a vertex no registered triangle uses anymore.
func (r *vertRegistry) releaseIfUnused(id VertexID) {
	rec := r.get(id)
	if rec == nil || len(rec.tris) > 0 {
		return
	}
	rec.live = false
	r.count--
}

func (r *vertRegistry) position(id VertexID) r3.Vector {
	return r.recs[id].co
}

// triPoints returns the cached corner positions of a triangle.
func (c *core) triPoints(rec *triRecord) (r3.Vector, r3.Vector, r3.Vector) {
	return c.verts.position(rec.Verts[0]), c.verts.position(rec.Verts[1]), c.verts.position(rec.Verts[2])
}

func (c *core) triBounds(rec *triRecord) spatialmath.AABB {
	a, b, d := c.triPoints(rec)
	return spatialmath.AABBFromPoints(a, b, d)
}

// refreshTriangle recomputes the cached normal and area.
func (c *core) refreshTriangle(rec *triRecord) {
	a, b, d := c.triPoints(rec)
	rec.Area = spatialmath.TriangleArea(a, b, d)
	rec.Degenerate = rec.Area < spatialmath.DegenerateAreaEpsilon || !spatialmath.VectorIsFinite(a) ||
		!spatialmath.VectorIsFinite(b) || !spatialmath.VectorIsFinite(d)
	if rec.Degenerate {
		rec.Normal = r3.Vector{}
		return
	}
	rec.Normal = spatialmath.PlaneNormal(a, b, d)
}
