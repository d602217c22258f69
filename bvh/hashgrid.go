package bvh

import (
	"math"
	"slices"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/meshbvh/logging"
	"go.viam.com/meshbvh/spatialmath"
	"go.viam.com/meshbvh/utils"
)

const (
	initialSlots = 16
	maxLoad      = 0.7
	// triangles spanning more cells than this are kept out of the table and tested by every query.
	maxCellsPerTriangle = 1 << 16
)

// cellKey is the quantized coordinate of a grid cell.
type cellKey struct {
	I, J, K int64
}

type bucket struct {
	key  cellKey
	box  spatialmath.AABB
	tris triSet
}

// HashGrid is a uniform grid over the mesh, stored as an open addressing hash table of the occupied cells. It
// answers the same queries as Tree. A triangle is stored in every cell its geometry overlaps.
//
// Like Tree, a HashGrid is not safe for concurrent use and moved vertices are only re-bucketed by Update.
type HashGrid struct {
	core

	cellSize float64
	// slots hold bucket index+1; zero is a free slot.
	slots   []int32
	buckets []bucket
	live    int

	bounds      spatialmath.AABB
	boundsDirty bool
	// pending triangles moved since the last Update.
	pending triSet
	// stray triangles are non finite or too large to bucket.
	stray triSet
}

// NewHashGrid builds a grid over every triangle of source.
func NewHashGrid(source GeometrySource, opts Options, logger logging.Logger) (*HashGrid, error) {
	c, err := newCore(source, opts, logger.Sublogger("hashgrid"))
	if err != nil {
		return nil, err
	}
	g := &HashGrid{
		core:    c,
		slots:   make([]int32, initialSlots),
		bounds:  spatialmath.EmptyAABB(),
		pending: newTriSet(),
		stray:   newTriSet(),
	}
	g.part = g

	var errs []error
	var recs []TriangleID
	source.EachTriangle(func(id TriangleID, verts [3]VertexID, face FaceHandle) bool {
		rec, err := g.registerTriangle(id, verts, face)
		if err != nil {
			errs = append(errs, err)
			return true
		}
		if box := g.triBounds(rec); finiteBox(box) {
			g.bounds = g.bounds.Union(box)
		}
		recs = append(recs, id)
		return true
	})
	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	g.cellSize = g.deriveCellSize(len(recs))
	for _, id := range recs {
		g.place(&g.tris.recs[id])
	}
	g.logger.Debugw("built spatial hash", "triangles", len(recs), "cell_size", g.cellSize, "buckets", g.live)
	return g, nil
}

// deriveCellSize picks the configured cell size, or one giving about HashTrianglesPerCell triangles per cell over
// the bounds: cube root of the volume per cell, square root of the area per cell for flat data, length per cell
// for data on a line.
func (g *HashGrid) deriveCellSize(count int) float64 {
	if g.opts.HashCellSize > 0 {
		return g.opts.HashCellSize
	}
	if count == 0 || g.bounds.IsEmpty() {
		return 1
	}
	perCell := g.opts.HashTrianglesPerCell
	if perCell <= 0 {
		perCell = defaultTrianglesPerBucket
	}
	cells := math.Max(1, float64(count)/float64(perCell))
	size := g.bounds.Size()
	extents := []float64{size.X, size.Y, size.Z}
	slices.Sort(extents)
	const eps = 1e-9
	switch {
	case extents[0] > eps:
		return utils.CubeRoot(extents[0] * extents[1] * extents[2] / cells)
	case extents[1] > eps:
		return math.Sqrt(extents[1] * extents[2] / cells)
	case extents[2] > eps:
		return extents[2] / cells
	}
	return 1
}

// CellSize returns the edge length of the grid cells.
func (g *HashGrid) CellSize() float64 {
	return g.cellSize
}

// Bounds returns a box around all triangles. Between updates it may be larger than the triangles.
func (g *HashGrid) Bounds() spatialmath.AABB {
	return g.bounds
}

func (g *HashGrid) cellOf(p r3.Vector) cellKey {
	return cellKey{
		I: int64(math.Floor(p.X / g.cellSize)),
		J: int64(math.Floor(p.Y / g.cellSize)),
		K: int64(math.Floor(p.Z / g.cellSize)),
	}
}

func (g *HashGrid) cellBox(k cellKey) spatialmath.AABB {
	cs := g.cellSize
	lo := r3.Vector{X: float64(k.I) * cs, Y: float64(k.J) * cs, Z: float64(k.K) * cs}
	return spatialmath.AABB{Min: lo, Max: lo.Add(r3.Vector{X: cs, Y: cs, Z: cs})}
}

// hashKey mixes the cell coordinate with 64 bit FNV-1a.
func hashKey(k cellKey) uint64 {
	h := uint64(14695981039346656037)
	for _, c := range [3]int64{k.I, k.J, k.K} {
		u := uint64(c)
		for i := 0; i < 8; i++ {
			h ^= u & 0xff
			h *= 1099511628211
			u >>= 8
		}
	}
	return h
}

// lookup returns the bucket of a cell, or -1.
func (g *HashGrid) lookup(k cellKey) int {
	mask := uint64(len(g.slots) - 1)
	for i := hashKey(k) & mask; ; i = (i + 1) & mask {
		s := g.slots[i]
		if s == 0 {
			return -1
		}
		if g.buckets[s-1].key == k {
			return int(s - 1)
		}
	}
}

func (g *HashGrid) insertSlot(k cellKey, b int) {
	mask := uint64(len(g.slots) - 1)
	i := hashKey(k) & mask
	for g.slots[i] != 0 {
		i = (i + 1) & mask
	}
	g.slots[i] = int32(b + 1)
}

// bucketFor returns the bucket of a cell, creating it and growing the table as needed.
func (g *HashGrid) bucketFor(k cellKey) int {
	if b := g.lookup(k); b >= 0 {
		return b
	}
	if float64(len(g.buckets)+1) > maxLoad*float64(len(g.slots)) {
		g.rehash()
	}
	g.buckets = append(g.buckets, bucket{key: k, box: g.cellBox(k), tris: newTriSet()})
	b := len(g.buckets) - 1
	g.insertSlot(k, b)
	g.live++
	return b
}

// rehash drops empty buckets and doubles the table until the load is below maxLoad again. Bucket indices change,
// so every triangle's owners are rebuilt.
func (g *HashGrid) rehash() {
	kept := g.buckets[:0:0]
	for _, b := range g.buckets {
		if b.tris.len() > 0 {
			kept = append(kept, b)
		}
	}
	size := len(g.slots)
	for float64(len(kept)+1) > maxLoad*float64(size) {
		size *= 2
	}
	g.logger.Debugw("rehashing spatial hash", "slots", size, "buckets", len(kept), "dropped", len(g.buckets)-len(kept))
	g.buckets = kept
	g.live = len(kept)
	g.slots = make([]int32, size)
	for i, b := range g.buckets {
		g.insertSlot(b.key, i)
		for _, id := range b.tris.ids {
			g.tris.recs[id].owners = g.tris.recs[id].owners[:0]
		}
	}
	for i, b := range g.buckets {
		for _, id := range b.tris.ids {
			g.tris.recs[id].addOwner(int32(i))
		}
	}
}

// place stores a triangle in every cell its geometry overlaps.
func (g *HashGrid) place(rec *triRecord) {
	box := g.triBounds(rec)
	if !finiteBox(box) {
		g.logger.Warnw("triangle has non finite coordinates, testing it with every query", "triangle", rec.ID)
		g.stray.add(rec.ID)
		return
	}
	g.bounds = g.bounds.Union(box)
	lo, hi := g.cellOf(box.Min), g.cellOf(box.Max)
	span := float64(hi.I-lo.I+1) * float64(hi.J-lo.J+1) * float64(hi.K-lo.K+1)
	if span > maxCellsPerTriangle {
		g.logger.Warnw("triangle spans too many cells, testing it with every query", "triangle", rec.ID, "cells", span)
		g.stray.add(rec.ID)
		return
	}
	a, b, c := g.triPoints(rec)
	for i := lo.I; i <= hi.I; i++ {
		for j := lo.J; j <= hi.J; j++ {
			for k := lo.K; k <= hi.K; k++ {
				key := cellKey{i, j, k}
				if span > 1 && !spatialmath.TriangleAABBOverlap(a, b, c, g.cellBox(key)) {
					continue
				}
				g.addToBucket(g.bucketFor(key), rec)
			}
		}
	}
	if len(rec.owners) == 0 {
		// rounding can make a sliver miss every cell of its box; keep it with its first corner
		g.addToBucket(g.bucketFor(g.cellOf(a)), rec)
	}
}

func (g *HashGrid) addToBucket(b int, rec *triRecord) {
	if g.buckets[b].tris.add(rec.ID) {
		rec.addOwner(int32(b))
	}
}

func (g *HashGrid) unplace(rec *triRecord) {
	for _, o := range rec.owners {
		g.buckets[o].tris.remove(rec.ID)
	}
	rec.owners = rec.owners[:0]
	g.stray.remove(rec.ID)
}

// AddTriangle registers a triangle and stores it in the cells it overlaps.
func (g *HashGrid) AddTriangle(id TriangleID, verts [3]VertexID, face FaceHandle) (Triangle, error) {
	if err := g.checkAlive(); err != nil {
		return Triangle{}, err
	}
	rec, err := g.registerTriangle(id, verts, face)
	if err != nil {
		return Triangle{}, err
	}
	g.place(rec)
	return rec.Triangle, nil
}

// RemoveTriangle unlinks a triangle from its cells and releases its id. Removing an unknown id logs a warning and
// returns an error wrapping ErrUnknownTriangle.
func (g *HashGrid) RemoveTriangle(id TriangleID) error {
	if err := g.checkAlive(); err != nil {
		return err
	}
	rec := g.usable(id)
	if rec == nil {
		g.logger.Warnw("cannot remove unknown triangle", "triangle", id)
		return newUnknownTriangleError(id)
	}
	rec.invalid = true
	g.unplace(rec)
	g.pending.remove(id)
	g.unregisterTriangle(rec)
	g.boundsDirty = true
	return nil
}

// MoveVertex changes the cached position of a vertex. Its triangles are re-bucketed by the next Update.
func (g *HashGrid) MoveVertex(id VertexID, pos r3.Vector) error {
	if err := g.checkAlive(); err != nil {
		return err
	}
	vr, err := g.moveVertex(id, pos)
	if err != nil {
		return err
	}
	for _, u := range vr.tris {
		g.pending.add(u)
		if box := g.triBounds(&g.tris.recs[u]); finiteBox(box) {
			g.bounds = g.bounds.Union(box)
		}
	}
	g.boundsDirty = true
	return nil
}

// Update re-buckets the triangles of moved vertices and refreshes their normals.
func (g *HashGrid) Update() error {
	if err := g.checkAlive(); err != nil {
		return err
	}
	for _, id := range g.pending.ids {
		rec := g.usable(id)
		if rec == nil {
			continue
		}
		g.unplace(rec)
		g.refreshTriangle(rec)
		g.place(rec)
	}
	g.pending.clear()
	if g.boundsDirty {
		g.bounds = spatialmath.EmptyAABB()
		g.tris.each(func(rec *triRecord) bool {
			if box := g.triBounds(rec); finiteBox(box) {
				g.bounds = g.bounds.Union(box)
			}
			return true
		})
		g.boundsDirty = false
	}
	return nil
}

// FullRebuild resynchronizes the grid with its geometry source and re-buckets every triangle. The cell size is
// derived again unless it is configured.
func (g *HashGrid) FullRebuild() error {
	if err := g.checkAlive(); err != nil {
		return err
	}
	g.origGen++
	err := g.reconcile(func(id TriangleID, verts [3]VertexID, face FaceHandle) error {
		_, err := g.registerTriangle(id, verts, face)
		return err
	}, func(id TriangleID) error {
		rec := g.usable(id)
		if rec == nil {
			return newUnknownTriangleError(id)
		}
		rec.invalid = true
		g.unplace(rec)
		g.unregisterTriangle(rec)
		return nil
	})

	g.slots = make([]int32, initialSlots)
	g.buckets = nil
	g.live = 0
	g.stray.clear()
	g.pending.clear()
	g.bounds = spatialmath.EmptyAABB()
	g.tris.each(func(rec *triRecord) bool {
		rec.owners = rec.owners[:0]
		g.refreshTriangle(rec)
		if box := g.triBounds(rec); finiteBox(box) {
			g.bounds = g.bounds.Union(box)
		}
		return true
	})
	g.cellSize = g.deriveCellSize(g.NumTriangles())
	g.tris.each(func(rec *triRecord) bool {
		g.place(rec)
		return true
	})
	g.boundsDirty = false
	g.logger.Debugw("full rebuild", "generation", g.origGen, "triangles", g.NumTriangles(), "cell_size", g.cellSize)
	return err
}

// OnTriangleCreated implements MeshListener.
func (g *HashGrid) OnTriangleCreated(id TriangleID, verts [3]VertexID, face FaceHandle) error {
	_, err := g.AddTriangle(id, verts, face)
	return err
}

// OnTriangleRemoved implements MeshListener.
func (g *HashGrid) OnTriangleRemoved(id TriangleID) error {
	return g.RemoveTriangle(id)
}

// OnVertexMoved implements MeshListener. Vertices no triangle uses yet are ignored.
func (g *HashGrid) OnVertexMoved(id VertexID, pos r3.Vector) error {
	if err := g.MoveVertex(id, pos); err != nil && !errors.Is(err, ErrUnknownVertex) {
		return err
	}
	return nil
}

// OnFullRebuildRequired implements MeshListener.
func (g *HashGrid) OnFullRebuildRequired() error {
	return g.FullRebuild()
}

// Destroy releases the grid. Every later call returns ErrDestroyed.
func (g *HashGrid) Destroy() {
	g.destroyed = true
	g.slots = nil
	g.buckets = nil
	g.live = 0
	g.tris = triRegistry{}
	g.verts = vertRegistry{}
	g.pending = newTriSet()
	g.stray = newTriSet()
}

// cellRange returns the cells covering box, clamped to the cells covering the grid bounds.
func (g *HashGrid) cellRange(box spatialmath.AABB) (cellKey, cellKey, bool) {
	q := spatialmath.AABB{
		Min: spatialmath.MaxVector(box.Min, g.bounds.Min),
		Max: spatialmath.MinVector(box.Max, g.bounds.Max),
	}
	if q.IsEmpty() {
		return cellKey{}, cellKey{}, false
	}
	return g.cellOf(q.Min), g.cellOf(q.Max), true
}

// walk implements partition. Small queries look up the cells they cover; large ones scan the buckets.
func (g *HashGrid) walk(query spatialmath.AABB, prune func(spatialmath.AABB) bool, visit func([]TriangleID) bool) {
	if g.stray.len() > 0 && !visit(g.stray.ids) {
		return
	}
	lo, hi, ok := g.cellRange(query)
	if !ok {
		return
	}
	cells := float64(hi.I-lo.I+1) * float64(hi.J-lo.J+1) * float64(hi.K-lo.K+1)
	if cells <= float64(len(g.buckets)) {
		for i := lo.I; i <= hi.I; i++ {
			for j := lo.J; j <= hi.J; j++ {
				for k := lo.K; k <= hi.K; k++ {
					if b := g.lookup(cellKey{i, j, k}); b >= 0 && !g.visitBucket(b, prune, visit) {
						return
					}
				}
			}
		}
		return
	}
	for b := range g.buckets {
		if g.buckets[b].box.Overlaps(query) && !g.visitBucket(b, prune, visit) {
			return
		}
	}
}

// visitBucket reports whether the walk should go on.
func (g *HashGrid) visitBucket(b int, prune func(spatialmath.AABB) bool, visit func([]TriangleID) bool) bool {
	bk := &g.buckets[b]
	if bk.tris.len() == 0 || !prune(bk.box) {
		return true
	}
	return visit(bk.tris.ids)
}
