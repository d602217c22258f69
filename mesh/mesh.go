// Package mesh is an indexed polygon mesh. It is the geometry source of a bvh index and forwards every edit to its
// listeners, so an index attached to a mesh stays in sync without rebuilding.
package mesh

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/meshbvh/bvh"
	"go.viam.com/meshbvh/logging"
	"go.viam.com/meshbvh/spatialmath"
)

type face struct {
	verts []bvh.VertexID
	tris  []bvh.TriangleID
	live  bool
}

type triangle struct {
	verts [3]bvh.VertexID
	face  bvh.FaceHandle
	live  bool
}

// Mesh stores vertices and polygonal faces. Faces are fan triangulated; the triangles get stable ids that are
// recycled after their face is removed.
//
// A Mesh is not safe for concurrent use.
type Mesh struct {
	logger logging.Logger

	verts     []r3.Vector
	faces     []face
	freeFaces []bvh.FaceHandle
	numFaces  int
	tris      []triangle
	freeTris  []bvh.TriangleID
	numTris   int

	listeners []bvh.MeshListener
}

var _ bvh.GeometrySource = (*Mesh)(nil)

// New returns an empty mesh.
func New(logger logging.Logger) *Mesh {
	return &Mesh{logger: logger}
}

// AddListener subscribes l to the edits of the mesh. Triangles that already exist are not replayed.
func (m *Mesh) AddListener(l bvh.MeshListener) {
	m.listeners = append(m.listeners, l)
}

// RemoveListener unsubscribes l.
func (m *Mesh) RemoveListener(l bvh.MeshListener) {
	m.listeners = lo.Without(m.listeners, l)
}

func (m *Mesh) notify(fn func(l bvh.MeshListener) error) error {
	var errs []error
	for _, l := range m.listeners {
		errs = append(errs, fn(l))
	}
	return multierr.Combine(errs...)
}

// AddVertex appends a vertex and returns its id. Vertices are never removed.
func (m *Mesh) AddVertex(p r3.Vector) bvh.VertexID {
	m.verts = append(m.verts, p)
	return bvh.VertexID(len(m.verts) - 1)
}

// VertexPosition implements bvh.GeometrySource.
func (m *Mesh) VertexPosition(id bvh.VertexID) (r3.Vector, bool) {
	if id < 0 || int(id) >= len(m.verts) {
		return r3.Vector{}, false
	}
	return m.verts[id], true
}

// EachTriangle implements bvh.GeometrySource. Triangles are visited in id order.
func (m *Mesh) EachTriangle(fn func(id bvh.TriangleID, verts [3]bvh.VertexID, face bvh.FaceHandle) bool) {
	for i, tri := range m.tris {
		if tri.live && !fn(bvh.TriangleID(i), tri.verts, tri.face) {
			return
		}
	}
}

// NumVertices returns the number of vertices.
func (m *Mesh) NumVertices() int {
	return len(m.verts)
}

// NumFaces returns the number of faces.
func (m *Mesh) NumFaces() int {
	return m.numFaces
}

// NumTriangles returns the number of triangles of all faces.
func (m *Mesh) NumTriangles() int {
	return m.numTris
}

// Face returns the vertices of a face.
func (m *Mesh) Face(f bvh.FaceHandle) ([]bvh.VertexID, bool) {
	if !m.faceLive(f) {
		return nil, false
	}
	return m.faces[f].verts, true
}

// FaceTriangles returns the ids of the triangles a face was split into.
func (m *Mesh) FaceTriangles(f bvh.FaceHandle) []bvh.TriangleID {
	if !m.faceLive(f) {
		return nil
	}
	return m.faces[f].tris
}

func (m *Mesh) faceLive(f bvh.FaceHandle) bool {
	return f >= 0 && int(f) < len(m.faces) && m.faces[f].live
}

// Bounds returns the box around every vertex.
func (m *Mesh) Bounds() spatialmath.AABB {
	return spatialmath.AABBFromPoints(m.verts...)
}

func (m *Mesh) newTriangleID() bvh.TriangleID {
	if n := len(m.freeTris); n > 0 {
		id := m.freeTris[n-1]
		m.freeTris = m.freeTris[:n-1]
		return id
	}
	m.tris = append(m.tris, triangle{})
	return bvh.TriangleID(len(m.tris) - 1)
}

func (m *Mesh) newFaceHandle() bvh.FaceHandle {
	if n := len(m.freeFaces); n > 0 {
		f := m.freeFaces[n-1]
		m.freeFaces = m.freeFaces[:n-1]
		return f
	}
	m.faces = append(m.faces, face{})
	return bvh.FaceHandle(len(m.faces) - 1)
}

// AddFace adds a polygon through the given vertices, split into a fan of triangles around the first vertex.
// Listeners are told about every new triangle; their errors are returned combined, after the face is added.
func (m *Mesh) AddFace(verts ...bvh.VertexID) (bvh.FaceHandle, error) {
	if len(verts) < 3 {
		return -1, errors.Errorf("a face needs at least 3 vertices, got %d", len(verts))
	}
	for _, v := range verts {
		if _, ok := m.VertexPosition(v); !ok {
			return -1, errors.Errorf("face uses unknown vertex %d", v)
		}
	}
	if len(lo.Uniq(verts)) != len(verts) {
		return -1, errors.Errorf("face repeats a vertex: %v", verts)
	}

	f := m.newFaceHandle()
	fc := face{verts: append([]bvh.VertexID(nil), verts...), live: true}
	for i := 1; i+1 < len(verts); i++ {
		id := m.newTriangleID()
		m.tris[id] = triangle{verts: [3]bvh.VertexID{verts[0], verts[i], verts[i+1]}, face: f, live: true}
		fc.tris = append(fc.tris, id)
	}
	m.faces[f] = fc
	m.numFaces++
	m.numTris += len(fc.tris)

	err := m.notify(func(l bvh.MeshListener) error {
		var errs []error
		for _, id := range fc.tris {
			errs = append(errs, l.OnTriangleCreated(id, m.tris[id].verts, f))
		}
		return multierr.Combine(errs...)
	})
	return f, err
}

// RemoveFace removes a face and its triangles and tells the listeners.
func (m *Mesh) RemoveFace(f bvh.FaceHandle) error {
	if !m.faceLive(f) {
		return errors.Errorf("unknown face %d", f)
	}
	fc := m.faces[f]
	for _, id := range fc.tris {
		m.tris[id] = triangle{}
		m.freeTris = append(m.freeTris, id)
	}
	m.faces[f] = face{}
	m.freeFaces = append(m.freeFaces, f)
	m.numFaces--
	m.numTris -= len(fc.tris)

	return m.notify(func(l bvh.MeshListener) error {
		var errs []error
		for _, id := range fc.tris {
			errs = append(errs, l.OnTriangleRemoved(id))
		}
		return multierr.Combine(errs...)
	})
}

// MoveVertex sets the position of a vertex and tells the listeners.
func (m *Mesh) MoveVertex(id bvh.VertexID, p r3.Vector) error {
	if _, ok := m.VertexPosition(id); !ok {
		return errors.Errorf("unknown vertex %d", id)
	}
	m.verts[id] = p
	return m.notify(func(l bvh.MeshListener) error {
		return l.OnVertexMoved(id, p)
	})
}

// Displace moves every listed vertex by offset.
func (m *Mesh) Displace(ids []bvh.VertexID, offset r3.Vector) error {
	var errs []error
	for _, id := range ids {
		p, ok := m.VertexPosition(id)
		if !ok {
			errs = append(errs, errors.Errorf("unknown vertex %d", id))
			continue
		}
		errs = append(errs, m.MoveVertex(id, p.Add(offset)))
	}
	return multierr.Combine(errs...)
}

// NotifyTopologyChanged tells the listeners to resynchronize from scratch. Use it after edits made without the
// methods above.
func (m *Mesh) NotifyTopologyChanged() error {
	m.logger.Debugw("topology changed", "faces", m.numFaces, "triangles", m.numTris)
	return m.notify(func(l bvh.MeshListener) error {
		return l.OnFullRebuildRequired()
	})
}

// SetVertexPositions replaces every vertex position without telling the listeners, then asks them to rebuild.
func (m *Mesh) SetVertexPositions(positions []r3.Vector) error {
	if len(positions) != len(m.verts) {
		return errors.Errorf("expected %d positions, got %d", len(m.verts), len(positions))
	}
	copy(m.verts, positions)
	return m.NotifyTopologyChanged()
}
