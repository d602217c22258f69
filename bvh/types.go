package bvh

import (
	"github.com/golang/geo/r3"
)

// TriangleID is a stable triangle identifier. Ids are chosen by the caller or drawn from NewTriangleID and are
// recycled after removal. Negative ids are invalid.
type TriangleID int

// VertexID identifies a vertex of the external mesh.
type VertexID int

// FaceHandle identifies the mesh face a triangle was tessellated from.
type FaceHandle int

// GeometrySource is the read side of the mesh that owns the vertices and triangles. The index only caches the
// vertex positions it needs.
type GeometrySource interface {
	// VertexPosition returns the current position of a vertex and whether it exists.
	VertexPosition(id VertexID) (r3.Vector, bool)
	// EachTriangle calls fn for every triangle until fn returns false.
	EachTriangle(fn func(id TriangleID, verts [3]VertexID, face FaceHandle) bool)
}

// MeshListener receives the mutation events of the mesh topology layer.
type MeshListener interface {
	OnTriangleCreated(id TriangleID, verts [3]VertexID, face FaceHandle) error
	OnTriangleRemoved(id TriangleID) error
	OnVertexMoved(id VertexID, pos r3.Vector) error
	// OnFullRebuildRequired is sent when topology changed beyond incremental tracking.
	OnFullRebuildRequired() error
}

// Triangle is the public view of a registered triangle.
type Triangle struct {
	ID         TriangleID
	Verts      [3]VertexID
	Face       FaceHandle
	Normal     r3.Vector
	Area       float64
	Degenerate bool
}
