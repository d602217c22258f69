// Package bvh implements spatial indexes over the triangles of a mutable mesh: a dynamic bounding volume
// hierarchy (Tree) and a uniform spatial hash (HashGrid). Both follow mesh edits incrementally through
// MeshListener events and answer ray casts, closest point and region queries.
//
// Indexes cache only the vertex positions they need and read everything else from a GeometrySource. They are not
// safe for concurrent use. Query results are drawn from a fixed size pool and stay valid until the pool wraps;
// Clone a result to keep it.
package bvh

import (
	"github.com/golang/geo/r3"

	"go.viam.com/meshbvh/logging"
	"go.viam.com/meshbvh/spatialmath"
)

// Index is the query and mutation surface shared by Tree and HashGrid.
type Index interface {
	MeshListener

	NewTriangleID() TriangleID
	AddTriangle(id TriangleID, verts [3]VertexID, face FaceHandle) (Triangle, error)
	RemoveTriangle(id TriangleID) error
	MoveVertex(id VertexID, pos r3.Vector) error
	Update() error
	FullRebuild() error

	Triangle(id TriangleID) (Triangle, bool)
	NumTriangles() int
	NumVertices() int
	VertexPosition(id VertexID) (r3.Vector, bool)
	OriginalPosition(id VertexID) (r3.Vector, error)
	Bounds() spatialmath.AABB

	CastRay(origin, dir r3.Vector) (*RayHit, error)
	ClosestPoint(p r3.Vector) (*ClosestHit, error)
	ClosestVerts(center r3.Vector, radius float64) (*VertexResult, error)
	ClosestTris(center r3.Vector, radius float64) (*TriangleResult, error)
	VertsInCone(cone spatialmath.Cone) (*VertexResult, error)
	FacesInCone(cone spatialmath.Cone, visibleOnly bool) (*TriangleResult, error)
	VertsInTube(start, end r3.Vector, radius float64) (*VertexResult, error)
	VertsInSquare(sq spatialmath.Square) (*VertexResult, error)
	NearestVertsN(p r3.Vector, n int, maxDist float64) (*VertexResult, error)

	Stats() Stats
	Validate() error
	LeafBoxes() []spatialmath.AABB
	Destroy()
}

var (
	_ Index = (*Tree)(nil)
	_ Index = (*HashGrid)(nil)
)

// New builds the index variant selected by opts.UseSpatialHash.
func New(source GeometrySource, opts Options, logger logging.Logger) (Index, error) {
	if opts.UseSpatialHash {
		grid, err := NewHashGrid(source, opts, logger)
		if err != nil {
			return nil, err
		}
		return grid, nil
	}
	tree, err := NewTree(source, opts, logger)
	if err != nil {
		return nil, err
	}
	return tree, nil
}
