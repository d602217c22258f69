package mesh

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/meshbvh/bvh"
	"go.viam.com/meshbvh/logging"
	"go.viam.com/meshbvh/utils"
)

// NewGrid builds a flat nx by ny grid of square quads with the given spacing in the z=0 plane. Vertex (i, j) has
// id j*(nx+1)+i and quad (i, j) is face j*nx+i, so its triangles are 2*(j*nx+i) and 2*(j*nx+i)+1.
func NewGrid(nx, ny int, spacing float64, logger logging.Logger) (*Mesh, error) {
	if nx <= 0 || ny <= 0 {
		return nil, errors.Errorf("grid needs a positive size, got %dx%d", nx, ny)
	}
	if spacing <= 0 || !utils.IsFinite(spacing) {
		return nil, errors.Errorf("grid spacing must be positive, got %f", spacing)
	}
	m := New(logger)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			m.AddVertex(r3.Vector{X: float64(i) * spacing, Y: float64(j) * spacing})
		}
	}
	vid := func(i, j int) bvh.VertexID { return bvh.VertexID(j*(nx+1) + i) }
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			if _, err := m.AddFace(vid(i, j), vid(i+1, j), vid(i+1, j+1), vid(i, j+1)); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// NewCube builds an axis aligned cube with one corner at the origin. Its six quad faces point outward.
func NewCube(size float64, logger logging.Logger) (*Mesh, error) {
	if size <= 0 {
		return nil, errors.Errorf("cube size must be positive, got %f", size)
	}
	m := New(logger)
	for i := 0; i < 8; i++ {
		m.AddVertex(r3.Vector{X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1)}.Mul(size))
	}
	quads := [][4]bvh.VertexID{
		{0, 2, 3, 1}, // -Z
		{4, 5, 7, 6}, // +Z
		{0, 1, 5, 4}, // -Y
		{2, 6, 7, 3}, // +Y
		{0, 4, 6, 2}, // -X
		{1, 3, 7, 5}, // +X
	}
	for _, q := range quads {
		if _, err := m.AddFace(q[:]...); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewUVSphere builds a sphere around the origin from rings of quads, closed with triangle fans at the poles.
func NewUVSphere(radius float64, rings, segments int, logger logging.Logger) (*Mesh, error) {
	if radius <= 0 {
		return nil, errors.Errorf("sphere radius must be positive, got %f", radius)
	}
	if rings < 2 || segments < 3 {
		return nil, errors.Errorf("sphere needs at least 2 rings and 3 segments, got %d and %d", rings, segments)
	}
	m := New(logger)
	south := m.AddVertex(r3.Vector{Z: -radius})
	for r := 1; r < rings; r++ {
		theta := math.Pi * float64(r) / float64(rings)
		for s := 0; s < segments; s++ {
			phi := 2 * math.Pi * float64(s) / float64(segments)
			m.AddVertex(r3.Vector{
				X: radius * math.Sin(theta) * math.Cos(phi),
				Y: radius * math.Sin(theta) * math.Sin(phi),
				Z: -radius * math.Cos(theta),
			})
		}
	}
	north := m.AddVertex(r3.Vector{Z: radius})

	ring := func(r, s int) bvh.VertexID { return bvh.VertexID(1 + (r-1)*segments + s%segments) }
	for s := 0; s < segments; s++ {
		if _, err := m.AddFace(south, ring(1, s+1), ring(1, s)); err != nil {
			return nil, err
		}
		if _, err := m.AddFace(north, ring(rings-1, s), ring(rings-1, s+1)); err != nil {
			return nil, err
		}
	}
	for r := 1; r+1 < rings; r++ {
		for s := 0; s < segments; s++ {
			if _, err := m.AddFace(ring(r, s), ring(r, s+1), ring(r+1, s+1), ring(r+1, s)); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}
