package mesh

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"go.viam.com/meshbvh/bvh"
	"go.viam.com/meshbvh/logging"
)

// ReadPLY reads a mesh from ASCII PLY data. Binary PLY is rejected. Every vertex needs x, y and z properties;
// faces are read from a vertex_indices (or vertex_index) list and may have any number of corners.
func ReadPLY(r io.Reader, logger logging.Logger) (m *Mesh, err error) {
	// goply panics on malformed input
	defer func() {
		if rec := recover(); rec != nil {
			m = nil
			err = errors.Errorf("could not parse PLY data: %v", rec)
		}
	}()

	ply := goply.New(r)
	vertices := ply.Elements("vertex")
	if len(vertices) == 0 {
		return nil, errors.New("PLY data has no vertices")
	}
	m = New(logger)
	for i, v := range vertices {
		var coords [3]float64
		for axis, name := range []string{"x", "y", "z"} {
			c, ok := toFloat(v[name])
			if !ok {
				return nil, errors.Errorf("vertex %d has no numeric %s property", i, name)
			}
			coords[axis] = c
		}
		m.AddVertex(r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]})
	}

	skipped := 0
	for i, f := range ply.Elements("face") {
		raw, ok := f["vertex_indices"]
		if !ok {
			raw = f["vertex_index"]
		}
		idx, ok := toIndices(raw)
		if !ok {
			return nil, errors.Errorf("face %d has no vertex index list", i)
		}
		if _, err := m.AddFace(idx...); err != nil {
			// degenerate polygons are common in scanned meshes
			logger.Debugw("skipping face", "face", i, "error", err)
			skipped++
		}
	}
	if skipped > 0 {
		logger.Warnw("skipped invalid PLY faces", "skipped", skipped, "faces", m.NumFaces())
	}
	return m, nil
}

// LoadPLY reads a mesh from a PLY file.
func LoadPLY(path string, logger logging.Logger) (*Mesh, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open mesh %q", path)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warnw("cannot close mesh file", "path", path, "error", err)
		}
	}()
	m, err := ReadPLY(f, logger.Sublogger(filepath.Base(path)))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read mesh %q", path)
	}
	return m, nil
}

// toFloat converts a scalar property. goply decodes each PLY scalar type to the matching Go type.
func toFloat(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	return f, err == nil
}

type plyIndex interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int | ~int64
}

func vertexIDs[T plyIndex](idx []T) []bvh.VertexID {
	return lo.Map(idx, func(i T, _ int) bvh.VertexID { return bvh.VertexID(i) })
}

func toIndices(v interface{}) ([]bvh.VertexID, bool) {
	switch x := v.(type) {
	case []int8:
		return vertexIDs(x), true
	case []uint8:
		return vertexIDs(x), true
	case []int16:
		return vertexIDs(x), true
	case []uint16:
		return vertexIDs(x), true
	case []int32:
		return vertexIDs(x), true
	case []uint32:
		return vertexIDs(x), true
	case []int:
		return vertexIDs(x), true
	case []int64:
		return vertexIDs(x), true
	case []interface{}:
		out := make([]bvh.VertexID, 0, len(x))
		for _, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out = append(out, bvh.VertexID(f))
		}
		return out, true
	default:
		return nil, false
	}
}

// WritePLY writes the mesh as ASCII PLY, the form ReadPLY accepts. Coordinates are written with the shortest
// representation that parses back to the same float64.
func (m *Mesh) WritePLY(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "ply\nformat ascii 1.0\nelement vertex %d\nproperty double x\n"+
		"property double y\nproperty double z\nelement face %d\nproperty list uchar int vertex_indices\nend_header\n",
		len(m.verts), m.numFaces); err != nil {
		return err
	}
	line := make([]byte, 0, 64)
	for _, p := range m.verts {
		line = line[:0]
		for i, c := range [3]float64{p.X, p.Y, p.Z} {
			if i > 0 {
				line = append(line, ' ')
			}
			line = strconv.AppendFloat(line, c, 'g', -1, 64)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	for i, f := range m.faces {
		if !f.live {
			continue
		}
		if len(f.verts) > math.MaxUint8 {
			return errors.Errorf("face %d has %d corners, PLY lists hold at most %d", i, len(f.verts), math.MaxUint8)
		}
		line = strconv.AppendInt(line[:0], int64(len(f.verts)), 10)
		for _, v := range f.verts {
			line = append(line, ' ')
			line = strconv.AppendInt(line, int64(v), 10)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}
