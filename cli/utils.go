package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/meshbvh/bvh"
)

// parseVector parses "x,y,z".
func parseVector(s string) (r3.Vector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vector{}, errors.Errorf("vector %q must have the form x,y,z", s)
	}
	var c [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(err, "vector %q", s)
		}
		c[i] = f
	}
	return r3.Vector{X: c[0], Y: c[1], Z: c[2]}, nil
}

// parseGridSize parses "NxM".
func parseGridSize(s string) (int, int, error) {
	nx, ny, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, errors.Errorf("grid size %q must have the form NxM", s)
	}
	x, err := strconv.Atoi(nx)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "grid size %q", s)
	}
	y, err := strconv.Atoi(ny)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "grid size %q", s)
	}
	return x, y, nil
}

// readOptions decodes a JSON options file on top of the defaults.
func readOptions(path string) (bvh.Options, error) {
	if path == "" {
		return bvh.DefaultOptions(), nil
	}
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return bvh.Options{}, errors.Wrapf(err, "cannot read options %q", path)
	}
	var attributes map[string]interface{}
	if err := json.Unmarshal(data, &attributes); err != nil {
		return bvh.Options{}, errors.Wrapf(err, "cannot parse options %q", path)
	}
	return bvh.OptionsFromMap(attributes)
}

func formatVector(v r3.Vector) string {
	return fmt.Sprintf("%.4g, %.4g, %.4g", v.X, v.Y, v.Z)
}

func statsTable(s bvh.Stats) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Statistic", "Value"})
	t.AppendRows([]table.Row{
		{"Kind", s.Kind},
		{"Triangles", s.Triangles},
		{"Vertices", s.Vertices},
		{"Nodes", s.Nodes},
		{"Leaves", s.Leaves},
		{"Max depth", s.MaxDepth},
		{"Shared triangles", s.Shared},
		{"Oversized leaves", s.Oversized},
	})
	if s.Kind != "tree" {
		t.AppendRows([]table.Row{
			{"Stray triangles", s.Stray},
			{"Cell size", fmt.Sprintf("%.4g", s.CellSize)},
		})
	}
	t.AppendRow(table.Row{"Leaf fill", fmt.Sprintf("%.2f ± %.2f (max %.0f)", s.FillMean, s.FillStdDev, s.FillMax)})
	return t.Render()
}

func vertexTable(res *bvh.VertexResult, distLabel string) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Vertex", distLabel})
	for i, v := range res.Verts {
		t.AppendRow(table.Row{i + 1, v, fmt.Sprintf("%.4g", res.Dists[i])})
	}
	t.AppendFooter(table.Row{"", "Total", res.Len()})
	return t.Render()
}

func triangleTable(idx bvh.Index, res *bvh.TriangleResult) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Triangle", "Face", "Vertices", "Area"})
	for i, id := range res.Tris {
		tri, _ := idx.Triangle(id)
		verts := strings.Join(lo.Map(tri.Verts[:], func(v bvh.VertexID, _ int) string {
			return strconv.Itoa(int(v))
		}), " ")
		t.AppendRow(table.Row{i + 1, id, tri.Face, verts, fmt.Sprintf("%.4g", tri.Area)})
	}
	t.AppendFooter(table.Row{"", "Total", res.Len()})
	return t.Render()
}
