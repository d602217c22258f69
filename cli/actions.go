package cli

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/meshbvh/bvh"
	"go.viam.com/meshbvh/spatialmath"
	"go.viam.com/meshbvh/utils"
)

// StatsAction prints the shape of the index.
func StatsAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		fmt.Fprintln(c.App.Writer, statsTable(s.index.Stats()))
		return s.index.Validate()
	})(c)
}

// LeavesAction lists the leaves of a tree, or the occupied cells of a spatial hash.
func LeavesAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		t := table.NewWriter()
		tree, isTree := s.index.(*bvh.Tree)
		switch {
		case isTree && c.Int(flagLevel) >= 0:
			t.AppendHeader(table.Row{"#", "Min", "Max"})
			for i, box := range tree.NodeBoxes(c.Int(flagLevel)) {
				t.AppendRow(table.Row{i + 1, formatVector(box.Min), formatVector(box.Max)})
			}
		case isTree:
			t.AppendHeader(table.Row{"Node", "Depth", "Triangles", "Unique verts", "Other verts", "Min", "Max"})
			for _, leaf := range tree.Leaves() {
				t.AppendRow(table.Row{
					leaf.Node, leaf.Depth, len(leaf.Triangles), len(leaf.UniqueVerts), len(leaf.OtherVerts),
					formatVector(leaf.Bounds.Min), formatVector(leaf.Bounds.Max),
				})
			}
		default:
			t.AppendHeader(table.Row{"#", "Min", "Max"})
			for i, box := range s.index.LeafBoxes() {
				t.AppendRow(table.Row{i + 1, formatVector(box.Min), formatVector(box.Max)})
			}
		}
		fmt.Fprintln(c.App.Writer, t.Render())
		return nil
	})(c)
}

// RaycastAction prints the nearest hit of a ray.
func RaycastAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		vecs, err := vectorFlags(c, flagOrigin, flagDir)
		if err != nil {
			return err
		}
		hit, err := s.index.CastRay(vecs[0], vecs[1])
		if err != nil {
			return err
		}
		if hit == nil {
			fmt.Fprintln(c.App.Writer, "no hit")
			return nil
		}
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Triangle", "Face", "Distance", "Point", "Normal"})
		t.AppendRow(table.Row{
			hit.Triangle, hit.Face, fmt.Sprintf("%.4g", hit.Distance), formatVector(hit.Point), formatVector(hit.Normal),
		})
		fmt.Fprintln(c.App.Writer, t.Render())
		return nil
	})(c)
}

// ClosestAction prints the point of the surface nearest to a point.
func ClosestAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		p, err := parseVector(c.String(flagPoint))
		if err != nil {
			return err
		}
		hit, err := s.index.ClosestPoint(p)
		if err != nil {
			return err
		}
		if hit == nil {
			fmt.Fprintln(c.App.Writer, "mesh is empty")
			return nil
		}
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Triangle", "Face", "Distance", "Point"})
		t.AppendRow(table.Row{hit.Triangle, hit.Face, fmt.Sprintf("%.4g", hit.Distance), formatVector(hit.Point)})
		fmt.Fprintln(c.App.Writer, t.Render())
		return nil
	})(c)
}

// NearestAction prints the vertices nearest to a point.
func NearestAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		p, err := parseVector(c.String(flagPoint))
		if err != nil {
			return err
		}
		res, err := s.index.NearestVertsN(p, c.Int(flagCount), c.Float64(flagMaxDist))
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, vertexTable(res, "Distance"))
		return nil
	})(c)
}

// SphereAction prints the vertices or triangles within a radius of a point.
func SphereAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		center, err := parseVector(c.String(flagCenter))
		if err != nil {
			return err
		}
		if c.Bool(flagFaces) {
			res, err := s.index.ClosestTris(center, c.Float64(flagRadius))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, triangleTable(s.index, res))
			return nil
		}
		res, err := s.index.ClosestVerts(center, c.Float64(flagRadius))
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, vertexTable(res, "Distance"))
		return nil
	})(c)
}

// ConeAction prints the vertices or triangles inside a cone.
func ConeAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		vecs, err := vectorFlags(c, flagApex, flagAxis)
		if err != nil {
			return err
		}
		if vecs[1].Norm2() == 0 {
			return errors.New("--axis cannot be zero")
		}
		cone := spatialmath.NewCone(vecs[0], vecs[1], utils.DegToRad(c.Float64(flagAngle)), c.Float64(flagLength))
		if c.Bool(flagFaces) {
			res, err := s.index.FacesInCone(cone, c.Bool(flagVisible))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, triangleTable(s.index, res))
			return nil
		}
		res, err := s.index.VertsInCone(cone)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, vertexTable(res, "Distance to apex"))
		return nil
	})(c)
}

// TubeAction prints the vertices within a radius of a segment.
func TubeAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		vecs, err := vectorFlags(c, flagStart, flagEnd)
		if err != nil {
			return err
		}
		res, err := s.index.VertsInTube(vecs[0], vecs[1], c.Float64(flagRadius))
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, vertexTable(res, "Distance to segment"))
		return nil
	})(c)
}

// SquareAction prints the vertices inside a square prism.
func SquareAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		vecs, err := vectorFlags(c, flagCenter, flagNormal)
		if err != nil {
			return err
		}
		if vecs[1].Norm2() == 0 {
			return errors.New("--normal cannot be zero")
		}
		sq := spatialmath.Square{Center: vecs[0], Normal: vecs[1], HalfSize: c.Float64(flagSize), Depth: c.Float64(flagDepth)}
		res, err := s.index.VertsInSquare(sq)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, vertexTable(res, "Distance to center"))
		return nil
	})(c)
}

// DeformAction moves the vertices within a radius of a point, updates the index, and prints its new shape.
func DeformAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		vecs, err := vectorFlags(c, flagCenter, flagOffset)
		if err != nil {
			return err
		}
		res, err := s.index.ClosestVerts(vecs[0], c.Float64(flagRadius))
		if err != nil {
			return err
		}
		moved := res.Clone().Verts
		if err := s.mesh.Displace(moved, vecs[1]); err != nil {
			return err
		}
		if err := s.index.Update(); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "moved %d vertices\n", len(moved))
		fmt.Fprintln(c.App.Writer, statsTable(s.index.Stats()))
		if out := c.Path(flagOut); out != "" {
			if err := writeMesh(s, out); err != nil {
				return err
			}
		}
		return s.index.Validate()
	})(c)
}

// BenchAction casts random rays through the bounds of the mesh and prints timing statistics.
func BenchAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		n := c.Int(flagRays)
		if n <= 0 {
			return errors.Errorf("--%s must be positive, got %d", flagRays, n)
		}
		bounds := s.index.Bounds()
		if bounds.IsEmpty() {
			return errors.New("mesh is empty")
		}
		//nolint:gosec
		rng := rand.New(rand.NewSource(c.Int64(flagSeed)))
		randomPoint := func() r3.Vector {
			size := bounds.Size()
			return bounds.Min.Add(r3.Vector{X: rng.Float64() * size.X, Y: rng.Float64() * size.Y, Z: rng.Float64() * size.Z})
		}
		reach := 2 * bounds.BoundingSphereRadius()

		micros := make(stats.Float64Data, 0, n)
		hits := 0
		for len(micros) < n {
			target := randomPoint()
			dir := target.Sub(randomPoint())
			if dir.Norm2() == 0 {
				continue
			}
			origin := target.Sub(dir.Normalize().Mul(reach))
			start := time.Now()
			hit, err := s.index.CastRay(origin, dir)
			micros = append(micros, float64(time.Since(start).Nanoseconds())/1e3)
			if err != nil {
				return err
			}
			if hit != nil {
				hits++
			}
		}

		t := table.NewWriter()
		t.AppendHeader(table.Row{"Rays", "Hits", "Mean µs", "P50 µs", "P99 µs", "Max µs"})
		row := table.Row{n, hits}
		for _, fn := range []func(stats.Float64Data) (float64, error){
			stats.Mean,
			func(d stats.Float64Data) (float64, error) { return stats.Percentile(d, 50) },
			func(d stats.Float64Data) (float64, error) { return stats.Percentile(d, 99) },
			stats.Max,
		} {
			v, err := fn(micros)
			if err != nil {
				return err
			}
			row = append(row, fmt.Sprintf("%.2f", v))
		}
		t.AppendRow(row)
		fmt.Fprintln(c.App.Writer, t.Render())
		return nil
	})(c)
}

// ExportAction writes the mesh as PLY.
func ExportAction(c *cli.Context) error {
	return withSession(func(c *cli.Context, s *session) error {
		if err := writeMesh(s, c.Path(flagOut)); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "wrote %d faces to %s\n", s.mesh.NumFaces(), c.Path(flagOut))
		return nil
	})(c)
}

func writeMesh(s *session, path string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", path)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return s.mesh.WritePLY(f)
}
