package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/meshbvh/logging"
	"go.viam.com/meshbvh/mesh"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)
	err := app.Run(append([]string{"meshbvh"}, args...))
	return out.String(), err
}

func TestParseVector(t *testing.T) {
	v, err := parseVector("1, -2.5,3e2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, r3.Vector{X: 1, Y: -2.5, Z: 300})

	_, err = parseVector("1,2")
	test.That(t, err, test.ShouldBeError)
	_, err = parseVector("1,2,z")
	test.That(t, err, test.ShouldBeError)
}

func TestParseGridSize(t *testing.T) {
	nx, ny, err := parseGridSize("5x2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, nx, test.ShouldEqual, 5)
	test.That(t, ny, test.ShouldEqual, 2)

	_, _, err = parseGridSize("5")
	test.That(t, err, test.ShouldBeError)
	_, _, err = parseGridSize("ax2")
	test.That(t, err, test.ShouldBeError)
}

func TestReadOptions(t *testing.T) {
	opts, err := readOptions("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.LeafLimit, test.ShouldBeGreaterThan, 0)

	dir := t.TempDir()
	path := filepath.Join(dir, "options.json")
	test.That(t, os.WriteFile(path, []byte(`{"leaf_limit": 6, "use_spatial_hash": true}`), 0o600), test.ShouldBeNil)
	opts, err = readOptions(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.LeafLimit, test.ShouldEqual, 6)
	test.That(t, opts.UseSpatialHash, test.ShouldBeTrue)

	test.That(t, os.WriteFile(path, []byte(`{"leaf_limit": 6,`), 0o600), test.ShouldBeNil)
	_, err = readOptions(path)
	test.That(t, err, test.ShouldBeError)

	_, err = readOptions(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldBeError)
}

func TestCommands(t *testing.T) {
	t.Run("stats", func(t *testing.T) {
		out, err := run(t, "--grid", "5x2", "--leaf-limit", "4", "stats")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "tree")
		test.That(t, out, test.ShouldContainSubstring, "Triangles")

		out, err = run(t, "--grid", "5x2", "--hash", "stats")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "spatial hash")
		test.That(t, out, test.ShouldContainSubstring, "Cell size")
	})

	t.Run("raycast", func(t *testing.T) {
		out, err := run(t, "raycast", "--origin", "0.3,0.4,-5", "--dir", "0,0,1")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "DISTANCE")
		test.That(t, out, test.ShouldContainSubstring, "0.3, 0.4, 0")

		out, err = run(t, "raycast", "--origin", "3,3,-5", "--dir", "0,0,1")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "no hit")

		_, err = run(t, "raycast", "--origin", "0,0,0", "--dir", "0,0,0")
		test.That(t, err, test.ShouldBeError)

		_, err = run(t, "raycast", "--origin", "0,0,0")
		test.That(t, err, test.ShouldBeError)
	})

	t.Run("queries", func(t *testing.T) {
		out, err := run(t, "--grid", "5x2", "closest", "--point", "0.25,0.75,3")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "0.25, 0.75, 0")

		out, err = run(t, "--grid", "5x2", "nearest", "--point", "0.1,0.1,0", "--count", "3")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "TOTAL")

		for _, args := range [][]string{
			{"sphere", "--center", "0,0,0", "--radius", "1"},
			{"sphere", "--center", "0,0,0", "--radius", "1", "--faces"},
			{"cone", "--apex", "0,0,5", "--axis", "0,0,-1", "--angle", "15"},
			{"cone", "--apex", "0,0,5", "--axis", "0,0,-1", "--faces", "--visible"},
			{"tube", "--start", "0,0,0", "--end", "5,0,0", "--radius", "0.1"},
			{"square", "--center", "1,1,0", "--size", "1"},
			{"leaves"},
			{"leaves", "--level", "1"},
		} {
			_, err := run(t, append([]string{"--grid", "5x2", "--leaf-limit", "4"}, args...)...)
			test.That(t, err, test.ShouldBeNil)
		}

		_, err = run(t, "cone", "--apex", "0,0,5", "--axis", "0,0,0")
		test.That(t, err, test.ShouldBeError)
	})

	t.Run("bench", func(t *testing.T) {
		out, err := run(t, "--sphere", "2", "bench", "--rays", "50")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "P99")

		_, err = run(t, "bench", "--rays", "0")
		test.That(t, err, test.ShouldBeError)
	})

	t.Run("deform and export", func(t *testing.T) {
		dir := t.TempDir()
		deformed := filepath.Join(dir, "deformed.ply")
		out, err := run(t, "--grid", "4x4", "deform", "--center", "2,2,0", "--radius", "0.5", "--offset", "0,0,1",
			"--out", deformed)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "moved 1 vertices")

		m, err := mesh.LoadPLY(deformed, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		p, ok := m.VertexPosition(12)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, p, test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: 1})

		// the exported mesh loads back through --mesh
		out, err = run(t, "--mesh", deformed, "raycast", "--origin", "2.1,2.05,5", "--dir", "0,0,-1")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "4.1")

		exported := filepath.Join(dir, "cube.ply")
		out, err = run(t, "export", "--out", exported)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "wrote 6 faces")
		_, err = os.Stat(exported)
		test.That(t, err, test.ShouldBeNil)
	})
}
