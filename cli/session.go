package cli

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/meshbvh/bvh"
	"go.viam.com/meshbvh/logging"
	"go.viam.com/meshbvh/mesh"
)

const (
	sphereRings    = 16
	sphereSegments = 32
)

// session is a mesh with an index listening to it.
type session struct {
	logger logging.Logger
	mesh   *mesh.Mesh
	index  bvh.Index
}

func newLogger(c *cli.Context) logging.Logger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger("meshbvh")
	}
	return logging.NewLogger("meshbvh")
}

// loadMesh reads the mesh file, or builds the requested shape. Without either it builds a unit cube.
func loadMesh(c *cli.Context, logger logging.Logger) (*mesh.Mesh, error) {
	switch {
	case c.Path(flagMesh) != "":
		return mesh.LoadPLY(c.Path(flagMesh), logger)
	case c.String(flagGrid) != "":
		nx, ny, err := parseGridSize(c.String(flagGrid))
		if err != nil {
			return nil, err
		}
		return mesh.NewGrid(nx, ny, 1, logger)
	case c.IsSet(flagSphere):
		return mesh.NewUVSphere(c.Float64(flagSphere), sphereRings, sphereSegments, logger)
	default:
		return mesh.NewCube(1, logger)
	}
}

func openSession(c *cli.Context) (*session, error) {
	logger := newLogger(c)
	m, err := loadMesh(c, logger.Sublogger("mesh"))
	if err != nil {
		return nil, err
	}
	opts, err := readOptions(c.Path(flagConfig))
	if err != nil {
		return nil, err
	}
	if c.Bool(flagHash) {
		opts.UseSpatialHash = true
	}
	if c.IsSet(flagLeafLimit) {
		opts.LeafLimit = c.Int(flagLeafLimit)
	}
	idx, err := bvh.New(m, opts, logger)
	if err != nil {
		return nil, errors.Wrap(err, "cannot build index")
	}
	m.AddListener(idx)
	return &session{logger: logger, mesh: m, index: idx}, nil
}

func (s *session) close() {
	s.mesh.RemoveListener(s.index)
	s.index.Destroy()
}

// withSession opens a session for the duration of an action.
func withSession(action func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.close()
		return action(c, s)
	}
}

// vectorFlags parses the named x,y,z flags.
func vectorFlags(c *cli.Context, names ...string) ([]r3.Vector, error) {
	out := make([]r3.Vector, 0, len(names))
	for _, name := range names {
		v, err := parseVector(c.String(name))
		if err != nil {
			return nil, errors.Wrapf(err, "--%s", name)
		}
		out = append(out, v)
	}
	return out, nil
}
