// Package cli contains the meshbvh command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Global flags.
	flagMesh      = "mesh"
	flagGrid      = "grid"
	flagSphere    = "sphere"
	flagConfig    = "config"
	flagHash      = "hash"
	flagLeafLimit = "leaf-limit"
	flagDebug     = "debug"

	// Query flags.
	flagOrigin  = "origin"
	flagDir     = "dir"
	flagPoint   = "point"
	flagCenter  = "center"
	flagRadius  = "radius"
	flagCount   = "count"
	flagMaxDist = "max-dist"
	flagApex    = "apex"
	flagAxis    = "axis"
	flagAngle   = "angle"
	flagLength  = "length"
	flagFaces   = "faces"
	flagVisible = "visible"
	flagStart   = "start"
	flagEnd     = "end"
	flagNormal  = "normal"
	flagSize    = "size"
	flagDepth   = "depth"
	flagOffset  = "offset"
	flagRays    = "rays"
	flagSeed    = "seed"
	flagOut     = "out"
	flagLevel   = "level"
)

// NewApp returns the meshbvh app with Writer set to out and ErrWriter set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "meshbvh",
		Usage:           "build spatial indexes over triangle meshes and query them",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    flagMesh,
				Aliases: []string{"m"},
				Usage:   "load the mesh from a PLY `FILE`",
			},
			&cli.StringFlag{
				Name:  flagGrid,
				Usage: "use a flat grid of `NxM` unit quads instead of a mesh file",
			},
			&cli.Float64Flag{
				Name:  flagSphere,
				Usage: "use a UV sphere of the given `RADIUS` instead of a mesh file",
			},
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load index options from a JSON `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagHash,
				Usage: "use the spatial hash instead of the tree",
			},
			&cli.IntFlag{
				Name:  flagLeafLimit,
				Usage: "override the number of triangles per leaf",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "print the shape of the index",
				Action: StatsAction,
			},
			{
				Name:  "leaves",
				Usage: "list the leaves of the tree, or the occupied cells of the spatial hash",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagLevel,
						Usage: "list the node boxes of one tree level instead",
						Value: -1,
					},
				},
				Action: LeavesAction,
			},
			{
				Name:  "raycast",
				Usage: "find the nearest triangle hit by a ray",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagOrigin, Usage: "ray origin `x,y,z`", Required: true},
					&cli.StringFlag{Name: flagDir, Usage: "ray direction `x,y,z`", Required: true},
				},
				Action: RaycastAction,
			},
			{
				Name:  "closest",
				Usage: "find the point of the surface nearest to a point",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagPoint, Usage: "query point `x,y,z`", Required: true},
				},
				Action: ClosestAction,
			},
			{
				Name:  "nearest",
				Usage: "find the vertices nearest to a point",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagPoint, Usage: "query point `x,y,z`", Required: true},
					&cli.IntFlag{Name: flagCount, Usage: "number of vertices", Value: 8},
					&cli.Float64Flag{Name: flagMaxDist, Usage: "search radius, zero for unbounded"},
				},
				Action: NearestAction,
			},
			{
				Name:  "sphere",
				Usage: "find the vertices, or with --faces the triangles, within a radius of a point",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagCenter, Usage: "sphere center `x,y,z`", Required: true},
					&cli.Float64Flag{Name: flagRadius, Usage: "sphere radius", Required: true},
					&cli.BoolFlag{Name: flagFaces, Usage: "report triangles instead of vertices"},
				},
				Action: SphereAction,
			},
			{
				Name:  "cone",
				Usage: "find the vertices, or with --faces the triangles, inside a cone",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagApex, Usage: "cone apex `x,y,z`", Required: true},
					&cli.StringFlag{Name: flagAxis, Usage: "cone axis `x,y,z`", Required: true},
					&cli.Float64Flag{Name: flagAngle, Usage: "half angle in degrees", Value: 15},
					&cli.Float64Flag{Name: flagLength, Usage: "cone length, zero for unbounded"},
					&cli.BoolFlag{Name: flagFaces, Usage: "report triangles instead of vertices"},
					&cli.BoolFlag{Name: flagVisible, Usage: "with --faces, skip triangles facing away from the apex"},
				},
				Action: ConeAction,
			},
			{
				Name:  "tube",
				Usage: "find the vertices within a radius of a segment",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagStart, Usage: "segment start `x,y,z`", Required: true},
					&cli.StringFlag{Name: flagEnd, Usage: "segment end `x,y,z`", Required: true},
					&cli.Float64Flag{Name: flagRadius, Usage: "tube radius", Required: true},
				},
				Action: TubeAction,
			},
			{
				Name:  "square",
				Usage: "find the vertices inside a square prism",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagCenter, Usage: "square center `x,y,z`", Required: true},
					&cli.StringFlag{Name: flagNormal, Usage: "square normal `x,y,z`", Value: "0,0,1"},
					&cli.Float64Flag{Name: flagSize, Usage: "half of the side length", Required: true},
					&cli.Float64Flag{Name: flagDepth, Usage: "extent to each side of the plane", Value: 1},
				},
				Action: SquareAction,
			},
			{
				Name:  "deform",
				Usage: "move the vertices within a radius of a point and update the index",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagCenter, Usage: "brush center `x,y,z`", Required: true},
					&cli.Float64Flag{Name: flagRadius, Usage: "brush radius", Required: true},
					&cli.StringFlag{Name: flagOffset, Usage: "displacement `x,y,z`", Required: true},
					&cli.PathFlag{Name: flagOut, Usage: "write the deformed mesh to a PLY `FILE`"},
				},
				Action: DeformAction,
			},
			{
				Name:  "bench",
				Usage: "time random ray casts through the bounds of the mesh",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagRays, Usage: "number of rays", Value: 1000},
					&cli.Int64Flag{Name: flagSeed, Usage: "random seed", Value: 1},
				},
				Action: BenchAction,
			},
			{
				Name:  "export",
				Usage: "write the mesh as PLY",
				Flags: []cli.Flag{
					&cli.PathFlag{Name: flagOut, Usage: "output `FILE`", Required: true},
				},
				Action: ExportAction,
			},
		},
	}
}
