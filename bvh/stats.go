package bvh

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
)

// Stats summarizes the shape of an index.
type Stats struct {
	Kind      string
	Triangles int
	Vertices  int
	// Nodes counts tree nodes, or buckets of a spatial hash.
	Nodes int
	// Leaves counts tree leaves, or non empty buckets.
	Leaves   int
	MaxDepth int
	// Shared counts triangles stored in more than one leaf or bucket.
	Shared    int
	Oversized int
	Stray     int
	CellSize  float64

	// Fill is the number of triangles per leaf or non empty bucket.
	FillMean   float64
	FillStdDev float64
	FillMax    float64
}

func (s Stats) String() string {
	return fmt.Sprintf("%s: %d triangles, %d vertices, %d nodes, %d leaves, depth %d, fill %.1f±%.1f (max %.0f)",
		s.Kind, s.Triangles, s.Vertices, s.Nodes, s.Leaves, s.MaxDepth, s.FillMean, s.FillStdDev, s.FillMax)
}

// fillStats fills in the fill statistics; they stay zero without leaves.
func (s *Stats) fillStats(fill []float64) {
	if len(fill) == 0 {
		return
	}
	data := stats.Float64Data(fill)
	if mean, err := stats.Mean(data); err == nil {
		s.FillMean = mean
	}
	if sd, err := stats.StandardDeviation(data); err == nil {
		s.FillStdDev = sd
	}
	if m, err := stats.Max(data); err == nil {
		s.FillMax = m
	}
}

func (c *core) countShared() int {
	shared := 0
	c.tris.each(func(rec *triRecord) bool {
		if len(rec.owners) > 1 {
			shared++
		}
		return true
	})
	return shared
}

// Stats walks the live nodes.
func (t *Tree) Stats() Stats {
	s := Stats{Kind: "tree", Triangles: t.NumTriangles(), Vertices: t.NumVertices()}
	if t.destroyed {
		return s
	}
	var fill []float64
	for i := range t.nodes {
		n := &t.nodes[i]
		if !n.live {
			continue
		}
		s.Nodes++
		if !n.isLeaf() {
			continue
		}
		s.Leaves++
		s.MaxDepth = max(s.MaxDepth, n.depth+1)
		if n.tris.len() > t.opts.LeafLimit {
			s.Oversized++
		}
		fill = append(fill, float64(n.tris.len()))
	}
	s.Shared = t.countShared()
	s.fillStats(fill)
	return s
}

// Stats walks the buckets.
func (g *HashGrid) Stats() Stats {
	s := Stats{
		Kind:      "spatial hash",
		Triangles: g.NumTriangles(),
		Vertices:  g.NumVertices(),
		Nodes:     len(g.buckets),
		MaxDepth:  1,
		Stray:     g.stray.len(),
		CellSize:  g.cellSize,
	}
	if g.destroyed {
		return s
	}
	fill := lo.FilterMap(g.buckets, func(b bucket, _ int) (float64, bool) {
		return float64(b.tris.len()), b.tris.len() > 0
	})
	s.Leaves = len(fill)
	s.Shared = g.countShared()
	s.fillStats(fill)
	return s
}
