// Package similarity links time frames whose feature vectors correlate.
package similarity

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/rodrigo-brito/stockwave/cepstrum"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

const DefaultThreshold = 0.7

// Node is a time frame.
type Node struct {
	ID    int `json:"id"`
	Group int `json:"group"`
}

// Link joins two frames whose correlation exceeded the threshold.
type Link struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Value  float64 `json:"value"`
}

// Graph is an undirected weighted graph with one node per frame.
type Graph struct {
	Threshold float64

	g *simple.WeightedUndirectedGraph
}

type Option func(*Builder)

// WithThreshold sets the correlation an edge has to exceed.
func WithThreshold(threshold float64) Option {
	return func(b *Builder) {
		b.threshold = threshold
	}
}

func WithLogger(logger log.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

type Builder struct {
	threshold float64
	logger    log.Logger
}

func NewBuilder(options ...Option) *Builder {
	builder := &Builder{threshold: DefaultThreshold}
	for _, option := range options {
		option(builder)
	}
	builder.logger = log.OrDiscard(builder.logger)
	return builder
}

// Build is a shorthand for NewBuilder(options...).Build(features).
func Build(features *cepstrum.Features, options ...Option) *Graph {
	return NewBuilder(options...).Build(features)
}

// Build correlates every pair of feature columns. The cost grows with the
// square of the frame count and is meant for a few hundred frames at most.
func (b *Builder) Build(features *cepstrum.Features) *Graph {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	frames := features.Frames()
	for i := 0; i < frames; i++ {
		g.AddNode(simple.Node(i))
	}

	columns := make([][]float64, frames)
	for j := range columns {
		columns[j] = mat.Col(nil, j, features.Coefficients)
	}

	for i := 0; i < frames; i++ {
		for j := i + 1; j < frames; j++ {
			// constant columns correlate to NaN, which never passes
			corr := stat.Correlation(columns[i], columns[j], nil)
			if corr > b.threshold {
				g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(i), simple.Node(j), corr))
			}
		}
	}

	result := &Graph{Threshold: b.threshold, g: g}
	b.logger.WithFields(log.Fields{
		"nodes":     frames,
		"edges":     g.Edges().Len(),
		"threshold": b.threshold,
	}).Debug("similarity graph built")
	return result
}

// Nodes lists every frame in order, including frames without edges.
func (s *Graph) Nodes() []Node {
	nodes := make([]Node, 0, s.g.Nodes().Len())
	it := s.g.Nodes()
	for it.Next() {
		nodes = append(nodes, Node{ID: int(it.Node().ID()), Group: 1})
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// Links lists the edges with Source < Target, sorted by source then target.
func (s *Graph) Links() []Link {
	links := make([]Link, 0, s.g.Edges().Len())
	edges := s.g.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		from, to := int(e.From().ID()), int(e.To().ID())
		if from > to {
			from, to = to, from
		}
		links = append(links, Link{Source: from, Target: to, Value: e.Weight()})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Source != links[j].Source {
			return links[i].Source < links[j].Source
		}
		return links[i].Target < links[j].Target
	})
	return links
}

// Weights returns the edge weights in link order.
func (s *Graph) Weights() []float64 {
	links := s.Links()
	weights := make([]float64, len(links))
	for i, l := range links {
		weights[i] = l.Value
	}
	return weights
}

func (s *Graph) NodeCount() int {
	return s.g.Nodes().Len()
}

func (s *Graph) EdgeCount() int {
	return s.g.Edges().Len()
}

// Degree returns the number of frames linked to frame id.
func (s *Graph) Degree(id int) int {
	return s.g.From(int64(id)).Len()
}

// Components returns the number of connected components; isolated frames
// count as their own component.
func (s *Graph) Components() int {
	return len(topo.ConnectedComponents(s.g))
}
