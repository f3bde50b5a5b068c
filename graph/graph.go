// Package graph provides the undirected weighted graph produced by the
// construction engine, the assembler that merges per-worker directed
// candidate edges into it, and encoders for the supported output formats.
package graph

import (
	"fmt"

	"github.com/tidwall/btree"
)

// Arc is a directed candidate edge proposed unilaterally by one endpoint
// during evaluation, prior to the merge.
type Arc struct {
	Source uint32
	Target uint32
	Weight float64
}

// Edge is an undirected weighted edge in canonical form: A < B.
type Edge struct {
	A      uint32
	B      uint32
	Weight float64
}

// edgeLess orders edges by their canonical (A, B) pair, which makes btree
// iteration — and therefore every encoder — deterministic.
func edgeLess(a, b Edge) bool {
	if a.A != b.A {
		return a.A < b.A
	}
	return a.B < b.B
}

// Graph is the final assembled graph: a vertex count and a deduplicated,
// canonically ordered edge set. Immutable once returned by the assembler.
type Graph struct {
	vertexCount int
	edges       []Edge
}

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int { return g.vertexCount }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Edges returns the edge set ascending by (A, B). The returned slice aliases
// internal storage and must be treated as read-only.
func (g *Graph) Edges() []Edge { return g.edges }

// Assembler merges directed candidate edges into one undirected graph.
// Reciprocal proposals collapse onto the canonical pair, keeping the
// maximum of the two weights. Not safe for concurrent use; the merge phase
// is single-threaded.
type Assembler struct {
	vertexCount int
	edges       *btree.BTreeG[Edge]
}

// NewAssembler creates an assembler for a graph with the given vertex count.
func NewAssembler(vertexCount int) *Assembler {
	return &Assembler{
		vertexCount: vertexCount,
		edges:       btree.NewBTreeG(edgeLess),
	}
}

// Add upserts one directed candidate edge. A self-loop is a programming
// error in the evaluator and is reported rather than dropped.
func (a *Assembler) Add(arc Arc) error {
	if arc.Source == arc.Target {
		return fmt.Errorf("graph: self-loop proposed for vertex %d", arc.Source)
	}
	if int(arc.Source) >= a.vertexCount || int(arc.Target) >= a.vertexCount {
		return fmt.Errorf("graph: edge (%d, %d) references a vertex outside 0..%d", arc.Source, arc.Target, a.vertexCount-1)
	}

	edge := Edge{A: arc.Source, B: arc.Target, Weight: arc.Weight}
	if edge.A > edge.B {
		edge.A, edge.B = edge.B, edge.A
	}

	if prev, ok := a.edges.Get(edge); ok && prev.Weight > edge.Weight {
		return nil
	}
	a.edges.Set(edge)
	return nil
}

// AddAll upserts a batch of directed candidate edges.
func (a *Assembler) AddAll(arcs []Arc) error {
	for _, arc := range arcs {
		if err := a.Add(arc); err != nil {
			return err
		}
	}
	return nil
}

// Finalize returns the assembled graph. The assembler must not be used
// afterwards.
func (a *Assembler) Finalize() *Graph {
	edges := make([]Edge, 0, a.edges.Len())
	a.edges.Scan(func(e Edge) bool {
		edges = append(edges, e)
		return true
	})
	return &Graph{
		vertexCount: a.vertexCount,
		edges:       edges,
	}
}
