// Package assemble partitions mapped triples into their target named
// graphs: one graph per library, plus an optional knowledge-base graph
// that receives only the identity and label triples of shared entities.
// Item and collection content always stays in the library's own graph.
package assemble

import (
	"sort"

	"github.com/ch-sander/zotero-rdf-server/rdf"
)

// Target selects the graph a staged triple belongs in.
type Target int

const (
	// TargetLibrary routes a triple to the library's named graph.
	TargetLibrary Target = iota
	// TargetKnowledgeBase routes a triple to the knowledge-base graph when
	// one is enabled; otherwise it falls back to the library graph.
	TargetKnowledgeBase
)

// Staged is one mapped triple with its routing decision.
type Staged struct {
	rdf.Triple
	Target Target
}

// Batch is the per-graph load unit handed to the store gateway.
type Batch struct {
	Graph   rdf.IRI
	Triples []rdf.Triple
}

// Assembler accumulates staged triples for one library's refresh.
type Assembler struct {
	libraryGraph rdf.IRI
	kbGraph      rdf.IRI // empty when knowledge-base mapping is off
	byGraph      map[rdf.IRI][]rdf.Triple
}

// New creates an assembler. kbGraph may be empty to disable the
// knowledge-base split.
func New(libraryGraph, kbGraph rdf.IRI) *Assembler {
	if kbGraph == libraryGraph {
		kbGraph = ""
	}
	return &Assembler{
		libraryGraph: libraryGraph,
		kbGraph:      kbGraph,
		byGraph:      make(map[rdf.IRI][]rdf.Triple),
	}
}

// Add stages triples for loading.
func (a *Assembler) Add(staged ...Staged) {
	for _, s := range staged {
		graph := a.libraryGraph
		if s.Target == TargetKnowledgeBase && a.kbGraph != "" {
			graph = a.kbGraph
		}
		a.byGraph[graph] = append(a.byGraph[graph], s.Triple)
	}
}

// Len returns the total number of staged triples before deduplication.
func (a *Assembler) Len() int {
	n := 0
	for _, ts := range a.byGraph {
		n += len(ts)
	}
	return n
}

// Batches returns one deduplicated batch per target graph, graphs in
// lexical order. Deduplication makes a repeated refresh of identical
// source data produce an identical triple set rather than a doubled one.
func (a *Assembler) Batches() []Batch {
	graphs := make([]rdf.IRI, 0, len(a.byGraph))
	for g := range a.byGraph {
		graphs = append(graphs, g)
	}
	sort.Slice(graphs, func(i, j int) bool { return graphs[i] < graphs[j] })

	batches := make([]Batch, 0, len(graphs))
	for _, g := range graphs {
		batches = append(batches, Batch{Graph: g, Triples: rdf.Dedupe(a.byGraph[g])})
	}
	return batches
}

// LibraryGraph returns the library's named graph IRI.
func (a *Assembler) LibraryGraph() rdf.IRI { return a.libraryGraph }

// KnowledgeBaseGraph returns the knowledge-base graph IRI, empty when the
// split is disabled.
func (a *Assembler) KnowledgeBaseGraph() rdf.IRI { return a.kbGraph }
