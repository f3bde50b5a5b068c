// Package gbili builds sparse, weighted, undirected graphs over feature
// vectors, intended as input to semi-supervised learning algorithms
// (GBILI: Graph Based on Informativeness of Labeled Instances).
//
// Each vertex corresponds to one data instance; a subset of instances carry
// ground-truth labels. For every vertex the engine examines its ke nearest
// neighbors in an exact KD-tree index, prunes the candidates with a
// relative-neighborhood robustness test biased toward labeled instances,
// and keeps at most ki edges. Per-vertex work fans out over a worker pool
// and the partial results merge deterministically into one graph.
//
// # Quick Start
//
//	ds, _ := dataset.Load("iris.data")
//	labeled, _ := dataset.LoadLabels("iris.labels")
//	_ = ds.AttachLabels(labeled)
//
//	engine, _ := gbili.New(ds, gbili.Config{KE: 3, KI: 3})
//	g, _ := engine.Build(context.Background())
//
//	_ = graph.WriteFile("iris-gbili.edgelist", g, graph.FormatEdgeList)
//
// The same inputs and configuration always produce the same graph,
// regardless of the worker count.
package gbili
