package gbili

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanvalejo/gbili/distance"
	"github.com/alanvalejo/gbili/graph"
)

// cancelCheckInterval is the number of vertices a worker processes between
// context cancellation checks.
const cancelCheckInterval = 256

// workers returns the effective worker count: the configured thread count,
// defaulting to all available hardware parallelism, clamped to [1, n].
func (e *Engine) workers() int {
	w := e.cfg.Threads
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if n := e.ds.Len(); w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// chunkBounds splits the vertex range [0, n) into contiguous, roughly
// equal-size chunks, one per worker. Every vertex lands in exactly one
// chunk.
func chunkBounds(n, workers int) [][2]int {
	bounds := make([][2]int, 0, workers)
	size := n / workers
	extra := n % workers
	lo := 0
	for i := 0; i < workers; i++ {
		hi := lo + size
		if i < extra {
			hi++
		}
		bounds = append(bounds, [2]int{lo, hi})
		lo = hi
	}
	return bounds
}

// labeledNeighbor is one entry of the nearest-labeled table: the closest
// labeled instance to a vertex and its distance. index is -1 when the data
// set has no labeled instances.
type labeledNeighbor struct {
	index    int32
	distance float64
}

// nearestLabeled computes, for every vertex, its nearest labeled instance
// by linear scan over the labeled set. The table feeds the evaluator's
// labeled-instance preference. Chunked fan-out, join before return; shared
// state is read-only.
func (e *Engine) nearestLabeled(ctx context.Context) ([]labeledNeighbor, error) {
	n := e.ds.Len()
	labeled := e.ds.LabeledIndices()
	out := make([]labeledNeighbor, n)

	g, ctx := errgroup.WithContext(ctx)
	for _, bounds := range chunkBounds(n, e.workers()) {
		lo, hi := bounds[0], bounds[1]
		g.Go(func() error {
			for v := lo; v < hi; v++ {
				if v%cancelCheckInterval == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				best := labeledNeighbor{index: -1, distance: math.Inf(1)}
				p := e.ds.Point(uint32(v))
				for _, u := range labeled {
					if int(u) == v {
						best = labeledNeighbor{index: int32(u)}
						break
					}
					// labeled is ascending, so a strict improvement keeps
					// the smallest index on distance ties.
					if d := distance.L2(p, e.ds.Point(u)); d < best.distance {
						best = labeledNeighbor{index: int32(u), distance: d}
					}
				}
				out[v] = best
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// evaluateAll runs the candidate evaluator over all vertices. Each worker
// owns one contiguous chunk and appends to its private buffer only; the
// buffers are handed to the assembler after the join barrier. The first
// worker error cancels the remaining workers and aborts the run.
func (e *Engine) evaluateAll(ctx context.Context, nearest []labeledNeighbor) ([][]graph.Arc, error) {
	n := e.ds.Len()
	bounds := chunkBounds(n, e.workers())
	buffers := make([][]graph.Arc, len(bounds))

	g, ctx := errgroup.WithContext(ctx)
	for i, b := range bounds {
		i := i
		lo, hi := b[0], b[1]
		g.Go(func() error {
			ev := &evaluator{
				tree:    e.tree,
				ds:      e.ds,
				nearest: nearest,
				cfg:     e.cfg,
				metrics: e.metrics,
			}
			buf := make([]graph.Arc, 0, (hi-lo)*e.cfg.KI)
			for v := lo; v < hi; v++ {
				if v%cancelCheckInterval == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				start := time.Now()
				before := len(buf)
				var err error
				buf, err = ev.edges(uint32(v), buf)
				if err != nil {
					return fmt.Errorf("gbili: worker for vertices [%d,%d): vertex %d: %w", lo, hi, v, err)
				}
				e.metrics.RecordVertex(len(buf)-before, time.Since(start))
			}
			buffers[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return buffers, nil
}
