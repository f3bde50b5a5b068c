package gbili

import (
	"sort"
	"time"

	"github.com/alanvalejo/gbili/dataset"
	"github.com/alanvalejo/gbili/distance"
	"github.com/alanvalejo/gbili/graph"
	"github.com/alanvalejo/gbili/kdtree"
)

// evaluator decides which outgoing edges of a vertex are robust enough to
// keep. One instance per worker; all shared fields are read-only.
type evaluator struct {
	tree    *kdtree.Tree
	ds      *dataset.Dataset
	nearest []labeledNeighbor
	cfg     Config
	metrics MetricsCollector

	accepted []kdtree.Neighbor // scratch, reused across vertices
}

// edges appends at most cfg.KI directed candidate edges for vertex v to buf
// and returns the extended buffer.
//
// Candidates are taken in ascending-distance order, reordered only within
// near-tie runs by the labeled-instance preference, and filtered by the
// relative-neighborhood lune test: u is rejected when an already-accepted w
// satisfies dist(v,w) < dist(v,u) and dist(w,u) < dist(v,u). Zero accepted
// candidates is a valid outcome, not an error.
func (ev *evaluator) edges(v uint32, buf []graph.Arc) ([]graph.Arc, error) {
	start := time.Now()
	nn, err := ev.tree.KNN(v, ev.cfg.KE)
	ev.metrics.RecordSearch(ev.cfg.KE, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	ev.preferLabeled(nn)

	ev.accepted = ev.accepted[:0]
	for _, cand := range nn {
		if ev.shadowed(cand) {
			continue
		}
		ev.accepted = append(ev.accepted, cand)
		buf = append(buf, graph.Arc{
			Source: v,
			Target: cand.Index,
			Weight: 1 / (1 + cand.Distance),
		})
		if len(ev.accepted) == ev.cfg.KI {
			break
		}
	}
	return buf, nil
}

// shadowed applies the lune test against the accepted set. Strict
// inequalities: equal-distance candidates never shadow each other, so the
// labeled preference alone decides their order.
func (ev *evaluator) shadowed(cand kdtree.Neighbor) bool {
	p := ev.ds.Point(cand.Index)
	for _, w := range ev.accepted {
		if w.Distance < cand.Distance && distance.L2(ev.ds.Point(w.Index), p) < cand.Distance {
			return true
		}
	}
	return false
}

// preferLabeled reorders runs of near-equal distance (within the configured
// epsilon) so that labeled instances come first, then candidates closest to
// their own nearest labeled instance, then ascending index. Candidates
// whose distances differ by more than epsilon are never reordered; the
// preference breaks geometric ties only.
func (ev *evaluator) preferLabeled(nn []kdtree.Neighbor) {
	eps := ev.cfg.epsilon()
	for lo := 0; lo < len(nn); {
		hi := lo + 1
		for hi < len(nn) && nn[hi].Distance-nn[hi-1].Distance <= eps {
			hi++
		}
		if hi-lo > 1 {
			run := nn[lo:hi]
			sort.Slice(run, func(i, j int) bool {
				return ev.tieLess(run[i], run[j])
			})
		}
		lo = hi
	}
}

func (ev *evaluator) tieLess(a, b kdtree.Neighbor) bool {
	la, lb := ev.ds.Labeled(a.Index), ev.ds.Labeled(b.Index)
	if la != lb {
		return la
	}
	da, db := ev.nearest[a.Index].distance, ev.nearest[b.Index].distance
	if da != db {
		return da < db
	}
	return a.Index < b.Index
}
