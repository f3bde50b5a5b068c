// Package dataset holds the immutable point store consumed by the graph
// construction engine: an ordered set of fixed-dimension feature vectors and
// the set of indices that carry ground-truth labels.
package dataset

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// Dataset is an immutable collection of feature vectors. A subset of the
// vectors, tracked by a roaring bitmap, is marked as labeled instances.
type Dataset struct {
	points  [][]float64
	dim     int
	labeled *roaring.Bitmap
}

// New creates a Dataset from pre-parsed rows. All rows must share one
// dimension and contain only finite values. The slice is retained by
// reference and must not be mutated afterwards.
func New(points [][]float64) (*Dataset, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("dataset: no points")
	}

	dim := len(points[0])
	if dim == 0 {
		return nil, fmt.Errorf("dataset: row 0 has no attributes")
	}
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("dataset: row %d has %d attributes, want %d", i, len(p), dim)
		}
		for j, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("dataset: row %d attribute %d is not finite", i, j)
			}
		}
	}

	return &Dataset{
		points:  points,
		dim:     dim,
		labeled: roaring.New(),
	}, nil
}

// Len returns the number of points.
func (d *Dataset) Len() int { return len(d.points) }

// Dim returns the shared dimensionality of all points.
func (d *Dataset) Dim() int { return d.dim }

// Point returns the feature vector at the given index. The returned slice
// aliases internal storage and must be treated as read-only.
func (d *Dataset) Point(i uint32) []float64 { return d.points[i] }

// Points returns the backing point slice, read-only.
func (d *Dataset) Points() [][]float64 { return d.points }

// AttachLabels marks the given indices as labeled instances, replacing any
// previous labeled set. Every index must be smaller than Len().
func (d *Dataset) AttachLabels(labeled *roaring.Bitmap) error {
	if labeled == nil {
		d.labeled = roaring.New()
		return nil
	}
	if !labeled.IsEmpty() {
		if max := labeled.Maximum(); int(max) >= len(d.points) {
			return fmt.Errorf("dataset: labeled index %d out of range (have %d points)", max, len(d.points))
		}
	}
	d.labeled = labeled
	return nil
}

// Labeled reports whether the point at the given index is a labeled instance.
func (d *Dataset) Labeled(i uint32) bool { return d.labeled.Contains(i) }

// LabeledCount returns the number of labeled instances.
func (d *Dataset) LabeledCount() int { return int(d.labeled.GetCardinality()) }

// LabeledIndices returns the labeled indices in ascending order.
func (d *Dataset) LabeledIndices() []uint32 { return d.labeled.ToArray() }
