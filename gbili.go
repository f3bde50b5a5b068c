package gbili

import (
	"context"
	"math"
	"time"

	"github.com/alanvalejo/gbili/dataset"
	"github.com/alanvalejo/gbili/graph"
	"github.com/alanvalejo/gbili/kdtree"
)

// DefaultEpsilon is the default near-tie tolerance for the labeled-instance
// preference. Candidates whose distances to the query vertex differ by at
// most this amount are considered geometrically tied.
const DefaultEpsilon = 1e-9

// Config contains the validated engine configuration. Construct it once and
// pass it by value; the engine never reads ambient state.
type Config struct {
	// KE is the neighborhood size examined per vertex (geometric search).
	KE int

	// KI is the maximum number of robust edges kept per vertex. KI <= KE.
	KI int

	// Threads is the worker pool size. A value <= 0 means "use all
	// available hardware parallelism".
	Threads int

	// Epsilon is the near-tie tolerance for the labeled-instance
	// preference. The zero value selects DefaultEpsilon.
	Epsilon float64
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		KE:      3,
		KI:      3,
		Threads: 0,
		Epsilon: DefaultEpsilon,
	}
}

// Validate checks the configuration against a point count of n. It returns
// a *ConfigError on the first violation.
func (c Config) Validate(n int) error {
	if n <= 0 {
		return &ConfigError{Field: "points", Value: n, Reason: "point set must not be empty"}
	}
	if c.KI < 1 {
		return &ConfigError{Field: "ki", Value: c.KI, Reason: "must be at least 1"}
	}
	if c.KE < c.KI {
		return &ConfigError{Field: "ke", Value: c.KE, Reason: "must be at least ki"}
	}
	if c.KE >= n {
		return &ConfigError{Field: "ke", Value: c.KE, Reason: "must be smaller than the point count"}
	}
	if c.Epsilon < 0 || math.IsNaN(c.Epsilon) {
		return &ConfigError{Field: "epsilon", Value: c.Epsilon, Reason: "must be non-negative"}
	}
	return nil
}

// epsilon returns the effective near-tie tolerance.
func (c Config) epsilon() float64 {
	if c.Epsilon == 0 {
		return DefaultEpsilon
	}
	return c.Epsilon
}

// Engine builds the graph for one data set. The data set and the spatial
// index are immutable after construction, so a single Engine can run Build
// any number of times and from multiple goroutines.
type Engine struct {
	cfg     Config
	ds      *dataset.Dataset
	tree    *kdtree.Tree
	logger  *Logger
	metrics MetricsCollector
}

// Option configures an Engine.
type Option func(e *Engine)

// WithLogger sets the structured logger. If nil, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(e *Engine) {
		if l == nil {
			l = NoopLogger()
		}
		e.logger = l
	}
}

// WithMetricsCollector sets a metrics collector for the run.
// If nil, metrics collection is disabled.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(e *Engine) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		e.metrics = m
	}
}

// New validates the configuration against the data set and builds the
// spatial index. All configuration faults surface here, before any
// parallel work starts.
func New(ds *dataset.Dataset, cfg Config, optFns ...Option) (*Engine, error) {
	e := &Engine{
		cfg:     cfg,
		ds:      ds,
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(e)
	}

	if ds == nil {
		return nil, &ConfigError{Field: "dataset", Value: nil, Reason: "must not be nil"}
	}
	if err := cfg.Validate(ds.Len()); err != nil {
		return nil, err
	}

	start := time.Now()
	e.tree = kdtree.Build(ds.Points())
	e.logger.Debug("spatial index built",
		"points", ds.Len(),
		"dimension", ds.Dim(),
		"duration", time.Since(start),
	)

	return e, nil
}

// Build runs the full pipeline and returns the assembled graph: the
// nearest-labeled precomputation, the parallel per-vertex evaluation, and
// the single-threaded merge. The run is all-or-nothing: on any error
// (including context cancellation) no graph is returned.
//
// The result is deterministic: thread count and chunk boundaries never
// affect the edge set or the weights.
func (e *Engine) Build(ctx context.Context) (*graph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	nearest, err := e.nearestLabeled(ctx)
	if err != nil {
		return nil, err
	}

	buffers, err := e.evaluateAll(ctx, nearest)
	if err != nil {
		return nil, err
	}

	mergeStart := time.Now()
	asm := graph.NewAssembler(e.ds.Len())
	for _, buf := range buffers {
		if err := asm.AddAll(buf); err != nil {
			return nil, err
		}
	}
	g := asm.Finalize()
	e.metrics.RecordAssemble(g.EdgeCount(), time.Since(mergeStart))

	e.logger.InfoContext(ctx, "graph assembled",
		"vertices", g.VertexCount(),
		"edges", g.EdgeCount(),
		"labeled", e.ds.LabeledCount(),
		"threads", e.workers(),
		"duration", time.Since(start),
	)
	return g, nil
}
