package compute

import (
	"context"
	"runtime"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/quantile/internal/aggregate"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/logging"
)

// Result is the finalized output of an execution.
type Result struct {
	// Values holds one slot per requested quantile.
	Values *array.Float64

	// Count is the number of valid rows that contributed.
	Count int64

	// AllValid is false when a null poisoned the result.
	AllValid bool

	// Partitions is the number of partition states that were merged.
	Partitions int
}

// Release releases the output array.
func (r *Result) Release() {
	if r != nil && r.Values != nil {
		r.Values.Release()
		r.Values = nil
	}
}

// Executor runs an aggregate function over partitions in parallel.
type Executor struct {
	// MaxWorkers bounds the goroutines consuming partitions. Zero or
	// negative means GOMAXPROCS.
	MaxWorkers int

	// Mem allocates the output. Nil means memory.DefaultAllocator.
	Mem memory.Allocator
}

// Exec runs fn over partitions with a default executor.
func Exec(ctx context.Context, fn *Function, dt arrow.DataType, opts *aggregate.Options,
	partitions [][]aggregate.Batch, mem memory.Allocator) (*Result, error) {
	e := &Executor{Mem: mem}
	return e.Exec(ctx, fn, dt, opts, partitions)
}

// Exec creates one state per partition, consumes the partitions in
// parallel, merges the states pairwise and finalizes the merged state.
// No input at all still produces a result, which is then fully null.
func (e *Executor) Exec(ctx context.Context, fn *Function, dt arrow.DataType, opts *aggregate.Options,
	partitions [][]aggregate.Batch) (*Result, error) {
	log := logging.Component(logging.ComponentCompute)
	start := time.Now()

	if len(partitions) == 0 {
		partitions = [][]aggregate.Batch{nil}
	}

	states := make([]aggregate.Aggregator, len(partitions))
	for i := range states {
		st, err := fn.NewState(dt, opts)
		if err != nil {
			return nil, err
		}
		states[i] = st
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

	for i, batches := range partitions {
		g.Go(func() error {
			if err := consume(gctx, states[i], batches); err != nil {
				return errors.Wrapf(err, "partition %d", i)
			}
			logging.WithContext(logging.ContextWithPartition(gctx, i)).Debug("partition consumed",
				"component", logging.ComponentCompute,
				"batches", len(batches),
				"count", states[i].Count())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := Reduce(ctx, states)
	if err != nil {
		return nil, err
	}

	out, err := merged.Finalize(e.Mem)
	if err != nil {
		return nil, err
	}

	log.Info("aggregation finished",
		"function", fn.Name,
		"type", dt,
		"partitions", len(partitions),
		"count", merged.Count(),
		"all_valid", merged.AllValid(),
		"duration", time.Since(start))

	return &Result{
		Values:     out,
		Count:      merged.Count(),
		AllValid:   merged.AllValid(),
		Partitions: len(partitions),
	}, nil
}

func (e *Executor) workers() int {
	if e.MaxWorkers > 0 {
		return e.MaxWorkers
	}
	return runtime.GOMAXPROCS(0)
}

// Consume feeds batches into a fresh state of fn. It backs the partial
// command, where one process produces one partition state.
func Consume(ctx context.Context, fn *Function, dt arrow.DataType, opts *aggregate.Options,
	batches []aggregate.Batch) (aggregate.Aggregator, error) {
	st, err := fn.NewState(dt, opts)
	if err != nil {
		return nil, err
	}
	if err := consume(ctx, st, batches); err != nil {
		return nil, err
	}
	return st, nil
}

func consume(ctx context.Context, st aggregate.Aggregator, batches []aggregate.Batch) error {
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := st.Consume(b); err != nil {
			return err
		}
	}
	return nil
}

// Reduce merges states pairwise in rounds until one is left. Pairs within
// a round are merged concurrently since they share no state. The states
// are consumed; the survivor is returned.
func Reduce(ctx context.Context, states []aggregate.Aggregator) (aggregate.Aggregator, error) {
	if len(states) == 0 {
		return nil, errors.Wrap(errors.ErrInternal, "reduce of zero states")
	}

	level := states
	for len(level) > 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var g errgroup.Group
		next := make([]aggregate.Aggregator, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			next = append(next, left)
			if i+1 == len(level) {
				continue
			}
			right := level[i+1]
			g.Go(func() error {
				return left.MergeFrom(right)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		level = next
	}
	return level[0], nil
}
