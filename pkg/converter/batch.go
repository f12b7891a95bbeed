package converter

import (
	"context"
	"runtime"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/metrics"
)

// ToColumnAll converts entities concurrently with at most workers goroutines
// (GOMAXPROCS when workers < 1). The result has the order of the input. The
// first failure cancels the remaining conversions and is returned.
func (c *Converter) ToColumnAll(ctx context.Context, entities []any, workers int) ([]*column.Entity, error) {
	out := make([]*column.Entity, len(entities))
	err := c.each(ctx, len(entities), workers, metrics.DirectionToColumn, func(i int) error {
		ce, err := c.ToColumn(entities[i])
		if err != nil {
			return err
		}
		out[i] = ce
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ToEntityAll is the ToEntity counterpart of ToColumnAll.
func (c *Converter) ToEntityAll(ctx context.Context, entities []*column.Entity, workers int) ([]any, error) {
	out := make([]any, len(entities))
	err := c.each(ctx, len(entities), workers, metrics.DirectionToEntity, func(i int) error {
		v, err := c.ToEntity(entities[i])
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Converter) each(ctx context.Context, n, workers int, direction string, fn func(i int) error) error {
	if ctx == nil {
		return errors.NullArgument("context")
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	tracker := metrics.NewThroughputTracker(direction)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return errors.Wrap(err, errors.TypeOf(err), "entity "+strconv.Itoa(i)).
					WithDetail("index", i)
			}
			tracker.Increment(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rate := 0.0
	if c.metrics {
		rate = tracker.GetAndReset()
	}
	c.logger.Debug("batch converted",
		zap.String("direction", direction),
		zap.Int("entities", n),
		zap.Int("workers", workers),
		zap.Float64("entities_per_second", rate))
	return nil
}
