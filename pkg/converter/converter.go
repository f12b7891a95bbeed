// Package converter implements the Entity-Column conversion engine. It walks
// the metadata supplied by a mapping.Provider to turn a Go value into a
// column.Entity and back, recursing into embedded entities and collections.
//
// Types without a constructor are allocated as zero values and populated
// field by field; absent columns leave the zero value in place. Types with a
// constructor are built in a single call once every parameter has been
// resolved: an absent scalar or embedded parameter receives its zero value
// and an absent collection an empty slice.
//
// A Converter holds no mutable state and is safe for concurrent use as long
// as the provider is.
package converter

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/logger"
	"github.com/ajitpratap0/colmap/pkg/mapping"
	"github.com/ajitpratap0/colmap/pkg/metrics"
)

// DefaultMaxDepth bounds the nesting of embedded entities and collections.
const DefaultMaxDepth = 64

// Converter converts between Go values and column entities.
type Converter struct {
	provider mapping.Provider
	logger   *zap.Logger
	maxDepth int
	metrics  bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxDepth sets how deep embedded entities may nest. Values below one
// keep the default.
func WithMaxDepth(depth int) Option {
	return func(c *Converter) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(enabled bool) Option {
	return func(c *Converter) { c.metrics = enabled }
}

// New creates a Converter reading metadata from provider.
func New(provider mapping.Provider, opts ...Option) (*Converter, error) {
	if provider == nil {
		return nil, errors.NullArgument("provider")
	}
	c := &Converter{
		provider: provider,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get()
	}
	c.logger = c.logger.With(zap.String("component", "converter"))
	return c, nil
}

// Provider returns the metadata provider.
func (c *Converter) Provider() mapping.Provider { return c.provider }

// MaxDepth returns the configured nesting bound.
func (c *Converter) MaxDepth() int { return c.maxDepth }

// ToColumn converts entity, a struct value or a pointer to one, into a
// column entity named after its metadata.
func (c *Converter) ToColumn(entity any) (*column.Entity, error) {
	timer := metrics.NewTimer()
	name := "unknown"

	ce, err := c.toColumn(entity, &name)
	c.observe(metrics.DirectionToColumn, name, timer, err)
	if err != nil {
		return nil, err
	}
	return ce, nil
}

func (c *Converter) toColumn(entity any, name *string) (*column.Entity, error) {
	if entity == nil {
		return nil, errors.NullArgument("entity")
	}
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, errors.NullArgument("entity")
		}
		v = v.Elem()
	}
	*name = v.Type().Name()

	meta, err := c.provider.MetadataOf(v.Type())
	if err != nil {
		return nil, err
	}
	*name = meta.Name

	cols, err := c.columns(meta, v, 0)
	if err != nil {
		return nil, err
	}
	return column.EntityOf(meta.Name, cols...), nil
}

// ToEntity converts ce into a pointer to the Go type registered under the
// entity name.
func (c *Converter) ToEntity(ce *column.Entity) (any, error) {
	v, err := c.toEntity(ce)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// ToEntityInto converts ce and stores the result in dst, which must be a
// pointer to the registered type or to a pointer to it.
func (c *Converter) ToEntityInto(ce *column.Entity, dst any) error {
	rv := reflect.ValueOf(dst)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.NullArgument("destination")
	}
	v, err := c.toEntity(ce)
	if err != nil {
		return err
	}
	out, err := fitResult(v, rv.Type().Elem())
	if err != nil {
		return err
	}
	rv.Elem().Set(out)
	return nil
}

// ToEntityAs converts ce into T, which may be the registered struct type or
// a pointer to it.
func ToEntityAs[T any](c *Converter, ce *column.Entity) (T, error) {
	var zero T
	if c == nil {
		return zero, errors.NullArgument("converter")
	}
	v, err := c.toEntity(ce)
	if err != nil {
		return zero, err
	}
	out, err := fitResult(v, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	return out.Interface().(T), nil
}

func (c *Converter) toEntity(ce *column.Entity) (reflect.Value, error) {
	timer := metrics.NewTimer()
	if ce == nil {
		err := errors.NullArgument("column entity")
		c.observe(metrics.DirectionToEntity, "unknown", timer, err)
		return reflect.Value{}, err
	}

	meta, err := c.provider.MetadataByName(ce.Name())
	if err != nil {
		c.observe(metrics.DirectionToEntity, ce.Name(), timer, err)
		return reflect.Value{}, err
	}

	v, err := c.build(meta, ce, 0)
	c.observe(metrics.DirectionToEntity, meta.Name, timer, err)
	return v, err
}

// fitResult adapts a pointer produced by build to target.
func fitResult(p reflect.Value, target reflect.Type) (reflect.Value, error) {
	switch {
	case p.Type().AssignableTo(target):
		return p, nil
	case p.Elem().Type().AssignableTo(target):
		return p.Elem(), nil
	}
	return reflect.Value{}, errors.Newf(errors.ErrorTypeTypeCoercion, "entity of type %s cannot be stored in %s", p.Elem().Type(), target).
		WithDetail("source", p.Elem().Type().String()).
		WithDetail("target", target.String())
}

func (c *Converter) observe(direction, entity string, timer *metrics.Timer, err error) {
	if c.metrics {
		metrics.RecordConversion(direction, entity, timer.Stop(), err)
	}
	if err != nil {
		c.logger.Debug("conversion failed",
			zap.String("direction", direction),
			zap.String("entity", entity),
			zap.String("error_type", string(errors.TypeOf(err))),
			zap.Error(err))
	}
}

func (c *Converter) checkDepth(meta *mapping.EntityMetadata, depth int) error {
	if depth > c.maxDepth {
		return errors.Newf(errors.ErrorTypeValidation, "%s is nested deeper than %d levels", meta.Name, c.maxDepth).
			WithDetail("entity", meta.Name).
			WithDetail("max_depth", c.maxDepth)
	}
	return nil
}

func memberError(err error, meta *mapping.EntityMetadata, role, member, col string, target reflect.Type) error {
	return errors.Wrap(err, errors.TypeOf(err), fmt.Sprintf("%s %s of %s (column %s, type %s)", role, member, meta.Name, col, target)).
		WithDetail("entity", meta.Name).
		WithDetail(role, member).
		WithDetail("column", col).
		WithDetail("target", target.String())
}
