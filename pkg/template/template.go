// Package template combines the converter with a column family manager:
// Go values go in, Go values come out, and listeners observe every write.
//
//	tpl, err := template.New(conv, manager)
//	err = tpl.Insert(ctx, owner)
//	found, ok, err := template.Find[testentities.PetOwner](ctx, tpl, 10)
package template

import (
	"context"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/converter"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/logger"
	"github.com/ajitpratap0/colmap/pkg/mapping"
	"github.com/ajitpratap0/colmap/pkg/storage"
)

const tracerName = "github.com/ajitpratap0/colmap/pkg/template"

// Template persists Go values through a storage.Manager.
type Template struct {
	converter *converter.Converter
	manager   storage.Manager
	listeners []Listener
	workers   int
	logger    *zap.Logger
	tracer    trace.Tracer
}

// Option configures a Template.
type Option func(*Template)

// WithListener registers l. Listeners run in registration order.
func WithListener(l Listener) Option {
	return func(t *Template) {
		if l != nil {
			t.listeners = append(t.listeners, l)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Template) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithTracer sets the tracer; the global provider is used by default.
func WithTracer(tr trace.Tracer) Option {
	return func(t *Template) {
		if tr != nil {
			t.tracer = tr
		}
	}
}

// WithWorkers bounds the conversions InsertAll runs concurrently.
func WithWorkers(n int) Option {
	return func(t *Template) { t.workers = n }
}

// New creates a template.
func New(conv *converter.Converter, manager storage.Manager, opts ...Option) (*Template, error) {
	if conv == nil {
		return nil, errors.NullArgument("converter")
	}
	if manager == nil {
		return nil, errors.NullArgument("manager")
	}
	t := &Template{
		converter: conv,
		manager:   manager,
		logger:    logger.Get(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(zap.String("component", "template"))
	return t, nil
}

// Converter returns the converter of the template.
func (t *Template) Converter() *converter.Converter { return t.converter }

// Manager returns the storage manager of the template.
func (t *Template) Manager() storage.Manager { return t.manager }

// Insert converts entity and stores it under its identifier.
func (t *Template) Insert(ctx context.Context, entity any) error {
	return t.write(ctx, "insert", entity, t.manager.Insert)
}

// Update converts entity and replaces the stored entry with the same
// identifier. A missing entry is a not_found error.
func (t *Template) Update(ctx context.Context, entity any) error {
	return t.write(ctx, "update", entity, t.manager.Update)
}

type storeFunc func(ctx context.Context, e *column.Entity, key string) error

func (t *Template) write(ctx context.Context, operation string, entity any, store storeFunc) (err error) {
	meta, err := t.metadataOf(entity)
	if err != nil {
		return err
	}
	ctx, span := t.start(ctx, operation, meta.Name)
	defer func() { t.end(span, err) }()

	id, err := idColumn(meta)
	if err != nil {
		return err
	}
	if err := t.fire(ctx, EntityPrePersist{Value: entity}); err != nil {
		return err
	}
	ce, err := t.converter.ToColumn(entity)
	if err != nil {
		return err
	}
	return t.persist(ctx, operation, entity, ce, id.Column, store)
}

func (t *Template) persist(ctx context.Context, operation string, entity any, ce *column.Entity, key string, store storeFunc) error {
	if err := t.fire(ctx, PrePersist{Entity: ce}); err != nil {
		return err
	}
	if err := store(ctx, ce, key); err != nil {
		logger.FromContext(ctx, t.logger).Debug("write failed", zap.Error(err))
		return err
	}
	if err := t.fire(ctx, PostPersist{Entity: ce}); err != nil {
		return err
	}
	if err := t.fire(ctx, EntityPostPersist{Value: entity}); err != nil {
		return err
	}
	logger.FromContext(ctx, t.logger).Debug(operation+" completed", zap.Int("columns", ce.Size()))
	return nil
}

// InsertAll converts entities concurrently and stores them in order. Every
// entity must be of a registered type; the first failure stops the batch.
func (t *Template) InsertAll(ctx context.Context, entities []any) (err error) {
	ctx, span := t.start(ctx, "insert_all", "")
	span.SetAttributes(attribute.Int("colmap.entities", len(entities)))
	defer func() { t.end(span, err) }()

	keys := make([]string, len(entities))
	for i, entity := range entities {
		meta, err := t.metadataOf(entity)
		if err != nil {
			return err
		}
		id, err := idColumn(meta)
		if err != nil {
			return err
		}
		keys[i] = id.Column
		if err := t.fire(ctx, EntityPrePersist{Value: entity}); err != nil {
			return err
		}
	}

	converted, err := t.converter.ToColumnAll(ctx, entities, t.workers)
	if err != nil {
		return err
	}
	for i, ce := range converted {
		if err := t.persist(ctx, "insert", entities[i], ce, keys[i], t.manager.Insert); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the entry of the type of prototype stored under id.
func (t *Template) Delete(ctx context.Context, prototype any, id any) (err error) {
	meta, err := t.metadataOf(prototype)
	if err != nil {
		return err
	}
	ctx, span := t.start(ctx, "delete", meta.Name)
	defer func() { t.end(span, err) }()

	key, err := keyOf(meta, id)
	if err != nil {
		return err
	}
	return t.manager.Delete(ctx, meta.Name, key)
}

// Find loads the T stored under id. T may be the registered struct type or a
// pointer to it.
func Find[T any](ctx context.Context, t *Template, id any) (out T, found bool, err error) {
	if t == nil {
		return out, false, errors.NullArgument("template")
	}
	meta, err := t.converter.Provider().MetadataOf(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return out, false, err
	}
	ctx, span := t.start(ctx, "find", meta.Name)
	defer func() { t.end(span, err) }()

	key, err := keyOf(meta, id)
	if err != nil {
		return out, false, err
	}
	ce, found, err := t.manager.Find(ctx, meta.Name, key)
	if err != nil || !found {
		return out, false, err
	}
	out, err = converter.ToEntityAs[T](t.converter, ce)
	if err != nil {
		return out, false, err
	}
	return out, true, nil
}

// FindAll loads every stored T.
func FindAll[T any](ctx context.Context, t *Template) (out []T, err error) {
	if t == nil {
		return nil, errors.NullArgument("template")
	}
	meta, err := t.converter.Provider().MetadataOf(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	ctx, span := t.start(ctx, "find_all", meta.Name)
	defer func() { t.end(span, err) }()

	all, err := t.manager.FindAll(ctx, meta.Name)
	if err != nil {
		return nil, err
	}
	out = make([]T, 0, len(all))
	for _, ce := range all {
		v, err := converter.ToEntityAs[T](t.converter, ce)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	span.SetAttributes(attribute.Int("colmap.entities", len(out)))
	return out, nil
}

func (t *Template) metadataOf(entity any) (*mapping.EntityMetadata, error) {
	if entity == nil {
		return nil, errors.NullArgument("entity")
	}
	return t.converter.Provider().MetadataOf(reflect.TypeOf(entity))
}

func (t *Template) fire(ctx context.Context, e Event) error {
	if len(t.listeners) == 0 {
		return nil
	}
	trace.SpanFromContext(ctx).AddEvent(e.Kind())
	for _, l := range t.listeners {
		if err := l.Fire(ctx, e); err != nil {
			logger.FromContext(ctx, t.logger).Debug("listener rejected event",
				zap.String("event", e.Kind()), zap.Error(err))
			return err
		}
	}
	return nil
}

func (t *Template) start(ctx context.Context, operation, entity string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.ContextWithOperation(ctx, operation)
	attrs := []attribute.KeyValue{attribute.String("colmap.operation", operation)}
	if entity != "" {
		ctx = logger.ContextWithEntity(ctx, entity)
		attrs = append(attrs, attribute.String("colmap.entity", entity))
	}
	return t.tracer.Start(ctx, "colmap.template."+operation, trace.WithAttributes(attrs...))
}

func (t *Template) end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func idColumn(meta *mapping.EntityMetadata) (*mapping.FieldMetadata, error) {
	id, ok := meta.ID()
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeValidation, "entity %s has no identifier field", meta.Name).
			WithDetail("entity", meta.Name)
	}
	return id, nil
}

// keyOf coerces id into the stored form of the identifier column, applying
// the identifier's converter if it has one.
func keyOf(meta *mapping.EntityMetadata, id any) (column.Column, error) {
	field, err := idColumn(meta)
	if err != nil {
		return column.Column{}, err
	}
	if id == nil {
		return column.Column{}, errors.NullArgument("id")
	}
	v, err := column.Convert(id, field.Type)
	if err != nil {
		return column.Column{}, errors.Wrap(err, errors.ErrorTypeTypeCoercion, "invalid id for "+meta.Name).
			WithDetail("entity", meta.Name).
			WithDetail("column", field.Column)
	}
	value := v.Interface()
	if field.Converter != nil {
		if value, err = field.Converter.Encode(value); err != nil {
			return column.Column{}, errors.Wrap(err, errors.ErrorTypeTypeCoercion, "invalid id for "+meta.Name).
				WithDetail("entity", meta.Name).
				WithDetail("column", field.Column)
		}
	}
	return column.Of(field.Column, value), nil
}
