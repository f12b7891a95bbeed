package mapping

import (
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/colmap/pkg/errors"
)

// Provider supplies entity metadata by Go type or by entity name.
type Provider interface {
	// MetadataOf returns the metadata of t, or of the type t points to.
	MetadataOf(t reflect.Type) (*EntityMetadata, error)
	// MetadataByName returns the metadata registered under an entity name.
	MetadataByName(name string) (*EntityMetadata, error)
}

// Registry builds and stores entity metadata. Types are registered at start
// up; once sealed the registry is read-only and safe for concurrent use
// without further coordination.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*EntityMetadata
	byName map[string]*EntityMetadata
	order  []string
	sealed bool
	logger *zap.Logger
}

var _ Provider = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byType: make(map[reflect.Type]*EntityMetadata),
		byName: make(map[string]*EntityMetadata),
		logger: logger,
	}
}

// Register scans the struct type of prototype, which may be a value or a
// pointer, and stores its metadata. Struct types reachable through embedded
// or collection fields are registered with default options unless they are
// already known; registering one of them explicitly later replaces the
// default entry.
func (r *Registry) Register(prototype any, opts ...Option) (*EntityMetadata, error) {
	if prototype == nil {
		return nil, errors.NullArgument("prototype")
	}
	return r.RegisterType(reflect.TypeOf(prototype), opts...)
}

// RegisterType is Register for a reflect.Type.
func (r *Registry) RegisterType(t reflect.Type, opts ...Option) (*EntityMetadata, error) {
	if t == nil {
		return nil, errors.NullArgument("type")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, errors.Newf(errors.ErrorTypeValidation, "registry is sealed, cannot register %s", t).
			WithDetail("type", t.String())
	}

	t = indirect(t)
	if existing, ok := r.byType[t]; ok && !existing.implicit {
		return nil, errors.Newf(errors.ErrorTypeValidation, "%s is already registered as %s", t, existing.Name).
			WithDetail("type", t.String()).
			WithDetail("entity", existing.Name)
	}

	root, err := scan(t, o)
	if err != nil {
		return nil, err
	}

	pending := map[reflect.Type]*EntityMetadata{t: root.meta}
	added := []reflect.Type{t}
	queue := append([]reflect.Type(nil), root.nested...)
	for len(queue) > 0 {
		nt := queue[0]
		queue = queue[1:]
		if _, ok := pending[nt]; ok {
			continue
		}
		if _, ok := r.byType[nt]; ok {
			continue
		}
		s, err := scan(nt, options{})
		if err != nil {
			return nil, errors.Wrap(err, errors.TypeOf(err), "cannot map "+nt.String()+" nested in "+t.String()).
				WithDetail("type", t.String())
		}
		s.meta.implicit = true
		pending[nt] = s.meta
		added = append(added, nt)
		queue = append(queue, s.nested...)
	}

	names := make(map[string]reflect.Type, len(added))
	for _, pt := range added {
		meta := pending[pt]
		if other, ok := names[meta.Name]; ok {
			return nil, errors.Newf(errors.ErrorTypeValidation, "entity name %s is used by both %s and %s", meta.Name, other, pt).
				WithDetail("entity", meta.Name)
		}
		names[meta.Name] = pt
		if other, ok := r.byName[meta.Name]; ok && other.Type != pt {
			return nil, errors.Newf(errors.ErrorTypeValidation, "entity name %s is used by both %s and %s", meta.Name, other.Type, pt).
				WithDetail("entity", meta.Name)
		}
	}

	for _, pt := range added {
		meta := pending[pt]
		if old, ok := r.byType[pt]; ok && old.Name != meta.Name {
			delete(r.byName, old.Name)
			r.forget(old.Name)
		}
		if _, ok := r.byName[meta.Name]; !ok {
			r.order = append(r.order, meta.Name)
		}
		r.byType[pt] = meta
		r.byName[meta.Name] = meta
		r.logger.Debug("entity registered",
			zap.String("entity", meta.Name),
			zap.String("type", pt.String()),
			zap.Int("fields", len(meta.Fields)),
			zap.Bool("constructor", meta.HasConstructor()),
			zap.Bool("implicit", meta.implicit))
	}
	return root.meta, nil
}

// MustRegister is Register that panics on error, for package initialization.
func (r *Registry) MustRegister(prototype any, opts ...Option) *EntityMetadata {
	meta, err := r.Register(prototype, opts...)
	if err != nil {
		panic(err)
	}
	return meta
}

// Add stores metadata built by hand.
func (r *Registry) Add(meta *EntityMetadata) error {
	if meta == nil {
		return errors.NullArgument("metadata")
	}
	if err := meta.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.Newf(errors.ErrorTypeValidation, "registry is sealed, cannot add %s", meta.Name).
			WithDetail("entity", meta.Name)
	}
	if existing, ok := r.byType[meta.Type]; ok && !existing.implicit {
		return errors.Newf(errors.ErrorTypeValidation, "%s is already registered as %s", meta.Type, existing.Name).
			WithDetail("type", meta.Type.String())
	}
	if other, ok := r.byName[meta.Name]; ok && other.Type != meta.Type {
		return errors.Newf(errors.ErrorTypeValidation, "entity name %s is used by both %s and %s", meta.Name, other.Type, meta.Type).
			WithDetail("entity", meta.Name)
	}

	if _, ok := r.byName[meta.Name]; !ok {
		r.order = append(r.order, meta.Name)
	}
	r.byType[meta.Type] = meta
	r.byName[meta.Name] = meta
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	n := len(r.order)
	r.mu.Unlock()
	r.logger.Info("entity registry sealed", zap.Int("entities", n))
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// MetadataOf implements Provider.
func (r *Registry) MetadataOf(t reflect.Type) (*EntityMetadata, error) {
	if t == nil {
		return nil, errors.NullArgument("type")
	}
	t = indirect(t)

	r.mu.RLock()
	meta, ok := r.byType[t]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeMappingNotFound, "no entity mapping for %s", t).
			WithDetail("type", t.String())
	}
	return meta, nil
}

// MetadataByName implements Provider.
func (r *Registry) MetadataByName(name string) (*EntityMetadata, error) {
	r.mu.RLock()
	meta, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeMappingNotFound, "no entity mapping named %q", name).
			WithDetail("entity", name)
	}
	return meta, nil
}

// Entities returns the registered entity names in registration order.
func (r *Registry) Entities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// SortedEntities returns the registered entity names sorted.
func (r *Registry) SortedEntities() []string {
	names := r.Entities()
	sort.Strings(names)
	return names
}

func (r *Registry) forget(name string) {
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
