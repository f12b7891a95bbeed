// Package colmap converts Go values to storage-agnostic column entities and
// back.
//
// A column entity is a named, ordered list of columns. A column value is a
// scalar, a nested entity ([]column.Column) or a collection of nested
// entities ([][]column.Column). Column stores such as MongoDB or Redis only
// ever see column entities; the mapping between them and Go types lives in
// colmap.
//
// # Packages
//
//   - pkg/column: column entities and value coercion
//   - pkg/mapping: entity metadata, the registry, value converters
//   - pkg/converter: ToColumn and ToEntity, sequential and batched
//   - pkg/codec: typed JSON documents and compressed frames
//   - pkg/storage: the column family manager and its memory, MongoDB and
//     Redis drivers
//   - pkg/template: persistence of Go values with lifecycle events
//   - pkg/config, pkg/logger, pkg/metrics, pkg/observability: ambient stack
//
// # Quick Start
//
//	registry := mapping.NewRegistry(logger.Get())
//	registry.MustRegister(PetOwner{})
//	registry.Seal()
//
//	conv, _ := converter.New(registry)
//	ce, _ := conv.ToColumn(PetOwner{ID: 10, Name: "Otavio"})
//	owner, _ := converter.ToEntityAs[PetOwner](conv, ce)
//
// The colmap command line tool in cmd/colmap writes configuration files and
// encodes, decodes and inspects frames.
package colmap
