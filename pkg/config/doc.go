// Package config provides the configuration of colmap processes.
//
// # Key Features
//
// - Config: one structure with Converter, Codec, Storage and Observability sections
// - Environment variable substitution with ${VAR_NAME} syntax
// - Defaults from New and validation with Validate
//
// # Usage
//
//	cfg, err := config.Load("colmap.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A file only needs the values that differ from the defaults:
//
//	name: orders
//	codec:
//	  compression: zstd
//	storage:
//	  driver: mongodb
//	  uri: ${MONGO_URI}
//	  database: shop
//
// Config is written back with Save, which the CLI uses for "config init".
package config
