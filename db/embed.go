// Package db provides the embedded database schema and the default catalog.
package db

import _ "embed"

// Schema contains the DDL statements for the catalog tables.
//
//go:embed migrations/001_catalog.sql
var Schema string

// Catalog is the default product catalog served when no catalog file or
// database is configured.
//
//go:embed seed/catalog.yaml
var Catalog []byte
