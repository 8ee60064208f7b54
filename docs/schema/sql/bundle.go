// Package sqldocs exposes the catalog SQL bundles directly from the docs tree.
package sqldocs

import _ "embed"

// SQLite contains the catalog SQLite DDL bundle.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the catalog Postgres DDL bundle.
//
//go:embed postgres.sql
var Postgres string
