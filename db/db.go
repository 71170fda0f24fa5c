// Package db carries the canonical SQL schema so deployment tooling and the
// integration test containers apply the same definitions.
package db

import _ "embed"

// Schema is the full DDL for a fresh database. Every statement is
// idempotent, so applying it to an existing database is safe.
//
//go:embed schema.sql
var Schema string
