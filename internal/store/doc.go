// Package store provides the optional Postgres token store. The schema is
// created at startup; snapshots are mirrored here off the publish path, and
// the read API never queries it.
package store
