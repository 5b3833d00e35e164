// Package scheduler runs the poll → fetch → fuse → cache → diff → publish
// cycle on a fixed interval. It is the single writer for the cached trending
// set; a tick that arrives while a cycle is still running is skipped rather
// than run concurrently.
package scheduler
