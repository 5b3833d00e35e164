// Package cache provides the TTL-bounded freshness cache backing the
// aggregation pipeline. It serves two roles: best-effort data store for the
// fused token set, and throttle for raw upstream responses.
//
// Cache failures are soft everywhere: callers treat an error the same as a
// miss and carry on.
package cache
