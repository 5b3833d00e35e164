// Package server exposes the outward surface of the aggregator: the
// paginated token read API, the websocket subscription endpoint, and the
// per-IP rate limit middleware. The list handler serves from the freshness
// cache only; the detail handler additionally falls back to a direct
// provider lookup for tokens outside the trending set.
package server
