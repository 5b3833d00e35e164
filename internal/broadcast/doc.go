// Package broadcast tracks live client connections and their topic
// subscriptions, and fans serialized update envelopes out to subscribers.
//
// Delivery is best-effort: a connection whose send fails is pruned from the
// active set and from every topic, and the broadcast continues for the rest.
// No cross-connection ordering is promised; each connection receives
// envelopes in publish order.
package broadcast
