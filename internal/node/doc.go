// Package node runs the subspace-node executable and talks to it over its
// JSON-RPC websocket endpoint. It builds the node command line from the
// settings, waits for the RPC server to come up, and exposes the queries the
// farm and info commands need: chain info, sync state, block hashes, headers
// with their decoded pre-runtime digest, and a new-heads subscription.
package node
