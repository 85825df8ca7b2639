// Package quorumkv is a replicated, partitioned key-value coordination
// core.
//
// The root package holds the protocol types and the interfaces that users
// of this module must implement. The actual machinery lives in
// sub-packages:
//
//   - node + consensus run leader election and log replication over a
//     replicated log (Raft-style).
//   - primarybackup replicates a fixed primary to N backups with strict
//     in-order operation application.
//   - multimaster accepts concurrent writes at multiple nodes and
//     surfaces conflicts using vector clocks (vclock).
//   - hashring + partition scale the store horizontally by mapping keys
//     to shards with consistent hashing.
//
// Persistence (durable), transport (transport) and the state machine
// (kvstore) are pluggable collaborators behind the interfaces defined
// here.
package quorumkv
