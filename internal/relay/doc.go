// Package relay orchestrates end-to-end model calls: cache consultation,
// oversized-prompt chunking, retry-wrapped remote attempts, and deterministic
// reassembly of per-chunk results.
package relay
