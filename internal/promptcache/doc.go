// Package promptcache persists LLM responses keyed by the exact prompt text
// that produced them.
//
// # Storage
//
// The cache is a single JSON object on disk mapping prompt text to response
// text. It never evicts or expires entries, so it grows without bound; the
// cache list/clear CLI commands exist for manual housekeeping. Each access
// re-reads the file and each store rewrites it wholesale, which keeps the
// format trivially inspectable at the cost of lost updates when multiple
// processes race (the tool is intended for single-operator use).
//
// A corrupt cache file is never fatal: it is logged and treated as empty.
package promptcache
