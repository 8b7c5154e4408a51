// Package pagestore implements a crash-safe, atomic, durable page store: a
// single-file container partitioned into fixed-size pages with an
// allocate/read/write/free interface suitable as a foundation for
// higher-level persistent data structures. It never interprets page
// contents.
//
// Durability rests on a double-buffered header (two header pages, the
// "active" slot chosen by epoch at open time), a copy-on-write commit
// pipeline that never overwrites a live page, and a one-commit-delayed
// free-list reclamation scheme that only links a freed page back into the
// allocatable chain once the header that stopped referencing it is itself
// durable.
package pagestore
