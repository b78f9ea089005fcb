// Package registry persists scene, map, and sequence state in SQLite.
//
// The Store manages database connections, schema migrations, preserved-field
// upserts, remote-listing reconciliation, and aggregate statistics. Scene
// names are unique; map and sequence records key off their scene. Entries are
// created implicitly by the first write and are never deleted by normal
// workflow operation.
//
// Treat this package as the single source of truth for registry semantics;
// schema changes add a new file under migrations/.
package registry
