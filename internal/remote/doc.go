// Package remote defines the boundary to the baked-scene object store.
//
// The orchestration core only ever asks for a flat list of top-level names
// under a prefix; everything else about the store is opaque. DirLister serves
// deployments with a mounted mirror, and store-specific listers implement the
// same interface out of tree.
package remote
