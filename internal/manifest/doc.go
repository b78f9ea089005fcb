// Package manifest defines the immutable job description consumed by workers.
//
// A manifest pairs a closed JobType enum with one typed payload schema per
// variant. Payloads are validated in full before dispatch so an invalid
// manifest is rejected at the edge rather than deep inside an executor.
// Manifest files are UTF-8 JSON written atomically (temp file plus rename).
package manifest
