// Package dispatch routes claimed job manifests to per-type executors and
// enforces the status contract around each run: a pending record before
// execution, a mandatory terminal record after, and a best-effort history
// line. Errors carry sentinel markers so callers can tell a misrouted
// manifest from an executor failure.
package dispatch
