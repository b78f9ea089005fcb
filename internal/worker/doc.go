// Package worker runs the queue-draining daemon loop: claim the oldest
// pending manifest, dispatch it, archive the result, repeat. A flock-based
// lock keeps the loop single-instance per deployment.
package worker
