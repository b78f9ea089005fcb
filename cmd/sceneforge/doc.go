// Command sceneforge is the operator CLI for the scene pipeline: submit job
// manifests, watch their status, inspect the queue, query the scene
// registry, and run the worker loop in the foreground.
package main
