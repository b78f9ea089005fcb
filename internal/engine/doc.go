// Package engine launches the headless content engine for manifest-driven
// jobs. The CommandExecutor stages the manifest into the job's output
// directory and invokes the engine binary with a single commandlet entry
// point; the engine reports progress through the job status file while it
// runs, and the exit code decides success.
package engine
