// Package inbox implements the filesystem job queue.
//
// The queue root holds inbox, processing, completed, failed, and poison
// subdirectories. Submitters create manifest files in inbox atomically;
// workers claim by renaming into processing, which the filesystem guarantees
// succeeds for at most one claimer. No file is ever mutated in place while a
// reader might be scanning.
package inbox
