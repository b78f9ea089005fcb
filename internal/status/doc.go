// Package status implements the polled status protocol between a running job
// and an external waiter.
//
// The running job owns its status file and writes it transactionally (temp
// file plus rename) through Writer; Waiter polls on a fixed interval under a
// deadline and treats missing files and torn reads as transient. Transitions
// are monotonic: pending -> running -> completed or failed, and terminal
// states are final.
package status
