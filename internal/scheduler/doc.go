// Package scheduler runs one goroutine per field of a validated graph.
//
// Every task blocks until the completion signals of all of its parents are
// set, reads the parents' columns from the shared result store, runs its
// bound Runnable exactly once for the whole batch, stores the column under
// its own id and finally sets its own signal.
//
// Failures are fail-fast: the first task error cancels the run, tasks still
// waiting on a parent return without running or signalling, and Run
// returns that first error.
package scheduler
