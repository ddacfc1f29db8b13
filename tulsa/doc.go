// Package tulsa is a generic recurring-task scheduler. It owns a
// heterogeneous set of long-running tasks keyed by an integer id and accepts
// Create/Update/Delete commands over a channel, serialized through a single
// control goroutine.
//
// Two execution substrates share the same command shape but nothing else:
// AsyncScheduler drives tasks as cooperatively-cancelled goroutines on the
// shared Go runtime, and ThreadScheduler drives tasks as blocking callables
// on one pinned OS thread apiece. Callers pick a substrate by choosing which
// task type (AsyncTask or SyncTask) they send and which Run function they
// call; the two substrates are not unified behind one interface because
// they are genuinely different execution models.
package tulsa
