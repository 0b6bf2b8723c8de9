// Package sched provides periodic schedulers for policy watchers.
//
// Executor is the production scheduler: one goroutine that owns a set of
// pollers and runs each of them every interval ticks of a clock. Everything
// registered on an executor runs serialized on that goroutine, so pollers
// must be quick and must never block.
//
// Manual is a deterministic scheduler that fires pollers on the caller's
// goroutine as a manual clock is advanced. It is used by tests and by
// simulations that want to replay a timeline.
package sched
