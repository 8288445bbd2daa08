// Package delivery runs the inbox polling cycle for the current session.
//
// # State Machine
//
// A [Scheduler] moves through
//
//	Idle -> Scheduled -> Polling -> Scheduled -> ... -> Stopped
//
// [Scheduler.Start] arms a repeating ticker bound to one session id. Each
// tick fetches the inbox with the credential bound to that session and
// hands the records to a [MessageSink]. A tick that arrives while a fetch
// for the same session is outstanding is skipped, never queued.
// [Scheduler.PollNow] is a manual refresh with the same in-flight guard; it
// does not reset the ticker.
//
// # Cancellation
//
// [Scheduler.Stop] cancels future ticks and returns once the ticker loop
// has exited. A fetch already on the wire is not aborted: its records still
// reach the sink, which drops them when the session id is no longer
// current.
//
// A rejected credential stops the scheduler instead of polling in a loop.
//
// # Thread Safety
//
// All Scheduler methods are safe for concurrent use.
package delivery
