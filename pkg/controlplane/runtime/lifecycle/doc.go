// Package lifecycle supervises the core app.
//
// The Controller owns the core app state machine. State-changing operations
// (start, stop, restart, rebuild, update) are admitted one at a time: an
// operation is first checked by the Guard, then moves the controller into a
// transient state and runs as a supervised task detached from the caller's
// context. The task's outcome is recorded in controller state and in the job
// history whether or not the caller is still waiting for it.
package lifecycle
