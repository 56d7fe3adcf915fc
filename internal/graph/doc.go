// Package graph walks a build graph that is discovered while it runs.
//
// # Nodes and tasks
//
// A Node is an immutable description of one unit of work: the files it
// reads, the files it writes, and a key identifying its payload. Nodes with
// equal keys are interchangeable, so within one walk each key is visited
// exactly once no matter how many parents invoke it.
//
// A Task is the transient execution of a node. The walker creates it when a
// parent invokes the node, binds a Visitor to it, and runs the visitor in
// its own goroutine:
//
//	Pending -> Running -> Complete
//	                   \-> Failed
//
// # Ordering
//
// Invoke blocks the parent until the child has finished or suspended.
// A task suspends when it is about to block on something outside its own
// goroutine: an external process, a pending producer, or an unfinished
// child. Work a child does before it suspends is therefore complete when
// Invoke returns, while the processes of several children may run at once.
// Call is the non-blocking form used for roots.
//
// When a node is invoked its outputs are registered as pending, and a task
// whose inputs are pending outputs of another task waits for that producer
// first. A failed producer fails its
// consumers with ErrDependenciesFailed. Every task waits for its children
// before it finishes, and fails with ErrChildrenFailed if any of them did.
//
// Waiting is tracked as edges between tasks. An edge that would close a
// loop fails the waiting task with ErrCycle instead of deadlocking.
//
// # Dirtiness
//
// A task is dirty ("wet") when its outputs are stale relative to its inputs,
// or when one of its inputs was written by a dirty task earlier in the same
// walk. Nodes that inherit their outputs are always wet: their own state is
// only known once their children ran.
//
// Visitors decide what "wet" gates. The walker only records it.
package graph
