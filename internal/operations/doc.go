// Package operations runs bulk optimization jobs.
//
// A bulk job is an ordered list of item IDs and a cursor. The runner never
// works in the background: each call to Step processes exactly one item and
// advances the cursor, so progress only moves when a client asks for it.
//
// Core Components:
//
// Runner: starts, steps, aborts and reports on jobs. Every call checks the
// license gate first.
//
// MemoryJobStore: holds job state in memory. Jobs are ephemeral and are lost
// on restart.
//
// StatusBroadcaster: forwards a JobEvent to the websocket hub after every
// job transition.
//
// Example usage:
//
//	runner := operations.NewRunner(gate, optimizerSvc, operations.NewMemoryJobStore(),
//		operations.NewStatusBroadcaster(hub, logger), logger, metrics)
//
//	handle, err := runner.Start(ctx, []string{"12", "13", "14"})
//	for cursor := 0; ; cursor++ {
//		step, err := runner.Step(ctx, handle.ID, cursor)
//		if err != nil || step.Done {
//			break
//		}
//	}
package operations
