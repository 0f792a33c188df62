// Package runner executes external CLI tools and normalizes their outcomes.
//
// # Overview
//
// The runner spawns one operating-system process per invocation, enforces
// the descriptor's timeout and per-stream output caps, and emits a
// normalized results.RunResult regardless of how the process ended. A
// timeout, a non-zero exit, or a structured-output parse failure are all
// delivered as ordinary results with Success=false; only configuration
// problems (unknown or disabled tool) and process launch failures are
// returned as errors.
//
// Concurrent non-forced requests for the same tool id are deduplicated:
// every waiter observes the identical RunResult from the single in-flight
// execution. Forced requests always start a fresh process.
//
// # Usage
//
//	r := runner.NewRunner(runner.Config{
//		Registry:  reg,
//		Store:     store,
//		Workspace: ws,
//	})
//	res, err := r.Execute(ctx, tool.Request{ToolID: "vcs.status", Reason: tool.ReasonManual})
package runner
