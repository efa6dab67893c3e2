// Package compute drives the interpreters that evaluate worksheet cells.
// It is structured into small files by concern:
//
//   - process.go: the Process interface, OutputStatus and variant names.
//   - limits.go: ProcessLimits and the ulimit prefix applied at spawn.
//   - sentinel.go: incremental START<n> ... <prompt> framing (ParseOutcome).
//   - dialect.go: Dialect capability and the Python dialect.
//   - local.go: LocalProcess, an interpreter on a pseudo-terminal.
//   - remote.go: RemoteProcess, a LocalProcess launched over ssh on a shared filesystem.
//   - reference.go: ReferenceProcess, a synchronous in-process evaluator used by tests.
//   - scratch.go: per-execution scratch directories and produced-file listing.
//   - registry.go: ProcessRegistry, enumerated by the periodic driver.
//   - metrics.go: Prometheus collectors.
//
// All variants are safe for concurrent use: the periodic driver calls Update
// from its own goroutine while worksheets poll from request goroutines.
package compute
