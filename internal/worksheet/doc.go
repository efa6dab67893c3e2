// Package worksheet schedules the cells of one worksheet onto its compute
// process.
//
// A worksheet owns an ordered list of cells and an evaluation queue. At most
// one cell computes at a time; the rest wait in FIFO order except for ASAP
// cells, which go right behind the running one. Callers drive progress by
// polling CheckComputation, which collects output, applies the truncation
// policy, harvests produced files, detects interpreter crashes and starts the
// next cell.
//
// Files:
//   - cell.go: Cell, CellView and the cell state machine
//   - queue.go: the evaluation queue
//   - directives.go: %-directives at the top of a cell
//   - truncate.go: the output truncation policy
//   - worksheet.go: construction and structural edits
//   - scheduler.go: enqueue, polling, interrupt, quit and restart
package worksheet
