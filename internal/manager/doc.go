// Package manager keeps the set of open worksheets and the machinery shared
// between them. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, Create/Get/List.
//   - config.go: ManagerConfig and package defaults.
//   - process_factory.go: picks the interpreter variant for new worksheets.
//   - tick.go: Run/Tick, wall-time limits and idle eviction.
//   - unload.go: Delete.
//   - status_report.go: Status and History reporting.
//   - sanity.go: dependency checks for /readyz and `wsctl sanity`.
//   - errors.go: error types and helpers (IsWorksheetNotFound, IsDependencyUnavailable).
//
// External packages should treat this package as the orchestration layer and
// reach worksheets through Get; scheduling itself lives in package worksheet.
package manager
