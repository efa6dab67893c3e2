package worksheet

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOwned is returned when a cell from another worksheet is enqueued.
	ErrNotOwned = errors.New("cell does not belong to this worksheet")
	// ErrCellComputing is returned when cancelling the running cell; use
	// Interrupt instead.
	ErrCellComputing = errors.New("cell is computing")
	// ErrCellQueued is returned when introspecting a cell that is still
	// waiting for its own evaluation.
	ErrCellQueued = errors.New("cell is queued")
)

// CellNotFoundError names a cell id that does not exist.
type CellNotFoundError struct{ ID int }

func (e CellNotFoundError) Error() string { return fmt.Sprintf("cell not found: %d", e.ID) }

// IsCellNotFound reports whether err is a CellNotFoundError.
func IsCellNotFound(err error) bool {
	var e CellNotFoundError
	return errors.As(err, &e)
}
