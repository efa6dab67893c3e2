package manager

import (
	"time"

	"worksheetd/internal/worksheet"
)

// entry is a worksheet plus what the manager knows about it.
type entry struct {
	ws      *worksheet.Worksheet
	name    string
	dir     string
	created time.Time
}
