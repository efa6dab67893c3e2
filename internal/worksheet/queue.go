package worksheet

// evaluationQueue orders cells awaiting evaluation. The head is the cell
// being computed (once started); ASAP cells jump ahead of ordinary ones but
// never ahead of the running head or of earlier ASAP cells.
type evaluationQueue struct {
	cells []*Cell
}

func (q *evaluationQueue) len() int { return len(q.cells) }

func (q *evaluationQueue) head() *Cell {
	if len(q.cells) == 0 {
		return nil
	}
	return q.cells[0]
}

func (q *evaluationQueue) contains(c *Cell) bool {
	return q.index(c) >= 0
}

func (q *evaluationQueue) index(c *Cell) int {
	for i, x := range q.cells {
		if x == c {
			return i
		}
	}
	return -1
}

// push adds c at its position. asap cells go after the running head and any
// ASAP cells already waiting.
func (q *evaluationQueue) push(c *Cell, asap bool) {
	if !asap {
		q.cells = append(q.cells, c)
		return
	}
	i := 0
	if len(q.cells) > 0 && q.cells[0].state == StateComputing {
		i = 1
	}
	for i < len(q.cells) && q.cells[i].asapQueued() {
		i++
	}
	q.cells = append(q.cells, nil)
	copy(q.cells[i+1:], q.cells[i:])
	q.cells[i] = c
}

func (q *evaluationQueue) remove(c *Cell) bool {
	i := q.index(c)
	if i < 0 {
		return false
	}
	q.cells = append(q.cells[:i], q.cells[i+1:]...)
	return true
}

// drain empties the queue and returns what was in it.
func (q *evaluationQueue) drain() []*Cell {
	out := q.cells
	q.cells = nil
	return out
}

func (q *evaluationQueue) ids() []int {
	out := make([]int, len(q.cells))
	for i, c := range q.cells {
		out[i] = c.id
	}
	return out
}

func (c *Cell) asapQueued() bool {
	return c.state == StateQueued && (c.asap || c.directives.Asap)
}
