package scheduler

// cursorPool recycles B-side cursors between units so that each worker
// slot keeps reusing one reader.
type cursorPool struct {
	open Opener
	free chan Cursor
}

func newCursorPool(open Opener, size int) *cursorPool {
	return &cursorPool{open: open, free: make(chan Cursor, size)}
}

func (p *cursorPool) get() (Cursor, error) {
	select {
	case c := <-p.free:
		return c, nil
	default:
		return p.open()
	}
}

func (p *cursorPool) put(c Cursor) {
	select {
	case p.free <- c:
	default:
		c.Close()
	}
}

func (p *cursorPool) close() {
	for {
		select {
		case c := <-p.free:
			c.Close()
		default:
			return
		}
	}
}
