package components

// Cursor tracks a selection inside a scrolled window of rows
type Cursor struct {
	Selected int
	Offset   int
}

// Move shifts the selection by delta within n rows, scrolling so it stays
// within the visible rows
func (c *Cursor) Move(delta, n, visible int) {
	c.Set(c.Selected+delta, n, visible)
}

// Set places the selection at index, clamped to [0, n)
func (c *Cursor) Set(index, n, visible int) {
	c.Selected = max(min(index, n-1), 0)
	visible = max(visible, 1)
	switch {
	case c.Selected < c.Offset:
		c.Offset = c.Selected
	case c.Selected >= c.Offset+visible:
		c.Offset = c.Selected - visible + 1
	}
	c.Offset = max(min(c.Offset, n-visible), 0)
}

// Reset returns to the first row
func (c *Cursor) Reset() {
	c.Selected, c.Offset = 0, 0
}

// Window returns the half-open range of rows to draw
func (c Cursor) Window(n, visible int) (int, int) {
	return c.Offset, min(c.Offset+max(visible, 1), n)
}

// navigate applies the usual list keys; it reports whether key was one of them
func (c *Cursor) navigate(key string, n, visible int) bool {
	switch key {
	case "up", "k":
		c.Move(-1, n, visible)
	case "down", "j":
		c.Move(1, n, visible)
	case "pgup":
		c.Move(-visible, n, visible)
	case "pgdown":
		c.Move(visible, n, visible)
	case "home":
		c.Set(0, n, visible)
	case "end":
		c.Set(n-1, n, visible)
	default:
		return false
	}
	return true
}
