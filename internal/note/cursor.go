// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package note

import "github.com/pdiddy/mathnote/pkg/types"

// Cursor walks a note's slides in rendering order.
type Cursor struct {
	note   *types.Note
	slides []types.Slide
	pos    int
}

// NewCursor positions a cursor on the first slide of n.
func NewCursor(n *types.Note) *Cursor {
	if n == nil {
		return &Cursor{}
	}
	return &Cursor{note: n, slides: n.Sorted()}
}

// Len is the number of slides.
func (c *Cursor) Len() int { return len(c.slides) }

// Current returns the slide under the cursor.
func (c *Cursor) Current() (types.Slide, bool) {
	if c.pos < 0 || c.pos >= len(c.slides) {
		return types.Slide{}, false
	}
	return c.slides[c.pos], true
}

// Next advances one slide; it reports false at the end.
func (c *Cursor) Next() bool {
	if c.pos+1 >= len(c.slides) {
		return false
	}
	c.pos++
	return true
}

// Prev moves back one slide; it reports false at the start.
func (c *Cursor) Prev() bool {
	if c.pos <= 0 {
		return false
	}
	c.pos--
	return true
}

// Seek moves to the slide with the given number.
func (c *Cursor) Seek(number int) bool {
	for i, s := range c.slides {
		if s.Number == number {
			c.pos = i
			return true
		}
	}
	return false
}

// SeekTime moves to the slide playing at t seconds.
func (c *Cursor) SeekTime(t float64) bool {
	if c.note == nil {
		return false
	}
	s, ok := c.note.SlideAt(t)
	if !ok {
		return false
	}
	return c.Seek(s.Number)
}
