package viz

import "strings"

// Braille cells pack 2x4 subpixels each, so a w x h canvas exposes a
// 2w x 4h drawing grid. Dot bits within a cell, offset from 0x2800:
//
//	1  8
//	2  10
//	4  20
//	40 80
var brailleBit = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

const brailleBase = 0x2800

// Canvas is a Braille drawing surface addressed in subpixels.
type Canvas struct {
	cols, rows int
	cells      []rune
}

func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{cols: cols, rows: rows, cells: make([]rune, cols*rows)}
	c.Clear()
	return c
}

// SubWidth and SubHeight are the drawable dimensions in subpixels.
func (c *Canvas) SubWidth() int  { return c.cols * 2 }
func (c *Canvas) SubHeight() int { return c.rows * 4 }

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = brailleBase
	}
}

// Set lights the subpixel at (x, y). Out-of-range coordinates are
// ignored so callers can draw partially visible shapes.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.cols || row >= c.rows {
		return
	}
	c.cells[row*c.cols+col] |= brailleBit[y%4][x%2]
}

// Dot lights a 3x3 block centered on (x, y), the marker for masses
// and end effectors.
func (c *Canvas) Dot(x, y int) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			c.Set(x+dx, y+dy)
		}
	}
}

// Line draws from (x0, y0) to (x1, y1) with Bresenham stepping.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow((c.cols + 1) * c.rows)
	for row := 0; row < c.rows; row++ {
		b.WriteString(string(c.cells[row*c.cols : (row+1)*c.cols]))
		b.WriteByte('\n')
	}
	return b.String()
}

// Scale maps world coordinates onto a subpixel grid with y pointing
// up, which keeps the drawing code in physical coordinates.
type Scale struct {
	MinX, MaxX float64
	MinY, MaxY float64
	W, H       int
}

// Point returns the subpixel for a world coordinate.
func (s Scale) Point(x, y float64) (int, int) {
	spanX := s.MaxX - s.MinX
	spanY := s.MaxY - s.MinY
	if spanX <= 0 || spanY <= 0 {
		return 0, 0
	}
	px := int((x - s.MinX) / spanX * float64(s.W-1))
	py := int((s.MaxY - y) / spanY * float64(s.H-1))
	return px, py
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
