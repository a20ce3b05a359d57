package tui

import (
	"math"
	"strings"
)

// braille dot bits, indexed [row][col] within one 2x4 cell.
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// canvas is a braille bitmap: each character holds 2x4 dots.
type canvas struct {
	cols, rows int
	cells      [][]rune
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: cols, rows: rows, cells: make([][]rune, rows)}
	for i := range c.cells {
		c.cells[i] = make([]rune, cols)
	}
	c.clear()
	return c
}

// dots returns the bitmap size in dots.
func (c *canvas) dots() (w, h int) { return c.cols * 2, c.rows * 4 }

func (c *canvas) set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.cols || row >= c.rows {
		return
	}
	c.cells[row][col] |= dotBits[y%4][x%2]
}

func (c *canvas) clear() {
	for _, row := range c.cells {
		for j := range row {
			row[j] = blank
		}
	}
}

// line draws from (x0,y0) to (x1,y1) with Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx - dy
	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x0 += sx
		}
		if e2 < dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *canvas) circle(cx, cy, r int) {
	if r <= 0 {
		c.set(cx, cy)
		return
	}
	n := int(2*math.Pi*float64(r)) + 8
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		c.set(cx+int(math.Round(float64(r)*math.Cos(a))), cy+int(math.Round(float64(r)*math.Sin(a))))
	}
}

// mark draws a small cross.
func (c *canvas) mark(x, y int) {
	c.set(x, y)
	c.set(x-1, y)
	c.set(x+1, y)
	c.set(x, y-1)
	c.set(x, y+1)
}

func (c *canvas) String() string {
	var b strings.Builder
	for i, row := range c.cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
