package grid

import "math"

// Index maps world pixel positions to grid cells.
// Cells are numbered column-major: id = col*Rows + row, so every cell of one
// column is contiguous and a column range is a single id range.
type Index struct {
	TileWidth  float64
	TileHeight float64
	Rows       int // world height in tiles
}

func New(tileWidth, tileHeight float64, rows int) Index {
	return Index{TileWidth: tileWidth, TileHeight: tileHeight, Rows: rows}
}

// Col returns floor(x / TileWidth). Negative x maps to negative columns.
func (g Index) Col(x float64) int {
	return int(math.Floor(x / g.TileWidth))
}

// Row returns floor(y / TileHeight).
func (g Index) Row(y float64) int {
	return int(math.Floor(y / g.TileHeight))
}

// CellOf combines a column and row into a cell id.
func (g Index) CellOf(col, row int) int {
	return col*g.Rows + row
}

// Cell returns the id of the cell containing (x, y).
// Out-of-range positions map to out-of-range ids; callers treat those as empty.
func (g Index) Cell(x, y float64) int {
	return g.CellOf(g.Col(x), g.Row(y))
}

// Split is the inverse of CellOf for in-range rows.
func (g Index) Split(cell int) (col, row int) {
	col = cell / g.Rows
	row = cell % g.Rows
	if row < 0 {
		row += g.Rows
		col--
	}
	return col, row
}

// Origin returns the top-left pixel of a cell.
func (g Index) Origin(col, row int) (x, y float64) {
	return float64(col) * g.TileWidth, float64(row) * g.TileHeight
}

// Snap rounds a position down to the top-left corner of its cell.
func (g Index) Snap(x, y float64) (float64, float64) {
	return g.Origin(g.Col(x), g.Row(y))
}

// Span returns the inclusive column and row ranges covering the rectangle.
func (g Index) Span(x1, y1, x2, y2 float64) (colFrom, colTo, rowFrom, rowTo int) {
	return g.Col(x1), g.Col(x2), g.Row(y1), g.Row(y2)
}
