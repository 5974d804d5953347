package sheetsync

import (
	"context"
	"fmt"
)

// SheetGrid is the in-memory copy of one sheet range.
// Data row i lives at remote row rowsStart+1+i (the header occupies rowsStart).
type SheetGrid struct {
	Headers []string
	Rows    [][]string
}

// Batch is one range of a write request
type Batch struct {
	Range  RangeAddress
	Values [][]string
}

// ColumnIndex returns the position of header within Headers.
func (g *SheetGrid) ColumnIndex(header string) (int, error) {
	for i, h := range g.Headers {
		if h == header {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownHeader, header)
}

// Len returns the number of data rows
func (g *SheetGrid) Len() int {
	return len(g.Rows)
}

// SetRow replaces the data row at index i
func (g *SheetGrid) SetRow(i int, row []string) {
	g.Rows[i] = row
}

// AppendRow adds a data row and returns its index
func (g *SheetGrid) AppendRow(row []string) int {
	g.Rows = append(g.Rows, row)
	return len(g.Rows) - 1
}

// SetCell assigns a single cell, padding the row if it is shorter than col.
func (g *SheetGrid) SetCell(i, col int, value string) {
	g.Rows[i] = padRow(g.Rows[i], col+1)
	g.Rows[i][col] = value
}

// RowCopy returns row i padded to width cells. The result never aliases the grid.
func (g *SheetGrid) RowCopy(i, width int) []string {
	row := make([]string, max(width, len(g.Rows[i])))
	copy(row, g.Rows[i])
	return row
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

// SheetCache lazily loads the grid of one location and keeps it for the
// lifetime of a sync operation. It is not safe for concurrent use.
type SheetCache struct {
	client   *Client
	location Location
	grid     *SheetGrid
}

// NewSheetCache creates a cache that reads loc through client on first access
func NewSheetCache(client *Client, loc Location) *SheetCache {
	return &SheetCache{
		client:   client,
		location: loc,
	}
}

// Location returns the cached location
func (c *SheetCache) Location() Location {
	return c.location
}

// Grid returns the cached grid, reading it from the remote sheet on first use.
func (c *SheetCache) Grid(ctx context.Context) (*SheetGrid, error) {
	if c.grid != nil {
		return c.grid, nil
	}

	grid, err := c.client.ReadRange(ctx, c.location)
	if err != nil {
		return nil, fmt.Errorf("failed to load sheet data: %w", err)
	}

	c.grid = grid
	return c.grid, nil
}

// Loaded reports whether the grid has been read
func (c *SheetCache) Loaded() bool {
	return c.grid != nil
}
