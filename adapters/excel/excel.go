package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ideamans/go-sheetsync"
	"github.com/xuri/excelize/v2"
)

// Adapter implements sheetsync.SheetAPI on top of a local .xlsx file.
// The spreadsheet ID of each call is ignored; the file stands in for it.
type Adapter struct {
	config *Config
	mu     sync.RWMutex
}

var _ sheetsync.SheetAPI = (*Adapter)(nil)

// New creates a new Excel adapter with the given configuration
func New(config *Config) (*Adapter, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create a copy of config to avoid external modifications
	configCopy := *config

	return &Adapter{
		config: &configCopy,
	}, nil
}

// Get reads the cell text of a range. A missing file or sheet reads as empty.
func (a *Adapter) Get(ctx context.Context, spreadsheetID, rangeA1 string) ([][]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr, err := sheetsync.ParseRange(rangeA1)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(a.config.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return [][]string{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFileFormat, a.config.FilePath, err)
	}
	defer f.Close()

	sheetIndex, err := f.GetSheetIndex(addr.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get sheet index: %w", err)
	}
	if sheetIndex == -1 {
		return [][]string{}, nil
	}

	rows, err := f.GetRows(addr.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	return sliceRange(rows, addr), nil
}

// Update writes values into a single range
func (a *Adapter) Update(ctx context.Context, spreadsheetID, rangeA1 string, values [][]string) error {
	return a.BatchUpdate(ctx, spreadsheetID, []sheetsync.ValueRange{{Range: rangeA1, Values: values}})
}

// BatchUpdate writes every range and saves the file once. Ranges are checked
// before anything is written, so a bad range leaves the file untouched.
func (a *Adapter) BatchUpdate(ctx context.Context, spreadsheetID string, data []sheetsync.ValueRange) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	addrs := make([]sheetsync.RangeAddress, len(data))
	for i, d := range data {
		addr, err := sheetsync.ParseRange(d.Range)
		if err != nil {
			return err
		}
		if err := checkFits(addr, d.Values); err != nil {
			return err
		}
		addrs[i] = addr
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(a.config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, created, err := a.open()
	if err != nil {
		return err
	}
	defer f.Close()

	for i, addr := range addrs {
		if err := ensureSheet(f, addr.Sheet, created); err != nil {
			return err
		}
		if err := writeValues(f, addr, data[i].Values); err != nil {
			return err
		}
	}

	if err := f.SaveAs(a.config.FilePath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}

	return nil
}

// open opens the workbook, or creates a new one if the file does not exist yet
func (a *Adapter) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(a.config.FilePath); err != nil {
		return excelize.NewFile(), true, nil
	}

	f, err := excelize.OpenFile(a.config.FilePath)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrInvalidFileFormat, a.config.FilePath, err)
	}
	return f, false, nil
}

// ensureSheet creates the sheet if needed. In a new workbook the default
// sheet is dropped once a named sheet exists.
func ensureSheet(f *excelize.File, sheet string, created bool) error {
	sheetIndex, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("failed to get sheet index: %w", err)
	}
	if sheetIndex != -1 {
		return nil
	}

	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if created {
		if defaultSheet := f.GetSheetName(0); defaultSheet != sheet && defaultSheet == "Sheet1" {
			_ = f.DeleteSheet(defaultSheet) // Ignore error - not critical
		}
	}
	return nil
}

// checkFits rejects values that spill outside the range, as the Sheets API does.
func checkFits(addr sheetsync.RangeAddress, values [][]string) error {
	startCol, _ := sheetsync.ColumnLetterToIndex(addr.StartColumn)
	endCol, _ := sheetsync.ColumnLetterToIndex(addr.EndColumn)

	if addr.EndRow > 0 && len(values) > addr.EndRow-addr.StartRow+1 {
		return fmt.Errorf("%w: %d rows do not fit in %s", sheetsync.ErrMalformedRange, len(values), addr)
	}
	for _, row := range values {
		if len(row) > endCol-startCol+1 {
			return fmt.Errorf("%w: %d columns do not fit in %s", sheetsync.ErrMalformedRange, len(row), addr)
		}
	}
	return nil
}

func writeValues(f *excelize.File, addr sheetsync.RangeAddress, values [][]string) error {
	startCol, _ := sheetsync.ColumnLetterToIndex(addr.StartColumn)

	for i, row := range values {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(startCol+j+1, addr.StartRow+i)
			if err != nil {
				return fmt.Errorf("failed to resolve cell: %w", err)
			}
			if err := f.SetCellStr(addr.Sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write %s!%s: %w", addr.Sheet, cell, err)
			}
		}
	}
	return nil
}

// sliceRange cuts the addressed rectangle out of whole-sheet rows, trimming
// trailing empty cells and rows the way the Sheets API reports them.
func sliceRange(rows [][]string, addr sheetsync.RangeAddress) [][]string {
	startCol, _ := sheetsync.ColumnLetterToIndex(addr.StartColumn)
	endCol, _ := sheetsync.ColumnLetterToIndex(addr.EndColumn)

	last := len(rows)
	if addr.EndRow > 0 && addr.EndRow < last {
		last = addr.EndRow
	}

	out := [][]string{}
	for r := addr.StartRow - 1; r < last; r++ {
		src := rows[r]
		row := []string{}
		for c := startCol; c <= endCol && c < len(src); c++ {
			row = append(row, src[c])
		}
		for len(row) > 0 && row[len(row)-1] == "" {
			row = row[:len(row)-1]
		}
		out = append(out, row)
	}

	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out
}
