package sheetsync

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Only single-letter columns (A-Z) are supported, so sheets wider than 26
// columns cannot be addressed.
const maxColumnIndex = 25

var (
	rowBoundsPattern    = regexp.MustCompile(`[A-Z]+(\d+):[A-Z]+(\d*)`)
	columnBoundsPattern = regexp.MustCompile(`([A-Z]+)\d*:([A-Z]*)\d*`)
)

// ColumnLetterToIndex converts a column letter to its 0-based index (A -> 0, Z -> 25).
func ColumnLetterToIndex(letter string) (int, error) {
	if len(letter) != 1 {
		return 0, fmt.Errorf("%w: %q (only single letters A-Z are supported)", ErrInvalidColumn, letter)
	}
	c := strings.ToUpper(letter)[0]
	if c < 'A' || c > 'Z' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColumn, letter)
	}
	return int(c - 'A'), nil
}

// ColumnIndexToLetter converts a 0-based column index to its letter (0 -> A, 25 -> Z).
func ColumnIndexToLetter(index int) (string, error) {
	if index < 0 || index > maxColumnIndex {
		return "", fmt.Errorf("%w: index %d out of range 0-%d", ErrInvalidColumn, index, maxColumnIndex)
	}
	return string(rune('A' + index)), nil
}

// ComposeRange joins a sheet name and a range spec ("Sheet1", "A1:Z") into "Sheet1!A1:Z".
func ComposeRange(sheetName, rangeSpec string) string {
	return sheetName + "!" + rangeSpec
}

// ParseRowBounds extracts the row numbers from a spec like "A1:Z30000".
// A missing end row ("A1:Z") resolves to defaultMaxRow.
func ParseRowBounds(rangeSpec string, defaultMaxRow int) (int, int, error) {
	m := rowBoundsPattern.FindStringSubmatch(rangeSpec)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: no row bounds in %q", ErrMalformedRange, rangeSpec)
	}

	start, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrMalformedRange, rangeSpec, err)
	}

	end := defaultMaxRow
	if m[2] != "" {
		if end, err = strconv.Atoi(m[2]); err != nil {
			return 0, 0, fmt.Errorf("%w: %q: %v", ErrMalformedRange, rangeSpec, err)
		}
	}

	return start, end, nil
}

// ParseColumnBounds extracts the column letters from a spec like "A1:Z30000".
// A missing end column resolves to defaultMaxCol.
func ParseColumnBounds(rangeSpec string, defaultMaxCol string) (string, string, error) {
	m := columnBoundsPattern.FindStringSubmatch(rangeSpec)
	if m == nil {
		return "", "", fmt.Errorf("%w: no column bounds in %q", ErrMalformedRange, rangeSpec)
	}

	end := m[2]
	if end == "" {
		end = defaultMaxCol
	}
	return m[1], end, nil
}

// RangeAddress is a rectangular region of one sheet. EndRow 0 means "to the end".
type RangeAddress struct {
	Sheet       string
	StartColumn string
	EndColumn   string
	StartRow    int
	EndRow      int
}

// String renders the address in A1 notation, e.g. "Sheet1!A2:Z501".
func (r RangeAddress) String() string {
	end := r.EndColumn
	if r.EndRow > 0 {
		end += strconv.Itoa(r.EndRow)
	}
	return ComposeRange(r.Sheet, fmt.Sprintf("%s%d:%s", r.StartColumn, r.StartRow, end))
}

// Validate checks the column letters and row bounds.
func (r RangeAddress) Validate() error {
	start, err := ColumnLetterToIndex(r.StartColumn)
	if err != nil {
		return err
	}
	end, err := ColumnLetterToIndex(r.EndColumn)
	if err != nil {
		return err
	}
	if start > end {
		return fmt.Errorf("%w: start column %s after end column %s", ErrMalformedRange, r.StartColumn, r.EndColumn)
	}
	if r.StartRow < 1 {
		return fmt.Errorf("%w: start row %d must be >= 1", ErrMalformedRange, r.StartRow)
	}
	if r.EndRow != 0 && r.EndRow < r.StartRow {
		return fmt.Errorf("%w: end row %d before start row %d", ErrMalformedRange, r.EndRow, r.StartRow)
	}
	return nil
}

// ParseRange parses a full A1 address such as "Sheet1!A1:Z" or "Sheet1!C5:C7".
func ParseRange(a1 string) (RangeAddress, error) {
	i := strings.LastIndex(a1, "!")
	if i <= 0 {
		return RangeAddress{}, fmt.Errorf("%w: missing sheet name in %q", ErrMalformedRange, a1)
	}
	sheet, spec := strings.Trim(a1[:i], "'"), a1[i+1:]

	startCol, endCol, err := ParseColumnBounds(spec, "")
	if err != nil {
		return RangeAddress{}, err
	}
	if endCol == "" {
		return RangeAddress{}, fmt.Errorf("%w: missing end column in %q", ErrMalformedRange, a1)
	}
	startRow, endRow, err := ParseRowBounds(spec, 0)
	if err != nil {
		return RangeAddress{}, err
	}

	addr := RangeAddress{
		Sheet:       sheet,
		StartColumn: startCol,
		EndColumn:   endCol,
		StartRow:    startRow,
		EndRow:      endRow,
	}
	return addr, addr.Validate()
}
