package sheetsync

import "context"

// ValueRange is the payload of one range in a write request
type ValueRange struct {
	Range  string     // A1 notation including the sheet name
	Values [][]string // 行ごとのセル値
}

// SheetAPI is the transport for a range-addressed spreadsheet backend.
// Implementations report retryable failures by wrapping ErrTransientRemote.
type SheetAPI interface {
	// Get reads the cell values of a range, row by row. Trailing empty cells may be omitted.
	Get(ctx context.Context, spreadsheetID, rangeA1 string) ([][]string, error)

	// Update writes values into a single range
	Update(ctx context.Context, spreadsheetID, rangeA1 string, values [][]string) error

	// BatchUpdate writes several disjoint ranges in a single request
	BatchUpdate(ctx context.Context, spreadsheetID string, data []ValueRange) error
}
