package sheetsync

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// fakeAPI is an in-memory SheetAPI holding a single sheet anchored at A1.
type fakeAPI struct {
	mu     sync.Mutex
	cells  [][]string
	gets   int
	writes int
	// batches records every BatchUpdate payload
	batches [][]ValueRange

	// errs are returned (and consumed) by the next calls before any work is done
	errs []error
}

func newFakeAPI(rows ...[]string) *fakeAPI {
	f := &fakeAPI{}
	for _, r := range rows {
		f.cells = append(f.cells, append([]string(nil), r...))
	}
	return f
}

func (f *fakeAPI) nextErr() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeAPI) Get(ctx context.Context, spreadsheetID, rangeA1 string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++
	if err := f.nextErr(); err != nil {
		return nil, err
	}

	addr, err := ParseRange(rangeA1)
	if err != nil {
		return nil, err
	}
	startCol, _ := ColumnLetterToIndex(addr.StartColumn)
	endCol, _ := ColumnLetterToIndex(addr.EndColumn)

	var out [][]string
	for r := addr.StartRow - 1; r < len(f.cells); r++ {
		if addr.EndRow > 0 && r >= addr.EndRow {
			break
		}
		src := f.cells[r]
		var row []string
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
	return out, nil
}

func (f *fakeAPI) Update(ctx context.Context, spreadsheetID, rangeA1 string, values [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes++
	if err := f.nextErr(); err != nil {
		return err
	}
	return f.write(rangeA1, values)
}

func (f *fakeAPI) BatchUpdate(ctx context.Context, spreadsheetID string, data []ValueRange) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes++
	if err := f.nextErr(); err != nil {
		return err
	}
	f.batches = append(f.batches, data)
	for _, vr := range data {
		if err := f.write(vr.Range, vr.Values); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAPI) write(rangeA1 string, values [][]string) error {
	addr, err := ParseRange(rangeA1)
	if err != nil {
		return err
	}
	startCol, _ := ColumnLetterToIndex(addr.StartColumn)

	for i, row := range values {
		r := addr.StartRow - 1 + i
		for len(f.cells) <= r {
			f.cells = append(f.cells, nil)
		}
		f.cells[r] = padRow(f.cells[r], startCol+len(row))
		copy(f.cells[r][startCol:], row)
	}
	return nil
}

// cell returns the value at a 1-based row and column letter.
func (f *fakeAPI) cell(row int, col string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, _ := ColumnLetterToIndex(col)
	if row-1 >= len(f.cells) || c >= len(f.cells[row-1]) {
		return ""
	}
	return f.cells[row-1][c]
}

func (f *fakeAPI) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cells)
}

// newTestClient returns a client that never sleeps and records its backoff waits.
func newTestClient(api SheetAPI, maxRetries int) (*Client, *[]time.Duration) {
	c := NewClient(api, &ClientConfig{
		MaxRetries:       maxRetries,
		RetryInterval:    1 * time.Second,
		MaxRetryInterval: 4 * time.Second,
	}, nil)

	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return c, &waits
}

func testTarget() Target {
	t := Target{
		Name:          "people",
		Location:      Location{SpreadsheetID: "sheet-id"},
		IdentityField: "guid",
	}
	t.ApplyDefaults()
	return t
}

func quietOptions() *Options {
	return &Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// sequentialIDs returns an identity generator yielding g-new-1, g-new-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "g-new-" + strconv.Itoa(n)
	}
}
