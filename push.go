package sheetsync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
)

// PushResult summarizes one push pass
type PushResult struct {
	Records  int // records pushed
	Updated  int // rows overwritten in place
	Appended int // rows added after the last data row
	Writes   int // remote batch write calls
}

// Pusher upserts local records into the sheet (local -> remote).
type Pusher struct {
	client *Client
	cache  *SheetCache
	target Target
	store  Pushable
	filter *Query
	logger *slog.Logger
}

// fieldColumn is a push field resolved to its column in the grid
type fieldColumn struct {
	field string
	col   int
}

// NewPusher creates a push engine. The cache may be shared with a Puller so both
// phases of a sync work on a single read of the sheet.
func NewPusher(client *Client, cache *SheetCache, target Target, store Pushable, opts *Options) *Pusher {
	opts = opts.withDefaults()
	return &Pusher{
		client: client,
		cache:  cache,
		target: target,
		store:  store,
		filter: opts.Filter,
		logger: opts.Logger.With(slog.String("target", target.Name), slog.String("phase", "push")),
	}
}

// UpsertTable pushes every record of the store (after the optional filter).
func (p *Pusher) UpsertTable(ctx context.Context) (*PushResult, error) {
	records, err := p.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list local records: %w", err)
	}

	if p.filter != nil {
		if err := p.filter.Validate(); err != nil {
			return nil, fmt.Errorf("invalid push filter: %w", err)
		}
		records = p.filter.Apply(records)
	}

	return p.push(ctx, records)
}

// PushRecord pushes the single record whose identity is id.
func (p *Pusher) PushRecord(ctx context.Context, id string) (*PushResult, error) {
	records, err := p.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list local records: %w", err)
	}

	return p.push(ctx, IdentityQuery(p.target.IdentityField, id).Apply(records))
}

func (p *Pusher) push(ctx context.Context, records []*Record) (*PushResult, error) {
	grid, err := p.cache.Grid(ctx)
	if err != nil {
		return nil, err
	}

	rowsStart, rowsEnd, err := p.target.RowBounds()
	if err != nil {
		return nil, err
	}
	colsStart, colsEnd, err := p.target.ColumnBounds()
	if err != nil {
		return nil, err
	}

	fields := p.fields()

	headerDirty := false
	if len(grid.Headers) == 0 {
		if err := p.initHeaders(grid, fields, colsStart, colsEnd); err != nil {
			return nil, err
		}
		headerDirty = true
	}

	columns := p.mapFields(grid, fields)

	idCol, err := grid.ColumnIndex(p.target.SheetIdentityColumn)
	if err != nil {
		p.logger.Warn("identity column missing from sheet, every record will be appended",
			slog.String("column", p.target.SheetIdentityColumn))
		idCol = -1
	}

	w := &pushWriter{
		pusher:      p,
		grid:        grid,
		rowsStart:   rowsStart,
		rowsEnd:     rowsEnd,
		colsStart:   colsStart,
		colsEnd:     colsEnd,
		headerDirty: headerDirty,
		dirty:       make(map[int]bool),
	}

	result := &PushResult{}
	width := len(grid.Headers)

	for i, record := range records {
		if i > 0 && i%p.target.BatchSize == 0 {
			p.logger.Debug("writing out batch", slog.Int("records", i))
			if err := w.flush(ctx); err != nil {
				return result, err
			}
			result.Writes++
		}

		ix, appended := p.upsertRow(grid, record, columns, idCol, width)
		w.dirty[ix] = true

		result.Records++
		if appended {
			result.Appended++
		} else {
			result.Updated++
		}
	}

	if len(w.dirty) > 0 || w.headerDirty {
		p.logger.Debug("writing out final rows", slog.Int("rows", len(w.dirty)))
		if err := w.flush(ctx); err != nil {
			return result, err
		}
		result.Writes++
	}

	p.logger.Info("finished table upsert",
		slog.Int("records", result.Records),
		slog.Int("updated", result.Updated),
		slog.Int("appended", result.Appended),
		slog.Int("writes", result.Writes))

	return result, nil
}

// fields returns the fields to push. The identity field is always included so
// that pushed rows can be matched again.
func (p *Pusher) fields() []string {
	fields := p.target.PushFields
	if len(fields) == 0 {
		fields = p.store.Fields()
	}
	if slices.Contains(fields, p.target.IdentityField) {
		return fields
	}
	return append([]string{p.target.IdentityField}, fields...)
}

// initHeaders builds a header row for an empty sheet from the push fields.
func (p *Pusher) initHeaders(grid *SheetGrid, fields []string, colsStart, colsEnd string) error {
	start, _ := ColumnLetterToIndex(colsStart)
	end, _ := ColumnLetterToIndex(colsEnd)
	if len(fields) > end-start+1 {
		return fmt.Errorf("%w: %d push fields do not fit in columns %s-%s", ErrMalformedRange, len(fields), colsStart, colsEnd)
	}

	grid.Headers = make([]string, len(fields))
	for i, f := range fields {
		grid.Headers[i] = p.target.HeaderFor(f)
	}

	p.logger.Info("sheet has no header row, initializing it", slog.Any("headers", grid.Headers))
	return nil
}

// mapFields resolves each push field to its column, skipping fields without a header.
func (p *Pusher) mapFields(grid *SheetGrid, fields []string) []fieldColumn {
	columns := make([]fieldColumn, 0, len(fields))
	for _, f := range fields {
		col, err := grid.ColumnIndex(p.target.HeaderFor(f))
		if err != nil {
			p.logger.Info("skipping field because it has no header", slog.String("field", f))
			continue
		}
		columns = append(columns, fieldColumn{field: f, col: col})
	}

	sort.Slice(columns, func(i, j int) bool { return columns[i].col < columns[j].col })
	return columns
}

// upsertRow overwrites the row matching the record's identity, or appends a new
// row. Cells of unmapped columns keep their current values.
func (p *Pusher) upsertRow(grid *SheetGrid, record *Record, columns []fieldColumn, idCol, width int) (int, bool) {
	id := record.GetAsString(p.target.IdentityField, "")

	if idCol >= 0 {
		if ix, ok := FindExistingRow(id, idCol, grid.Rows); ok {
			row := grid.RowCopy(ix, width)
			fillRow(row, record, columns)
			grid.SetRow(ix, row)
			return ix, false
		}
	}

	row := make([]string, width)
	fillRow(row, record, columns)
	return grid.AppendRow(row), true
}

func fillRow(row []string, record *Record, columns []fieldColumn) {
	for _, fc := range columns {
		if !record.Has(fc.field) {
			continue
		}
		row[fc.col] = record.GetAsString(fc.field, "")
	}
}

// pushWriter accumulates dirty grid rows and writes them out in one batch call.
type pushWriter struct {
	pusher      *Pusher
	grid        *SheetGrid
	rowsStart   int
	rowsEnd     int
	colsStart   string
	colsEnd     string
	headerDirty bool
	dirty       map[int]bool
}

// flush writes the header row (if new) and every dirty row, grouped into
// contiguous ranges. Grid index g is written to remote row rowsStart+1+g.
func (w *pushWriter) flush(ctx context.Context) error {
	sheet := w.pusher.target.SheetName
	width := len(w.grid.Headers)

	var ranges []RangeAddress
	var data [][][]string

	if w.headerDirty {
		ranges = append(ranges, RangeAddress{
			Sheet:       sheet,
			StartColumn: w.colsStart,
			EndColumn:   w.colsEnd,
			StartRow:    w.rowsStart,
			EndRow:      w.rowsStart,
		})
		data = append(data, [][]string{append([]string(nil), w.grid.Headers...)})
	}

	indices := make([]int, 0, len(w.dirty))
	for ix := range w.dirty {
		indices = append(indices, ix)
	}
	sort.Ints(indices)

	for _, run := range contiguousRuns(indices) {
		addr := RangeAddress{
			Sheet:       sheet,
			StartColumn: w.colsStart,
			EndColumn:   w.colsEnd,
			StartRow:    w.rowsStart + 1 + run[0],
			EndRow:      w.rowsStart + 1 + run[1],
		}
		if addr.EndRow > w.rowsEnd {
			return fmt.Errorf("%w: row %d is beyond the last row %d of %s", ErrRowLimitExceeded, addr.EndRow, w.rowsEnd, w.pusher.target.DataRange)
		}

		block := make([][]string, 0, run[1]-run[0]+1)
		for g := run[0]; g <= run[1]; g++ {
			block = append(block, w.grid.RowCopy(g, width))
		}
		ranges = append(ranges, addr)
		data = append(data, block)
	}

	if err := w.pusher.client.WriteBatch(ctx, w.pusher.cache.Location(), ranges, data); err != nil {
		return fmt.Errorf("failed to write out rows: %w", err)
	}

	w.headerDirty = false
	w.dirty = make(map[int]bool)
	return nil
}
