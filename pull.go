package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// PullResult summarizes one pull pass
type PullResult struct {
	Rows       int // data rows examined
	Created    int
	Updated    int
	Skipped    int // rows rejected by hooks
	Writebacks int // remote identity writeback calls
	Records    []*Record
}

// Puller upserts sheet rows into the local store (remote -> local).
// Rows missing from either side are never deleted.
type Puller struct {
	client    *Client
	cache     *SheetCache
	target    Target
	store     Pullable
	hooks     Hooks
	listeners []RowListener
	logger    *slog.Logger
}

// createdRow is a record created during a pull whose identity must be written back
type createdRow struct {
	record   *Record
	gridIx   int
	sheetRow int
}

// NewPuller creates a pull engine
func NewPuller(client *Client, cache *SheetCache, target Target, store Pullable, opts *Options) *Puller {
	opts = opts.withDefaults()
	return &Puller{
		client:    client,
		cache:     cache,
		target:    target,
		store:     store,
		hooks:     opts.Hooks,
		listeners: opts.Listeners,
		logger:    opts.Logger.With(slog.String("target", target.Name), slog.String("phase", "pull")),
	}
}

// PullSheet upserts every data row of the sheet into the store and writes the
// identities of newly created records back into the sheet's identity column.
func (p *Puller) PullSheet(ctx context.Context) (*PullResult, error) {
	grid, err := p.cache.Grid(ctx)
	if err != nil {
		return nil, err
	}

	rowsStart, _, err := p.target.RowBounds()
	if err != nil {
		return nil, err
	}

	idIx, err := grid.ColumnIndex(p.target.SheetIdentityColumn)
	if err != nil {
		return nil, fmt.Errorf("sheet must have an identity column: %w", err)
	}
	idLetter, err := p.identityColumnLetter(idIx)
	if err != nil {
		return nil, err
	}

	fieldIndex := p.fieldIndex(grid.Headers)
	localFields := make(map[string]bool)
	for _, f := range p.store.Fields() {
		localFields[f] = true
	}

	result := &PullResult{}
	var pending []createdRow

	for rowIx, row := range grid.Rows {
		if len(pending) >= p.target.BatchSize {
			p.logger.Debug("writing out a batch of identities", slog.Int("count", len(pending)))
			if err := p.writeback(ctx, grid, pending, idIx, idLetter); err != nil {
				return result, err
			}
			result.Writebacks++
			pending = nil
		}

		result.Rows++
		sheetRow := rowsStart + 1 + rowIx

		raw, values, err := p.rowValues(grid.Headers, row, fieldIndex)
		if err == nil {
			values, err = p.hooks.cleanRow(values)
		}
		if err != nil {
			p.logger.Warn("skipping row that failed cleaning", slog.Int("row", sheetRow), slog.String("error", err.Error()))
			result.Skipped++
			continue
		}

		// the hooks decide whether a row reaches the store at all
		if !p.hooks.shouldUpsertRow(values) {
			p.logger.Debug("row rejected by upsert predicate", slog.Int("row", sheetRow))
			result.Skipped++
			continue
		}

		record, created, err := p.upsert(ctx, values, localFields)
		if err != nil {
			return result, fmt.Errorf("row %d: %w", sheetRow, err)
		}

		p.notify(ctx, RowEvent{
			Target:  p.target.Name,
			Record:  record,
			Created: created,
			RowData: raw,
			Row:     sheetRow,
		})

		result.Records = append(result.Records, record)
		if created {
			result.Created++
			pending = append(pending, createdRow{record: record, gridIx: rowIx, sheetRow: sheetRow})
		} else {
			result.Updated++
		}
	}

	if len(pending) > 0 {
		p.logger.Debug("writing out remaining identities", slog.Int("count", len(pending)))
		if err := p.writeback(ctx, grid, pending, idIx, idLetter); err != nil {
			return result, err
		}
		result.Writebacks++
	}

	p.logger.Info("finished sheet pull",
		slog.Int("rows", result.Rows),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped))

	return result, nil
}

// identityColumnLetter converts the header position of the identity column to a sheet column letter.
func (p *Puller) identityColumnLetter(idIx int) (string, error) {
	colsStart, _, err := p.target.ColumnBounds()
	if err != nil {
		return "", err
	}
	start, err := ColumnLetterToIndex(colsStart)
	if err != nil {
		return "", err
	}
	return ColumnIndexToLetter(start + idIx)
}

// fieldIndex maps column positions to local field names for the pulled headers.
// The identity column is always pulled.
func (p *Puller) fieldIndex(headers []string) map[int]string {
	wanted := make(map[string]bool)
	for _, h := range p.target.PullFields {
		wanted[h] = true
	}

	index := make(map[int]string)
	for i, h := range headers {
		if h == "" {
			continue
		}
		if p.target.pullsAll() || wanted[h] || h == p.target.SheetIdentityColumn {
			index[i] = p.target.FieldFor(h)
		}
	}
	return index
}

// rowValues returns the raw text of the pulled cells by header and the cleaned values by field.
func (p *Puller) rowValues(headers, row []string, fieldIndex map[int]string) (map[string]string, map[string]interface{}, error) {
	raw := make(map[string]string)
	values := make(map[string]interface{})

	for col, cell := range row {
		field, ok := fieldIndex[col]
		if !ok {
			continue
		}
		raw[headers[col]] = cell

		// identity cells are looked up as they are
		if field == p.target.IdentityField {
			values[field] = cell
			continue
		}

		v, err := p.hooks.cleanField(field, cell)
		if err != nil {
			return raw, nil, fmt.Errorf("field %s: %w", field, err)
		}
		values[field] = v
	}

	return raw, values, nil
}

// upsert updates the record identified by the row, or creates one when the
// identity is absent, malformed or unknown to the store.
func (p *Puller) upsert(ctx context.Context, values map[string]interface{}, localFields map[string]bool) (*Record, bool, error) {
	idField := p.target.IdentityField
	id := NewRecord(values).GetAsString(idField, "")

	data := make(map[string]interface{}, len(values))
	for f, v := range values {
		if f == idField || !localFields[f] {
			continue
		}
		data[f] = v
	}

	if id != "" {
		record, err := p.store.Find(ctx, idField, id)
		switch {
		case err == nil:
			for f, v := range data {
				record.Set(f, v)
			}
			if err := p.store.Save(ctx, record); err != nil {
				return nil, false, fmt.Errorf("failed to save record %s: %w", id, err)
			}
			return record, false, nil

		case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrInvalidIdentity):
			p.logger.Debug("identity not found locally, creating", slog.String("id", id))

		default:
			return nil, false, fmt.Errorf("failed to look up record %s: %w", id, err)
		}
	}

	record, err := p.store.Create(ctx, data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create record: %w", err)
	}
	return record, true, nil
}

func (p *Puller) notify(ctx context.Context, event RowEvent) {
	for _, l := range p.listeners {
		l(ctx, event)
	}
}

// writeback writes the identities of created records into the identity column,
// one range per contiguous run of rows, all in a single batch call. The grid is
// updated as well so that a following push matches these rows.
func (p *Puller) writeback(ctx context.Context, grid *SheetGrid, created []createdRow, idIx int, idLetter string) error {
	rows := make([]int, len(created))
	for i, c := range created {
		rows[i] = c.sheetRow
	}

	var ranges []RangeAddress
	var data [][][]string
	k := 0
	for _, run := range contiguousRuns(rows) {
		ranges = append(ranges, RangeAddress{
			Sheet:       p.target.SheetName,
			StartColumn: idLetter,
			EndColumn:   idLetter,
			StartRow:    run[0],
			EndRow:      run[1],
		})

		block := make([][]string, 0, run[1]-run[0]+1)
		for r := run[0]; r <= run[1]; r++ {
			block = append(block, []string{created[k].record.GetAsString(p.target.IdentityField, "")})
			k++
		}
		data = append(data, block)
	}

	p.logger.Debug("writing out created identities", slog.Int("ranges", len(ranges)), slog.Int("rows", len(created)))

	if err := p.client.WriteBatch(ctx, p.cache.Location(), ranges, data); err != nil {
		return fmt.Errorf("failed to write back identities: %w", err)
	}

	for _, c := range created {
		grid.SetCell(c.gridIx, idIx, c.record.GetAsString(p.target.IdentityField, ""))
	}
	return nil
}
