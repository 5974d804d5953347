package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ideamans/go-sheetsync"
)

// Table is a sheetsync.Store over one database table.
//
// When the identity column is an INTEGER PRIMARY KEY, created rows get their
// identity from SQLite and Find rejects non-numeric identities with
// sheetsync.ErrInvalidIdentity. Otherwise created rows get a random UUID.
type Table struct {
	conn          *sql.DB
	name          string
	identityField string
	columns       []string
	intIdentity   bool
}

var _ sheetsync.Store = (*Table)(nil)

// Table returns the store for an existing table
func (db *DB) Table(ctx context.Context, name, identityField string) (*Table, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT name, type, pk FROM pragma_table_info(?)", name)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}
	defer rows.Close()

	t := &Table{conn: db.conn, name: name, identityField: identityField}
	found := false
	for rows.Next() {
		var col, typ string
		var pk int
		if err := rows.Scan(&col, &typ, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", name, err)
		}
		t.columns = append(t.columns, col)
		if col == identityField {
			found = true
			t.intIdentity = pk == 1 && strings.EqualFold(typ, "INTEGER")
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}

	if len(t.columns) == 0 {
		return nil, fmt.Errorf("%w: table %q does not exist", sheetsync.ErrInvalidConfig, name)
	}
	if !found {
		return nil, fmt.Errorf("%w: table %q has no identity column %q", sheetsync.ErrInvalidConfig, name, identityField)
	}
	return t, nil
}

// Name returns the table name
func (t *Table) Name() string {
	return t.name
}

// Fields returns the column names in table order
func (t *Table) Fields() []string {
	return append([]string(nil), t.columns...)
}

// List returns every row in rowid order
func (t *Table) List(ctx context.Context) ([]*sheetsync.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", t.columnList(), quoteIdent(t.name))
	rows, err := t.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.name, err)
	}
	defer rows.Close()

	var records []*sheetsync.Record
	for rows.Next() {
		r, err := t.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.name, err)
	}
	return records, nil
}

// Find returns the first row whose field equals value
func (t *Table) Find(ctx context.Context, field, value string) (*sheetsync.Record, error) {
	if !slices.Contains(t.columns, field) {
		return nil, fmt.Errorf("table %s has no column %q", t.name, field)
	}

	var arg interface{} = value
	if field == t.identityField && t.intIdentity {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", sheetsync.ErrInvalidIdentity, value)
		}
		arg = id
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY rowid LIMIT 1",
		t.columnList(), quoteIdent(t.name), quoteIdent(field))
	rows, err := t.conn.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s.%s: %w", t.name, field, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to find %s.%s: %w", t.name, field, err)
		}
		return nil, fmt.Errorf("%w: %s.%s=%q", sheetsync.ErrRecordNotFound, t.name, field, value)
	}
	return t.scan(rows)
}

// Create inserts a row. Values for unknown columns are ignored.
func (t *Table) Create(ctx context.Context, values map[string]interface{}) (*sheetsync.Record, error) {
	r := sheetsync.NewRecord(nil)
	for _, col := range t.columns {
		if v, ok := values[col]; ok {
			r.Set(col, v)
		}
	}

	if r.GetAsString(t.identityField, "") == "" {
		if t.intIdentity {
			delete(r.Values, t.identityField)
		} else {
			r.Set(t.identityField, uuid.NewString())
		}
	}

	var cols, marks []string
	var args []interface{}
	for _, col := range t.columns {
		if v, ok := r.Values[col]; ok {
			cols = append(cols, quoteIdent(col))
			marks = append(marks, "?")
			args = append(args, driverValue(v))
		}
	}

	query := fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(t.name))
	if len(cols) > 0 {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(t.name), strings.Join(cols, ", "), strings.Join(marks, ", "))
	}

	res, err := t.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", t.name, err)
	}

	if t.intIdentity && !r.Has(t.identityField) {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read id of new %s row: %w", t.name, err)
		}
		r.Set(t.identityField, id)
	}
	return r, nil
}

// Save updates the row with the record's identity
func (t *Table) Save(ctx context.Context, record *sheetsync.Record) error {
	id := record.GetAsString(t.identityField, "")
	var idArg interface{} = id
	if t.intIdentity {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", sheetsync.ErrInvalidIdentity, id)
		}
		idArg = n
	}

	var sets []string
	var args []interface{}
	for _, col := range t.columns {
		if col == t.identityField {
			continue
		}
		if v, ok := record.Values[col]; ok {
			sets = append(sets, quoteIdent(col)+" = ?")
			args = append(args, driverValue(v))
		}
	}

	var query string
	if len(sets) == 0 {
		// 更新する列がなくても存在確認はする
		query = fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = ?",
			quoteIdent(t.name), quoteIdent(t.identityField), quoteIdent(t.identityField), quoteIdent(t.identityField))
	} else {
		query = fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
			quoteIdent(t.name), strings.Join(sets, ", "), quoteIdent(t.identityField))
	}
	args = append(args, idArg)

	res, err := t.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", t.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", t.name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s.%s=%q", sheetsync.ErrRecordNotFound, t.name, t.identityField, id)
	}
	return nil
}

func (t *Table) columnList() string {
	quoted := make([]string, len(t.columns))
	for i, col := range t.columns {
		quoted[i] = quoteIdent(col)
	}
	return strings.Join(quoted, ", ")
}

func (t *Table) scan(rows *sql.Rows) (*sheetsync.Record, error) {
	values := make([]interface{}, len(t.columns))
	ptrs := make([]interface{}, len(t.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan %s row: %w", t.name, err)
	}

	r := sheetsync.NewRecord(nil)
	for i, col := range t.columns {
		switch v := values[i].(type) {
		case []byte:
			r.Set(col, string(v))
		default:
			r.Set(col, v)
		}
	}
	return r, nil
}

// driverValue converts hook output into a value database/sql accepts
func driverValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, string, []byte, bool, int, int32, int64, float64, time.Time:
		return val
	default:
		r := sheetsync.NewRecord(map[string]interface{}{"v": v})
		return r.GetAsString("v", "")
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
