package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func people(n int) []*Record {
	records := make([]*Record, n)
	for i := range records {
		records[i] = NewRecord(map[string]interface{}{
			"guid":  fmt.Sprintf("g-%d", i+1),
			"name":  fmt.Sprintf("person %d", i+1),
			"email": fmt.Sprintf("p%d@example.com", i+1),
		})
	}
	return records
}

func newPusherFor(api *fakeAPI, target Target, store Pushable, opts *Options) *Pusher {
	client, _ := newTestClient(api, 0)
	cache := NewSheetCache(client, target.Location)
	return NewPusher(client, cache, target, store, opts)
}

func TestPusher_EmptySheetInitializesHeaders(t *testing.T) {
	api := newFakeAPI()
	store := NewMemoryStore("guid", []string{"guid", "name", "email"}, people(3)...)

	result, err := newPusherFor(api, testTarget(), store, quietOptions()).UpsertTable(context.Background())
	if err != nil {
		t.Fatalf("UpsertTable() error = %v", err)
	}

	if result.Records != 3 || result.Appended != 3 || result.Updated != 0 || result.Writes != 1 {
		t.Errorf("result = %+v", result)
	}

	ranges := []string{}
	for _, vr := range api.batches[0] {
		ranges = append(ranges, vr.Range)
	}
	if want := []string{"Sheet1!A1:Z1", "Sheet1!A2:Z4"}; !reflect.DeepEqual(ranges, want) {
		t.Errorf("ranges = %v, want %v", ranges, want)
	}

	headers := []string{api.cell(1, "A"), api.cell(1, "B"), api.cell(1, "C")}
	if want := []string{"Django GUID", "name", "email"}; !reflect.DeepEqual(headers, want) {
		t.Errorf("headers = %v, want %v", headers, want)
	}
	if api.cell(2, "A") != "g-1" || api.cell(4, "C") != "p3@example.com" {
		t.Errorf("data rows misplaced: A2=%q C4=%q", api.cell(2, "A"), api.cell(4, "C"))
	}
}

func TestPusher_BatchWrites(t *testing.T) {
	tests := []struct {
		records    int
		batchSize  int
		wantWrites int
	}{
		{records: 1200, batchSize: 500, wantWrites: 3},
		{records: 1000, batchSize: 500, wantWrites: 2},
		{records: 1, batchSize: 500, wantWrites: 1},
		{records: 10, batchSize: 3, wantWrites: 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.records, tt.batchSize), func(t *testing.T) {
			api := newFakeAPI()
			target := testTarget()
			target.BatchSize = tt.batchSize
			store := NewMemoryStore("guid", []string{"guid", "name", "email"}, people(tt.records)...)

			result, err := newPusherFor(api, target, store, quietOptions()).UpsertTable(context.Background())
			if err != nil {
				t.Fatalf("UpsertTable() error = %v", err)
			}
			if result.Writes != tt.wantWrites || api.writes != tt.wantWrites {
				t.Errorf("writes = %d (api %d), want %d", result.Writes, api.writes, tt.wantWrites)
			}

			// the last record lands on row rowsStart+1+(n-1)
			last := tt.records + 1
			if got := api.cell(last, "A"); got != fmt.Sprintf("g-%d", tt.records) {
				t.Errorf("A%d = %q", last, got)
			}
		})
	}
}

func TestPusher_NothingToPush(t *testing.T) {
	api := newFakeAPI([]string{"Django GUID", "name"})
	store := NewMemoryStore("guid", []string{"guid", "name"})

	result, err := newPusherFor(api, testTarget(), store, quietOptions()).UpsertTable(context.Background())
	if err != nil {
		t.Fatalf("UpsertTable() error = %v", err)
	}
	if result.Writes != 0 || api.writes != 0 {
		t.Errorf("writes = %d, want 0", api.writes)
	}
}

func TestPusher_Idempotent(t *testing.T) {
	api := newFakeAPI()
	store := NewMemoryStore("guid", []string{"guid", "name", "email"}, people(4)...)

	if _, err := newPusherFor(api, testTarget(), store, quietOptions()).UpsertTable(context.Background()); err != nil {
		t.Fatalf("first UpsertTable() error = %v", err)
	}
	rows := api.rowCount()

	result, err := newPusherFor(api, testTarget(), store, quietOptions()).UpsertTable(context.Background())
	if err != nil {
		t.Fatalf("second UpsertTable() error = %v", err)
	}
	if result.Appended != 0 || result.Updated != 4 {
		t.Errorf("second push = %+v, want 4 updates and no appends", result)
	}
	if api.rowCount() != rows {
		t.Errorf("row count = %d, want %d", api.rowCount(), rows)
	}
}

func TestPusher_UpdatesInPlace(t *testing.T) {
	api := newFakeAPI(
		[]string{"Name", "Notes", "Django GUID"},
		[]string{"Ann", "keep me", "g-1"},
		[]string{"Bob", "", "g-2"},
	)
	target := testTarget()
	target.Columns = map[string]string{"name": "Name"}

	store := NewMemoryStore("guid", []string{"guid", "name", "phone"},
		NewRecord(map[string]interface{}{"guid": "g-1", "name": "Ann B", "phone": "555"}),
		NewRecord(map[string]interface{}{"guid": "g-3", "name": "Cid"}),
	)

	result, err := newPusherFor(api, target, store, quietOptions()).UpsertTable(context.Background())
	if err != nil {
		t.Fatalf("UpsertTable() error = %v", err)
	}
	if result.Updated != 1 || result.Appended != 1 {
		t.Errorf("result = %+v", result)
	}

	if api.cell(2, "A") != "Ann B" || api.cell(2, "B") != "keep me" {
		t.Errorf("row 2 = [%q %q], want [Ann B, keep me]", api.cell(2, "A"), api.cell(2, "B"))
	}
	if api.cell(3, "A") != "Bob" {
		t.Errorf("untouched row 3 changed: %q", api.cell(3, "A"))
	}
	if api.cell(4, "A") != "Cid" || api.cell(4, "C") != "g-3" {
		t.Errorf("appended row 4 = [%q .. %q]", api.cell(4, "A"), api.cell(4, "C"))
	}
	if api.cell(1, "D") != "" {
		t.Errorf("field without header must not add a column, D1 = %q", api.cell(1, "D"))
	}
}

func TestPusher_ContiguousRanges(t *testing.T) {
	api := newFakeAPI(
		[]string{"Django GUID", "name"},
		[]string{"g-1", "a"},
		[]string{"g-2", "b"},
		[]string{"g-3", "c"},
		[]string{"g-4", "d"},
	)
	store := NewMemoryStore("guid", []string{"guid", "name"},
		NewRecord(map[string]interface{}{"guid": "g-1", "name": "A"}),
		NewRecord(map[string]interface{}{"guid": "g-2", "name": "B"}),
		NewRecord(map[string]interface{}{"guid": "g-4", "name": "D"}),
	)

	if _, err := newPusherFor(api, testTarget(), store, quietOptions()).UpsertTable(context.Background()); err != nil {
		t.Fatalf("UpsertTable() error = %v", err)
	}

	if len(api.batches) != 1 {
		t.Fatalf("batch calls = %d, want 1", len(api.batches))
	}
	var ranges []string
	for _, vr := range api.batches[0] {
		ranges = append(ranges, vr.Range)
	}
	if want := []string{"Sheet1!A2:Z3", "Sheet1!A5:Z5"}; !reflect.DeepEqual(ranges, want) {
		t.Errorf("ranges = %v, want %v", ranges, want)
	}
	if api.cell(4, "B") != "c" {
		t.Errorf("row 4 rewritten: %q", api.cell(4, "B"))
	}
}

func TestPusher_MissingIdentityColumnAppends(t *testing.T) {
	api := newFakeAPI([]string{"name"}, []string{"a"})
	store := NewMemoryStore("guid", []string{"guid", "name"},
		NewRecord(map[string]interface{}{"guid": "g-1", "name": "a"}),
	)

	result, err := newPusherFor(api, testTarget(), store, quietOptions()).UpsertTable(context.Background())
	if err != nil {
		t.Fatalf("UpsertTable() error = %v", err)
	}
	if result.Appended != 1 {
		t.Errorf("Appended = %d, want 1", result.Appended)
	}
	if api.cell(3, "A") != "a" {
		t.Errorf("A3 = %q, want a", api.cell(3, "A"))
	}
}

func TestPusher_RowLimit(t *testing.T) {
	api := newFakeAPI()
	target := testTarget()
	target.DataRange = "A1:Z3"
	store := NewMemoryStore("guid", []string{"guid", "name"}, people(3)...)

	_, err := newPusherFor(api, target, store, quietOptions()).UpsertTable(context.Background())
	if !errors.Is(err, ErrRowLimitExceeded) {
		t.Fatalf("UpsertTable() error = %v, want ErrRowLimitExceeded", err)
	}
	if api.writes != 0 {
		t.Errorf("writes = %d, want 0", api.writes)
	}
}

func TestPusher_OffsetDataRange(t *testing.T) {
	api := newFakeAPI(
		[]string{"title"},
		[]string{},
		[]string{"", "Django GUID", "name"},
		[]string{"", "g-1", "old"},
	)
	target := testTarget()
	target.DataRange = "B3:D"
	store := NewMemoryStore("guid", []string{"guid", "name"},
		NewRecord(map[string]interface{}{"guid": "g-1", "name": "new"}),
		NewRecord(map[string]interface{}{"guid": "g-2", "name": "other"}),
	)

	if _, err := newPusherFor(api, target, store, quietOptions()).UpsertTable(context.Background()); err != nil {
		t.Fatalf("UpsertTable() error = %v", err)
	}

	if api.cell(4, "C") != "new" {
		t.Errorf("C4 = %q, want new", api.cell(4, "C"))
	}
	if api.cell(5, "B") != "g-2" || api.cell(5, "C") != "other" {
		t.Errorf("row 5 = [%q %q]", api.cell(5, "B"), api.cell(5, "C"))
	}
	if api.cell(1, "A") != "title" {
		t.Error("cells outside the data range changed")
	}
}

func TestPusher_PushFieldsAndFilter(t *testing.T) {
	api := newFakeAPI()
	target := testTarget()
	target.PushFields = []string{"guid", "name"}

	store := NewMemoryStore("guid", []string{"guid", "name", "email"}, people(5)...)
	opts := quietOptions()
	opts.Filter = &Query{Conditions: []Condition{{Field: "guid", Operator: "in", Value: []string{"g-2", "g-4"}}}}

	result, err := newPusherFor(api, target, store, opts).UpsertTable(context.Background())
	if err != nil {
		t.Fatalf("UpsertTable() error = %v", err)
	}
	if result.Records != 2 {
		t.Errorf("Records = %d, want 2", result.Records)
	}
	if api.cell(1, "C") != "" {
		t.Errorf("unexpected third header %q", api.cell(1, "C"))
	}
	if api.cell(2, "A") != "g-2" || api.cell(3, "A") != "g-4" {
		t.Errorf("pushed rows = [%q %q]", api.cell(2, "A"), api.cell(3, "A"))
	}
}

func TestPusher_PushRecord(t *testing.T) {
	api := newFakeAPI([]string{"Django GUID", "name"}, []string{"g-2", "stale"})
	store := NewMemoryStore("guid", []string{"guid", "name"}, people(3)...)

	result, err := newPusherFor(api, testTarget(), store, quietOptions()).PushRecord(context.Background(), "g-2")
	if err != nil {
		t.Fatalf("PushRecord() error = %v", err)
	}
	if result.Records != 1 || result.Updated != 1 {
		t.Errorf("result = %+v", result)
	}
	if api.cell(2, "B") != "person 2" || api.rowCount() != 2 {
		t.Errorf("B2 = %q, rows = %d", api.cell(2, "B"), api.rowCount())
	}
}

func TestPusher_WriteFailure(t *testing.T) {
	api := newFakeAPI([]string{"Django GUID", "name"})
	api.errs = []error{nil, fmt.Errorf("%w: 403", ErrPermanentRemote)}
	store := NewMemoryStore("guid", []string{"guid", "name"}, people(1)...)

	_, err := newPusherFor(api, testTarget(), store, quietOptions()).UpsertTable(context.Background())
	if !errors.Is(err, ErrPermanentRemote) {
		t.Fatalf("UpsertTable() error = %v, want ErrPermanentRemote", err)
	}
}

func TestPusher_PushFieldsWithoutIdentity(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
	}{
		{name: "existing headers", rows: [][]string{{"Django GUID", "name", "email"}}},
		{name: "empty sheet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(tt.rows...)
			target := testTarget()
			target.PushFields = []string{"name", "email"}
			store := NewMemoryStore("guid", []string{"guid", "name", "email"}, people(2)...)

			for i := 1; i <= 3; i++ {
				result, err := newPusherFor(api, target, store, quietOptions()).UpsertTable(context.Background())
				if err != nil {
					t.Fatalf("push %d: UpsertTable() error = %v", i, err)
				}
				if i > 1 && (result.Appended != 0 || result.Updated != 2) {
					t.Errorf("push %d = %+v, want 2 updates and no appends", i, result)
				}
			}

			if api.rowCount() != 3 {
				t.Errorf("row count = %d, want 3", api.rowCount())
			}
			if api.cell(1, "A") != "Django GUID" || api.cell(2, "A") != "g-1" || api.cell(3, "A") != "g-2" {
				t.Errorf("identity column = [%q %q %q]", api.cell(1, "A"), api.cell(2, "A"), api.cell(3, "A"))
			}
		})
	}
}
