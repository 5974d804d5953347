package sheetsync

import (
	"context"
	"errors"
	"testing"
)

func TestSheetGrid(t *testing.T) {
	grid := &SheetGrid{
		Headers: []string{"Name", "Email", "Django GUID"},
		Rows:    [][]string{{"Ann"}},
	}

	if ix, err := grid.ColumnIndex("Django GUID"); err != nil || ix != 2 {
		t.Errorf("ColumnIndex() = %d, %v; want 2, nil", ix, err)
	}
	if _, err := grid.ColumnIndex("Phone"); !errors.Is(err, ErrUnknownHeader) {
		t.Errorf("ColumnIndex(unknown) error = %v, want ErrUnknownHeader", err)
	}

	grid.SetCell(0, 2, "g-1")
	if got := grid.Rows[0]; len(got) != 3 || got[2] != "g-1" || got[0] != "Ann" {
		t.Errorf("SetCell() row = %v", got)
	}

	row := grid.RowCopy(0, 5)
	if len(row) != 5 {
		t.Errorf("RowCopy() length = %d, want 5", len(row))
	}
	row[0] = "changed"
	if grid.Rows[0][0] != "Ann" {
		t.Error("RowCopy() result aliases the grid")
	}

	if ix := grid.AppendRow([]string{"Bob"}); ix != 1 || grid.Len() != 2 {
		t.Errorf("AppendRow() = %d, Len() = %d", ix, grid.Len())
	}
}

func TestSheetCache_LoadsOnce(t *testing.T) {
	api := newFakeAPI([]string{"Name"}, []string{"Ann"})
	client, _ := newTestClient(api, 0)
	cache := NewSheetCache(client, Location{SpreadsheetID: "id", SheetName: "Sheet1", DataRange: "A1:Z"})

	if cache.Loaded() {
		t.Fatal("Loaded() before first access")
	}
	for i := 0; i < 3; i++ {
		if _, err := cache.Grid(context.Background()); err != nil {
			t.Fatalf("Grid() error = %v", err)
		}
	}
	if api.gets != 1 {
		t.Errorf("remote reads = %d, want 1", api.gets)
	}
	if !cache.Loaded() {
		t.Error("Loaded() = false after access")
	}
}

func TestSheetCache_LoadError(t *testing.T) {
	api := newFakeAPI()
	api.errs = []error{ErrPermanentRemote}
	client, _ := newTestClient(api, 0)
	cache := NewSheetCache(client, Location{SpreadsheetID: "id", SheetName: "Sheet1", DataRange: "A1:Z"})

	if _, err := cache.Grid(context.Background()); !errors.Is(err, ErrPermanentRemote) {
		t.Fatalf("Grid() error = %v, want ErrPermanentRemote", err)
	}
	if cache.Loaded() {
		t.Error("failed load must not be cached")
	}
}
