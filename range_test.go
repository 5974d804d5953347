package sheetsync

import (
	"errors"
	"testing"
)

func TestColumnLetterRoundTrip(t *testing.T) {
	for c := 'A'; c <= 'Z'; c++ {
		letter := string(c)

		ix, err := ColumnLetterToIndex(letter)
		if err != nil {
			t.Fatalf("ColumnLetterToIndex(%q) error = %v", letter, err)
		}
		if ix != int(c-'A') {
			t.Errorf("ColumnLetterToIndex(%q) = %d, want %d", letter, ix, c-'A')
		}

		got, err := ColumnIndexToLetter(ix)
		if err != nil {
			t.Fatalf("ColumnIndexToLetter(%d) error = %v", ix, err)
		}
		if got != letter {
			t.Errorf("round trip of %q = %q", letter, got)
		}
	}
}

func TestColumnLetterToIndex_Invalid(t *testing.T) {
	tests := []string{"AA", "", "1", "@", "[", "ZZ"}

	for _, letter := range tests {
		t.Run(letter, func(t *testing.T) {
			_, err := ColumnLetterToIndex(letter)
			if !errors.Is(err, ErrInvalidColumn) {
				t.Errorf("ColumnLetterToIndex(%q) error = %v, want ErrInvalidColumn", letter, err)
			}
		})
	}

	if ix, err := ColumnLetterToIndex("c"); err != nil || ix != 2 {
		t.Errorf("ColumnLetterToIndex(\"c\") = %d, %v; want 2, nil", ix, err)
	}
}

func TestColumnIndexToLetter_Invalid(t *testing.T) {
	for _, ix := range []int{-1, 26, 100} {
		if _, err := ColumnIndexToLetter(ix); !errors.Is(err, ErrInvalidColumn) {
			t.Errorf("ColumnIndexToLetter(%d) error = %v, want ErrInvalidColumn", ix, err)
		}
	}
}

func TestComposeRange(t *testing.T) {
	if got := ComposeRange("Sheet1", "A1:Z30000"); got != "Sheet1!A1:Z30000" {
		t.Errorf("ComposeRange() = %q", got)
	}
}

func TestParseRowBounds(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		wantStart int
		wantEnd   int
		wantErr   bool
	}{
		{name: "explicit end", spec: "A1:Z30000", wantStart: 1, wantEnd: 30000},
		{name: "open end", spec: "A1:Z", wantStart: 1, wantEnd: 500},
		{name: "offset start", spec: "B3:F10", wantStart: 3, wantEnd: 10},
		{name: "no rows", spec: "A:Z", wantErr: true},
		{name: "garbage", spec: "hello", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParseRowBounds(tt.spec, 500)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRange) {
					t.Errorf("ParseRowBounds() error = %v, want ErrMalformedRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRowBounds() error = %v", err)
			}
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("ParseRowBounds() = (%d, %d), want (%d, %d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParseColumnBounds(t *testing.T) {
	tests := []struct {
		spec      string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{spec: "A1:Z30000", wantStart: "A", wantEnd: "Z"},
		{spec: "C2:F", wantStart: "C", wantEnd: "F"},
		{spec: "B1:", wantStart: "B", wantEnd: "M"},
		{spec: "1:2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			start, end, err := ParseColumnBounds(tt.spec, "M")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColumnBounds() error = %v, wantErr %v", err, tt.wantErr)
			}
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("ParseColumnBounds() = (%s, %s), want (%s, %s)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestRangeAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    RangeAddress
		want    string
		wantErr error
	}{
		{
			name: "bounded",
			addr: RangeAddress{Sheet: "Sheet1", StartColumn: "A", EndColumn: "Z", StartRow: 2, EndRow: 501},
			want: "Sheet1!A2:Z501",
		},
		{
			name: "open end",
			addr: RangeAddress{Sheet: "Sheet1", StartColumn: "A", EndColumn: "Z", StartRow: 1},
			want: "Sheet1!A1:Z",
		},
		{
			name:    "reversed columns",
			addr:    RangeAddress{Sheet: "S", StartColumn: "D", EndColumn: "B", StartRow: 1},
			want:    "S!D1:B",
			wantErr: ErrMalformedRange,
		},
		{
			name:    "row zero",
			addr:    RangeAddress{Sheet: "S", StartColumn: "A", EndColumn: "B", StartRow: 0},
			want:    "S!A0:B",
			wantErr: ErrMalformedRange,
		},
		{
			name:    "wide column",
			addr:    RangeAddress{Sheet: "S", StartColumn: "A", EndColumn: "AB", StartRow: 1},
			want:    "S!A1:AB",
			wantErr: ErrInvalidColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.addr.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			err := tt.addr.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	addr, err := ParseRange("'My Sheet'!C5:C7")
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	want := RangeAddress{Sheet: "My Sheet", StartColumn: "C", EndColumn: "C", StartRow: 5, EndRow: 7}
	if addr != want {
		t.Errorf("ParseRange() = %+v, want %+v", addr, want)
	}

	addr, err = ParseRange("Sheet1!A1:Z")
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	if addr.EndRow != 0 {
		t.Errorf("open range EndRow = %d, want 0", addr.EndRow)
	}

	if _, err := ParseRange("A1:Z"); !errors.Is(err, ErrMalformedRange) {
		t.Errorf("ParseRange() without sheet error = %v, want ErrMalformedRange", err)
	}
}
