package sheetsync_test

import (
	"testing"

	"github.com/ideamans/go-sheetsync"
)

func testRecords() []*sheetsync.Record {
	return []*sheetsync.Record{
		sheetsync.NewRecord(map[string]interface{}{"id": "1", "name": "Ann", "age": 30, "status": "active"}),
		sheetsync.NewRecord(map[string]interface{}{"id": "2", "name": "Bob", "age": "25", "status": "inactive"}),
		sheetsync.NewRecord(map[string]interface{}{"id": "3", "name": "Cid", "age": 35.0, "status": "active"}),
		sheetsync.NewRecord(map[string]interface{}{"id": "4", "name": "Dee"}),
	}
}

func TestQuery_Apply(t *testing.T) {
	tests := []struct {
		name    string
		query   sheetsync.Query
		wantIDs []string
	}{
		{
			name:    "no conditions",
			query:   sheetsync.Query{},
			wantIDs: []string{"1", "2", "3", "4"},
		},
		{
			name:    "equality",
			query:   sheetsync.Query{Conditions: []sheetsync.Condition{{Field: "status", Operator: "==", Value: "active"}}},
			wantIDs: []string{"1", "3"},
		},
		{
			name:    "not equal includes missing fields",
			query:   sheetsync.Query{Conditions: []sheetsync.Condition{{Field: "status", Operator: "!=", Value: "active"}}},
			wantIDs: []string{"2", "4"},
		},
		{
			name:    "numeric comparison across types",
			query:   sheetsync.Query{Conditions: []sheetsync.Condition{{Field: "age", Operator: ">=", Value: 30}}},
			wantIDs: []string{"1", "3"},
		},
		{
			name:    "numeric string compared as number",
			query:   sheetsync.Query{Conditions: []sheetsync.Condition{{Field: "age", Operator: "<", Value: 28}}},
			wantIDs: []string{"2"},
		},
		{
			name:    "in list",
			query:   sheetsync.Query{Conditions: []sheetsync.Condition{{Field: "name", Operator: "in", Value: []string{"Bob", "Dee"}}}},
			wantIDs: []string{"2", "4"},
		},
		{
			name: "conditions are ANDed",
			query: sheetsync.Query{Conditions: []sheetsync.Condition{
				{Field: "status", Operator: "==", Value: "active"},
				{Field: "age", Operator: ">", Value: 31},
			}},
			wantIDs: []string{"3"},
		},
		{
			name:    "limit",
			query:   sheetsync.Query{Limit: 2},
			wantIDs: []string{"1", "2"},
		},
		{
			name:    "identity query",
			query:   sheetsync.IdentityQuery("id", "3"),
			wantIDs: []string{"3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.query.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}

			got := tt.query.Apply(testRecords())
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Apply() returned %d records, want %d", len(got), len(tt.wantIDs))
			}
			for i, r := range got {
				if id := r.GetAsString("id", ""); id != tt.wantIDs[i] {
					t.Errorf("record[%d] id = %s, want %s", i, id, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   sheetsync.Query
		wantErr bool
	}{
		{name: "valid", query: sheetsync.Query{Conditions: []sheetsync.Condition{{Field: "a", Operator: "==", Value: 1}}}},
		{name: "empty field", query: sheetsync.Query{Conditions: []sheetsync.Condition{{Operator: "==", Value: 1}}}, wantErr: true},
		{name: "unknown operator", query: sheetsync.Query{Conditions: []sheetsync.Condition{{Field: "a", Operator: "~", Value: 1}}}, wantErr: true},
		{name: "in without list", query: sheetsync.Query{Conditions: []sheetsync.Condition{{Field: "a", Operator: "in", Value: "x"}}}, wantErr: true},
		{name: "negative limit", query: sheetsync.Query{Limit: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.query.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
