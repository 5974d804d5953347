package sheetsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Pushable is the capability a local store needs to be pushed to a sheet
type Pushable interface {
	// Fields lists every field of the stored records, in column order
	Fields() []string

	// List returns the records to push, in a stable order
	List(ctx context.Context) ([]*Record, error)
}

// Pullable is the capability a local store needs to be updated from a sheet
type Pullable interface {
	Fields() []string

	// Find looks a record up by field value. It returns ErrRecordNotFound when no
	// record matches and ErrInvalidIdentity when value cannot be an identity.
	Find(ctx context.Context, field, value string) (*Record, error)

	// Create persists a new record and returns it with its identity assigned
	Create(ctx context.Context, values map[string]interface{}) (*Record, error)

	// Save persists an existing record
	Save(ctx context.Context, record *Record) error
}

// Store can be synchronized in both directions
type Store interface {
	Pushable
	Pullable
}

// Hooks customize how pulled rows are turned into records. Every hook is optional.
type Hooks struct {
	// CleanField converts the raw cell text of one field
	CleanField func(field, raw string) (interface{}, error)

	// CleanRow post-processes the cleaned values of a whole row
	CleanRow func(values map[string]interface{}) (map[string]interface{}, error)

	// ShouldUpsertRow rejects rows that must not be written to the store
	ShouldUpsertRow func(values map[string]interface{}) bool
}

func (h Hooks) cleanField(field, raw string) (interface{}, error) {
	if h.CleanField == nil {
		return raw, nil
	}
	return h.CleanField(field, raw)
}

func (h Hooks) cleanRow(values map[string]interface{}) (map[string]interface{}, error) {
	if h.CleanRow == nil {
		return values, nil
	}
	return h.CleanRow(values)
}

func (h Hooks) shouldUpsertRow(values map[string]interface{}) bool {
	if h.ShouldUpsertRow == nil {
		return true
	}
	return h.ShouldUpsertRow(values)
}

// RowEvent is emitted once for every pulled row that reached the store
type RowEvent struct {
	Target  string
	Record  *Record
	Created bool
	RowData map[string]string // raw cell text by header
	Row     int               // remote row number
}

// RowListener reacts to processed rows, e.g. to link records across targets.
// The engine does not inspect listener outcomes.
type RowListener func(ctx context.Context, event RowEvent)

// MemoryStore is an in-memory Store keyed by an identity field
type MemoryStore struct {
	mu            sync.Mutex
	identityField string
	fields        []string
	records       []*Record

	// NewIdentity generates identities for created records (default: random UUID)
	NewIdentity func() string
}

// NewMemoryStore creates an empty store with the given fields
func NewMemoryStore(identityField string, fields []string, records ...*Record) *MemoryStore {
	s := &MemoryStore{
		identityField: identityField,
		fields:        append([]string(nil), fields...),
		NewIdentity:   uuid.NewString,
	}
	for _, r := range records {
		s.records = append(s.records, r.Clone())
	}
	return s
}

// Fields implements Pushable and Pullable
func (s *MemoryStore) Fields() []string {
	return append([]string(nil), s.fields...)
}

// List implements Pushable
func (s *MemoryStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]*Record, len(s.records))
	for i, r := range s.records {
		records[i] = r.Clone()
	}
	return records, nil
}

// Find implements Pullable
func (s *MemoryStore) Find(ctx context.Context, field, value string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.Has(field) && r.GetAsString(field, "") == value {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s=%q", ErrRecordNotFound, field, value)
}

// Create implements Pullable
func (s *MemoryStore) Create(ctx context.Context, values map[string]interface{}) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := NewRecord(values)
	if r.GetAsString(s.identityField, "") == "" {
		r.Set(s.identityField, s.NewIdentity())
	}
	s.records = append(s.records, r)
	return r.Clone(), nil
}

// Save implements Pullable
func (s *MemoryStore) Save(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := record.GetAsString(s.identityField, "")
	for i, r := range s.records {
		if r.GetAsString(s.identityField, "") == id {
			s.records[i] = record.Clone()
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%q", ErrRecordNotFound, s.identityField, id)
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
