package resultstore

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadyWritten is returned when a field's column is written twice.
var ErrAlreadyWritten = errors.New("result already written")

// Store maps a field id to its column: one value per record.
//
// Every key has exactly one writer, the task of that field, and is read only
// after the writer's completion signal is observed. sync.Map fits that
// pattern: keys are written once and read many times from other goroutines.
type Store struct {
	num     int
	columns sync.Map // Key: field id, Value: []any of length num
}

// New creates an empty store for a batch of num records.
func New(num int) *Store {
	return &Store{num: num}
}

// Num returns the batch size the store was created for.
func (s *Store) Num() int { return s.num }

// Put records the column of a field.
func (s *Store) Put(id string, column []any) error {
	if len(column) != s.num {
		return fmt.Errorf("column for %q has %d values, want %d", id, len(column), s.num)
	}
	if _, loaded := s.columns.LoadOrStore(id, column); loaded {
		return fmt.Errorf("%w: %q", ErrAlreadyWritten, id)
	}
	return nil
}

// Get returns the column of a field, if it has been written.
func (s *Store) Get(id string) ([]any, bool) {
	v, ok := s.columns.Load(id)
	if !ok {
		return nil, false
	}
	return v.([]any), true
}

// Snapshot copies every written column into a plain map.
func (s *Store) Snapshot() map[string][]any {
	out := make(map[string][]any)
	s.columns.Range(func(k, v any) bool {
		out[k.(string)] = v.([]any)
		return true
	})
	return out
}
