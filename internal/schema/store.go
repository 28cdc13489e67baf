package schema

import "sync"

// Store guards one copy of the model. The UI reads and writes the Local Model
// through a Store while the sync worker owns the Synced Model.
type Store struct {
	mu sync.RWMutex
	db *Database
}

// NewStore creates a store holding db
func NewStore(db *Database) *Store {
	if db == nil {
		db = &Database{}
	}
	return &Store{db: db}
}

// View runs fn with read access to the model. fn must not retain db.
func (s *Store) View(fn func(db *Database)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.db)
}

// Update runs fn with write access to the model
func (s *Store) Update(fn func(db *Database) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.db)
}

// Snapshot returns a deep copy of the model
func (s *Store) Snapshot() *Database {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Clone()
}

// Reset replaces the model wholesale
func (s *Store) Reset(db *Database) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db = db
}
