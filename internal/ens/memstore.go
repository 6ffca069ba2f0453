package ens

// MemStore is a Store without persistence.
type MemStore struct {
	table
}

func NewMemStore(opts StoreOptions) *MemStore {
	return &MemStore{table: newTable(opts)}
}

func (s *MemStore) Load() error  { return nil }
func (s *MemStore) Save() error  { return nil }
func (s *MemStore) Close() error { return nil }
