package postgres

// NewStoreForTest creates a Store over the provided querier (test-only).
func NewStoreForTest(q Querier, tables Tables) (*Store, error) {
	qs, err := buildQueries(tables)
	if err != nil {
		return nil, err
	}
	return &Store{db: q, queries: qs}, nil
}
