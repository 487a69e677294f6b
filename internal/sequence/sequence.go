package sequence

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Generator hands out monotonically increasing numbers for human-readable
// codes. Implementations must be safe under concurrent callers.
type Generator interface {
	Next(ctx context.Context, name string) (int64, error)
}

// PGGenerator increments a single counter row per sequence name. The
// INSERT ... ON CONFLICT makes the increment atomic without an explicit
// transaction; gaps can appear when a caller's surrounding work fails, which
// is acceptable for display codes.
type PGGenerator struct {
	db *sqlx.DB
}

func NewPGGenerator(db *sqlx.DB) *PGGenerator {
	return &PGGenerator{db: db}
}

func (g *PGGenerator) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	query := `
        INSERT INTO counters (name, value) VALUES ($1, 1)
        ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
        RETURNING value
    `
	err := g.db.GetContext(ctx, &value, query, name)
	return value, err
}

// MemoryGenerator is the in-process counterpart used in tests and with the
// in-memory stock repository.
type MemoryGenerator struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{values: map[string]int64{}}
}

func (g *MemoryGenerator) Next(ctx context.Context, name string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[name]++
	return g.values[name], nil
}
