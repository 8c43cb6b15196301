// Package store keeps a ledger of generated sampling masks so a run's k-space
// trajectories can be inspected and replayed later.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Run describes one simulation run.
type Run struct {
	ID        string    `json:"id"`
	Operator  string    `json:"operator"`
	Generator string    `json:"generator"`
	ImgSize   []int     `json:"img_size"`
	Seed      uint64    `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRun returns a Run with a fresh random ID.
func NewRun(operator, generator string, imgSize []int, seed uint64) Run {
	return Run{
		ID:        uuid.NewString(),
		Operator:  operator,
		Generator: generator,
		ImgSize:   append([]int(nil), imgSize...),
		Seed:      seed,
		CreatedAt: time.Now().UTC(),
	}
}

// Sample records the k-space rows retained for one batch element.
type Sample struct {
	RunID   string `json:"run_id"`
	Batch   int    `json:"batch"`
	Element int    `json:"element"`
	Center  []int  `json:"center"`
	Lines   []int  `json:"lines"`
}

// Store persists runs and their samples. Implementations are safe for concurrent use.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	SaveSample(ctx context.Context, sample Sample) error
	ListSamples(ctx context.Context, runID string) ([]Sample, error)
	Close() error
}

// NewStore returns a memory store for an empty path and a SQLite store otherwise.
// The store still needs Init.
func NewStore(path string) Store {
	if path == "" {
		return NewMemoryStore()
	}
	return NewSQLiteStore(path)
}
