package store

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]Run
	samples     map[string]map[[2]int]Sample
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]Run)
	s.samples = make(map[string]map[[2]int]Sample)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("memory store is not initialized")
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) SaveSample(_ context.Context, sample Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("memory store is not initialized")
	}
	if _, ok := s.runs[sample.RunID]; !ok {
		return errors.Errorf("unknown run %q", sample.RunID)
	}
	bySlot, ok := s.samples[sample.RunID]
	if !ok {
		bySlot = make(map[[2]int]Sample)
		s.samples[sample.RunID] = bySlot
	}
	sample.Center = append([]int(nil), sample.Center...)
	sample.Lines = append([]int(nil), sample.Lines...)
	bySlot[[2]int{sample.Batch, sample.Element}] = sample
	return nil
}

func (s *MemoryStore) ListSamples(_ context.Context, runID string) ([]Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Sample, 0, len(s.samples[runID]))
	for _, sample := range s.samples[runID] {
		out = append(out, sample)
	}
	sortSamples(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func sortSamples(samples []Sample) {
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Batch != samples[j].Batch {
			return samples[i].Batch < samples[j].Batch
		}
		return samples[i].Element < samples[j].Element
	})
}
