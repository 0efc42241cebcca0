// Package memstore provides an in-memory implementation of mail.Store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/sift/internal/mail"
)

// Store holds messages in memory. Suitable for dev/testing.
type Store struct {
	mu   sync.RWMutex
	msgs []*mail.Message
	idx  map[string]int // message ID -> position in msgs
	meta mail.Metadata
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{idx: make(map[string]int)}
}

// Replace discards prior content and stores msgs as the entire corpus.
func (s *Store) Replace(_ context.Context, msgs []*mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.msgs = make([]*mail.Message, 0, len(msgs))
	s.idx = make(map[string]int, len(msgs))
	for _, m := range msgs {
		cp := copyMessage(m)
		cp.SavedAt = now
		s.idx[cp.ID] = len(s.msgs)
		s.msgs = append(s.msgs, cp)
	}

	s.meta.LastSync = now
	s.recount()
	return nil
}

// Merge overlays msgs onto existing content by id.
func (s *Store) Merge(_ context.Context, msgs []*mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, m := range msgs {
		cp := copyMessage(m)
		cp.SavedAt = now
		if i, ok := s.idx[cp.ID]; ok {
			s.msgs[i] = cp
			continue
		}
		s.idx[cp.ID] = len(s.msgs)
		s.msgs = append(s.msgs, cp)
	}

	s.meta.LastSync = now
	s.recount()
	return nil
}

// UpdateAnalysis attaches score (and optional sum) to one message.
func (s *Store) UpdateAnalysis(_ context.Context, id string, score *mail.ImportanceScore, sum *mail.Summary) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.idx[id]
	if !ok {
		return false, nil
	}

	now := time.Now().UTC()
	sc := *score
	sc.AnalyzedAt = now
	s.msgs[i].Importance = &sc
	if sum != nil {
		sm := *sum
		s.msgs[i].Summary = &sm
	}

	s.meta.LastAnalysis = now
	s.recount()
	return true, nil
}

// LoadAll returns every stored message in insertion order. Returns copies.
func (s *Store) LoadAll(_ context.Context) ([]*mail.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*mail.Message, len(s.msgs))
	for i, m := range s.msgs {
		out[i] = copyMessage(m)
	}
	return out, nil
}

// Unanalyzed returns the stored messages lacking an importance result.
func (s *Store) Unanalyzed(_ context.Context) ([]*mail.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*mail.Message
	for _, m := range s.msgs {
		if !m.Analyzed() {
			out = append(out, copyMessage(m))
		}
	}
	return out, nil
}

// Candidates returns the messages passing the deletion-safety predicate.
func (s *Store) Candidates(_ context.Context, minScore float64) ([]*mail.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*mail.Message
	for _, m := range s.msgs {
		if m.IsDeletionCandidate(minScore) {
			out = append(out, copyMessage(m))
		}
	}
	return out, nil
}

// Metadata returns the current store metadata.
func (s *Store) Metadata(_ context.Context) (*mail.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta := s.meta
	return &meta, nil
}

// recount refreshes the derived counters. Caller holds the lock.
func (s *Store) recount() {
	s.meta.TotalEmails = len(s.msgs)
	analyzed := 0
	for _, m := range s.msgs {
		if m.Analyzed() {
			analyzed++
		}
	}
	s.meta.AnalyzedCount = analyzed
}

func copyMessage(m *mail.Message) *mail.Message {
	cp := *m
	if m.Importance != nil {
		sc := *m.Importance
		cp.Importance = &sc
	}
	if m.Summary != nil {
		sm := *m.Summary
		cp.Summary = &sm
	}
	return &cp
}
