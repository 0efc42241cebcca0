// Package jsonstore provides a file-backed implementation of mail.Store.
//
// The entire corpus lives in one JSON document on disk. Every mutation
// rewrites the document through a temp-file-plus-rename sequence, so a crash
// mid-write leaves the previous version intact.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/linnemanlabs/sift/internal/mail"
)

// document is the on-disk layout.
type document struct {
	Metadata mail.Metadata   `json:"metadata"`
	Emails   []*mail.Message `json:"emails"`
}

// Store keeps the corpus in memory and mirrors every change to one JSON file.
// Safe for concurrent use within a single process.
type Store struct {
	path string

	mu   sync.RWMutex
	msgs []*mail.Message
	idx  map[string]int // message ID -> position in msgs
	meta mail.Metadata
}

// New opens the store at path, loading an existing document if one is there.
// A missing file is an empty store; the file appears on the first write.
func New(path string) (*Store, error) {
	s := &Store{
		path: path,
		idx:  make(map[string]int),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	s.msgs = doc.Emails
	s.meta = doc.Metadata
	for i, m := range s.msgs {
		s.idx[m.ID] = i
	}
	return s, nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

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
	return s.persist()
}

// Merge overlays msgs onto existing content by id. New ids append in input
// order; existing ids are replaced in place, keeping their position.
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
	return s.persist()
}

// UpdateAnalysis attaches score (and optional sum) to the message with the
// given id, stamping the analysis time. Unknown ids leave the store untouched.
func (s *Store) UpdateAnalysis(_ context.Context, id string, score *mail.ImportanceScore, sum *mail.Summary) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.idx[id]
	if !ok {
		return false, nil
	}

	// Stage the update on a copy so a failed persist leaves the in-memory
	// view matching what is on disk.
	prev, prevMeta := s.msgs[i], s.meta

	now := time.Now().UTC()
	cp := copyMessage(prev)
	sc := *score
	sc.AnalyzedAt = now
	cp.Importance = &sc
	if sum != nil {
		sm := *sum
		cp.Summary = &sm
	}

	s.msgs[i] = cp
	s.meta.LastAnalysis = now
	s.recount()
	if err := s.persist(); err != nil {
		s.msgs[i] = prev
		s.meta = prevMeta
		return false, err
	}
	return true, nil
}

// LoadAll returns every stored message in insertion order.
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

// Candidates returns the messages passing the deletion-safety predicate at
// the given score ceiling.
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

// recount refreshes the derived metadata counters. Caller holds the lock.
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

// persist writes the document to a sibling temp file and renames it into
// place. Caller holds the lock.
func (s *Store) persist() error {
	doc := document{Metadata: s.meta, Emails: s.msgs}
	if doc.Emails == nil {
		doc.Emails = []*mail.Message{}
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
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
