package evidence

import (
	"context"
	"sync"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type memoryRecord struct {
	mu      sync.Mutex
	ev      *Evidence
	deleted bool
}

// InMemoryStore keeps evidence in a map with one lock per record. The outer
// mutex only guards map and ordering structure, so mutations of unrelated
// records never contend.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.EvidenceID]*memoryRecord
	order   []id.EvidenceID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.EvidenceID]*memoryRecord)}
}

func (s *InMemoryStore) Create(_ context.Context, record *Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := cloneEvidence(record)
	s.records[record.ID] = &memoryRecord{ev: cp}
	s.order = append(s.order, record.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, evidenceID id.EvidenceID) (*Evidence, error) {
	s.mu.RLock()
	rec, ok := s.records[evidenceID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, sentinel.ErrNotFound
	}
	return cloneEvidence(rec.ev), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Evidence, error) {
	s.mu.RLock()
	ids := make([]id.EvidenceID, len(s.order))
	copy(ids, s.order)
	recs := make([]*memoryRecord, 0, len(ids))
	for _, evidenceID := range ids {
		if rec, ok := s.records[evidenceID]; ok {
			recs = append(recs, rec)
		}
	}
	s.mu.RUnlock()

	out := make([]*Evidence, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		if !rec.deleted {
			out = append(out, cloneEvidence(rec.ev))
		}
		rec.mu.Unlock()
	}
	return out, nil
}

func (s *InMemoryStore) Execute(_ context.Context, evidenceID id.EvidenceID,
	validate func(*Evidence) error, mutate func(*Evidence)) (*Evidence, error) {
	s.mu.RLock()
	rec, ok := s.records[evidenceID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(rec.ev); err != nil {
		return nil, err
	}
	mutate(rec.ev)
	return cloneEvidence(rec.ev), nil
}

func (s *InMemoryStore) Delete(_ context.Context, evidenceID id.EvidenceID) error {
	s.mu.Lock()
	rec, ok := s.records[evidenceID]
	if ok {
		delete(s.records, evidenceID)
		for i, ordered := range s.order {
			if ordered == evidenceID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		return sentinel.ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return sentinel.ErrNotFound
	}
	rec.deleted = true
	return nil
}

func cloneEvidence(record *Evidence) *Evidence {
	cp := *record
	if record.Tags != nil {
		cp.Tags = append([]string(nil), record.Tags...)
	}
	if record.Enrichment != nil {
		enrichment := *record.Enrichment
		cp.Enrichment = &enrichment
	}
	if record.ReviewedAt != nil {
		at := *record.ReviewedAt
		cp.ReviewedAt = &at
	}
	return &cp
}
