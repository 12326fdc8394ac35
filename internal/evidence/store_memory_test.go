package evidence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type EvidenceStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func (s *EvidenceStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func TestEvidenceStoreSuite(t *testing.T) {
	suite.Run(t, new(EvidenceStoreSuite))
}

func (s *EvidenceStoreSuite) newRecord(caseID string) *Evidence {
	record, err := NewEvidence(id.NewEvidenceID(), caseID,
		id.Address("0x1111111111111111111111111111111111111111"),
		"hash", "content-1", "anchor-1", PriorityMedium, nil, validMetadata(), time.Now())
	s.Require().NoError(err)
	return record
}

// TestCreationAndLookups verifies publish and retrieval.
func (s *EvidenceStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds record by id", func() {
		record := s.newRecord("C-1")
		s.Require().NoError(s.store.Create(s.ctx, record))

		found, err := s.store.FindByID(s.ctx, record.ID)
		s.Require().NoError(err)
		s.Equal(record.CaseID, found.CaseID)
	})

	s.Run("duplicate id conflicts", func() {
		record := s.newRecord("C-1")
		s.Require().NoError(s.store.Create(s.ctx, record))
		s.Require().ErrorIs(s.store.Create(s.ctx, record), sentinel.ErrConflict)
	})

	s.Run("unknown id returns ErrNotFound", func() {
		_, err := s.store.FindByID(s.ctx, id.NewEvidenceID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned record is a copy", func() {
		record := s.newRecord("C-2")
		record.Tags = []string{"original"}
		s.Require().NoError(s.store.Create(s.ctx, record))

		found, err := s.store.FindByID(s.ctx, record.ID)
		s.Require().NoError(err)
		found.Tags[0] = "mutated"
		found.CaseID = "hijacked"

		again, err := s.store.FindByID(s.ctx, record.ID)
		s.Require().NoError(err)
		s.Equal("original", again.Tags[0])
		s.Equal("C-2", again.CaseID)
	})
}

// TestListOrder verifies insertion-order scans.
func (s *EvidenceStoreSuite) TestListOrder() {
	first := s.newRecord("C-1")
	second := s.newRecord("C-2")
	third := s.newRecord("C-3")
	for _, record := range []*Evidence{first, second, third} {
		s.Require().NoError(s.store.Create(s.ctx, record))
	}

	records, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	s.Equal("C-1", records[0].CaseID)
	s.Equal("C-2", records[1].CaseID)
	s.Equal("C-3", records[2].CaseID)

	s.Run("deletion preserves order of the rest", func() {
		s.Require().NoError(s.store.Delete(s.ctx, second.ID))
		records, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(records, 2)
		s.Equal("C-1", records[0].CaseID)
		s.Equal("C-3", records[1].CaseID)
	})
}

// TestExecute verifies per-record atomic mutation.
func (s *EvidenceStoreSuite) TestExecute() {
	s.Run("concurrent reviews apply exactly once", func() {
		record := s.newRecord("C-1")
		s.Require().NoError(s.store.Create(s.ctx, record))

		reviewer := id.Address("0x2222222222222222222222222222222222222222")
		const goroutines = 16
		var wg sync.WaitGroup
		results := make(chan error, goroutines)
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.store.Execute(s.ctx, record.ID,
					func(record *Evidence) error { return record.CanReview(StatusApproved) },
					func(record *Evidence) { record.ApplyReview(StatusApproved, reviewer, time.Now()) },
				)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var succeeded int
		for err := range results {
			if err == nil {
				succeeded++
			} else {
				s.Require().ErrorIs(err, ErrInvalidTransition)
			}
		}
		s.Equal(1, succeeded, "exactly one review should apply")
	})

	s.Run("deleted record behaves as missing", func() {
		record := s.newRecord("C-1")
		s.Require().NoError(s.store.Create(s.ctx, record))
		s.Require().NoError(s.store.Delete(s.ctx, record.ID))

		_, err := s.store.Execute(s.ctx, record.ID,
			func(record *Evidence) error { return nil },
			func(record *Evidence) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestDelete verifies hard removal.
func (s *EvidenceStoreSuite) TestDelete() {
	s.Run("removes the record", func() {
		record := s.newRecord("C-1")
		s.Require().NoError(s.store.Create(s.ctx, record))
		s.Require().NoError(s.store.Delete(s.ctx, record.ID))

		_, err := s.store.FindByID(s.ctx, record.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("deleting twice returns ErrNotFound", func() {
		record := s.newRecord("C-1")
		s.Require().NoError(s.store.Create(s.ctx, record))
		s.Require().NoError(s.store.Delete(s.ctx, record.ID))
		s.Require().ErrorIs(s.store.Delete(s.ctx, record.ID), sentinel.ErrNotFound)
	})
}
