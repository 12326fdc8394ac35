package evidence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"custodia/internal/audit"
	"custodia/internal/evidence"
	"custodia/internal/identity"
	"custodia/internal/policy"
	"custodia/internal/upstream"
	"custodia/internal/upstream/mocks"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

var (
	adminCaller = evidence.Caller{
		Address: id.Address("0x1111111111111111111111111111111111111111"),
		Role:    identity.RoleAdmin,
	}
	officerCaller = evidence.Caller{
		Address: id.Address("0x2222222222222222222222222222222222222222"),
		Role:    identity.RoleOfficer,
	}
	otherOfficerCaller = evidence.Caller{
		Address: id.Address("0x3333333333333333333333333333333333333333"),
		Role:    identity.RoleOfficer,
	}
	publicCaller = evidence.Caller{
		Address: id.Address("0x4444444444444444444444444444444444444444"),
		Role:    identity.RolePublic,
	}
)

type EvidenceServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *evidence.InMemoryStore
	content *mocks.MockContentStore
	anchors *mocks.MockAnchorLedger
	audits  *audit.InMemoryStore
	service *evidence.Service
	ctx     context.Context
}

func (s *EvidenceServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = evidence.NewInMemoryStore()
	s.content = mocks.NewMockContentStore(s.ctrl)
	s.anchors = mocks.NewMockAnchorLedger(s.ctrl)
	s.audits = audit.NewInMemoryStore()
	s.service = evidence.New(s.store, policy.New(), s.content, s.anchors,
		evidence.WithAuditPublisher(audit.NewPublisher(s.audits)))
	s.ctx = context.Background()
}

func TestEvidenceServiceSuite(t *testing.T) {
	suite.Run(t, new(EvidenceServiceSuite))
}

func submitRequest(caseID string) evidence.SubmitRequest {
	return evidence.SubmitRequest{
		CaseID:  caseID,
		Content: []byte("artifact bytes"),
		Metadata: evidence.Metadata{
			Description: "Dashcam footage from the traffic stop",
			FileName:    "stop-042.mp4",
			FileSize:    2048,
			FileType:    "video/mp4",
		},
	}
}

func (s *EvidenceServiceSuite) expectCollaborators() {
	s.content.EXPECT().Put(gomock.Any(), gomock.Any()).Return("content-1", nil)
	s.anchors.EXPECT().Anchor(gomock.Any(), gomock.Any()).Return("anchor-1", nil)
}

func (s *EvidenceServiceSuite) submit(caller evidence.Caller, caseID string) *evidence.Evidence {
	s.expectCollaborators()
	record, err := s.service.Submit(s.ctx, caller, submitRequest(caseID))
	s.Require().NoError(err)
	return record
}

// TestSubmit covers creation, validation and the all-or-nothing contract.
func (s *EvidenceServiceSuite) TestSubmit() {
	s.Run("officer submission lands pending with handles set", func() {
		// An officer with a valid submission.
		record := s.submit(officerCaller, "C-1")

		// The record is pending and fully anchored.
		s.Equal(evidence.StatusPending, record.Status)
		s.Equal(officerCaller.Address, record.SubmittedBy)
		s.Equal("content-1", record.ContentID)
		s.Equal("anchor-1", record.AnchorID)
		s.NotEmpty(record.ContentHash)
		s.Equal(evidence.PriorityMedium, record.Priority)
	})

	s.Run("public role is forbidden before any collaborator call", func() {
		_, err := s.service.Submit(s.ctx, publicCaller, submitRequest("C-1"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("invalid metadata fails fast with field names", func() {
		req := submitRequest("C-1")
		req.Metadata.Description = "short"
		req.Metadata.FileSize = 0
		_, err := s.service.Submit(s.ctx, officerCaller, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(dErrors.MessageOf(err), "description")
		s.Contains(dErrors.MessageOf(err), "file_size")
	})

	s.Run("content store failure aborts with unavailable", func() {
		s.content.EXPECT().Put(gomock.Any(), gomock.Any()).Return("", sentinel.ErrUnavailable)
		_, err := s.service.Submit(s.ctx, officerCaller, submitRequest("C-9"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("anchor failure after stored content persists nothing", func() {
		s.SetupTest()

		// A content store that succeeds and a ledger that fails.
		s.content.EXPECT().Put(gomock.Any(), gomock.Any()).Return("content-orphan", nil)
		s.anchors.EXPECT().Anchor(gomock.Any(), gomock.Any()).Return("", errors.New("ledger timeout"))

		// The submission runs.
		_, err := s.service.Submit(s.ctx, officerCaller, submitRequest("C-D"))

		// It fails unavailable and no record is visible to anyone.
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		for _, caller := range []evidence.Caller{adminCaller, officerCaller, publicCaller} {
			records, listErr := s.service.List(s.ctx, caller)
			s.Require().NoError(listErr)
			s.Empty(records)
		}
	})

	s.Run("submission emits custody events", func() {
		s.SetupTest()
		record := s.submit(officerCaller, "C-1")

		events, err := s.audits.ListByActor(s.ctx, officerCaller.Address)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(string(audit.EventEvidenceSubmitted), events[0].Action)
		s.Equal(string(audit.EventEvidenceAnchored), events[1].Action)
		s.Equal(record.ID.String(), events[0].EvidenceID)
	})
}

// TestVisibility covers per-role list filtering.
func (s *EvidenceServiceSuite) TestVisibility() {
	record := s.submit(officerCaller, "C-1")

	s.Run("submitting officer sees the pending record", func() {
		records, err := s.service.List(s.ctx, officerCaller)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal(record.ID, records[0].ID)
	})

	s.Run("another officer does not", func() {
		records, err := s.service.List(s.ctx, otherOfficerCaller)
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("public does not see pending records", func() {
		records, err := s.service.List(s.ctx, publicCaller)
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("invisible records read as not found", func() {
		_, err := s.service.Get(s.ctx, otherOfficerCaller, record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestReview covers terminal transitions and public masking.
func (s *EvidenceServiceSuite) TestReview() {
	s.Run("approval is terminal and masked for public", func() {
		record := s.submit(officerCaller, "C-1")

		// An admin approves the record.
		approved, err := s.service.Review(s.ctx, adminCaller, record.ID, evidence.StatusApproved)
		s.Require().NoError(err)
		s.Equal(evidence.StatusApproved, approved.Status)
		s.Equal(adminCaller.Address, approved.ReviewedBy)
		s.Require().NotNil(approved.ReviewedAt)

		// A second review fails and public sees a masked record.
		_, err = s.service.Review(s.ctx, adminCaller, record.ID, evidence.StatusRejected)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		records, err := s.service.List(s.ctx, publicCaller)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Empty(records[0].ContentHash)
		s.Empty(records[0].AnchorID)
		s.Empty(records[0].ReviewedBy)
	})

	s.Run("officer may not review", func() {
		s.SetupTest()
		record := s.submit(officerCaller, "C-2")
		_, err := s.service.Review(s.ctx, officerCaller, record.ID, evidence.StatusApproved)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown record returns not found", func() {
		_, err := s.service.Review(s.ctx, adminCaller, id.NewEvidenceID(), evidence.StatusApproved)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestAssign covers assignment semantics.
func (s *EvidenceServiceSuite) TestAssign() {
	s.Run("admin assigns in any state", func() {
		record := s.submit(officerCaller, "C-1")
		_, err := s.service.Review(s.ctx, adminCaller, record.ID, evidence.StatusApproved)
		s.Require().NoError(err)

		assigned, err := s.service.Assign(s.ctx, adminCaller, record.ID, otherOfficerCaller.Address)
		s.Require().NoError(err)
		s.Equal(otherOfficerCaller.Address, assigned.AssignedTo)
		s.Equal(evidence.StatusApproved, assigned.Status)
	})

	s.Run("officer may not assign", func() {
		record := s.submit(officerCaller, "C-2")
		_, err := s.service.Assign(s.ctx, officerCaller, record.ID, officerCaller.Address)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

// TestEdit covers pending-only edits.
func (s *EvidenceServiceSuite) TestEdit() {
	s.Run("admin edits a pending record", func() {
		record := s.submit(officerCaller, "C-1")
		caseID := "C-1-amended"
		priority := evidence.PriorityHigh
		tags := []string{"traffic", "bodycam"}

		edited, err := s.service.Edit(s.ctx, adminCaller, record.ID, evidence.EditRequest{
			CaseID: &caseID, Priority: &priority, Tags: &tags,
		})
		s.Require().NoError(err)
		s.Equal("C-1-amended", edited.CaseID)
		s.Equal(evidence.PriorityHigh, edited.Priority)
		s.Equal(tags, edited.Tags)
	})

	s.Run("terminal records are immutable", func() {
		record := s.submit(officerCaller, "C-2")
		_, err := s.service.Review(s.ctx, adminCaller, record.ID, evidence.StatusRejected)
		s.Require().NoError(err)

		caseID := "C-2-late"
		_, err = s.service.Edit(s.ctx, adminCaller, record.ID, evidence.EditRequest{CaseID: &caseID})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("officer may not edit even own submissions", func() {
		record := s.submit(officerCaller, "C-3")
		caseID := "C-3-own"
		_, err := s.service.Edit(s.ctx, officerCaller, record.ID, evidence.EditRequest{CaseID: &caseID})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("replacement metadata is validated", func() {
		record := s.submit(officerCaller, "C-4")
		bad := evidence.Metadata{Description: "short"}
		_, err := s.service.Edit(s.ctx, adminCaller, record.ID, evidence.EditRequest{Metadata: &bad})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// TestDelete covers hard removal.
func (s *EvidenceServiceSuite) TestDelete() {
	s.Run("admin hard-removes the record", func() {
		record := s.submit(officerCaller, "C-1")
		s.Require().NoError(s.service.Delete(s.ctx, adminCaller, record.ID))

		_, err := s.service.Get(s.ctx, adminCaller, record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("officer may not delete", func() {
		record := s.submit(officerCaller, "C-2")
		err := s.service.Delete(s.ctx, officerCaller, record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("deletion leaves the custody trail intact", func() {
		s.SetupTest()
		record := s.submit(officerCaller, "C-3")
		s.Require().NoError(s.service.Delete(s.ctx, adminCaller, record.ID))

		events, err := s.audits.ListByActor(s.ctx, adminCaller.Address)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventEvidenceDeleted), events[0].Action)
	})
}

// TestEnrichment covers the best-effort advisory analysis.
func (s *EvidenceServiceSuite) TestEnrichment() {
	s.Run("analysis attaches after creation", func() {
		enricher := mocks.NewMockEnricher(s.ctrl)
		enricher.EXPECT().Enrich(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&upstream.Enrichment{Summary: "triage", RiskLevel: "low", ConfidenceScore: 0.5}, nil)
		s.service = evidence.New(s.store, policy.New(), s.content, s.anchors,
			evidence.WithEnricher(enricher))

		record := s.submit(officerCaller, "C-1")
		s.Require().NotNil(record.Enrichment)
		s.Equal("triage", record.Enrichment.Summary)
	})

	s.Run("analysis failure never blocks the submission", func() {
		s.SetupTest()
		enricher := mocks.NewMockEnricher(s.ctrl)
		enricher.EXPECT().Enrich(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("analysis offline"))
		s.service = evidence.New(s.store, policy.New(), s.content, s.anchors,
			evidence.WithEnricher(enricher))

		record := s.submit(officerCaller, "C-2")
		s.Nil(record.Enrichment)

		found, err := s.service.Get(s.ctx, officerCaller, record.ID)
		s.Require().NoError(err)
		s.Equal(evidence.StatusPending, found.Status)
	})

	s.Run("public never sees the enrichment", func() {
		s.SetupTest()
		enricher := mocks.NewMockEnricher(s.ctrl)
		enricher.EXPECT().Enrich(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&upstream.Enrichment{Summary: "triage"}, nil)
		s.service = evidence.New(s.store, policy.New(), s.content, s.anchors,
			evidence.WithEnricher(enricher))

		record := s.submit(officerCaller, "C-3")
		_, err := s.service.Review(s.ctx, adminCaller, record.ID, evidence.StatusApproved)
		s.Require().NoError(err)

		records, err := s.service.List(s.ctx, publicCaller)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Nil(records[0].Enrichment)
	})
}
