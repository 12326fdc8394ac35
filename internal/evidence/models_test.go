package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

func validMetadata() Metadata {
	return Metadata{
		Description: "Dashcam footage from the traffic stop",
		FileName:    "stop-042.mp4",
		FileSize:    2048,
		FileType:    "video/mp4",
		CapturedAt:  time.Date(2026, 2, 10, 22, 15, 0, 0, time.UTC),
	}
}

func TestMetadataValidate(t *testing.T) {
	t.Run("accepts complete metadata", func(t *testing.T) {
		require.NoError(t, validMetadata().Validate())
	})

	t.Run("reports every failing field by name", func(t *testing.T) {
		m := Metadata{Description: "too short", FileSize: 0}
		err := m.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		msg := dErrors.MessageOf(err)
		assert.Contains(t, msg, "description")
		assert.Contains(t, msg, "file_name")
		assert.Contains(t, msg, "file_size")
		assert.Contains(t, msg, "file_type")
	})

	t.Run("whitespace description does not count", func(t *testing.T) {
		m := validMetadata()
		m.Description = "           padded    "
		err := m.Validate()
		require.Error(t, err)
		assert.Contains(t, dErrors.MessageOf(err), "description")
	})
}

func TestParseDecision(t *testing.T) {
	t.Run("accepts terminal decisions", func(t *testing.T) {
		decision, err := ParseDecision("Approved")
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, decision)

		decision, err = ParseDecision("rejected")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, decision)
	})

	t.Run("rejects pending and garbage", func(t *testing.T) {
		_, err := ParseDecision("pending")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		_, err = ParseDecision("")
		assert.Error(t, err)
	})
}

func TestParsePriority(t *testing.T) {
	t.Run("defaults empty to medium", func(t *testing.T) {
		p, err := ParsePriority("")
		require.NoError(t, err)
		assert.Equal(t, PriorityMedium, p)
	})

	t.Run("rejects unknown levels", func(t *testing.T) {
		_, err := ParsePriority("urgent")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestLifecycleTransitions(t *testing.T) {
	submitter := id.Address("0x1111111111111111111111111111111111111111")
	reviewer := id.Address("0x2222222222222222222222222222222222222222")
	now := time.Now()

	newPending := func(t *testing.T) *Evidence {
		record, err := NewEvidence(id.NewEvidenceID(), "C-7", submitter,
			"hash", "content-1", "anchor-1", PriorityMedium, nil, validMetadata(), now)
		require.NoError(t, err)
		return record
	}

	t.Run("creation requires content and anchor handles", func(t *testing.T) {
		_, err := NewEvidence(id.NewEvidenceID(), "C-7", submitter,
			"hash", "content-1", "", PriorityMedium, nil, validMetadata(), now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("pending reviews to approved with reviewer stamp", func(t *testing.T) {
		record := newPending(t)
		require.NoError(t, record.CanReview(StatusApproved))
		record.ApplyReview(StatusApproved, reviewer, now)
		assert.Equal(t, StatusApproved, record.Status)
		assert.Equal(t, reviewer, record.ReviewedBy)
		require.NotNil(t, record.ReviewedAt)
	})

	t.Run("terminal records never review again", func(t *testing.T) {
		record := newPending(t)
		record.ApplyReview(StatusRejected, reviewer, now)
		assert.ErrorIs(t, record.CanReview(StatusApproved), ErrInvalidTransition)
		assert.ErrorIs(t, record.CanReview(StatusRejected), ErrInvalidTransition)
	})

	t.Run("pending is never a review target", func(t *testing.T) {
		record := newPending(t)
		assert.ErrorIs(t, record.CanReview(StatusPending), ErrInvalidTransition)
	})

	t.Run("assignment works in terminal states without touching status", func(t *testing.T) {
		record := newPending(t)
		record.ApplyReview(StatusApproved, reviewer, now)
		require.NoError(t, record.CanAssign())
		record.ApplyAssign(reviewer)
		assert.Equal(t, reviewer, record.AssignedTo)
		assert.Equal(t, StatusApproved, record.Status)
	})

	t.Run("edit restricted to pending", func(t *testing.T) {
		record := newPending(t)
		require.NoError(t, record.CanEdit())
		record.ApplyReview(StatusApproved, reviewer, now)
		assert.ErrorIs(t, record.CanEdit(), ErrInvalidTransition)
	})

	t.Run("edit applies only the supplied fields", func(t *testing.T) {
		record := newPending(t)
		caseID := "C-8"
		priority := PriorityHigh
		record.ApplyEdit(EditRequest{CaseID: &caseID, Priority: &priority})
		assert.Equal(t, "C-8", record.CaseID)
		assert.Equal(t, PriorityHigh, record.Priority)
		assert.Equal(t, validMetadata(), record.Metadata)
	})

	t.Run("tags are normalized on creation and edit", func(t *testing.T) {
		record, err := NewEvidence(id.NewEvidenceID(), "C-7", submitter,
			"hash", "content-1", "anchor-1", PriorityMedium,
			[]string{" Bodycam ", "traffic", "bodycam", ""}, validMetadata(), now)
		require.NoError(t, err)
		assert.Equal(t, []string{"bodycam", "traffic"}, record.Tags)

		tags := []string{"TRAFFIC", "night shift "}
		record.ApplyEdit(EditRequest{Tags: &tags})
		assert.Equal(t, []string{"traffic", "night shift"}, record.Tags)
	})
}
