// Package policy is the single authority for access decisions. Every read
// and write path consults it; no role checks live anywhere else. All
// functions are pure so decisions are reproducible from their inputs alone.
package policy

import (
	"custodia/internal/evidence"
	"custodia/internal/identity"
	id "custodia/pkg/domain"
)

type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// Visible reports whether the viewer may see the record. Admin sees all,
// Officer sees own submissions, Public sees approved records only. The
// decision depends only on role, viewer address, submitter and status.
func (e *Engine) Visible(role identity.Role, viewer id.Address, record *evidence.Evidence) bool {
	switch role {
	case identity.RoleAdmin:
		return true
	case identity.RoleOfficer:
		return record.SubmittedBy == viewer
	case identity.RolePublic:
		return record.Status == evidence.StatusApproved
	default:
		return false
	}
}

// Mutable reports whether the role may perform the action. Submit is open
// to Admin and Officer; everything else is Admin only. Public mutates
// nothing.
func (e *Engine) Mutable(role identity.Role, action evidence.Action) bool {
	switch action {
	case evidence.ActionSubmit:
		return role == identity.RoleAdmin || role == identity.RoleOfficer
	case evidence.ActionReview, evidence.ActionAssign, evidence.ActionEdit, evidence.ActionDelete:
		return role == identity.RoleAdmin
	default:
		return false
	}
}

// AuditReadable reports whether the role may read the custody trail. The
// trail exposes every actor's activity, so only Admin qualifies.
func (e *Engine) AuditReadable(role identity.Role) bool {
	return role == identity.RoleAdmin
}

// Mask returns the record projected for the role. Public viewers lose the
// integrity handles, the reviewer identity and the advisory analysis.
// Admin and Officer see the full record. The input is never modified.
func (e *Engine) Mask(role identity.Role, record *evidence.Evidence) *evidence.Evidence {
	if role != identity.RolePublic {
		return record
	}
	masked := *record
	masked.ContentHash = ""
	masked.ContentID = ""
	masked.AnchorID = ""
	masked.ReviewedBy = ""
	masked.Enrichment = nil
	return &masked
}

// ListVisible filters and masks a store scan for the viewer, preserving
// the scan's insertion order.
func (e *Engine) ListVisible(role identity.Role, viewer id.Address, records []*evidence.Evidence) []*evidence.Evidence {
	out := make([]*evidence.Evidence, 0, len(records))
	for _, record := range records {
		if e.Visible(role, viewer, record) {
			out = append(out, e.Mask(role, record))
		}
	}
	return out
}
