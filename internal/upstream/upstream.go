// Package upstream holds the registry's external collaborators: durable
// content storage, the anchor ledger, and the advisory enricher. All local
// implementations live here too so development and tests run without
// network dependencies.
package upstream

//go:generate mockgen -source=upstream.go -destination=mocks/mocks.go -package=mocks

import "context"

// ContentStore persists raw evidence bytes and returns a storage handle.
type ContentStore interface {
	Put(ctx context.Context, content []byte) (contentID string, err error)
}

// AnchorLedger records a content hash in tamper-evident storage and returns
// the anchor handle proving it.
type AnchorLedger interface {
	Anchor(ctx context.Context, contentHash string) (anchorID string, err error)
}

// Enrichment is the advisory analysis attached to a record after creation.
// It never feeds back into access or lifecycle decisions.
type Enrichment struct {
	Summary         string   `json:"summary"`
	RiskLevel       string   `json:"risk_level"`
	Keywords        []string `json:"keywords,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	RelatedCases    []string `json:"related_cases,omitempty"`
	ConfidenceScore float64  `json:"confidence_score"`
}

// Enricher produces an advisory analysis from record metadata.
type Enricher interface {
	Enrich(ctx context.Context, description string, fileType string) (*Enrichment, error)
}
