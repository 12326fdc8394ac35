package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"custodia/pkg/platform/sentinel"
)

// LocalContentStore keeps content in memory keyed by its digest. The handle
// doubles as an integrity check for local development.
type LocalContentStore struct {
	mu      sync.RWMutex
	content map[string][]byte
}

func NewLocalContentStore() *LocalContentStore {
	return &LocalContentStore{content: make(map[string][]byte)}
}

func (s *LocalContentStore) Put(_ context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", sentinel.ErrUnavailable
	}
	sum := sha256.Sum256(content)
	contentID := "content-" + hex.EncodeToString(sum[:])
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[contentID] = content
	return contentID, nil
}

// Get is a development convenience; the registry itself never reads bytes back.
func (s *LocalContentStore) Get(contentID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.content[contentID]
	return content, ok
}

// LocalAnchorLedger hands out deterministic anchor handles. It stands in for
// the tamper-evident ledger during development.
type LocalAnchorLedger struct {
	mu      sync.Mutex
	anchors map[string]string
	seq     int
}

func NewLocalAnchorLedger() *LocalAnchorLedger {
	return &LocalAnchorLedger{anchors: make(map[string]string)}
}

func (l *LocalAnchorLedger) Anchor(_ context.Context, contentHash string) (string, error) {
	if contentHash == "" {
		return "", sentinel.ErrUnavailable
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if anchorID, ok := l.anchors[contentHash]; ok {
		return anchorID, nil
	}
	l.seq++
	sum := sha256.Sum256([]byte(contentHash))
	anchorID := "anchor-" + hex.EncodeToString(sum[:8])
	l.anchors[contentHash] = anchorID
	return anchorID, nil
}

// HeuristicEnricher produces a keyword-driven advisory analysis. It mimics
// the shape of the real analysis service without calling anything.
type HeuristicEnricher struct{}

func NewHeuristicEnricher() *HeuristicEnricher {
	return &HeuristicEnricher{}
}

var riskKeywords = map[string]string{
	"weapon":   "high",
	"firearm":  "high",
	"narcotic": "high",
	"threat":   "medium",
	"fraud":    "medium",
	"theft":    "medium",
}

func (e *HeuristicEnricher) Enrich(_ context.Context, description, fileType string) (*Enrichment, error) {
	lowered := strings.ToLower(description)
	risk := "low"
	var keywords []string
	for keyword, level := range riskKeywords {
		if strings.Contains(lowered, keyword) {
			keywords = append(keywords, keyword)
			if level == "high" || risk == "low" {
				risk = level
			}
		}
	}

	recommendations := []string{"verify chain of custody before courtroom use"}
	if risk != "low" {
		recommendations = append(recommendations, "escalate to the assigned reviewer")
	}

	return &Enrichment{
		Summary:         "Automated triage of submitted " + fileType + " evidence.",
		RiskLevel:       risk,
		Keywords:        keywords,
		Recommendations: recommendations,
		ConfidenceScore: 0.6,
	}, nil
}
