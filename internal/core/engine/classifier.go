package engine

import (
	"context"
	"log/slog"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

const (
	maxHeuristicConfidence = 0.95
	noMatchConfidence      = 0.1
	tieConfidence          = 0.3

	// Classification text is capped: indicators live near the top of real
	// documents and unbounded scans only cost time.
	classifyWindow = 5000
)

// ZeroShotClassifier is the capability interface for the optional external
// fallback. A nil classifier is a valid no-op substitute.
type ZeroShotClassifier interface {
	Classify(ctx context.Context, text string, labels []string) (label string, score float64, err error)
}

type Classifier struct {
	zeroShot          ZeroShotClassifier
	escalateThreshold float64
	logger            *slog.Logger
}

func NewClassifier(zeroShot ZeroShotClassifier, escalateThreshold float64, logger *slog.Logger) *Classifier {
	if escalateThreshold <= 0 || escalateThreshold > 1 {
		escalateThreshold = 0.8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		zeroShot:          zeroShot,
		escalateThreshold: escalateThreshold,
		logger:            logger,
	}
}

// Classify scores text against the per-type indicator patterns. The type
// with the strict-majority highest match count wins with confidence
// min(matches/patterns, 0.95). Zero matches and unresolved ties yield
// unknown. Only when the heuristic confidence does not exceed the escalation
// threshold is the zero-shot classifier consulted; any failure there falls
// back silently to the heuristic result.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.DocumentType, float64) {
	docType, confidence := heuristicClassify(text)

	if confidence > c.escalateThreshold || c.zeroShot == nil {
		return docType, confidence
	}

	window := text
	if len(window) > classifyWindow {
		window = window[:classifyWindow]
	}
	label, score, err := c.zeroShot.Classify(ctx, window, zeroShotLabels)
	if err != nil {
		c.logger.Warn("zero-shot classification failed, keeping heuristic result",
			"error", err, "heuristic_type", string(docType))
		return docType, confidence
	}
	mapped, ok := labelToDocType[label]
	if !ok {
		return docType, confidence
	}
	return mapped, score
}

func heuristicClassify(text string) (domain.DocumentType, float64) {
	if len(text) > classifyWindow {
		text = text[:classifyWindow]
	}

	best := domain.DocTypeUnknown
	bestCount, bestTotal := 0, 1
	tied := false

	for _, docType := range domain.BuiltinDocumentTypes {
		indicators := typeIndicators[docType]
		count := 0
		for _, re := range indicators {
			if re.MatchString(text) {
				count++
			}
		}
		switch {
		case count > bestCount:
			best, bestCount, bestTotal = docType, count, len(indicators)
			tied = false
		case count == bestCount && count > 0:
			tied = true
		}
	}

	if bestCount == 0 {
		return domain.DocTypeUnknown, noMatchConfidence
	}
	if tied {
		return domain.DocTypeUnknown, tieConfidence
	}

	confidence := float64(bestCount) / float64(bestTotal)
	if confidence > maxHeuristicConfidence {
		confidence = maxHeuristicConfidence
	}
	return best, confidence
}
