// Package intent classifies natural-language task messages and extracts
// operation parameters.
//
/// Classification is a two-pass pipeline: a deterministic pattern table
// handles the overwhelming majority of messages, and a generative fallback
// provider resolves the cases where zero or multiple pattern families match.
// Both passes are stateless; the only outbound call is the fallback request.
package intent

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/service/fallback"
)

// patternFamily ties one operation to its phrase patterns and the confidence
// a deterministic match carries.
type patternFamily struct {
	operation  model.Intent
	confidence float64
	patterns   []*regexp.Regexp
}

var families = []patternFamily{
	{
		operation:  model.IntentCreate,
		confidence: 0.95,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(create|add|new)\s+(a\s+)?(\w+\s+)*task\b`),
			regexp.MustCompile(`\bremind\s+me\s+to\b`),
			regexp.MustCompile(`\b(make|add)\s+a\s+(new\s+)?(\w+\s+)?(task|todo|reminder)\b`),
		},
	},
	{
		operation:  model.IntentList,
		confidence: 0.98,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(show|list|display|get|view)\s+(me\s+)?(my\s+)?(\w+\s+)*tasks?\b`),
			regexp.MustCompile(`\bwhat\s+(are\s+)?(my\s+)?tasks?\b`),
			regexp.MustCompile(`\b(see|check)\s+(my\s+)?(\w+\s+)*tasks?\b`),
		},
	},
	{
		operation:  model.IntentComplete,
		confidence: 0.92,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(mark|set)\s+.*\s+as\s+(done|complete|finished)\b`),
			regexp.MustCompile(`\b(complete|finish|finished|done)\s+`),
			regexp.MustCompile(`\bundo\s+(completion|complete)\b`),
		},
	},
	{
		operation:  model.IntentUpdate,
		confidence: 0.89,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(change|update|modify|edit|rename)\s+.*\s+to\b`),
			regexp.MustCompile(`\bupdate\s+(task|the)\b`),
			regexp.MustCompile(`\brename\s+task\b`),
		},
	},
	{
		operation:  model.IntentDelete,
		confidence: 0.91,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(delete|remove)\s+`),
			regexp.MustCompile(`\bget\s+rid\s+of\s+`),
		},
	},
}

// matchFamilies returns every pattern family the message matches.
func matchFamilies(message string) []patternFamily {
	lower := strings.ToLower(strings.TrimSpace(message))
	var matched []patternFamily
	for _, fam := range families {
		for _, p := range fam.patterns {
			if p.MatchString(lower) {
				matched = append(matched, fam)
				break
			}
		}
	}
	return matched
}

// Classifier resolves a message to an operation and a confidence score.
type Classifier struct {
	fallback fallback.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewClassifier creates a Classifier. The fallback provider is a long-lived,
// configuration-only handle; it carries no per-request state.
func NewClassifier(fb fallback.Provider, timeout time.Duration, logger *slog.Logger) *Classifier {
	return &Classifier{fallback: fb, timeout: timeout, logger: logger}
}

// Classify runs the pattern pass and, when it is ambiguous, the fallback
// pass. It never returns an error: fallback failures degrade to UNKNOWN with
// confidence 0 so the caller always has a well-formed classification.
func (c *Classifier) Classify(ctx context.Context, message string) model.Classification {
	matched := matchFamilies(message)

	// Exactly one family: deterministic result, no model call.
	if len(matched) == 1 {
		return model.Classification{
			Operation:  matched[0].operation,
			Confidence: matched[0].confidence,
			Method:     model.MethodPattern,
		}
	}

	// Zero or conflicting matches: ask the fallback provider, bounded by its
	// own timeout so a slow upstream cannot eat the whole request budget.
	fbCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.fallback.Classify(fbCtx, message)
	if err != nil {
		c.logger.Warn("fallback classification failed", "error", err, "matched_families", len(matched))
		return model.Classification{
			Operation:  model.IntentUnknown,
			Confidence: 0,
			Method:     model.MethodFallback,
		}
	}

	op := result.Operation
	if !validOperation(op) || result.Confidence < model.ConfidenceGate {
		op = model.IntentUnknown
	}
	return model.Classification{
		Operation:  op,
		Confidence: result.Confidence,
		Method:     model.MethodFallback,
	}
}

func validOperation(op model.Intent) bool {
	switch op {
	case model.IntentCreate, model.IntentList, model.IntentComplete,
		model.IntentUpdate, model.IntentDelete:
		return true
	}
	return false
}
