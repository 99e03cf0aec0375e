// Package refactor implements the refactor engine collaborator: it detects
// registered anti-patterns and security findings in a code snippet and ranks
// the resulting optimization records by predicted impact.
package refactor

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/umi-ai/umi/internal/log"
	"github.com/umi-ai/umi/internal/model"
)

// antiPattern is a registered inefficiency rule with its severity and fix hint.
type antiPattern struct {
	name     string
	pattern  *regexp.Regexp
	severity float64
	fix      string
	// sameGroups marks patterns that need both capture groups to match the
	// same identifier. RE2 has no backreferences, so the check happens after
	// the match.
	sameGroups bool
}

func patternRegistry() []antiPattern {
	return []antiPattern{
		{
			name:     "NestedLoop",
			pattern:  regexp.MustCompile(`for\s+.*:\s*\n\s*for\s+.*:`),
			severity: 0.8,
			fix:      "Consider vectorization (NumPy/Pandas) or itertools.product",
		},
		{
			name:       "RedundantCall",
			pattern:    regexp.MustCompile(`(\w+)\s*=\s*(\w+)\(\)`),
			severity:   0.6,
			fix:        "Memoize or cache result instead of redundant calls",
			sameGroups: true,
		},
		{
			name:     "UncheckedInput",
			pattern:  regexp.MustCompile(`input\s*\(.*\)`),
			severity: 0.9,
			fix:      "Validate and sanitize user input",
		},
	}
}

// EngineConfig is the configuration for the refactor engine.
type EngineConfig struct {
	Logger log.Logger
	// ContextCacheSize bounds the per-suggestion context kept for the
	// feedback trainer.
	ContextCacheSize int
}

func (c *EngineConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "refactor.Engine"})

	if c.ContextCacheSize <= 0 {
		c.ContextCacheSize = 10000
	}
	return nil
}

// Engine generates ranked optimization records. It remembers the context
// embedding of every suggestion it produces so the feedback trainer can build
// training samples from telemetry later.
type Engine struct {
	registry []antiPattern
	logger   log.Logger

	mu           sync.Mutex
	contexts     map[string][]byte
	contextOrder []string
	cacheSize    int
}

// NewEngine creates a new refactor engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		registry:  patternRegistry(),
		logger:    cfg.Logger,
		contexts:  map[string][]byte{},
		cacheSize: cfg.ContextCacheSize,
	}, nil
}

// GenerateOptimizations scans the code for anti-patterns, folds in the
// vulnerability findings, and returns the records ordered by impact score
// descending.
func (e *Engine) GenerateOptimizations(ctx context.Context, code string, ctxReport *model.ContextReport, vulnReport *model.VulnReport) ([]model.Optimization, error) {
	if ctxReport == nil {
		return nil, fmt.Errorf("context report is required: %w", model.ErrNotValid)
	}

	contextMean := embeddingMean(ctxReport.Embedding)

	var optimizations []model.Optimization
	for _, rule := range e.registry {
		for _, m := range rule.pattern.FindAllStringSubmatchIndex(code, -1) {
			if rule.sameGroups && code[m[2]:m[3]] != code[m[4]:m[5]] {
				continue
			}
			snippet := code[m[0]:m[1]]
			optimizations = append(optimizations, e.newOptimization(
				rule.name, rule.fix, snippet, rule.severity, contextMean,
				lineOf(code, m[0]), ctxReport.Embedding,
			))
		}
	}

	// Security findings become optimization records too, carrying their
	// mitigation as the fix.
	if vulnReport != nil {
		for _, f := range vulnReport.Findings {
			optimizations = append(optimizations, e.newOptimization(
				f.Type, f.Mitigation, f.Snippet, f.RiskScore, contextMean,
				f.Line, ctxReport.Embedding,
			))
		}
	}

	sort.SliceStable(optimizations, func(i, j int) bool {
		return optimizations[i].ImpactScore > optimizations[j].ImpactScore
	})

	e.logger.Debugf("Generated %d optimizations", len(optimizations))

	return optimizations, nil
}

// SuggestionContext returns the context embedding recorded when a suggestion
// was generated, used by the feedback trainer.
func (e *Engine) SuggestionContext(suggestionID string) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	embedding, ok := e.contexts[suggestionID]
	return embedding, ok
}

func (e *Engine) newOptimization(pattern, fix, snippet string, severity, contextMean float64, line int, embedding []byte) model.Optimization {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	e.rememberContext(id, embedding)

	return model.Optimization{
		ID:               id,
		Pattern:          pattern,
		Line:             line,
		SuggestedCode:    snippet,
		Fix:              fix,
		ContextEmbedding: embedding,
		ImpactScore:      impactScore(severity, len(snippet), contextMean),
	}
}

func (e *Engine) rememberContext(id string, embedding []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.contextOrder) >= e.cacheSize {
		oldest := e.contextOrder[0]
		e.contextOrder = e.contextOrder[1:]
		delete(e.contexts, oldest)
	}
	e.contexts[id] = embedding
	e.contextOrder = append(e.contextOrder, id)
}

// impactScore predicts the optimization impact from severity, snippet length
// and context. A linear combination stands in for the original learned model,
// reproducing it is a non-goal.
func impactScore(severity float64, snippetLen int, contextMean float64) float64 {
	lengthFactor := math.Min(float64(snippetLen), 200) / 200
	score := 0.6*severity + 0.2*lengthFactor + 0.2*contextMean
	return math.Min(1.0, math.Max(0.0, score))
}

func embeddingMean(embedding []byte) float64 {
	if len(embedding) == 0 {
		return 0
	}

	var sum float64
	for _, b := range embedding {
		sum += float64(b)
	}
	return sum / (255 * float64(len(embedding)))
}

func lineOf(code string, offset int) int {
	return strings.Count(code[:offset], "\n") + 1
}
