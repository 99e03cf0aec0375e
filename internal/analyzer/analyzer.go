// Package analyzer implements the context analyzer collaborator: a heuristic
// token scan that produces an opaque context report with a deterministic
// content-derived embedding, plus a rule-based vulnerability scanner.
package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/umi-ai/umi/internal/log"
	"github.com/umi-ai/umi/internal/model"
)

// embeddingWidth is the size in bytes of the context embedding vector.
const embeddingWidth = 64

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// AnalyzerConfig is the configuration for the analyzer.
type AnalyzerConfig struct {
	Logger log.Logger
}

func (c *AnalyzerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "analyzer.Analyzer"})
	return nil
}

// Analyzer extracts context reports from code snippets. Embeddings are cached
// by content hash so re-analyzing unchanged code is cheap.
type Analyzer struct {
	rules  []scanRule
	logger log.Logger

	mu    sync.Mutex
	cache map[string][]byte
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(cfg AnalyzerConfig) (*Analyzer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Analyzer{
		rules:  owaspRules(),
		logger: cfg.Logger,
		cache:  map[string][]byte{},
	}, nil
}

// Analyze produces a context report for a code snippet.
func (a *Analyzer) Analyze(ctx context.Context, code string) (*model.ContextReport, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("code is empty: %w", model.ErrNotValid)
	}

	parseOK := balancedDelimiters(code)
	if !parseOK {
		a.logger.Warningf("Structural parse failed, using lexical fallback")
	}

	symbols := a.lexicalScan(code)

	return &model.ContextReport{
		Embedding: a.contextEmbedding(code),
		Symbols:   symbols,
		ParseOK:   parseOK,
	}, nil
}

// lexicalScan extracts unique identifiers in order of first appearance.
func (a *Analyzer) lexicalScan(code string) []string {
	seen := map[string]bool{}
	var symbols []string
	for _, id := range identifierRe.FindAllString(code, -1) {
		if seen[id] {
			continue
		}
		seen[id] = true
		symbols = append(symbols, id)
	}
	return symbols
}

// contextEmbedding derives a fixed-width vector from the code contents. It is
// deterministic: identical code always yields the identical embedding.
func (a *Analyzer) contextEmbedding(code string) []byte {
	key := contentHash(code)

	a.mu.Lock()
	defer a.mu.Unlock()

	if cached, ok := a.cache[key]; ok {
		a.logger.Debugf("Using cached embedding for %s", key[:8])
		return cached
	}

	// Expand the digest to the embedding width by chained hashing.
	embedding := make([]byte, 0, embeddingWidth)
	sum := sha256.Sum256([]byte(code))
	for len(embedding) < embeddingWidth {
		embedding = append(embedding, sum[:]...)
		sum = sha256.Sum256(sum[:])
	}
	embedding = embedding[:embeddingWidth]

	a.cache[key] = embedding
	return embedding
}

func contentHash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// balancedDelimiters is the structural check: unbalanced brackets mean the
// snippet can't be parsed as a whole and only the lexical scan applies.
func balancedDelimiters(code string) bool {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}

	for _, r := range code {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}
