package analyzer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umi-ai/umi/internal/analyzer"
	"github.com/umi-ai/umi/internal/model"
)

func newAnalyzer(t *testing.T) *analyzer.Analyzer {
	t.Helper()
	a, err := analyzer.NewAnalyzer(analyzer.AnalyzerConfig{})
	require.NoError(t, err)
	return a
}

func TestAnalyze(t *testing.T) {
	tests := map[string]struct {
		code       string
		expErr     bool
		expParseOK bool
		expSymbols []string
	}{
		"Balanced code should parse structurally": {
			code:       "def run(x):\n    return x + 1",
			expParseOK: true,
			expSymbols: []string{"def", "run", "x", "return"},
		},

		"Unbalanced code should fall back to the lexical scan": {
			code:       "def run(x:\n    return x + 1",
			expParseOK: false,
			expSymbols: []string{"def", "run", "x", "return"},
		},

		"Duplicate identifiers should appear once, first occurrence wins": {
			code:       "total = total + count",
			expParseOK: true,
			expSymbols: []string{"total", "count"},
		},

		"Empty code should fail": {
			code:   "   \n\t",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			report, err := newAnalyzer(t).Analyze(context.Background(), test.code)

			if test.expErr {
				assert.Error(err)
				assert.True(errors.Is(err, model.ErrNotValid))
				return
			}

			require.NoError(t, err)
			assert.Equal(test.expParseOK, report.ParseOK)
			assert.Equal(test.expSymbols, report.Symbols)
			assert.Len(report.Embedding, 64)
		})
	}
}

func TestAnalyzeDeterministicEmbedding(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	a := newAnalyzer(t)

	first, err := a.Analyze(ctx, "print('hello')")
	require.NoError(err)
	second, err := a.Analyze(ctx, "print('hello')")
	require.NoError(err)
	other, err := a.Analyze(ctx, "print('goodbye')")
	require.NoError(err)

	assert.Equal(first.Embedding, second.Embedding)
	assert.NotEqual(first.Embedding, other.Embedding)

	// A fresh analyzer yields the same embedding, the cache is an
	// optimization only.
	fresh, err := newAnalyzer(t).Analyze(ctx, "print('hello')")
	require.NoError(err)
	assert.Equal(first.Embedding, fresh.Embedding)
}
