package analyzer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umi-ai/umi/internal/model"
)

func TestScanVulnerabilities(t *testing.T) {
	tests := map[string]struct {
		code     string
		expTypes []string
		expLines []int
	}{
		"SQL concatenation should be detected": {
			code:     `cursor.execute("SELECT * FROM users WHERE id=" + user_id)`,
			expTypes: []string{"SQLi"},
			expLines: []int{1},
		},

		"Shell command concatenation should be detected": {
			code:     `os.system("ping " + host)`,
			expTypes: []string{"CmdInjection"},
			expLines: []int{1},
		},

		"DOM injection should be detected": {
			code:     `element.innerHTML = user_input + "<b>"`,
			expTypes: []string{"XSS"},
			expLines: []int{1},
		},

		"Parameterized queries should not be flagged": {
			code:     `cursor.execute("SELECT * FROM users WHERE id=%s", (user_id,))`,
			expTypes: nil,
		},

		"Finding lines should match the snippet position": {
			code:     "import os\n\nhost = get_host()\nos.system(\"ping \" + host)",
			expTypes: []string{"CmdInjection"},
			expLines: []int{4},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			a := newAnalyzer(t)
			report, err := a.Analyze(ctx, test.code)
			require.NoError(err)

			vulns, err := a.ScanVulnerabilities(ctx, test.code, report)
			require.NoError(err)
			require.Len(vulns.Findings, len(test.expTypes))

			for i, f := range vulns.Findings {
				assert.Equal(test.expTypes[i], f.Type)
				if test.expLines != nil {
					assert.Equal(test.expLines[i], f.Line)
				}
				assert.NotEmpty(f.Mitigation)
				assert.Greater(f.RiskScore, 0.0)
				assert.Greater(f.ContextAwareRisk, 0.0)
				assert.LessOrEqual(f.ContextAwareRisk, 1.0)
			}
		})
	}
}

func TestScanVulnerabilitiesOrdering(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	code := `element.innerHTML = user_input + "<b>"
os.system("rm " + path)`

	a := newAnalyzer(t)
	report, err := a.Analyze(ctx, code)
	require.NoError(err)

	vulns, err := a.ScanVulnerabilities(ctx, code, report)
	require.NoError(err)
	require.Len(vulns.Findings, 2)

	// Command injection carries the higher base risk, so it sorts first.
	assert.Equal("CmdInjection", vulns.Findings[0].Type)
	assert.Equal("XSS", vulns.Findings[1].Type)
	assert.GreaterOrEqual(vulns.Findings[0].ContextAwareRisk, vulns.Findings[1].ContextAwareRisk)
}

func TestScanVulnerabilitiesRequiresReport(t *testing.T) {
	assert := assert.New(t)

	a := newAnalyzer(t)
	_, err := a.ScanVulnerabilities(context.Background(), "print('hi')", nil)

	assert.Error(err)
	assert.True(errors.Is(err, model.ErrNotValid))
}
