package analyzer

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/umi-ai/umi/internal/model"
)

// scanRule is a single OWASP-derived detection pattern with its risk weight.
type scanRule struct {
	name       string
	pattern    *regexp.Regexp
	risk       float64
	mitigation string
}

func owaspRules() []scanRule {
	return []scanRule{
		{
			name:       "SQLi",
			pattern:    regexp.MustCompile(`execute\(.*?\+.*?\)`),
			risk:       0.95,
			mitigation: "Use parameterized queries: cursor.execute('SELECT * FROM table WHERE id=%s', (user_input,))",
		},
		{
			name:       "XSS",
			pattern:    regexp.MustCompile(`innerHTML\s*=\s*[^"']*?[\+\{\$]`),
			risk:       0.90,
			mitigation: "Sanitize output: import html; element.innerHTML = html.escape(user_input)",
		},
		{
			name:       "CmdInjection",
			pattern:    regexp.MustCompile(`os\.system\(.*?\+.*?\)`),
			risk:       0.97,
			mitigation: "Use whitelisting: if user_input in ALLOWED_COMMANDS: os.system(user_input)",
		},
	}
}

// ScanVulnerabilities runs the rule-based scan and weights each finding by
// the context embedding, returning findings sorted by context-aware risk.
func (a *Analyzer) ScanVulnerabilities(ctx context.Context, code string, report *model.ContextReport) (*model.VulnReport, error) {
	if report == nil {
		return nil, fmt.Errorf("context report is required: %w", model.ErrNotValid)
	}

	scale := embeddingNorm(report.Embedding)

	var findings []model.Finding
	for _, rule := range a.rules {
		for _, loc := range rule.pattern.FindAllStringIndex(code, -1) {
			findings = append(findings, model.Finding{
				Type:             rule.name,
				RiskScore:        rule.risk,
				ContextAwareRisk: math.Min(1.0, rule.risk*(0.8+0.4*scale)),
				Line:             strings.Count(code[:loc[0]], "\n") + 1,
				Snippet:          code[loc[0]:loc[1]],
				Mitigation:       rule.mitigation,
			})
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].ContextAwareRisk > findings[j].ContextAwareRisk
	})

	a.logger.Debugf("Vulnerability scan found %d findings", len(findings))

	return &model.VulnReport{Findings: findings}, nil
}

// embeddingNorm maps an embedding to [0, 1].
func embeddingNorm(embedding []byte) float64 {
	if len(embedding) == 0 {
		return 0
	}

	var sum float64
	for _, b := range embedding {
		sum += float64(b)
	}
	return sum / (255 * float64(len(embedding)))
}
