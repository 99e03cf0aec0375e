// Package style implements the style adapter collaborator: it learns a user
// style profile from telemetry acceptance ratios and rewrites suggested code
// snippets to match it.
package style

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/umi-ai/umi/internal/log"
	"github.com/umi-ai/umi/internal/model"
	"github.com/umi-ai/umi/internal/telemetry"
)

// Style rule names. Suggestion ids of the form "rule=<name>:choice=<value>"
// feed the profile through telemetry acceptance ratios.
const (
	RuleBraceStyle       = "brace_style"
	RuleIndentation      = "indentation"
	RuleNamingConvention = "naming_convention"
)

// Naming convention choices.
const (
	NamingSnakeCase  = "snake_case"
	NamingCamelCase  = "camelCase"
	NamingPascalCase = "PascalCase"
)

// baseRule is a language-agnostic formatting convention with its options.
type baseRule struct {
	options      []string
	defaultValue string
}

func baseRules() map[string]baseRule {
	return map[string]baseRule{
		RuleBraceStyle:       {options: []string{"same-line", "next-line"}, defaultValue: "same-line"},
		RuleIndentation:      {options: []string{"2", "4", "8"}, defaultValue: "4"},
		RuleNamingConvention: {options: []string{NamingSnakeCase, NamingCamelCase, NamingPascalCase}, defaultValue: NamingSnakeCase},
	}
}

var (
	choiceRe     = regexp.MustCompile(`choice=([A-Za-z0-9_-]+)`)
	identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// reservedWords are never renamed.
var reservedWords = map[string]bool{
	"if": true, "else": true, "elif": true, "for": true, "while": true,
	"return": true, "def": true, "class": true, "import": true, "from": true,
	"print": true, "range": true, "in": true, "not": true, "and": true,
	"or": true, "None": true, "True": true, "False": true, "try": true,
	"except": true, "finally": true, "with": true, "as": true, "pass": true,
	"break": true, "continue": true, "lambda": true, "self": true,
	"func": true, "var": true, "const": true, "type": true, "package": true,
	"input": true, "len": true, "nil": true,
}

// AdapterConfig is the configuration for the style adapter.
type AdapterConfig struct {
	Telemetry telemetry.Store
	Logger    log.Logger
}

func (c *AdapterConfig) defaults() error {
	if c.Telemetry == nil {
		return fmt.Errorf("telemetry store is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "style.Adapter"})
	return nil
}

// Adapter rewrites code snippets to the user's learned style profile.
type Adapter struct {
	rules   map[string]baseRule
	profile map[string]string
	logger  log.Logger
}

// NewAdapter creates a new style adapter, building the profile from the
// telemetry acceptance patterns available at construction time.
func NewAdapter(ctx context.Context, cfg AdapterConfig) (*Adapter, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &Adapter{
		rules:  baseRules(),
		logger: cfg.Logger,
	}

	adaptationData, err := cfg.Telemetry.AdaptationData(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load adaptation data: %w", err)
	}
	a.profile = a.buildProfile(adaptationData)

	a.logger.Debugf("Built style profile: %v", a.profile)

	return a, nil
}

// buildProfile picks, per rule, the choice with the highest acceptance ratio,
// falling back to the rule default when telemetry has nothing to say.
func (a *Adapter) buildProfile(adaptationData map[string]float64) map[string]string {
	profile := map[string]string{}
	for ruleName, rule := range a.rules {
		best := ""
		bestScore := -1.0
		for suggestionID, acceptRatio := range adaptationData {
			if !strings.Contains(suggestionID, "rule="+ruleName) {
				continue
			}
			m := choiceRe.FindStringSubmatch(suggestionID)
			if m == nil || !contains(rule.options, m[1]) {
				continue
			}
			if acceptRatio > bestScore {
				best = m[1]
				bestScore = acceptRatio
			}
		}
		if best == "" {
			best = rule.defaultValue
		}
		profile[ruleName] = best
	}
	return profile
}

// Profile returns the active style profile.
func (a *Adapter) Profile() map[string]string {
	profile := make(map[string]string, len(a.profile))
	for k, v := range a.profile {
		profile[k] = v
	}
	return profile
}

// EditorConfig renders an .editorconfig snippet reflecting the user profile.
// The brace_style and identifier_case fields are custom extensions.
func (a *Adapter) EditorConfig() string {
	return fmt.Sprintf(`[*.py]
indent_size = %s
indent_style = space
# Custom fields for personalization (non-standard)
brace_style = %s
identifier_case = %s
`, a.profile[RuleIndentation], a.profile[RuleBraceStyle], a.profile[RuleNamingConvention])
}

// AdaptSnippet rewrites a code snippet to the user's naming convention and
// indentation width.
func (a *Adapter) AdaptSnippet(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("code is empty: %w", model.ErrNotValid)
	}

	adapted := a.renameIdentifiers(code)
	adapted = a.reindent(adapted)
	return adapted, nil
}

func (a *Adapter) renameIdentifiers(code string) string {
	convention := a.profile[RuleNamingConvention]
	return identifierRe.ReplaceAllStringFunc(code, func(name string) string {
		if reservedWords[name] {
			return name
		}
		switch convention {
		case NamingCamelCase:
			return toCamelCase(name)
		case NamingPascalCase:
			return toPascalCase(name)
		default:
			return toSnakeCase(name)
		}
	})
}

// reindent rescales 4-space indentation levels to the profile width.
func (a *Adapter) reindent(code string) string {
	width, err := strconv.Atoi(a.profile[RuleIndentation])
	if err != nil || width == 4 {
		return code
	}

	lines := strings.Split(code, "\n")
	for i, line := range lines {
		spaces := len(line) - len(strings.TrimLeft(line, " "))
		level := spaces / 4
		lines[i] = strings.Repeat(" ", level*width) + line[spaces:]
	}
	return strings.Join(lines, "\n")
}

// splitWords splits an identifier into lowercase words on underscores and
// camel-case boundaries.
func splitWords(name string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	for _, r := range name {
		switch {
		case r == '_':
			flush()
		case unicode.IsUpper(r):
			flush()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return words
}

func toSnakeCase(name string) string {
	return strings.Join(splitWords(name), "_")
}

func toCamelCase(name string) string {
	words := splitWords(name)
	if len(words) == 0 {
		return name
	}
	out := words[0]
	for _, w := range words[1:] {
		out += title(w)
	}
	return out
}

func toPascalCase(name string) string {
	var out string
	for _, w := range splitWords(name) {
		out += title(w)
	}
	if out == "" {
		return name
	}
	return out
}

func title(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
