package pipeline

import (
	"context"
	"fmt"

	"github.com/umi-ai/umi/internal/model"
)

// ContextAnalyzer knows how to extract context and security information from
// a code snippet.
type ContextAnalyzer interface {
	Analyze(ctx context.Context, code string) (*model.ContextReport, error)
	ScanVulnerabilities(ctx context.Context, code string, report *model.ContextReport) (*model.VulnReport, error)
}

// RefactorEngine produces ranked optimization records for a code snippet.
type RefactorEngine interface {
	GenerateOptimizations(ctx context.Context, code string, ctxReport *model.ContextReport, vulnReport *model.VulnReport) ([]model.Optimization, error)
}

// StyleAdapter rewrites a code snippet to match the user's style profile.
type StyleAdapter interface {
	AdaptSnippet(ctx context.Context, code string) (string, error)
}

// stageHandler advances a task through one stage, mutating it in place.
type stageHandler func(ctx context.Context, t *model.Task) error

// stageSpec binds a stage to its handler and successor. Keeping the
// transition table explicit separates dispatch from the scheduling loop.
type stageSpec struct {
	handler stageHandler
	next    model.Stage
}

// stageTable builds the stage transition table. The terminal stage has no
// successor, the executor commits the task instead of requeuing it.
func (p *Pipeline) stageTable() map[model.Stage]stageSpec {
	return map[model.Stage]stageSpec{
		model.StageContextAnalysis: {
			handler: p.runContextAnalysis,
			next:    model.StageVulnerabilityScan,
		},
		model.StageVulnerabilityScan: {
			handler: p.runVulnerabilityScan,
			next:    model.StageOptimizationGen,
		},
		model.StageOptimizationGen: {
			handler: p.runOptimizationGen,
			next:    model.StageStyleAdaptation,
		},
		model.StageStyleAdaptation: {
			handler: p.runStyleAdaptation,
			next:    model.StageTelemetryHook,
		},
		model.StageTelemetryHook: {
			handler: p.runTelemetryHook,
		},
	}
}

func (p *Pipeline) runContextAnalysis(ctx context.Context, t *model.Task) error {
	report, err := p.analyzer.Analyze(ctx, t.Code)
	if err != nil {
		return fmt.Errorf("could not analyze context: %w", err)
	}
	t.ContextReport = report
	return nil
}

func (p *Pipeline) runVulnerabilityScan(ctx context.Context, t *model.Task) error {
	report, err := p.analyzer.ScanVulnerabilities(ctx, t.Code, t.ContextReport)
	if err != nil {
		return fmt.Errorf("could not scan vulnerabilities: %w", err)
	}
	t.VulnReport = report
	return nil
}

func (p *Pipeline) runOptimizationGen(ctx context.Context, t *model.Task) error {
	opts, err := p.refactor.GenerateOptimizations(ctx, t.Code, t.ContextReport, t.VulnReport)
	if err != nil {
		return fmt.Errorf("could not generate optimizations: %w", err)
	}
	t.Optimizations = opts
	return nil
}

func (p *Pipeline) runStyleAdaptation(ctx context.Context, t *model.Task) error {
	adapted := make([]model.Suggestion, 0, len(t.Optimizations))
	for _, opt := range t.Optimizations {
		code, err := p.styler.AdaptSnippet(ctx, opt.SuggestedCode)
		if err != nil {
			return fmt.Errorf("could not adapt snippet %s: %w", opt.ID, err)
		}
		adapted = append(adapted, model.Suggestion{Optimization: opt, AdaptedCode: code})
	}
	t.FinalSuggestions = adapted
	return nil
}

func (p *Pipeline) runTelemetryHook(ctx context.Context, t *model.Task) error {
	for _, suggestion := range t.FinalSuggestions {
		p.recordEvent(ctx, model.Interaction{
			EventType:        model.EventGenerated,
			SuggestionID:     suggestion.ID,
			ContextEmbedding: suggestion.ContextEmbedding,
			Metadata:         t.Metadata,
		})
	}
	return nil
}

// recordEvent records a telemetry event. Telemetry failures are logged and
// never propagated, they must not block pipeline progress.
func (p *Pipeline) recordEvent(ctx context.Context, interaction model.Interaction) {
	err := p.telemetry.RecordInteraction(ctx, interaction)
	if err != nil {
		p.logger.Errorf("Telemetry failed for %s: %s", interaction.SuggestionID, err)
	}
}
