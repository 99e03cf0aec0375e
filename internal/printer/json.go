package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/umi-ai/umi/internal/model"
)

// JSONPrinter prints pipeline output in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// resultItem represents one processed task in the output.
type resultItem struct {
	ID          string           `json:"id"`
	FilePath    string           `json:"file_path"`
	Suggestions []suggestionItem `json:"suggestions"`
	Findings    []findingItem    `json:"findings,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type suggestionItem struct {
	ID          string  `json:"id"`
	Pattern     string  `json:"pattern"`
	Line        int     `json:"line"`
	Fix         string  `json:"fix"`
	AdaptedCode string  `json:"adapted_code"`
	ImpactScore float64 `json:"impact_score"`
}

type findingItem struct {
	Type             string  `json:"type"`
	Line             int     `json:"line"`
	ContextAwareRisk float64 `json:"context_aware_risk"`
	Mitigation       string  `json:"mitigation"`
}

type interactionItem struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	EventType    string    `json:"event_type"`
	SuggestionID string    `json:"suggestion_id"`
	UserID       string    `json:"anonymized_user_id"`
}

// PrintResults prints processed tasks with their suggestions.
func (j *JSONPrinter) PrintResults(tasks []*model.Task) error {
	items := make([]resultItem, 0, len(tasks))
	for _, t := range tasks {
		item := resultItem{
			ID:        t.ID,
			FilePath:  t.FilePath,
			CreatedAt: t.CreatedAt,
		}
		for _, s := range t.FinalSuggestions {
			item.Suggestions = append(item.Suggestions, suggestionItem{
				ID:          s.ID,
				Pattern:     s.Pattern,
				Line:        s.Line,
				Fix:         s.Fix,
				AdaptedCode: s.AdaptedCode,
				ImpactScore: s.ImpactScore,
			})
		}
		if t.VulnReport != nil {
			for _, f := range t.VulnReport.Findings {
				item.Findings = append(item.Findings, findingItem{
					Type:             f.Type,
					Line:             f.Line,
					ContextAwareRisk: f.ContextAwareRisk,
					Mitigation:       f.Mitigation,
				})
			}
		}
		items = append(items, item)
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintInteractions prints telemetry interactions.
func (j *JSONPrinter) PrintInteractions(interactions []model.Interaction) error {
	items := make([]interactionItem, 0, len(interactions))
	for _, i := range interactions {
		items = append(items, interactionItem{
			ID:           i.ID,
			Timestamp:    i.Timestamp.UTC(),
			EventType:    string(i.EventType),
			SuggestionID: i.SuggestionID,
			UserID:       i.AnonymizedUserID,
		})
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}
