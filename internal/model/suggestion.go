package model

// ContextReport is the result of analyzing a code snippet. The pipeline
// treats it as opaque and only hands it to downstream collaborators.
type ContextReport struct {
	// Embedding is a fixed-width vector derived from the code contents.
	Embedding []byte
	// Symbols are the identifiers discovered during the scan.
	Symbols []string
	// ParseOK is false when structural parsing failed and the analyzer fell
	// back to a lexical scan.
	ParseOK bool
}

// Finding is a single vulnerability detection.
type Finding struct {
	Type             string
	RiskScore        float64
	ContextAwareRisk float64
	Line             int
	Snippet          string
	Mitigation       string
}

// VulnReport is the result of scanning a code snippet for vulnerabilities.
type VulnReport struct {
	Findings []Finding
}

// Optimization is a single improvement record produced by the refactor
// engine, ordered by descending impact.
type Optimization struct {
	ID               string
	Pattern          string
	Line             int
	SuggestedCode    string
	Fix              string
	ContextEmbedding []byte
	ImpactScore      float64
}

// Suggestion is an optimization whose code has been adapted to the user's
// style profile. These are the terminal output of the pipeline.
type Suggestion struct {
	Optimization
	AdaptedCode string
}
