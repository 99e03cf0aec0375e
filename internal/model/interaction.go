package model

import (
	"fmt"
	"time"
)

// EventType classifies a recorded interaction.
type EventType string

const (
	// EventGenerated is recorded once per suggestion produced by the pipeline.
	EventGenerated EventType = "GENERATED"
	// EventPipelineError is recorded when a task is dropped after exhausting
	// its retries, its suggestion id encodes the failed stage.
	EventPipelineError EventType = "PIPELINE_ERROR"
	// EventAccepted is recorded when the user applies a suggestion.
	EventAccepted EventType = "ACCEPTED"
	// EventRejected is recorded when the user dismisses a suggestion.
	EventRejected EventType = "REJECTED"
	// EventIgnored is recorded when a suggestion expires without action.
	EventIgnored EventType = "IGNORED"
)

// Interaction is a single telemetry event used for later learning.
type Interaction struct {
	ID               int64
	Timestamp        time.Time
	EventType        EventType
	SuggestionID     string
	ContextEmbedding []byte
	AnonymizedUserID string
	Metadata         map[string]interface{}
}

// Validate validates an interaction before it is recorded.
func (i *Interaction) Validate() error {
	if i.EventType == "" {
		return fmt.Errorf("event type is required: %w", ErrNotValid)
	}
	if i.SuggestionID == "" {
		return fmt.Errorf("suggestion id is required: %w", ErrNotValid)
	}
	return nil
}
