// Package printer renders pipeline results and telemetry for the CLI.
package printer

import (
	"github.com/umi-ai/umi/internal/model"
)

// Printer renders pipeline output for humans or machines.
type Printer interface {
	PrintResults(tasks []*model.Task) error
	PrintInteractions(interactions []model.Interaction) error
}
