package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/umi-ai/umi/internal/model"
)

func TestInteractionValidate(t *testing.T) {
	tests := map[string]struct {
		interaction model.Interaction
		expErr      bool
	}{
		"A valid interaction should not fail": {
			interaction: model.Interaction{
				EventType:    model.EventGenerated,
				SuggestionID: "sug-1",
			},
			expErr: false,
		},

		"Missing event type should fail": {
			interaction: model.Interaction{
				SuggestionID: "sug-1",
			},
			expErr: true,
		},

		"Missing suggestion id should fail": {
			interaction: model.Interaction{
				EventType: model.EventAccepted,
			},
			expErr: true,
		},

		"Pipeline error events are valid interactions": {
			interaction: model.Interaction{
				EventType:    model.EventPipelineError,
				SuggestionID: "ERR_OPTIMIZATION_GEN",
			},
			expErr: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			err := test.interaction.Validate()

			if test.expErr {
				assert.Error(err)
				assert.True(errors.Is(err, model.ErrNotValid))
			} else {
				assert.NoError(err)
			}
		})
	}
}
