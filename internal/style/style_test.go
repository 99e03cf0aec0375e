package style_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umi-ai/umi/internal/model"
	"github.com/umi-ai/umi/internal/style"
	telemetrymemory "github.com/umi-ai/umi/internal/telemetry/memory"
)

func newStore(t *testing.T) *telemetrymemory.Store {
	t.Helper()
	store, err := telemetrymemory.NewStore(telemetrymemory.StoreConfig{})
	require.NoError(t, err)
	return store
}

func record(t *testing.T, store *telemetrymemory.Store, suggestionID string, event model.EventType, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		require.NoError(t, store.RecordInteraction(context.Background(), model.Interaction{
			EventType:    event,
			SuggestionID: suggestionID,
		}))
	}
}

func TestAdapterDefaultProfile(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	a, err := style.NewAdapter(context.Background(), style.AdapterConfig{Telemetry: newStore(t)})
	require.NoError(err)

	// Without telemetry the rule defaults apply.
	profile := a.Profile()
	assert.Equal("same-line", profile[style.RuleBraceStyle])
	assert.Equal("4", profile[style.RuleIndentation])
	assert.Equal(style.NamingSnakeCase, profile[style.RuleNamingConvention])
}

func TestAdapterLearnedProfile(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := newStore(t)
	record(t, store, "rule=naming_convention:choice=camelCase", model.EventAccepted, 4)
	record(t, store, "rule=naming_convention:choice=camelCase", model.EventRejected, 1)
	record(t, store, "rule=naming_convention:choice=snake_case", model.EventRejected, 3)
	record(t, store, "rule=indentation:choice=2", model.EventAccepted, 2)
	// Choices outside the rule options never enter the profile.
	record(t, store, "rule=indentation:choice=13", model.EventAccepted, 5)

	a, err := style.NewAdapter(context.Background(), style.AdapterConfig{Telemetry: store})
	require.NoError(err)

	profile := a.Profile()
	assert.Equal(style.NamingCamelCase, profile[style.RuleNamingConvention])
	assert.Equal("2", profile[style.RuleIndentation])
	assert.Equal("same-line", profile[style.RuleBraceStyle])
}

func TestAdaptSnippet(t *testing.T) {
	tests := map[string]struct {
		interactions map[string]model.EventType
		code         string
		expCode      string
		expErr       bool
	}{
		"Snake case is the default naming convention": {
			code:    "myValue = computeTotal(rawInput)",
			expCode: "my_value = compute_total(raw_input)",
		},

		"Camel case renames snake identifiers": {
			interactions: map[string]model.EventType{
				"rule=naming_convention:choice=camelCase": model.EventAccepted,
			},
			code:    "my_value = compute_total(raw_input)",
			expCode: "myValue = computeTotal(rawInput)",
		},

		"Pascal case renames snake identifiers": {
			interactions: map[string]model.EventType{
				"rule=naming_convention:choice=PascalCase": model.EventAccepted,
			},
			code:    "my_value = compute_total(raw_input)",
			expCode: "MyValue = ComputeTotal(RawInput)",
		},

		"Reserved words are never renamed": {
			code:    "for userItem in range(10):\n    print(userItem)",
			expCode: "for user_item in range(10):\n    print(user_item)",
		},

		"Learned indentation rescales four-space levels": {
			interactions: map[string]model.EventType{
				"rule=naming_convention:choice=snake_case": model.EventAccepted,
				"rule=indentation:choice=2":                model.EventAccepted,
			},
			code:    "if ready:\n    run()\n        deep()",
			expCode: "if ready:\n  run()\n    deep()",
		},

		"Empty code should fail": {
			code:   "",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			store := newStore(t)
			for id, event := range test.interactions {
				record(t, store, id, event, 1)
			}

			a, err := style.NewAdapter(ctx, style.AdapterConfig{Telemetry: store})
			require.NoError(err)

			got, err := a.AdaptSnippet(ctx, test.code)

			if test.expErr {
				assert.Error(err)
				return
			}
			require.NoError(err)
			assert.Equal(test.expCode, got)
		})
	}
}

func TestAdapterEditorConfig(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := newStore(t)
	record(t, store, "rule=indentation:choice=2", model.EventAccepted, 1)
	record(t, store, "rule=naming_convention:choice=camelCase", model.EventAccepted, 1)

	a, err := style.NewAdapter(context.Background(), style.AdapterConfig{Telemetry: store})
	require.NoError(err)

	got := a.EditorConfig()
	assert.Contains(got, "[*.py]")
	assert.Contains(got, "indent_size = 2")
	assert.Contains(got, "indent_style = space")
	assert.Contains(got, "brace_style = same-line")
	assert.Contains(got, "identifier_case = camelCase")
}
