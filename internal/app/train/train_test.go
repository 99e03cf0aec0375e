package train_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apptrain "github.com/umi-ai/umi/internal/app/train"
)

type stubCycler struct {
	err   error
	calls int
}

func (s *stubCycler) RunCycle(ctx context.Context) error {
	s.calls++
	return s.err
}

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		cycler *stubCycler
		expErr bool
	}{
		"A successful cycle should not fail": {
			cycler: &stubCycler{},
		},

		"A cycle failure should fail": {
			cycler: &stubCycler{err: fmt.Errorf("validation below threshold")},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			svc, err := apptrain.NewService(apptrain.ServiceConfig{Cycler: test.cycler})
			require.NoError(err)

			err = svc.Run(context.Background())

			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
			assert.Equal(1, test.cycler.calls)
		})
	}
}

func TestServiceConfigValidation(t *testing.T) {
	assert := assert.New(t)

	_, err := apptrain.NewService(apptrain.ServiceConfig{})
	assert.Error(err)
}
