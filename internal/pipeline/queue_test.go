package pipeline_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umi-ai/umi/internal/model"
	"github.com/umi-ai/umi/internal/pipeline"
)

func queueTask(id string, priority int) *model.Task {
	return &model.Task{
		ID:       id,
		FilePath: id + ".py",
		Code:     "print('hi')",
		Stage:    model.StageContextAnalysis,
		Priority: priority,
	}
}

func TestQueueNew(t *testing.T) {
	tests := map[string]struct {
		capacity int
		expErr   bool
	}{
		"A positive capacity should not fail": {capacity: 10},
		"Zero capacity should fail":           {capacity: 0, expErr: true},
		"Negative capacity should fail":       {capacity: -1, expErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := pipeline.NewQueue(test.capacity)

			if test.expErr {
				assert.Error(err)
				assert.True(errors.Is(err, model.ErrNotValid))
			} else {
				assert.NoError(err)
			}
		})
	}
}

func TestQueuePriorityOrder(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q, err := pipeline.NewQueue(10)
	require.NoError(err)

	require.NoError(q.Enqueue(queueTask("low", 5)))
	require.NoError(q.Enqueue(queueTask("urgent", 1)))
	require.NoError(q.Enqueue(queueTask("mid", 3)))

	var got []string
	for i := 0; i < 3; i++ {
		task, err := q.Dequeue(100 * time.Millisecond)
		require.NoError(err)
		got = append(got, task.ID)
	}

	assert.Equal([]string{"urgent", "mid", "low"}, got)
}

func TestQueueFIFOTieBreak(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q, err := pipeline.NewQueue(10)
	require.NoError(err)

	// Equal priorities must dequeue in insertion order, regardless of how
	// many tasks share the priority.
	var exp []string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("task-%d", i)
		exp = append(exp, id)
		require.NoError(q.Enqueue(queueTask(id, 3)))
	}

	var got []string
	for i := 0; i < 5; i++ {
		task, err := q.Dequeue(100 * time.Millisecond)
		require.NoError(err)
		got = append(got, task.ID)
	}

	assert.Equal(exp, got)
}

func TestQueueDequeueTimeout(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q, err := pipeline.NewQueue(10)
	require.NoError(err)

	start := time.Now()
	_, err = q.Dequeue(50 * time.Millisecond)

	assert.True(errors.Is(err, pipeline.ErrQueueEmpty))
	assert.GreaterOrEqual(time.Since(start), 50*time.Millisecond)
}

func TestQueueBackpressure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q, err := pipeline.NewQueue(2)
	require.NoError(err)

	require.NoError(q.Enqueue(queueTask("a", 1)))
	require.NoError(q.Enqueue(queueTask("b", 2)))

	// The third enqueue must block until a slot frees up.
	unblocked := make(chan error)
	go func() {
		unblocked <- q.Enqueue(queueTask("c", 3))
	}()

	select {
	case <-unblocked:
		t.Fatal("enqueue on a full queue should block")
	case <-time.After(50 * time.Millisecond):
	}

	_, err = q.Dequeue(100 * time.Millisecond)
	require.NoError(err)

	select {
	case err := <-unblocked:
		assert.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("enqueue should unblock after a dequeue")
	}

	assert.Equal(2, q.Len())
}

func TestQueuePriorityClamp(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q, err := pipeline.NewQueue(10)
	require.NoError(err)

	require.NoError(q.Enqueue(queueTask("negative", -3)))

	task, err := q.Dequeue(100 * time.Millisecond)
	require.NoError(err)
	assert.Equal(0, task.Priority)
}

func TestQueueClose(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q, err := pipeline.NewQueue(10)
	require.NoError(err)

	// A blocked dequeuer must be released by Close.
	released := make(chan error)
	go func() {
		_, err := q.Dequeue(5 * time.Second)
		released <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-released:
		assert.True(errors.Is(err, pipeline.ErrQueueClosed))
	case <-time.After(time.Second):
		t.Fatal("dequeue should unblock on close")
	}

	err = q.Enqueue(queueTask("late", 1))
	assert.True(errors.Is(err, pipeline.ErrQueueClosed))
}
