package pipeline

import (
	"sync"

	"github.com/umi-ai/umi/internal/model"
)

// resultSink collects terminal tasks. It is shared across workers, so access
// is serialized with a mutex.
type resultSink struct {
	mu    sync.Mutex
	tasks []*model.Task
}

func (s *resultSink) add(t *model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

func (s *resultSink) list() []*model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]*model.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return tasks
}
