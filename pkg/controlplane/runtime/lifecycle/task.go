package lifecycle

import "context"

// Task is a handle on an accepted supervised operation.
type Task struct {
	id   string
	op   Operation
	done chan struct{}
	err  error
}

func newTask(id string, op Operation) *Task {
	return &Task{id: id, op: op, done: make(chan struct{})}
}

// ID returns the job id of the operation.
func (t *Task) ID() string {
	return t.id
}

// Operation returns the operation being executed.
func (t *Task) Operation() Operation {
	return t.op
}

// Done is closed when the operation has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the outcome. Only meaningful after Done is closed.
func (t *Task) Err() error {
	return t.err
}

// Wait blocks until the operation finishes or ctx is done. Giving up on ctx
// does not affect the operation.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}
