package httpapi

import "context"

// Runner hands closures to the goroutine that owns the server. That goroutine
// drains C between ticks.
type Runner struct {
	cmds chan func()
}

func NewRunner() *Runner {
	return &Runner{cmds: make(chan func())}
}

// C is the command channel the owning goroutine receives from.
func (r *Runner) C() <-chan func() { return r.cmds }

// Do runs fn on the owning goroutine and waits for it to return.
func (r *Runner) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case r.cmds <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
