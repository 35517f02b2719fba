package port

import (
	"context"
	"errors"
)

// Job is one unit of work, typically a single backend call. It receives the
// context of the caller that submitted it.
type Job func(ctx context.Context) error

// Runner executes jobs on behalf of a caller and blocks until the job has
// finished, returning its error. Implementations decide ordering: a direct
// runner lets jobs race, a serial runner keeps one in flight at a time.
type Runner interface {
	Run(ctx context.Context, job Job) error
	Close() error
}

// ErrClosed is returned by Run after the runner has been closed.
var ErrClosed = errors.New("queue: runner closed")
