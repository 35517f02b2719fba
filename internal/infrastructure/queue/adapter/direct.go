package adapter

import (
	"context"

	"go-chatty-client/internal/infrastructure/queue/port"
)

// DirectRunner runs each job on the calling goroutine. Concurrent submissions
// proceed concurrently and finish in whatever order their work completes.
type DirectRunner struct{}

var _ port.Runner = DirectRunner{}

func NewDirectRunner() DirectRunner { return DirectRunner{} }

func (DirectRunner) Run(ctx context.Context, job port.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return job(ctx)
}

func (DirectRunner) Close() error { return nil }
