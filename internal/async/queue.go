package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/ecoscore/constants"
)

// Job is one document waiting to be processed.
type Job struct {
	Path        string
	UserID      string
	Kind        constants.DocumentKind // empty: infer from the path
	Force       bool                   // reprocess even if the content was seen before
	SubmittedAt time.Time
	TraceID     string
}

// Handler processes a single job.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
