package iterator

import (
	"context"

	"github.com/rs/zerolog"
)

// ErrorHandler decides what happens after a failed upstream pull: retry
// pulls again, stop ends the stream, and a non-nil error is propagated.
type ErrorHandler func(err error) (retry bool, propagate error)

// HandleErrors intercepts upstream failures with handler. A handler which
// always retries against an upstream which always fails loops until the
// context is cancelled.
func HandleErrors[T any](upstream Iterator[T], handler ErrorHandler) Iterator[T] {
	return guarded[T](&errorHandlingStage[T]{upstream: upstream, handler: handler})
}

type errorHandlingStage[T any] struct {
	upstream Iterator[T]
	handler  ErrorHandler
}

func (s *errorHandlingStage[T]) advance(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		v, ok, err := s.upstream.Next(ctx)
		if err == nil {
			return v, ok, nil
		}
		if ctx.Err() != nil {
			return zero, false, ctx.Err()
		}
		retry, propagate := s.handler(err)
		if propagate != nil {
			return zero, false, propagate
		}
		zerolog.Ctx(ctx).Warn().Err(err).Bool("retry", retry).Str("stage", s.upstream.Summary()).Msg("upstream error handled")
		if !retry {
			return zero, false, nil
		}
	}
}

func (s *errorHandlingStage[T]) close() error { return s.upstream.Close() }

func (s *errorHandlingStage[T]) summary() string { return chain("HandleErrors", s.upstream) }
