package iterator

import (
	"context"
	"errors"
)

// ToSlice pulls every value of it, then closes it.
func ToSlice[T any](ctx context.Context, it Iterator[T]) (result []T, err error) {
	defer func() { err = errors.Join(err, it.Close()) }()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return result, err
		}
		if !ok {
			return result, nil
		}
		result = append(result, v)
	}
}

// ForEach calls fn with every value of it, then closes it. It stops at the
// first error.
func ForEach[T any](ctx context.Context, it Iterator[T], fn func(T) error) (err error) {
	defer func() { err = errors.Join(err, it.Close()) }()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

// Drain pulls it until the end, discarding the values, then closes it.
func Drain[T any](ctx context.Context, it Iterator[T]) error {
	return DrainWhile(ctx, it, func(T) bool { return true })
}

// DrainWhile pulls it while predicate holds for the pulled values, then
// closes it. The value failing the predicate is discarded too.
func DrainWhile[T any](ctx context.Context, it Iterator[T], predicate func(T) bool) (err error) {
	defer func() { err = errors.Join(err, it.Close()) }()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return err
		}
		keep := predicate(v)
		release(v)
		if !keep {
			return nil
		}
	}
}

// Item is a value delivered by ToChannel, or the error which stopped the stream.
type Item[T any] struct {
	Value T
	Err   error
}

// ToChannel pulls it in a new goroutine and sends its values on the returned
// channel. The channel is closed after the end of the stream, the first
// error, or the cancellation of ctx; it is then closed too. A close failure is
// sent as a last Item.
func ToChannel[T any](ctx context.Context, it Iterator[T]) <-chan Item[T] {
	out := make(chan Item[T])
	go func() {
		defer close(out)
		send := func(item Item[T]) bool {
			select {
			case out <- item:
				return true
			case <-ctx.Done():
				return false
			}
		}
		err := ForEach(ctx, it, func(v T) error {
			if !send(Item[T]{Value: v}) {
				release(v)
				return ctx.Err()
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			send(Item[T]{Err: err})
		}
	}()
	return out
}
