package iterator_test

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/lo"

	"github.com/fogfactory/dataset/iterator"
)

var errBoom = errors.New("boom")

func TestSources(t *testing.T) {
	ctx := context.Background()

	t.Run("success_items_round_trip", func(t *testing.T) {
		// Arrange
		input := lo.Range(50)

		// Act
		got := collect(t, iterator.FromItems(input))

		// Assert
		td.Cmp(t, got, input)
	})

	t.Run("success_exhausted_stays_exhausted", func(t *testing.T) {
		// Arrange
		upstream := track(1)
		it := iterator.Map(upstream, func(i int) (int, error) { return i, nil })

		// Act
		v, ok, err := it.Next(ctx)
		td.Cmp(t, []any{v, ok, err}, []any{1, true, nil})
		for range 3 {
			_, ok, err = it.Next(ctx)

			// Assert
			td.CmpFalse(t, ok)
			td.CmpNoError(t, err)
		}
		td.Cmp(t, upstream.pulls.Load(), int32(2), "no pull after the end")
		td.CmpNoError(t, it.Close())
	})

	t.Run("success_close_is_idempotent", func(t *testing.T) {
		// Arrange
		upstream := track(1, 2, 3)
		it := iterator.Filter(upstream, func(int) (bool, error) { return true, nil })

		// Act
		td.CmpNoError(t, it.Close())
		td.CmpNoError(t, it.Close())
		_, ok, err := it.Next(ctx)

		// Assert
		td.CmpFalse(t, ok)
		td.CmpNoError(t, err)
		td.Cmp(t, upstream.closed.Load(), int32(1))
	})

	t.Run("success_incrementing", func(t *testing.T) {
		got := collect(t, iterator.Take(iterator.Incrementing(5), 4))
		td.Cmp(t, got, []int{5, 6, 7, 8})
	})

	t.Run("success_func", func(t *testing.T) {
		// Arrange
		n := 0
		it := iterator.FromFunc(func(context.Context) (string, bool, error) {
			n++
			return strconv.Itoa(n), n <= 3, nil
		})

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, got, []string{"1", "2", "3"})
	})

	t.Run("success_seq_stopped_on_close", func(t *testing.T) {
		// Arrange
		var stopped bool
		seq := func(yield func(int) bool) {
			defer func() { stopped = true }()
			for i := 0; ; i++ {
				if !yield(i) {
					return
				}
			}
		}
		it := iterator.Take(iterator.FromSeq(seq), 3)

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, got, []int{0, 1, 2})
		td.CmpTrue(t, stopped)
	})

	t.Run("success_channel", func(t *testing.T) {
		ch := make(chan int, 3)
		ch <- 1
		ch <- 2
		close(ch)
		td.Cmp(t, collect(t, iterator.FromChannel(ch)), []int{1, 2})
	})

	t.Run("error_channel_cancelled", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		it := iterator.FromChannel(make(chan int))

		// Act
		_, ok, err := it.Next(ctx)

		// Assert
		td.CmpFalse(t, ok)
		td.CmpErrorIs(t, err, context.Canceled)
	})

	t.Run("error_failed", func(t *testing.T) {
		_, err := iterator.ToSlice(ctx, iterator.Failed[int](errBoom))
		td.CmpErrorIs(t, err, errBoom)
	})

	t.Run("success_summary", func(t *testing.T) {
		// Arrange
		it := iterator.Take(iterator.Map(iterator.FromItems(lo.Range(5)), func(i int) (string, error) { return strconv.Itoa(i), nil }), 3)

		// Act
		summary := it.Summary()

		// Assert
		td.Cmp(t, summary, "Take(3) -> Map -> Array of 5 items")
	})
}

func TestTransforms(t *testing.T) {
	ctx := context.Background()

	t.Run("success_map", func(t *testing.T) {
		got := collect(t, iterator.Map(iterator.FromItems(lo.Range(4)), func(i int) (int, error) { return i * i, nil }))
		td.Cmp(t, got, []int{0, 1, 4, 9})
	})

	t.Run("error_map_stream_error", func(t *testing.T) {
		// Arrange
		it := iterator.Map(iterator.FromItems(lo.Range(4)), func(i int) (int, error) {
			if i == 2 {
				return 0, errBoom
			}
			return i, nil
		})

		// Act
		got, err := iterator.ToSlice(ctx, it)

		// Assert
		td.Cmp(t, got, []int{0, 1})
		td.CmpErrorIs(t, err, errBoom)
		var streamErr *iterator.StreamError
		td.Require(t).True(errors.As(err, &streamErr))
		td.Cmp(t, streamErr.Stage, "Map")
	})

	t.Run("success_map_error_does_not_end_stream", func(t *testing.T) {
		// Arrange
		it := iterator.Map(iterator.FromItems(lo.Range(3)), func(i int) (int, error) {
			if i == 1 {
				return 0, errBoom
			}
			return i, nil
		})

		// Act
		var got []int
		var errs int
		for {
			v, ok, err := it.Next(ctx)
			if err != nil {
				errs++
				continue
			}
			if !ok {
				break
			}
			got = append(got, v)
		}

		// Assert
		td.Cmp(t, got, []int{0, 2})
		td.Cmp(t, errs, 1)
	})

	t.Run("success_map_releases_transformed_values", func(t *testing.T) {
		// Arrange
		var released atomic.Int32
		it := iterator.Map(iterator.FromItems(payloads(5, &released)), func(p *payload) (int, error) { return p.id, nil })

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, got, lo.Range(5))
		td.Cmp(t, released.Load(), int32(5))
	})

	t.Run("success_map_keeps_forwarded_values", func(t *testing.T) {
		// Arrange
		var released atomic.Int32
		it := iterator.Map(iterator.FromItems(payloads(5, &released)), func(p *payload) (*payload, error) { return p, nil })

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, len(got), 5)
		td.Cmp(t, released.Load(), int32(0))
	})

	t.Run("success_filter", func(t *testing.T) {
		// Arrange
		var released atomic.Int32
		it := iterator.Filter(iterator.FromItems(payloads(10, &released)), func(p *payload) (bool, error) {
			return p.id%3 == 0, nil
		})

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, lo.Map(got, func(p *payload, _ int) int { return p.id }), []int{0, 3, 6, 9})
		td.Cmp(t, released.Load(), int32(6))
	})

	t.Run("error_filter_predicate", func(t *testing.T) {
		// Arrange
		it := iterator.Filter(iterator.FromItems(lo.Range(3)), func(int) (bool, error) { return false, errBoom })

		// Act
		_, _, err := it.Next(ctx)

		// Assert
		td.CmpErrorIs(t, err, errBoom)
		td.CmpContains(t, err.Error(), "Filter")
	})

	t.Run("success_flat_map", func(t *testing.T) {
		// Arrange
		it := iterator.FlatMap(iterator.FromItems(lo.Range(10)), func(i int) ([]int, error) {
			return lo.Times(i, func(int) int { return i }), nil
		})

		// Act
		got := collect(t, it)

		// Assert
		var expected []int
		for i := range 10 {
			for range i {
				expected = append(expected, i)
			}
		}
		td.Cmp(t, got, expected)
	})

	t.Run("success_flat_map_release", func(t *testing.T) {
		// Arrange
		var released atomic.Int32
		input := payloads(4, &released)
		it := iterator.FlatMap(iterator.FromItems(input), func(p *payload) ([]*payload, error) {
			if p.id%2 == 0 {
				return []*payload{p}, nil
			}
			return nil, nil
		})

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, got, []*payload{input[0], input[2]})
		td.Cmp(t, released.Load(), int32(2))
	})

	t.Run("success_tap", func(t *testing.T) {
		// Arrange
		var seen []int
		it := iterator.Tap(iterator.FromItems(lo.Range(3)), func(_ context.Context, i int) error {
			seen = append(seen, i)
			return nil
		})

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, got, seen)
	})

	t.Run("success_concurrent_consumers", func(t *testing.T) {
		// Arrange
		it := iterator.Map(iterator.FromItems(lo.Range(200)), func(i int) (int, error) { return i, nil })
		var mu sync.Mutex
		var got []int

		// Act
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					v, ok, err := it.Next(ctx)
					if err != nil || !ok {
						return
					}
					mu.Lock()
					got = append(got, v)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		// Assert
		td.Cmp(t, got, td.Bag(td.Flatten(lo.Range(200))))
		td.CmpNoError(t, it.Close())
	})
}

func TestSkipTake(t *testing.T) {
	ctx := context.Background()
	input := lo.Range(10)

	t.Run("success_properties", func(t *testing.T) {
		for _, n := range []int{-1, 0, 1, 5, 10, 12} {
			skipped := collect(t, iterator.Skip(iterator.FromItems(input), n))
			taken := collect(t, iterator.Take(iterator.FromItems(input), n))
			switch {
			case n < 0:
				td.Cmp(t, skipped, input, "skip %d", n)
				td.Cmp(t, taken, input, "take %d", n)
			default:
				td.Cmp(t, len(taken), min(n, len(input)), "take %d", n)
				td.Cmp(t, len(skipped), max(0, len(input)-n), "skip %d", n)
				td.Cmp(t, slices.Concat(taken, skipped), input, "take %d then skip %d", n, n)
			}
		}
	})

	t.Run("success_skip_releases", func(t *testing.T) {
		var released atomic.Int32
		got := collect(t, iterator.Skip(iterator.FromItems(payloads(5, &released)), 3))
		td.Cmp(t, len(got), 2)
		td.Cmp(t, released.Load(), int32(3))
	})

	t.Run("success_take_closes_upstream", func(t *testing.T) {
		// Arrange
		upstream := track(lo.Range(10)...)
		it := iterator.Take[int](upstream, 3)

		// Act
		for i := range 3 {
			v, ok, err := it.Next(ctx)
			td.Cmp(t, []any{v, ok, err}, []any{i, true, nil})
		}

		// Assert
		td.Cmp(t, upstream.closed.Load(), int32(1), "closed right after the last value")
		_, ok, err := it.Next(ctx)
		td.CmpFalse(t, ok)
		td.CmpNoError(t, err)
		td.CmpNoError(t, it.Close())
		td.Cmp(t, upstream.pulls.Load(), int32(3))
		td.Cmp(t, upstream.closed.Load(), int32(1))
	})

	t.Run("success_take_zero", func(t *testing.T) {
		// Arrange
		upstream := track(1, 2)

		// Act
		got := collect(t, iterator.Take[int](upstream, 0))

		// Assert
		td.CmpEmpty(t, got)
		td.Cmp(t, upstream.pulls.Load(), int32(0))
		td.Cmp(t, upstream.closed.Load(), int32(1))
	})

	t.Run("success_take_infinite", func(t *testing.T) {
		got := collect(t, iterator.Take(iterator.Skip(iterator.Incrementing(0), 100), 2))
		td.Cmp(t, got, []int{100, 101})
	})
}

func TestHandleErrors(t *testing.T) {
	ctx := context.Background()

	failing := func() *tracked[int] {
		upstream := track(1, 2, 3)
		upstream.fail[1] = errBoom
		return upstream
	}

	t.Run("success_retry", func(t *testing.T) {
		// Arrange
		var seen []error
		it := iterator.HandleErrors[int](failing(), func(err error) (bool, error) {
			seen = append(seen, err)
			return true, nil
		})

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, got, []int{1, 2, 3})
		td.Cmp(t, seen, []error{errBoom})
	})

	t.Run("success_stop", func(t *testing.T) {
		it := iterator.HandleErrors[int](failing(), func(error) (bool, error) { return false, nil })
		td.Cmp(t, collect(t, it), []int{1})
	})

	t.Run("error_propagate", func(t *testing.T) {
		// Arrange
		errWrapped := errors.New("wrapped")
		it := iterator.HandleErrors[int](failing(), func(err error) (bool, error) {
			return false, errors.Join(errWrapped, err)
		})

		// Act
		got, err := iterator.ToSlice(ctx, it)

		// Assert
		td.Cmp(t, got, []int{1})
		td.CmpErrorIs(t, err, errWrapped)
		td.CmpErrorIs(t, err, errBoom)
	})

	t.Run("success_bounded_retries", func(t *testing.T) {
		// Arrange
		attempts := 0
		it := iterator.HandleErrors(iterator.Failed[int](errBoom), func(error) (bool, error) {
			attempts++
			return attempts < 3, nil
		})

		// Act
		got := collect(t, it)

		// Assert
		td.CmpEmpty(t, got)
		td.Cmp(t, attempts, 3)
	})

	t.Run("error_endless_retries_cancelled", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		it := iterator.HandleErrors(iterator.Failed[int](errBoom), func(error) (bool, error) { return true, nil })

		// Act
		_, ok, err := it.Next(ctx)

		// Assert
		td.CmpFalse(t, ok)
		td.CmpErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestConcatenated(t *testing.T) {
	ctx := context.Background()

	t.Run("success_exhausts_each_iterator_in_turn", func(t *testing.T) {
		// Arrange
		var produced []*tracked[int]
		it := iterator.ConcatenatedFunc(func(context.Context) (iterator.Iterator[int], bool, error) {
			for _, prev := range produced {
				td.Cmp(t, prev.closed.Load(), int32(1), "previous iterator closed first")
			}
			k := len(produced)
			upstream := track(k*10, k*10+1)
			produced = append(produced, upstream)
			return upstream, true, nil
		}, 3, nil)

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, got, []int{0, 1, 10, 11, 20, 21})
		td.Cmp(t, len(produced), 3)
	})

	t.Run("success_skips_empty_iterators", func(t *testing.T) {
		// Arrange
		iterators := iterator.FromItems([]iterator.Iterator[string]{
			iterator.FromItems([]string{}),
			iterator.FromItems([]string{"a"}),
			iterator.FromItems([]string{}),
			iterator.FromItems([]string{"b", "c"}),
		})

		// Act
		got := collect(t, iterator.Concatenated(iterators, nil))

		// Assert
		td.Cmp(t, got, []string{"a", "b", "c"})
	})

	t.Run("success_handler_wraps_every_iterator", func(t *testing.T) {
		// Arrange
		handled := 0
		it := iterator.ConcatenatedFunc(func(context.Context) (iterator.Iterator[int], bool, error) {
			upstream := track(1, 2)
			upstream.fail[0] = errBoom
			return upstream, true, nil
		}, 2, func(error) (bool, error) {
			handled++
			return true, nil
		})

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, got, []int{1, 2, 1, 2})
		td.Cmp(t, handled, 2)
	})

	t.Run("error_close_on_failure", func(t *testing.T) {
		// Arrange
		upstream := track(1)
		upstream.fail[1] = errBoom
		it := iterator.Concatenated(iterator.FromItems([]iterator.Iterator[int]{upstream}), nil)

		// Act
		got, err := iterator.ToSlice(ctx, it)

		// Assert
		td.Cmp(t, got, []int{1})
		td.CmpErrorIs(t, err, errBoom)
		td.Cmp(t, upstream.closed.Load(), int32(1))
	})
}

func TestBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("success_exact_batches", func(t *testing.T) {
		// Arrange
		it := batch(t, iterator.FromItems([]int{1, 2, 3, 4, 5, 6, 7, 8}), 4, false)

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, got, [][]int{{1, 2, 3, 4}, {5, 6, 7, 8}})
	})

	t.Run("success_small_last", func(t *testing.T) {
		got := collect(t, batch(t, iterator.FromItems(lo.Range(10)), 4, true))
		td.Cmp(t, lo.Map(got, func(b []int, _ int) int { return len(b) }), []int{4, 4, 2})
		td.Cmp(t, got[2], []int{8, 9})
	})

	t.Run("success_drop_small_last", func(t *testing.T) {
		// Arrange
		var released atomic.Int32
		it := batch(t, iterator.FromItems(payloads(10, &released)), 4, false)

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, len(got), 2)
		td.Cmp(t, released.Load(), int32(2))
	})

	t.Run("success_batches_do_not_share_memory", func(t *testing.T) {
		// Arrange
		it := batch(t, iterator.FromItems(lo.Range(4)), 2, false)

		// Act
		got := collect(t, it)
		got[0] = append(got[0], 99)

		// Assert
		td.Cmp(t, got[1], []int{2, 3})
	})

	t.Run("success_partial_batch_kept_across_errors", func(t *testing.T) {
		// Arrange
		upstream := track(1, 2, 3, 4)
		upstream.fail[3] = errBoom
		it := batch[int](t, upstream, 2, false)

		// Act
		first, _, err := it.Next(ctx)
		td.CmpNoError(t, err)
		_, _, err = it.Next(ctx)
		td.CmpErrorIs(t, err, errBoom)
		second, ok, err := it.Next(ctx)

		// Assert
		td.CmpNoError(t, err)
		td.CmpTrue(t, ok)
		td.Cmp(t, [][]int{first, second}, [][]int{{1, 2}, {3, 4}})
	})

	t.Run("error_invalid_size", func(t *testing.T) {
		_, err := iterator.Batch(iterator.FromItems(lo.Range(3)), 0, true)
		td.CmpErrorIs(t, err, iterator.ErrInvalidArgument)
	})

	t.Run("success_column_major", func(t *testing.T) {
		// Arrange
		rows := lo.Map(lo.Range(4), func(i int, _ int) any {
			return map[string]any{"x": i, "y": []any{i, -i}}
		})
		it := columns(t, iterator.FromItems(rows), 2, false)

		// Act
		got := collect(t, it)

		// Assert
		td.Cmp(t, got, []any{
			map[string]any{"x": []any{0, 1}, "y": []any{[]any{0, 1}, []any{0, -1}}},
			map[string]any{"x": []any{2, 3}, "y": []any{[]any{2, 3}, []any{-2, -3}}},
		})
	})
}

func TestCollect(t *testing.T) {
	ctx := context.Background()

	t.Run("success_for_each", func(t *testing.T) {
		// Arrange
		upstream := track(1, 2, 3)
		sum := 0

		// Act
		err := iterator.ForEach(ctx, upstream, func(i int) error {
			sum += i
			return nil
		})

		// Assert
		td.CmpNoError(t, err)
		td.Cmp(t, sum, 6)
		td.Cmp(t, upstream.closed.Load(), int32(1))
	})

	t.Run("error_for_each_stops", func(t *testing.T) {
		// Arrange
		upstream := track(1, 2, 3)

		// Act
		err := iterator.ForEach(ctx, upstream, func(i int) error {
			if i == 2 {
				return errBoom
			}
			return nil
		})

		// Assert
		td.CmpErrorIs(t, err, errBoom)
		td.Cmp(t, upstream.pulls.Load(), int32(2))
		td.Cmp(t, upstream.closed.Load(), int32(1))
	})

	t.Run("success_drain_while", func(t *testing.T) {
		// Arrange
		upstream := track(lo.Range(10)...)

		// Act
		err := iterator.DrainWhile(ctx, upstream, func(i int) bool { return i < 4 })

		// Assert
		td.CmpNoError(t, err)
		td.Cmp(t, upstream.pulls.Load(), int32(5))
	})

	t.Run("success_drain_releases", func(t *testing.T) {
		var released atomic.Int32
		td.CmpNoError(t, iterator.Drain(ctx, iterator.FromItems(payloads(7, &released))))
		td.Cmp(t, released.Load(), int32(7))
	})
}

func TestToChannel(t *testing.T) {
	t.Run("success_all_values", func(t *testing.T) {
		// Arrange
		upstream := track(lo.Range(5)...)

		// Act
		items := lo.ChannelToSlice(iterator.ToChannel[int](context.Background(), upstream))

		// Assert
		td.Cmp(t, lo.Map(items, func(item iterator.Item[int], _ int) int { return item.Value }), lo.Range(5))
		td.Cmp(t, upstream.closed.Load(), int32(1))
	})

	t.Run("error_last_item", func(t *testing.T) {
		// Arrange
		upstream := track(1, 2)
		upstream.fail[1] = errBoom

		// Act
		items := lo.ChannelToSlice(iterator.ToChannel[int](context.Background(), upstream))

		// Assert
		td.Cmp(t, len(items), 2)
		td.Cmp(t, items[0].Value, 1)
		td.CmpErrorIs(t, items[1].Err, errBoom)
	})

	t.Run("success_cancelled", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		upstream := track(lo.Range(100)...)
		ch := iterator.ToChannel[int](ctx, upstream)

		// Act
		first := <-ch
		cancel()
		rest := lo.ChannelToSlice(ch)

		// Assert
		td.Cmp(t, first.Value, 0)
		td.Cmp(t, len(rest), td.Lt(99))
		td.CmpFalse(t, lo.ContainsBy(rest, func(item iterator.Item[int]) bool { return item.Err != nil }))
		td.Cmp(t, upstream.closed.Load(), int32(1))
	})
}
