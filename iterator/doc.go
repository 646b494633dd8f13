/*
Package iterator implements lazy, pull-based streams and the stages used to compose them.

An Iterator is pulled by a single consumer through Next. Every stage wraps one or more upstream
iterators and only pulls from them when it is itself pulled, so a pipeline never produces faster
than its consumer reads (backpressure comes for free).

Each stage serializes its own Next calls: at most one pull per stage is in flight, and the
values come out in the order the upstream emitted them. Prefetch, Shuffle, ParallelMap and Zip
issue pulls ahead of demand on background goroutines. Those goroutines come from the Pool
attached to the context with WithPool, or are plain goroutines when there is none. Pulls issued
ahead of demand are chained so that pull k+1 only starts once pull k is complete.

Once a stage reported the end of its stream, it keeps reporting it. Close releases a stage and
its upstream; Take closes its upstream as soon as it has emitted its last value.

Stages log through the zerolog logger carried by the context (see zerolog.Ctx). Nothing is
logged when the context carries no logger.

For instance:

	it := iterator.FromItems([]int{1, 2, 3, 4, 5, 6, 7, 8})
	evens := iterator.Filter(it, func(i int) (bool, error) { return i%2 == 0, nil })
	batches, _ := iterator.Batch(evens, 2, true)
	values, err := iterator.ToSlice(ctx, batches) // [[2 4] [6 8]]
*/
package iterator
