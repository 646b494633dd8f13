/*
dataset describes lazy, re-iterable pipelines of values and runs them with a bounded pool of goroutines.

A Dataset is only a description: nothing runs until Iterator is called. Every call to Iterator builds a fresh chain of
pull-based stages (package iterator), so a dataset can be consumed several times, each time from the start. This is
what multi-epoch training loops rely on.

For instance:

  - FromSource reads raw chunks from a source.DataSource
  - Map decodes each chunk into a sample
  - Shuffle mixes the samples in a sliding window, with a new seed for every epoch unless told otherwise
  - Batch groups the samples, and Prefetch keeps the next batches in flight while the consumer works on the current one

Values are only pulled on demand. Stages pulling ahead of the consumer (Prefetch, Shuffle, ParallelMap, Zip) bound the
number of values in flight with their buffer size, so the memory footprint of a pipeline is estimated from the size of
its values and of its buffers. Their background pulls run on the iterator.Pool attached to the context.

Each dataset carries an estimate of its number of elements (its Cardinality), propagated through every operation.
It may be exact, Infinite or Unknown.

As for any performance tuning, you should try and tune the buffer sizes and the pool size.
*/

package dataset
