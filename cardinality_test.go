package dataset_test

import (
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/fogfactory/dataset"
)

func TestCardinality(t *testing.T) {
	const (
		unknown  = dataset.Unknown
		infinite = dataset.Infinite
	)

	t.Run("success_string", func(t *testing.T) {
		td.Cmp(t, unknown.String(), "unknown")
		td.Cmp(t, infinite.String(), "infinite")
		td.Cmp(t, dataset.Cardinality(12).String(), "12")
	})

	t.Run("success_filter", func(t *testing.T) {
		td.Cmp(t, dataset.FilterCardinality(10), unknown)
		td.Cmp(t, dataset.FilterCardinality(unknown), unknown)
		td.Cmp(t, dataset.FilterCardinality(infinite), infinite)
	})

	t.Run("success_batch", func(t *testing.T) {
		td.Cmp(t, dataset.BatchCardinality(10, 4, true), dataset.Cardinality(3))
		td.Cmp(t, dataset.BatchCardinality(10, 4, false), dataset.Cardinality(2))
		td.Cmp(t, dataset.BatchCardinality(8, 4, true), dataset.Cardinality(2))
		td.Cmp(t, dataset.BatchCardinality(0, 4, true), dataset.Cardinality(0))
		td.Cmp(t, dataset.BatchCardinality(infinite, 4, true), infinite)
		td.Cmp(t, dataset.BatchCardinality(unknown, 4, false), unknown)
	})

	t.Run("success_repeat", func(t *testing.T) {
		td.Cmp(t, dataset.RepeatCardinality(3, 2), dataset.Cardinality(6))
		td.Cmp(t, dataset.RepeatCardinality(3, 0), dataset.Cardinality(0))
		td.Cmp(t, dataset.RepeatCardinality(3, -1), infinite)
		td.Cmp(t, dataset.RepeatCardinality(0, -1), dataset.Cardinality(0))
		td.Cmp(t, dataset.RepeatCardinality(unknown, -1), unknown)
		td.Cmp(t, dataset.RepeatCardinality(unknown, 2), unknown)
		td.Cmp(t, dataset.RepeatCardinality(infinite, 2), infinite)
		td.Cmp(t, dataset.RepeatCardinality(1<<40, 1<<30), infinite)
	})

	t.Run("success_skip", func(t *testing.T) {
		td.Cmp(t, dataset.SkipCardinality(10, 3), dataset.Cardinality(7))
		td.Cmp(t, dataset.SkipCardinality(10, 30), dataset.Cardinality(0))
		td.Cmp(t, dataset.SkipCardinality(10, -1), dataset.Cardinality(10))
		td.Cmp(t, dataset.SkipCardinality(infinite, 3), infinite)
		td.Cmp(t, dataset.SkipCardinality(unknown, 3), unknown)
	})

	t.Run("success_take", func(t *testing.T) {
		td.Cmp(t, dataset.TakeCardinality(10, 3), dataset.Cardinality(3))
		td.Cmp(t, dataset.TakeCardinality(10, 30), dataset.Cardinality(10))
		td.Cmp(t, dataset.TakeCardinality(10, -1), dataset.Cardinality(10))
		td.Cmp(t, dataset.TakeCardinality(infinite, 3), dataset.Cardinality(3))
		td.Cmp(t, dataset.TakeCardinality(unknown, 3), unknown)
	})

	t.Run("success_concatenate", func(t *testing.T) {
		td.Cmp(t, dataset.ConcatCardinality(2, 3), dataset.Cardinality(5))
		td.Cmp(t, dataset.ConcatCardinality(2, infinite), infinite)
		td.Cmp(t, dataset.ConcatCardinality(unknown, infinite), infinite)
		td.Cmp(t, dataset.ConcatCardinality(unknown, 3), unknown)
		td.Cmp(t, dataset.ConcatCardinality(1<<62, 1<<62), infinite)
	})

	t.Run("success_zip", func(t *testing.T) {
		sizes := func(s ...dataset.Cardinality) []dataset.Cardinality { return s }
		td.Cmp(t, dataset.ZipCardinality(sizes(3, 5), false), dataset.Cardinality(3))
		td.Cmp(t, dataset.ZipCardinality(sizes(3, 5), true), dataset.Cardinality(5))
		td.Cmp(t, dataset.ZipCardinality(sizes(3, infinite), false), dataset.Cardinality(3))
		td.Cmp(t, dataset.ZipCardinality(sizes(3, infinite), true), infinite)
		td.Cmp(t, dataset.ZipCardinality(sizes(infinite, infinite), false), infinite)
		td.Cmp(t, dataset.ZipCardinality(sizes(3, unknown), false), unknown)
		td.Cmp(t, dataset.ZipCardinality(nil, false), dataset.Cardinality(0))
	})
}
