package dataset

import (
	"math"
	"strconv"

	"github.com/samber/lo"
)

// Cardinality is the number of elements of a dataset, when known.
type Cardinality int64

const (
	// Unknown is the cardinality of datasets whose size cannot be predicted, e.g. filtered ones.
	Unknown Cardinality = -2
	// Infinite is the cardinality of datasets which never end.
	Infinite Cardinality = -1
)

// IsExact reports whether c is an element count.
func (c Cardinality) IsExact() bool { return c >= 0 }

func (c Cardinality) String() string {
	switch c {
	case Unknown:
		return "unknown"
	case Infinite:
		return "infinite"
	}
	return strconv.FormatInt(int64(c), 10)
}

func filterCardinality(size Cardinality) Cardinality {
	if size == Infinite {
		return Infinite
	}
	return Unknown
}

func batchCardinality(size Cardinality, batchSize int, allowSmallLast bool) Cardinality {
	if !size.IsExact() {
		return size
	}
	n := Cardinality(batchSize)
	if allowSmallLast {
		return (size + n - 1) / n
	}
	return size / n
}

func repeatCardinality(size Cardinality, count int) Cardinality {
	switch {
	case count == 0 || size == 0:
		return 0
	case size == Unknown:
		return Unknown
	case count < 0 || size == Infinite:
		return Infinite
	}
	return saturatedMul(size, Cardinality(count))
}

func skipCardinality(size Cardinality, count int) Cardinality {
	if !size.IsExact() || count <= 0 {
		return size
	}
	return max(0, size-Cardinality(count))
}

func takeCardinality(size Cardinality, count int) Cardinality {
	switch {
	case count < 0:
		return size
	case size == Unknown:
		return Unknown
	case size == Infinite:
		return Cardinality(count)
	}
	return min(size, Cardinality(count))
}

func concatCardinality(a, b Cardinality) Cardinality {
	switch {
	case a == Infinite || b == Infinite:
		return Infinite
	case a.IsExact() && b.IsExact():
		return saturatedAdd(a, b)
	}
	return Unknown
}

// Exact counts too large for a Cardinality are reported as Infinite.
func saturatedAdd(a, b Cardinality) Cardinality {
	if a > math.MaxInt64-b {
		return Infinite
	}
	return a + b
}

func saturatedMul(a, b Cardinality) Cardinality {
	if b != 0 && a > math.MaxInt64/b {
		return Infinite
	}
	return a * b
}

// zipCardinality is the size of the shortest zipped dataset, or of the
// longest one when longest is set.
func zipCardinality(sizes []Cardinality, longest bool) Cardinality {
	if len(sizes) == 0 {
		return 0
	}
	if lo.Contains(sizes, Unknown) {
		return Unknown
	}
	exact := lo.Filter(sizes, func(size Cardinality, _ int) bool { return size.IsExact() })
	switch {
	case len(exact) == 0, longest && len(exact) < len(sizes):
		return Infinite
	case longest:
		return lo.Max(exact)
	}
	return lo.Min(exact)
}
