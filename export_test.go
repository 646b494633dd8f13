package dataset

var (
	FilterCardinality = filterCardinality
	BatchCardinality  = batchCardinality
	RepeatCardinality = repeatCardinality
	SkipCardinality   = skipCardinality
	TakeCardinality   = takeCardinality
	ConcatCardinality = concatCardinality
	ZipCardinality    = zipCardinality
)
