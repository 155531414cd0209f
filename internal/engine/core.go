package engine

import "context"

type Named interface {
	Name() string
	Kind() string
}

type Closer interface {
	Close(context.Context) error
}

const (
	// OutputTimestamp prefixes produced archive names. It sorts lexically and
	// contains no characters that are invalid in file names.
	OutputTimestamp = "20060102_150405"

	// TempPrefix marks intermediate files created next to the input.
	TempPrefix = ".tmp_"

	DefaultAlgorithm = "zstd"
)
