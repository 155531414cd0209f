package engine

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// OutputName builds "<timestamp>_<base>.<ext>" for an input file. An
// intermediate-file prefix on the input is not carried into the name.
func OutputName(now time.Time, inputPath, extension string) string {
	base := strings.TrimPrefix(filepath.Base(inputPath), TempPrefix)
	return fmt.Sprintf("%s_%s.%s", now.Format(OutputTimestamp), base, extension)
}

// IntermediateName is the file name used when packing dir next to itself.
func IntermediateName(dir string) string {
	return TempPrefix + filepath.Base(dir) + ".tar"
}
