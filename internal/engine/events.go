package engine

import (
	"strconv"
	"strings"

	v1 "github.com/presskit/presskit/apis/v1"
)

// EventSink receives job events. Implementations must not block for long,
// the dispatcher calls Emit synchronously.
type EventSink interface {
	Emit(v1.CompressionEvent)
}

type EventSinkFunc func(v1.CompressionEvent)

func (f EventSinkFunc) Emit(e v1.CompressionEvent) {
	f(e)
}

type discardEvents struct{}

func (discardEvents) Emit(v1.CompressionEvent) {}

// ParsePercentage extracts the number directly before the first '%' in line.
func ParsePercentage(line string) *float32 {
	pos := strings.IndexByte(line, '%')
	if pos < 0 {
		return nil
	}

	start := pos
	for start > 0 {
		c := line[start-1]
		if (c >= '0' && c <= '9') || c == '.' {
			start--
			continue
		}
		break
	}
	if start == pos {
		return nil
	}

	v, err := strconv.ParseFloat(line[start:pos], 32)
	if err != nil {
		return nil
	}
	pct := float32(v)
	return &pct
}
