package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutputName(t *testing.T) {
	now := time.Date(2026, 3, 7, 9, 5, 1, 0, time.Local)

	tests := []struct {
		name      string
		input     string
		extension string
		expected  string
	}{
		{name: "plain file", input: "/tmp/in.txt", extension: "zst", expected: "20260307_090501_in.txt.zst"},
		{name: "intermediate tar", input: "/home/u/.tmp_photos.tar", extension: "7z", expected: "20260307_090501_photos.tar.7z"},
		{name: "prefix only stripped once", input: ".tmp_.tmp_x", extension: "gz", expected: "20260307_090501_.tmp_x.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OutputName(now, tt.input, tt.extension))
		})
	}
}

func TestIntermediateName(t *testing.T) {
	assert.Equal(t, ".tmp_photos.tar", IntermediateName("/data/photos"))
}

func TestParsePercentage(t *testing.T) {
	tests := []struct {
		line     string
		expected *float32
	}{
		{line: "  45.5% done", expected: ptr(45.5)},
		{line: "in.txt : 12% (1.0 MiB => 300 KiB)", expected: ptr(12)},
		{line: "100%", expected: ptr(100)},
		{line: "no pct", expected: nil},
		{line: "% leading", expected: nil},
		{line: "ratio 3x, 20% and 30%", expected: ptr(20)},
		{line: "1.2.3%", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParsePercentage(tt.line))
		})
	}
}

func ptr(v float32) *float32 {
	return &v
}
