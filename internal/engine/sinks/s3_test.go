package sinks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUploader struct {
	uploads []mockUpload
	err     error
}

type mockUpload struct {
	bucket      string
	key         string
	body        []byte
	contentType string
}

func (m *mockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, _ := io.ReadAll(input.Body)
	upload := mockUpload{
		bucket: *input.Bucket,
		key:    *input.Key,
		body:   body,
	}
	if input.ContentType != nil {
		upload.contentType = *input.ContentType
	}
	m.uploads = append(m.uploads, upload)
	return &manager.UploadOutput{}, nil
}

func TestS3Sink_Name(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		prefix   string
		expected string
	}{
		{name: "bucket only", bucket: "archives", expected: "s3://archives"},
		{name: "bucket with prefix", bucket: "archives", prefix: "nightly/db", expected: "s3://archives/nightly/db"},
		{name: "slashes around prefix", bucket: "archives", prefix: "/nightly/", expected: "s3://archives/nightly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := NewS3SinkWithUploader(tt.bucket, tt.prefix, &mockUploader{})
			assert.Equal(t, tt.expected, sink.Name())
			assert.Equal(t, "s3", sink.Kind())
		})
	}
}

func TestS3Sink_Write(t *testing.T) {
	tests := []struct {
		name        string
		prefix      string
		path        string
		expectedKey string
	}{
		{name: "without prefix", path: "20260101_120000_logs.tar.zst", expectedKey: "20260101_120000_logs.tar.zst"},
		{name: "with prefix", prefix: "backups/2026", path: "a.gz", expectedKey: "backups/2026/a.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploader := &mockUploader{}
			sink := NewS3SinkWithUploader("archives", tt.prefix, uploader)

			err := sink.Write(t.Context(), tt.path, bytes.NewBufferString("compressed"))
			require.NoError(t, err)

			require.Len(t, uploader.uploads, 1)
			assert.Equal(t, "archives", uploader.uploads[0].bucket)
			assert.Equal(t, tt.expectedKey, uploader.uploads[0].key)
			assert.Equal(t, "compressed", string(uploader.uploads[0].body))
		})
	}
}

func TestS3Sink_WriteError(t *testing.T) {
	uploader := &mockUploader{err: errors.New("access denied")}
	sink := NewS3SinkWithUploader("archives", "p", uploader)

	err := sink.Write(t.Context(), "a.zst", bytes.NewBufferString("x"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "s3://archives/p/a.zst")
	assert.ErrorContains(t, err, "access denied")
}

func TestContentType(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{path: "a.tar.zst", expected: "application/zstd"},
		{path: "a.gz", expected: "application/gzip"},
		{path: "a.xz", expected: "application/x-xz"},
		{path: "a.lz4", expected: "application/x-lz4"},
		{path: "a.7z", expected: "application/x-7z-compressed"},
		{path: "a.tar", expected: "application/x-tar"},
		{path: "a.bin", expected: ""},
		{path: "noext", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			uploader := &mockUploader{}
			sink := NewS3SinkWithUploader("bucket", "", uploader)

			require.NoError(t, sink.Write(t.Context(), tt.path, bytes.NewBufferString("content")))
			require.Len(t, uploader.uploads, 1)
			assert.Equal(t, tt.expected, uploader.uploads[0].contentType)
		})
	}
}
