package ingestion

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const s3Notification = `{
  "Records": [
    {
      "eventSource": "aws:s3",
      "eventName": "ObjectCreated:Put",
      "s3": {
        "bucket": {"name": "file-storage"},
        "object": {"key": "uploads/test-file.pdf", "size": 1024}
      }
    },
    {
      "eventSource": "aws:s3",
      "eventName": "ObjectRemoved:Delete",
      "s3": {
        "bucket": {"name": "file-storage"},
        "object": {"key": "uploads/old.pdf"}
      }
    },
    {
      "eventSource": "minio:s3",
      "eventName": "s3:ObjectCreated:Put",
      "s3": {
        "bucket": {"name": "file-storage"},
        "object": {"key": "uploads/test-file.txt"}
      }
    }
  ]
}`

func TestFromS3Event(t *testing.T) {
	var e events.S3Event
	require.NoError(t, json.Unmarshal([]byte(s3Notification), &e))

	got := FromS3Event(e)
	require.Len(t, got, 2)

	assert.Equal(t, "file-storage", got[0].Bucket)
	assert.Equal(t, "uploads/test-file.pdf", got[0].Key)
	require.NotNil(t, got[0].SizeHint)
	assert.Equal(t, int64(1024), *got[0].SizeHint)

	assert.Equal(t, "uploads/test-file.txt", got[1].Key)
	assert.Nil(t, got[1].SizeHint)
}

func TestHandleS3Event(t *testing.T) {
	f := newFixture(t, nil)
	f.store.seed(t, "uploads/test-file.pdf", "pdf")
	f.store.seed(t, "uploads/test-file.txt", "txt")

	var e events.S3Event
	require.NoError(t, json.Unmarshal([]byte(s3Notification), &e))

	require.NoError(t, f.handler.HandleS3Event(context.Background(), e))
	assert.Equal(t, []string{"uploads/test-file.pdf"}, fileNames(f.records.Records()))
	assert.Contains(t, f.store.Keys("file-storage"), "errors/uploads/test-file.txt")
}
