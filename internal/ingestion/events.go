package ingestion

// UploadEvent is one object-creation notification. Key is still
// transport-encoded; SizeHint is informational and never trusted.
type UploadEvent struct {
	Bucket   string
	Key      string
	SizeHint *int64
}
