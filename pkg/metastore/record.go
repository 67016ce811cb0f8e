package metastore

// FileRecord represents a single accepted upload in the metadata table.
// Records are append-only: the pipeline never reads or mutates them.
type FileRecord struct {
	ID            string `dynamodbav:"id"`
	UploadDate    string `dynamodbav:"uploadDate"`
	FileExtension string `dynamodbav:"fileExtension"`
	FileSize      int64  `dynamodbav:"fileSize"`
	FileName      string `dynamodbav:"fileName"`
}

// Attribute names shared with the change-log readers.
const (
	AttrID            = "id"
	AttrUploadDate    = "uploadDate"
	AttrFileExtension = "fileExtension"
	AttrFileSize      = "fileSize"
	AttrFileName      = "fileName"
)

// UploadDateLayout is the ISO-8601 form stamped into UploadDate.
const UploadDateLayout = "2006-01-02T15:04:05.000Z"
