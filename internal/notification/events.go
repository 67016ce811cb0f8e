package notification

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ChangeKind is the mutation a change-log entry describes.
type ChangeKind string

const (
	KindInsert ChangeKind = "INSERT"
	KindModify ChangeKind = "MODIFY"
	KindRemove ChangeKind = "REMOVE"
)

// ErrMalformedRecord marks a change event whose image lacks the fields a
// notification needs.
var ErrMalformedRecord = errors.New("malformed change record")

// Image is the new row image of a change event. Every field is optional;
// nil means the attribute was absent or had an unexpected type.
type Image struct {
	ID            *string
	FileName      *string
	FileExtension *string
	// FileSize keeps the number exactly as the store rendered it.
	FileSize   *string
	UploadDate *string
}

// ChangeEvent is one entry of the metadata store's change log. NewImage is
// nil for REMOVE entries and whenever the source omitted it.
type ChangeEvent struct {
	Kind           ChangeKind
	EventID        string
	SequenceNumber string
	NewImage       *Image
}

// Ref identifies the event in logs and reports.
func (e ChangeEvent) Ref() string {
	switch {
	case e.EventID != "":
		return e.EventID
	case e.SequenceNumber != "":
		return "seq:" + e.SequenceNumber
	default:
		return string(e.Kind)
	}
}

// UploadFields are the record values reported to subscribers.
type UploadFields struct {
	FileExtension string
	FileSize      string
	UploadDate    string
	FileName      string
}

// Fields extracts the notification fields, failing with ErrMalformedRecord
// when one is missing, empty or, for the size, not an integer.
func (img *Image) Fields() (UploadFields, error) {
	if img == nil {
		return UploadFields{}, fmt.Errorf("%w: no new image", ErrMalformedRecord)
	}

	var missing []string
	get := func(name string, v *string) string {
		if v == nil || *v == "" {
			missing = append(missing, name)
			return ""
		}
		return *v
	}

	f := UploadFields{
		FileExtension: get("fileExtension", img.FileExtension),
		FileSize:      get("fileSize", img.FileSize),
		UploadDate:    get("uploadDate", img.UploadDate),
	}
	if len(missing) > 0 {
		return UploadFields{}, fmt.Errorf("%w: missing %s", ErrMalformedRecord, strings.Join(missing, ", "))
	}
	if _, err := strconv.ParseInt(f.FileSize, 10, 64); err != nil {
		return UploadFields{}, fmt.Errorf("%w: fileSize %q is not an integer", ErrMalformedRecord, f.FileSize)
	}
	if img.FileName != nil {
		f.FileName = *img.FileName
	}
	return f, nil
}
