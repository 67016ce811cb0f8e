package notification

import (
	"fmt"

	"github.com/your-org/fileflow/pkg/notify"
)

// Subject is the subject line of every upload notification.
const Subject = "New File Upload Notification"

// FormatMessage renders the human-readable notification for one upload.
func FormatMessage(f UploadFields) notify.Message {
	body := fmt.Sprintf("New file uploaded:\nExtension: %s\nSize: %s bytes\nUpload Date: %s\n",
		f.FileExtension, f.FileSize, f.UploadDate)
	return notify.Message{Subject: Subject, Body: body}
}
