package format

import (
	"fmt"
	"net/http"
)

// FormatImage formats image content for display
func FormatImage(data []byte) string {
	return fmt.Sprintf("[Binary image data - %s, %s]", FormatSize(int64(len(data))), http.DetectContentType(data))
}

// FormatImagePreview creates a short preview of image content
func FormatImagePreview(data []byte) string {
	return fmt.Sprintf("[Image %s]", FormatSize(int64(len(data))))
}
