package tool

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// ContentTypeFor detects the MIME type from the file extension.
func ContentTypeFor(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == ".zip" {
		return "application/zip"
	}
	fileType := mime.TypeByExtension(ext)
	if fileType == "" {
		fileType = "application/octet-stream" // Default MIME type
	}
	return fileType
}

// HumanSize formats a byte count for the html pages.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
