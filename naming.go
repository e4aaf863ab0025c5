package flense

import (
	"net/url"
	"path"
	"strings"
)

const defaultFilename = "document.pdf"

// mimeByExtension maps the upload extensions the service accepts. This is
// deliberately a fixed table, not a MIME database: it mirrors what the
// server recognizes.
var mimeByExtension = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".html": "text/html",
	".htm":  "text/html",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
}

// FilenameFromURL derives an upload filename from a document URL. URLs
// without a usable path component fall back to "document.pdf".
func FilenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return defaultFilename
	}

	base := path.Base(parsed.Path)
	if base == "" || base == "." || base == "/" {
		return defaultFilename
	}

	return base
}

// MIMETypeForFilename looks up the MIME type for a filename extension.
// Unknown or missing extensions default to PDF, the service's primary
// input format.
func MIMETypeForFilename(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if mime, ok := mimeByExtension[ext]; ok {
		return mime
	}
	return "application/pdf"
}
