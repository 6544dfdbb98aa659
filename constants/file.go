package constants

import (
	"path/filepath"
	"strings"
)

// FileFormat selects the analysis path: PDF goes through the async job API,
// IMAGE through the synchronous one.
type FileFormat string

const (
	PDF   FileFormat = "PDF"
	IMAGE FileFormat = "IMAGE"
)

// AllowedExtensions holds the default allowed file extensions for uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tiff": {},
	"tif":  {},
	"webp": {},
}

// XLSXContentType is the content type written alongside result workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the analysis format for a file extension,
// or "" when the extension is not supported.
func MapExtToFormat(ext string) FileFormat {
	e := NormalizeExt(ext)
	if _, ok := AllowedExtensions[e]; !ok {
		return ""
	}
	if e == "pdf" {
		return PDF
	}
	return IMAGE
}

// ContentTypeForName guesses a content type from a file name.
func ContentTypeForName(name string) string {
	switch NormalizeExt(filepath.Ext(name)) {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "tiff", "tif":
		return "image/tiff"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
