package constants

import "strings"

const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	TXT   = "TXT"
)

// FileTypes holds the allowed values for a document's source format.
var FileTypes = []string{PDF, IMAGE, TXT}

// Upload size guards, checked before any OCR collaborator is called.
const (
	MaxImageBytes = 10 << 20
	MaxPDFBytes   = 20 << 20
)

// AllowedExtensions holds the default allowed file extensions for directory ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
	"txt":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat maps a normalized extension to PDF, IMAGE or TXT; "" if unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "webp", "gif", "bmp", "tif", "tiff":
		return IMAGE
	case "txt":
		return TXT
	default:
		return ""
	}
}

// MaxBytesForFormat returns the upload cap for a format, 0 when uncapped.
func MaxBytesForFormat(format string) int {
	switch format {
	case PDF:
		return MaxPDFBytes
	case IMAGE:
		return MaxImageBytes
	default:
		return 0
	}
}
