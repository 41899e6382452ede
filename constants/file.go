package constants

import "strings"

// Declared MIME types the extractor accepts.
const (
	MimeCSV     = "text/csv"
	MimePDF     = "application/pdf"
	MimeXLSX    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeXLS     = "application/vnd.ms-excel"
)

// SupportedMime reports whether the declared MIME type has an extraction path.
func SupportedMime(mime string) bool {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case MimeCSV, MimePDF, MimeXLSX, MimeXLS:
		return true
	}
	return false
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForExt maps a filename extension to a declared MIME type; empty when
// the extension is not one we ingest.
func MimeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "csv":
		return MimeCSV
	case "pdf":
		return MimePDF
	case "xlsx":
		return MimeXLSX
	case "xls":
		return MimeXLS
	}
	return ""
}
