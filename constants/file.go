package constants

// MaxUploadBytes caps the size of any document accepted for recognition.
const MaxUploadBytes = 10 * 1024 * 1024 // 10 MiB

// Formats stored in the scan_jobs.format column.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// PDFMIMEType is the only MIME type accepted on the PDF path.
const PDFMIMEType = "application/pdf"

// AllowedImageMIMETypes holds the image MIME types accepted for recognition.
// Types are sniffed from content, never taken from the upload headers.
var AllowedImageMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// MapMIMEToFormat returns the job format for a sniffed MIME type,
// or "" if the type is not accepted.
func MapMIMEToFormat(mime string) string {
	if mime == PDFMIMEType {
		return PDF
	}
	if _, ok := AllowedImageMIMETypes[mime]; ok {
		return IMAGE
	}
	return ""
}
