package models

import "strings"

// ExportFormat selects the rendering of an admin export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat defaults to CSV when raw is empty.
func ParseExportFormat(raw string) (ExportFormat, bool) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, true
	case ExportFormatPDF:
		return ExportFormatPDF, true
	}
	return "", false
}

// ContentType is the MIME type of the rendered file.
func (f ExportFormat) ContentType() string {
	if f == ExportFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// FileExport is a rendered download.
type FileExport struct {
	Filename    string
	ContentType string
	Body        []byte
}
