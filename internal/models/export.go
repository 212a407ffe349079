package models

import "strings"

// ExportFormat enumerates supported gradebook export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat normalises a user supplied format. Empty input defaults to CSV.
func ParseExportFormat(raw string) (ExportFormat, bool) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, true
	case ExportFormatPDF:
		return ExportFormatPDF, true
	case ExportFormatXLSX:
		return ExportFormatXLSX, true
	default:
		return "", false
	}
}

// ContentType returns the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatPDF:
		return "application/pdf"
	case ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// GradebookColumns is the column order of exported and imported grade sheets.
var GradebookColumns = []string{
	"Student ID",
	"Student Name",
	"Assignments",
	"Quizzes",
	"Midterm",
	"Finals",
	"Final Grade",
	"Letter Grade",
	"Status",
	"Comments",
}
