package dto

import "time"

// ExportRequest selects the export format. Empty means CSV.
type ExportRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=csv pdf xlsx"`
}

// ExportResponse describes a stored export and its signed download link.
type ExportResponse struct {
	ExportID    string    `json:"exportId"`
	Format      string    `json:"format"`
	Filename    string    `json:"filename"`
	Rows        int       `json:"rows"`
	Token       string    `json:"token"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ImportRowError reports why a row of an imported sheet was rejected.
type ImportRowError struct {
	Row       int    `json:"row"`
	StudentID string `json:"studentId,omitempty"`
	Message   string `json:"message"`
}

// ImportResponse summarises a gradebook import.
type ImportResponse struct {
	Processed int              `json:"processed"`
	Updated   int              `json:"updated"`
	Unchanged int              `json:"unchanged"`
	Failed    int              `json:"failed"`
	Errors    []ImportRowError `json:"errors"`
}
