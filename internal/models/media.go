package models

import "time"

// MediaAsset is a staff-uploaded file referenced from entries.
type MediaAsset struct {
	ID           string    `db:"id" json:"id"`
	FilePath     string    `db:"file_path" json:"-"`
	OriginalName string    `db:"original_name" json:"originalName"`
	MimeType     string    `db:"mime_type" json:"mimeType"`
	SizeBytes    int64     `db:"size_bytes" json:"sizeBytes"`
	UploadedBy   *string   `db:"uploaded_by" json:"uploadedBy,omitempty"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploadedAt"`
	URL          string    `db:"-" json:"url"`
}
