package models

import "time"

// ProjectFile records metadata for an uploaded attachment. The bytes
// themselves live in the storage layer; only the stored path is kept.
type ProjectFile struct {
	ID            string    `db:"id" json:"id"`
	ProjectID     string    `db:"project_id" json:"project_id"`
	UploaderID    string    `db:"uploader_id" json:"uploader_id"`
	StoredPath    string    `db:"stored_path" json:"-"`
	OriginalName  string    `db:"original_name" json:"original_name"`
	SizeBytes     int64     `db:"size_bytes" json:"size_bytes"`
	ThumbnailPath *string   `db:"thumbnail_path" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
