package types

import "time"

// ExportStatus tracks an export through the worker pipeline.
type ExportStatus string

const (
	ExportStatusPending ExportStatus = "pending"
	ExportStatusReady   ExportStatus = "ready"
	ExportStatusFailed  ExportStatus = "failed"
)

// Export is a user's request for a CSV dump of their transactions.
// The file itself lives in object storage under ObjectKey.
type Export struct {
	// ID is a UUID assigned when the export is requested.
	ID string `json:"id" db:"id"`

	// UserID is the owner; exports are scoped like transactions.
	UserID string `json:"userId" db:"user_id"`

	Status ExportStatus `json:"status" db:"status"`

	// ObjectKey is set once the worker has uploaded the file.
	ObjectKey string `json:"objectKey,omitempty" db:"object_key"`

	// Error holds the failure reason when Status is failed.
	Error string `json:"error,omitempty" db:"error"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
