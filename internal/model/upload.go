package model

import "time"

// Upload kinds accepted by the media endpoints.  Each kind carries
// its own size and type constraints, enforced before any storage call.
const (
	UploadProfileImage = "PROFILE_IMAGE"
	UploadLetter       = "APPLICATION_LETTER"
	UploadVideo        = "DISABILITY_VIDEO"
)

// Upload records a stored media object belonging to a user.  The
// storage key is the opaque reference returned by the storage backend.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owner of the upload.
//  Kind        – one of the Upload* constants.
//  StorageKey  – backend reference for retrieval.
//  ContentType – MIME type as uploaded.
//  SizeBytes   – object size in bytes.
//  CreatedAt   – creation timestamp.
type Upload struct {
	ID          uint64    // uploads.id
	UserID      uint64    // uploads.user_id
	Kind        string    // uploads.kind
	StorageKey  string    // uploads.storage_key
	ContentType string    // uploads.content_type
	SizeBytes   int64     // uploads.size_bytes
	CreatedAt   time.Time // uploads.created_at
}
