package models

import "github.com/google/uuid"

// JobStatus represents the state of a background job as it moves through
// the worker: queued -> processing -> done | failed.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// ThumbnailJob is the message enqueued after an image upload. FileID and
// UserID identify the record whose derivatives should be generated; the
// worker re-checks ownership before touching storage.
type ThumbnailJob struct {
	FileID uuid.UUID `json:"fileId"`
	UserID uuid.UUID `json:"userId"`
}

// WelcomeJob is the message enqueued after a successful registration.
type WelcomeJob struct {
	UserID uuid.UUID `json:"userId"`
}
