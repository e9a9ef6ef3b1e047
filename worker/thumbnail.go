// Package worker contains the background consumers fed by the job queue:
// thumbnail generation for image uploads and welcome notifications for new
// users. Workers run decoupled from request handling; uploads return before
// any derivative exists.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"filevault/models"
	"filevault/queue"
	"filevault/repository"
	"filevault/storage"

	"github.com/google/uuid"
)

// thumbnailWidths are the generated variant widths, largest first.
var thumbnailWidths = []int{500, 250, 100}

// FailureKind classifies why a job failed.
type FailureKind string

const (
	FailureMissingField FailureKind = "missing_field"
	FailureNotFound     FailureKind = "not_found"
	FailureProcessing   FailureKind = "processing"
)

// JobError is a typed thumbnail job failure.
type JobError struct {
	Kind FailureKind
	Err  error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// Result reports the terminal state of one consumed job.
type Result struct {
	Job    models.ThumbnailJob
	Status models.JobStatus
	Err    error
}

// FileGetter is the slice of the metadata store the worker needs.
type FileGetter interface {
	GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.File, error)
}

// Thumbnailer consumes thumbnail jobs one at a time and writes resized
// derivatives next to the original payload.
type Thumbnailer struct {
	files      FileGetter
	store      storage.Storage
	jobTimeout time.Duration
	results    chan Result
}

// NewThumbnailer creates a thumbnail worker. jobTimeout bounds a single
// job so a wedged decode fails instead of occupying the consumer forever.
func NewThumbnailer(files FileGetter, store storage.Storage, jobTimeout time.Duration) *Thumbnailer {
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &Thumbnailer{
		files:      files,
		store:      store,
		jobTimeout: jobTimeout,
		results:    make(chan Result, 16),
	}
}

// Results is the failure/completion channel. Sends are non-blocking: with
// no listener the worker keeps consuming and the outcome is only logged.
func (w *Thumbnailer) Results() <-chan Result {
	return w.results
}

// Run consumes messages until the channel is closed or ctx is canceled.
func (w *Thumbnailer) Run(ctx context.Context, msgs <-chan queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var job models.ThumbnailJob
			if err := msg.Decode(&job); err != nil {
				log.Printf("worker: dropping undecodable thumbnail job: %v", err)
				continue
			}
			w.report(w.handle(ctx, job))
		}
	}
}

func (w *Thumbnailer) handle(ctx context.Context, job models.ThumbnailJob) Result {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	if err := w.process(jobCtx, job); err != nil {
		log.Printf("worker: thumbnail job for file %s failed: %v", job.FileID, err)
		return Result{Job: job, Status: models.JobStatusFailed, Err: err}
	}
	return Result{Job: job, Status: models.JobStatusDone}
}

// process runs one job: queued -> processing -> done | failed. A failure
// partway through the width loop leaves already-written variants in place
// but still fails the job.
func (w *Thumbnailer) process(ctx context.Context, job models.ThumbnailJob) error {
	if job.FileID == uuid.Nil {
		return &JobError{Kind: FailureMissingField, Err: errors.New("missing fileId")}
	}
	if job.UserID == uuid.Nil {
		return &JobError{Kind: FailureMissingField, Err: errors.New("missing userId")}
	}

	file, err := w.files.GetByIDAndUser(ctx, job.FileID, job.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return &JobError{Kind: FailureNotFound, Err: errors.New("file not found")}
	}
	if err != nil {
		return &JobError{Kind: FailureProcessing, Err: err}
	}

	if err := w.store.Stat(ctx, file.StoragePath); err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return &JobError{Kind: FailureNotFound, Err: errors.New("file content not found")}
		}
		return &JobError{Kind: FailureProcessing, Err: err}
	}

	original, err := w.readAll(ctx, file.StoragePath)
	if err != nil {
		return &JobError{Kind: FailureProcessing, Err: err}
	}

	for _, width := range thumbnailWidths {
		thumb, err := resizeToWidth(original, width)
		if err != nil {
			return &JobError{Kind: FailureProcessing, Err: fmt.Errorf("width %d: %w", width, err)}
		}
		ref := storage.VariantRef(file.StoragePath, width)
		if err := w.store.Save(ctx, ref, bytes.NewReader(thumb)); err != nil {
			return &JobError{Kind: FailureProcessing, Err: fmt.Errorf("width %d: %w", width, err)}
		}
	}

	return nil
}

func (w *Thumbnailer) readAll(ctx context.Context, ref string) ([]byte, error) {
	rc, err := w.store.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (w *Thumbnailer) report(res Result) {
	select {
	case w.results <- res:
	default:
	}
}
